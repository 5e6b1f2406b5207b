package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/config"
	"github.com/iliyamo/aupoz/internal/imagegen"
	"github.com/iliyamo/aupoz/internal/middleware"
	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/repository"
	"github.com/iliyamo/aupoz/internal/service"
	"github.com/iliyamo/aupoz/internal/utils"
)

// ----- fakes -----

type fakeUsers struct {
	mu     sync.Mutex
	byMail map[string]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byMail: map[string]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, email string, name *string, password string, cost int) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byMail[email]; ok {
		return model.User{}, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{ID: "user-" + email, Email: email, Name: name, PasswordHash: hash}
	f.byMail[email] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byMail[repository.NormalizeEmail(email)]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byMail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

type fakeSessions struct {
	mu      sync.Mutex
	created []model.Session
	revoked []string
}

func (f *fakeSessions) Create(_ context.Context, userID string, ttl time.Duration) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := model.Session{ID: "sess-" + userID, UserID: userID, ExpiresAt: time.Now().Add(ttl)}
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeSessions) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, id)
	return nil
}

type fakeAssets struct {
	asset    model.Asset
	ingested []service.IngestInput
	deduped  bool
	err      error
	lastList struct {
		owner string
		limit int
	}
}

func (f *fakeAssets) Ingest(_ context.Context, in service.IngestInput) (model.AssetRef, bool, error) {
	if f.err != nil {
		return model.AssetRef{}, false, f.err
	}
	f.ingested = append(f.ingested, in)
	return model.AssetRef{ID: "a1", URL: model.AssetURL("a1"), MIME: in.MIME, Size: int64(len(in.Bytes))}, f.deduped, nil
}

func (f *fakeAssets) Retrieve(_ context.Context, id string) (model.Asset, error) {
	if id != f.asset.ID {
		return model.Asset{}, apperr.NotFound("asset not found")
	}
	return f.asset, nil
}

func (f *fakeAssets) List(_ context.Context, ownerID string, limit int) ([]model.AssetRef, error) {
	f.lastList.owner, f.lastList.limit = ownerID, limit
	return []model.AssetRef{}, nil
}

type fakeCalendar struct {
	from, to string
	created  service.CreateEventInput
	patch    service.EventPatch
	deleted  string
	err      error
}

func (f *fakeCalendar) Create(_ context.Context, _ model.Principal, in service.CreateEventInput) (string, error) {
	f.created = in
	return "ev1", f.err
}

func (f *fakeCalendar) Query(_ context.Context, _ model.Principal, from, to string) ([]model.CalendarEvent, error) {
	f.from, f.to = from, to
	return []model.CalendarEvent{}, f.err
}

func (f *fakeCalendar) Get(_ context.Context, _ model.Principal, id string) (model.CalendarEvent, error) {
	if f.err != nil {
		return model.CalendarEvent{}, f.err
	}
	return model.CalendarEvent{ID: id, Title: "Launch", Labels: []string{}, Assets: []model.AttachedAsset{}}, nil
}

func (f *fakeCalendar) Update(_ context.Context, _ model.Principal, _ string, patch service.EventPatch) error {
	f.patch = patch
	return f.err
}

func (f *fakeCalendar) Delete(_ context.Context, _ model.Principal, id string) error {
	f.deleted = id
	return f.err
}

type fakeImages struct {
	enabled bool
	img     imagegen.Image
	err     error
}

func (f fakeImages) Enabled() bool { return f.enabled }

func (f fakeImages) Generate(context.Context, string, string) (imagegen.Image, error) {
	return f.img, f.err
}

// ----- helpers -----

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	e.Validator = NewRequestValidator()
	return e
}

// asUser stands in for RequireSession.
func asUser(id string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetPrincipal(c, model.Principal{UserID: id, SessionID: "sess-" + id})
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ----- error handler -----

func TestErrorHandlerShapes(t *testing.T) {
	e := newEcho()
	e.GET("/validation", func(echo.Context) error {
		return apperr.Validation("validation failed").WithDetails(map[string]string{"title": "is required"})
	})
	e.GET("/storage", func(echo.Context) error {
		return apperr.Storage(errors.New("dial tcp: refused"), "load")
	})
	e.GET("/missing", func(echo.Context) error { return apperr.NotFound("event not found") })
	e.GET("/unauth", func(echo.Context) error { return apperr.New(apperr.CodeUnauthorized, "Unauthorized") })

	rec := do(e, http.MethodGet, "/validation", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation failed","details":{"title":"is required"}}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/storage", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "refused")

	rec = do(e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"event not found"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/unauth", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec), "error")
}

// ----- health -----

type stubPinger struct{ err error }

func (s stubPinger) PingContext(context.Context) error { return s.err }

func TestHealthAndReady(t *testing.T) {
	e := newEcho()
	e.GET("/healthz", Health)
	e.GET("/readyz", Ready(stubPinger{}))
	e.GET("/readyz-down", Ready(stubPinger{err: errors.New("down")}))

	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/readyz-down", "").Code)
}

// ----- auth -----

func newAuth() (*echo.Echo, *fakeUsers, *fakeSessions) {
	users := newFakeUsers()
	sessions := &fakeSessions{}
	h := NewAuthHandler(config.Config{
		SessionSecret: "secret",
		SessionTTL:    time.Hour,
		BcryptCost:    4,
	}, users, sessions)

	e := newEcho()
	e.POST("/auth/signup", h.Signup)
	e.POST("/auth/signin", h.Signin)
	e.POST("/auth/signout", h.Signout, asUser("user-a@b.co"))
	e.GET("/auth/me", h.Me, asUser("user-a@b.co"))
	return e, users, sessions
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName {
			return ck
		}
	}
	return nil
}

func TestSignupSetsSessionCookie(t *testing.T) {
	e, _, sessions := newAuth()

	rec := do(e, http.MethodPost, "/auth/signup", `{"email":" A@B.co ","password":"longenough","name":"Ann"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, 3600, ck.MaxAge)

	claims, err := utils.ParseSessionToken("secret", ck.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-a@b.co", claims.UserID)
	assert.Equal(t, sessions.created[0].ID, claims.SessionID)

	body := decode(t, rec)
	assert.Equal(t, "a@b.co", body["user"].(map[string]any)["email"])

	rec = do(e, http.MethodPost, "/auth/signup", `{"email":"a@b.co","password":"longenough"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignupValidatesBody(t *testing.T) {
	e, _, _ := newAuth()

	rec := do(e, http.MethodPost, "/auth/signup", `{"email":"not-an-email","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode(t, rec)["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestSigninChecksCredentials(t *testing.T) {
	e, _, _ := newAuth()
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/auth/signup", `{"email":"a@b.co","password":"longenough"}`).Code)

	rec := do(e, http.MethodPost, "/auth/signin", `{"email":"a@b.co","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))

	rec = do(e, http.MethodPost, "/auth/signin", `{"email":"nobody@b.co","password":"longenough"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/auth/signin", `{"email":"A@b.co","password":"longenough"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, sessionCookie(rec))
}

func TestSignoutAndMe(t *testing.T) {
	e, _, sessions := newAuth()
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/auth/signup", `{"email":"a@b.co","password":"longenough"}`).Code)

	rec := do(e, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"user-a@b.co","email":"a@b.co","name":null}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/auth/signout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"sess-user-a@b.co"}, sessions.revoked)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
	assert.Negative(t, ck.MaxAge)
}

// ----- assets -----

func TestGetAssetServesImmutableBytes(t *testing.T) {
	assets := &fakeAssets{asset: model.Asset{ID: "a1", MIME: "image/png", SHA256: "abc123", Bytes: []byte("png-bytes")}}
	h := NewAssetHandler(assets, 1<<20)
	e := newEcho()
	e.GET("/assets/:id", h.Get)

	rec := do(e, http.MethodGet, "/assets/a1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "9", rec.Header().Get(echo.HeaderContentLength))
	assert.Equal(t, immutableCache, rec.Header().Get(echo.HeaderCacheControl))
	assert.Equal(t, `W/"abc123"`, rec.Header().Get("ETag"))

	req := httptest.NewRequest(http.MethodGet, "/assets/a1", nil)
	req.Header.Set("If-None-Match", `W/"abc123"`)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	for inm, want := range map[string]int{
		`"x", W/"abc123"`: http.StatusNotModified,
		`"abc123"`:        http.StatusNotModified,
		`*`:               http.StatusNotModified,
		`"xabc123"`:       http.StatusOK,
		`"x", "y"`:        http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/assets/a1", nil)
		req.Header.Set("If-None-Match", inm)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "If-None-Match: %s", inm)
	}

	rec = do(e, http.MethodGet, "/assets/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAssetsRequiresPrincipalAndParsesLimit(t *testing.T) {
	assets := &fakeAssets{}
	h := NewAssetHandler(assets, 1<<20)
	e := newEcho()
	e.GET("/assets", h.List, asUser("u1"))
	e.GET("/anon/assets", h.List)

	rec := do(e, http.MethodGet, "/assets?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
	assert.Equal(t, "u1", assets.lastList.owner)
	assert.Equal(t, 5, assets.lastList.limit)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/assets?limit=abc", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/anon/assets", "").Code)
}

func multipartUpload(t *testing.T, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if data != nil {
		part, err := w.CreateFormFile("file", "upload.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/assets", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestUploadIngestsWithProvenance(t *testing.T) {
	assets := &fakeAssets{}
	h := NewAssetHandler(assets, 1<<20)
	e := newEcho()
	e.POST("/assets", h.Upload, asUser("u1"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, []byte("payload"), map[string]string{"prompt": " a cat ", "size": "1024x1024"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"a1","url":"/assets/a1","deduped":false}`, rec.Body.String())

	require.Len(t, assets.ingested, 1)
	in := assets.ingested[0]
	assert.Equal(t, []byte("payload"), in.Bytes)
	assert.Equal(t, "u1", *in.OwnerID)
	assert.Equal(t, "a cat", *in.Prompt)
	assert.Equal(t, "1024x1024", *in.Size)

	assets.deduped = true
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, []byte("payload"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["deduped"])
	assert.Nil(t, assets.ingested[1].Prompt)
}

func TestUploadRejectsMissingAndOversizedFiles(t *testing.T) {
	assets := &fakeAssets{}
	h := NewAssetHandler(assets, 4)
	e := newEcho()
	e.POST("/assets", h.Upload, asUser("u1"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, nil, map[string]string{"prompt": "x"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, multipartUpload(t, []byte("too large"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, assets.ingested)
}

// ----- calendar -----

func newCalendarEcho(cal *fakeCalendar) *echo.Echo {
	h := NewCalendarHandler(cal)
	h.Now = func() time.Time { return time.Date(2024, time.February, 10, 15, 0, 0, 0, time.UTC) }
	e := newEcho()
	g := e.Group("/calendar", asUser("u1"))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("", h.Delete)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return e
}

func TestCalendarListDefaultsBounds(t *testing.T) {
	cal := &fakeCalendar{}
	e := newCalendarEcho(cal)

	rec := do(e, http.MethodGet, "/calendar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
	assert.Equal(t, "2024-02-10", cal.from)
	assert.Equal(t, "2024-02-29", cal.to)

	do(e, http.MethodGet, "/calendar?from=2024-01-01&to=2024-01-31", "")
	assert.Equal(t, "2024-01-01", cal.from)
	assert.Equal(t, "2024-01-31", cal.to)
}

func TestCalendarCreateAndGet(t *testing.T) {
	cal := &fakeCalendar{}
	e := newCalendarEcho(cal)

	rec := do(e, http.MethodPost, "/calendar", `{"date":"2024-02-12","title":"Launch","assetIds":["x"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"ev1"}`, rec.Body.String())
	assert.Equal(t, "Launch", cal.created.Title)
	assert.Equal(t, []string{"x"}, cal.created.AssetIDs)

	tooMany := `{"date":"2024-02-12","title":"t","labels":[` + strings.Repeat(`"l",`, 50) + `"l"]}`
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/calendar", tooMany).Code)

	rec = do(e, http.MethodGet, "/calendar/ev1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Launch", decode(t, rec)["title"])
}

func TestCalendarPatchKeepsOmittedAssetIDsDistinct(t *testing.T) {
	cal := &fakeCalendar{}
	e := newCalendarEcho(cal)

	rec := do(e, http.MethodPatch, "/calendar/ev1", `{"title":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"id":"ev1"}`, rec.Body.String())
	assert.False(t, cal.patch.AssetIDs.Set)

	rec = do(e, http.MethodPatch, "/calendar/ev1", `{"assetIds":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	ids, ok := cal.patch.AssetIDs.Get()
	assert.True(t, ok)
	assert.Empty(t, ids)
}

func TestCalendarDeleteByPathOrQuery(t *testing.T) {
	cal := &fakeCalendar{}
	e := newCalendarEcho(cal)

	rec := do(e, http.MethodDelete, "/calendar/ev1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "ev1", cal.deleted)

	rec = do(e, http.MethodDelete, "/calendar?id=ev2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ev2", cal.deleted)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodDelete, "/calendar", "").Code)

	cal.err = apperr.NotFound("event not found")
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/calendar/ev3", "").Code)
}

// ----- generate -----

func newGenerateEcho(images fakeImages, assets *fakeAssets) *echo.Echo {
	h := NewGenerateHandler(images, assets, zerolog.Nop())
	e := newEcho()
	e.POST("/generate-image", h.Generate, asUser("u1"))
	return e
}

func TestGenerateReturnsMockWithoutProvider(t *testing.T) {
	assets := &fakeAssets{}
	e := newGenerateEcho(fakeImages{}, assets)

	rec := do(e, http.MethodPost, "/generate-image", `{"prompt":"a cat"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["mock"])
	assert.Equal(t, imagegen.MockDataURL(), body["url"])
	assert.Empty(t, assets.ingested)

	e = newGenerateEcho(fakeImages{enabled: true, err: imagegen.ErrUseMock}, assets)
	rec = do(e, http.MethodPost, "/generate-image", `{"prompt":"a cat"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["mock"])
}

func TestGenerateIngestsProviderImage(t *testing.T) {
	assets := &fakeAssets{}
	img := imagegen.Image{Bytes: []byte("png"), MIME: "image/png", Model: "dall-e-3"}
	e := newGenerateEcho(fakeImages{enabled: true, img: img}, assets)

	rec := do(e, http.MethodPost, "/generate-image", `{"prompt":" a cat "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"/assets/a1","id":"a1","deduped":false}`, rec.Body.String())

	require.Len(t, assets.ingested, 1)
	in := assets.ingested[0]
	assert.Equal(t, "a cat", *in.Prompt)
	assert.Equal(t, imagegen.DefaultSize, *in.Size)
	assert.Equal(t, "u1", *in.OwnerID)
}

func TestGenerateValidatesAndMapsProviderErrors(t *testing.T) {
	e := newGenerateEcho(fakeImages{enabled: true}, &fakeAssets{})
	rec := do(e, http.MethodPost, "/generate-image", `{"prompt":"  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["details"], "prompt")

	rec = do(e, http.MethodPost, "/generate-image", `{"prompt":"x","size":"7x7"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e = newGenerateEcho(fakeImages{enabled: true, err: &imagegen.ProviderError{Status: 400, Body: "bad"}}, &fakeAssets{})
	rec = do(e, http.MethodPost, "/generate-image", `{"prompt":"x"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"image generation failed","details":{"status":400}}`, rec.Body.String())
}
