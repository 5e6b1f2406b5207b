package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/aupoz/internal/apperr"
	"github.com/iliyamo/aupoz/internal/config"
	"github.com/iliyamo/aupoz/internal/middleware"
	"github.com/iliyamo/aupoz/internal/model"
	"github.com/iliyamo/aupoz/internal/repository"
	"github.com/iliyamo/aupoz/internal/utils"
)

// UserStore is satisfied by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, email string, name *string, password string, cost int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

// SessionStore is satisfied by *repository.SessionRepo.
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (model.Session, error)
	Revoke(ctx context.Context, id string) error
}

// AuthHandler bundles dependencies for account endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
}

func NewAuthHandler(cfg config.Config, u UserStore, s SessionStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s}
}

// ----- DTOs -----

type signupReq struct {
	Email    string  `json:"email" validate:"required,email,max=320"`
	Password string  `json:"password" validate:"required,min=8,max=200"`
	Name     *string `json:"name" validate:"omitempty,max=200"`
}

type signinReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResp struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

func userRespOf(u model.User) userResp {
	return userResp{ID: u.ID, Email: u.Email, Name: u.Name}
}

// Signup creates an account and signs it in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Name != nil {
		if n := strings.TrimSpace(*req.Name); n == "" {
			req.Name = nil
		} else {
			req.Name = &n
		}
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Name, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return apperr.New(apperr.CodeConflict, "email already registered")
		}
		return apperr.Storage(err, "create user")
	}
	if err := h.startSession(ctx, c, u.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": userRespOf(u)})
}

// Signin verifies credentials and issues a new session cookie.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalidCredentials()
		}
		return apperr.Storage(err, "load user")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return invalidCredentials()
	}
	if err := h.startSession(ctx, c, u.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userRespOf(u)})
}

// Signout revokes the current session and clears the cookie.  It is
// mounted behind RequireSession.
func (h *AuthHandler) Signout(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Revoke(ctx, p.SessionID); err != nil {
		return apperr.Storage(err, "revoke session")
	}
	c.SetCookie(h.cookie("", -1))
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.CodeUnauthorized, "Unauthorized")
		}
		return apperr.Storage(err, "load user")
	}
	return c.JSON(http.StatusOK, userRespOf(u))
}

// startSession persists a session row and sets the signed sid cookie.
func (h *AuthHandler) startSession(ctx context.Context, c echo.Context, userID string) error {
	s, err := h.Sessions.Create(ctx, userID, h.Cfg.SessionTTL)
	if err != nil {
		return apperr.Storage(err, "create session")
	}
	tok, err := utils.NewSessionToken(h.Cfg.SessionSecret, userID, s.ID, s.ExpiresAt)
	if err != nil {
		return apperr.Storage(err, "sign session")
	}
	c.SetCookie(h.cookie(tok.Token, int(h.Cfg.SessionTTL/time.Second)))
	return nil
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func invalidCredentials() error {
	return apperr.New(apperr.CodeUnauthorized, "invalid credentials")
}
