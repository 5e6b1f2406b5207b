// Package imagegen talks to an OpenAI-compatible image generation API.
package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/metrics"
)

// Models tried in order.  The second is only attempted when the first is
// rejected with a 4xx, which usually means the account lacks access to it.
var Models = []string{"dall-e-3", "gpt-image-1"}

// DefaultSize is used when the caller does not pick one.
const DefaultSize = "1024x1024"

// ErrUseMock signals that the provider cannot serve this deployment (bad
// credentials or a timeout) and a placeholder should be shown instead.
var ErrUseMock = errors.New("image provider unavailable")

// ProviderError is a non-retryable failure reported by the provider.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("image provider error (%d): %s", e.Status, e.Body)
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Image is a generated picture.  MIME may be empty when the provider did
// not say; the asset store sniffs it.
type Image struct {
	Bytes []byte
	MIME  string
	Model string
}

type Client struct {
	apiKey     string
	api        *resty.Client
	downloader *resty.Client
	log        zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	api := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("User-Agent", "AUPOZ-ImageGen/1.0").
		SetAuthToken(cfg.APIKey).
		SetTimeout(cfg.Timeout)
	downloader := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{
		apiKey:     cfg.APIKey,
		api:        api,
		downloader: downloader,
		log:        log.With().Str("component", "imagegen").Logger(),
	}
}

// Enabled reports whether a provider key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type generationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type generationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

// Generate produces one image for prompt.
func (c *Client) Generate(ctx context.Context, prompt, size string) (Image, error) {
	if !c.Enabled() {
		return Image{}, ErrUseMock
	}
	if size == "" {
		size = DefaultSize
	}

	var (
		out   generationResponse
		model string
		resp  *resty.Response
		err   error
	)
	for i, m := range Models {
		model = m
		out = generationResponse{}
		resp, err = c.api.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(generationRequest{Model: m, Prompt: prompt, Size: size, N: 1}).
			SetResult(&out).
			Post("/v1/images/generations")
		if err != nil {
			metrics.RecordImageGeneration(m, "transport_error")
			if isTimeout(ctx, err) {
				return Image{}, fmt.Errorf("%w: %v", ErrUseMock, err)
			}
			return Image{}, fmt.Errorf("image provider request failed: %w", err)
		}
		status := resp.StatusCode()
		if status >= 400 && status < 500 && i < len(Models)-1 && !isAuthStatus(status) {
			metrics.RecordImageGeneration(m, "rejected")
			c.log.Info().Str("model", m).Int("status", status).Msg("model rejected, trying fallback")
			continue
		}
		break
	}

	if resp.IsError() {
		metrics.RecordImageGeneration(model, "error")
		if isAuthStatus(resp.StatusCode()) {
			return Image{}, fmt.Errorf("%w: status %d", ErrUseMock, resp.StatusCode())
		}
		return Image{}, &ProviderError{Status: resp.StatusCode(), Body: resp.String()}
	}
	if len(out.Data) == 0 {
		metrics.RecordImageGeneration(model, "empty")
		return Image{}, ErrUseMock
	}

	item := out.Data[0]
	switch {
	case item.B64JSON != "":
		b, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			metrics.RecordImageGeneration(model, "error")
			return Image{}, &ProviderError{Status: resp.StatusCode(), Body: "invalid b64_json"}
		}
		metrics.RecordImageGeneration(model, "ok")
		return Image{Bytes: b, MIME: "image/png", Model: model}, nil
	case item.URL != "":
		metrics.RecordImageGeneration(model, "ok")
		return c.download(ctx, item.URL, prompt, model), nil
	}
	metrics.RecordImageGeneration(model, "empty")
	return Image{}, ErrUseMock
}

// download fetches a provider-hosted image.  When every attempt fails the
// result is a placeholder SVG so the generation is still recorded.
func (c *Client) download(ctx context.Context, url, prompt, model string) Image {
	resp, err := c.downloader.R().SetContext(ctx).Get(url)
	if err == nil && !resp.IsError() && len(resp.Body()) > 0 {
		mime := resp.Header().Get("Content-Type")
		return Image{Bytes: resp.Body(), MIME: mime, Model: model}
	}
	if err == nil {
		err = fmt.Errorf("status %d", resp.StatusCode())
	}
	c.log.Warn().Err(err).Str("url", url).Msg("download generated image failed")
	return Image{Bytes: []byte(failedDownloadSVG(prompt)), MIME: "image/svg+xml", Model: model}
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

const mockSVG = `<svg xmlns='http://www.w3.org/2000/svg' width='1024' height='1024'>` +
	`<defs><linearGradient id='g' x1='0' x2='1' y1='0' y2='1'>` +
	`<stop stop-color='#0b0f1a' offset='0'/><stop stop-color='#173154' offset='1'/>` +
	`</linearGradient></defs>` +
	`<rect width='100%' height='100%' fill='url(#g)'/>` +
	`<text x='50%' y='50%' font-family='sans-serif' font-size='42' fill='#cfe3ff' text-anchor='middle'>Mock image</text>` +
	`</svg>`

// MockDataURL is the placeholder returned when no provider is usable.
func MockDataURL() string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(mockSVG))
}

func failedDownloadSVG(prompt string) string {
	label := "No prompt"
	if prompt != "" {
		r := []rune(prompt)
		if len(r) > 80 {
			prompt = string(r[:80]) + "…"
		}
		label = "Prompt: " + prompt
	}
	return `<svg xmlns="http://www.w3.org/2000/svg" width="1024" height="1024">` +
		`<rect width="100%" height="100%" fill="#1a1f2e"/>` +
		`<text x="50%" y="50%" font-family="sans-serif" font-size="32" fill="#ff6b6b" text-anchor="middle">Failed to download generated image</text>` +
		`<text x="50%" y="60%" font-family="sans-serif" font-size="24" fill="#cbd5e1" text-anchor="middle">` +
		html.EscapeString(label) + `</text></svg>`
}
