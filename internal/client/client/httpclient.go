package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/client/models"
	"github.com/dmitrijs2005/fleetauth/internal/common"
	"github.com/dmitrijs2005/fleetauth/internal/logging"
	"github.com/google/uuid"
)

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	logger  logging.Logger

	mu             sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client (e.g. httptest's).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

func WithLogger(l logging.Logger) Option {
	return func(h *HTTPClient) { h.logger = l }
}

// NewHTTPClient builds a REST client for the backend at baseURL. timeout bounds
// every single request; zero means no client-side timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenSource, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// SetUnauthorizedHandler registers fn to be called when an authenticated
// request is rejected with 401. The session owner uses it to clear the
// persisted token and cached profile.
func (c *HTTPClient) SetUnauthorizedHandler(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *HTTPClient) unauthorized(ctx context.Context) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

type call struct {
	method string
	path   string
	body   any
	form   url.Values

	// bearer is sent as is when set; authed reads the stored token instead
	// and reports 401 to the unauthorized handler.
	bearer string
	authed bool
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (c *HTTPClient) Login(ctx context.Context, username string, password []byte) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", string(password))

	var resp tokenResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/auth/token", form: form}, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUnavailable)
	}
	return resp.AccessToken, nil
}

func (c *HTTPClient) FetchProfile(ctx context.Context, token string) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me", bearer: token}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) Register(ctx context.Context, username string, password []byte, email string) error {
	body := struct {
		Username string  `json:"username"`
		Password string  `json:"password"`
		Email    *string `json:"email"`
	}{Username: username, Password: string(password)}
	if email != "" {
		body.Email = &email
	}
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/signup", body: body}, nil)
}

func (c *HTTPClient) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	body := map[string]string{"email": email}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, call{method: http.MethodPost, path: "/auth/password-reset-request", body: body}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *HTTPClient) ConfirmPasswordReset(ctx context.Context, resetToken string, newPassword []byte) error {
	body := map[string]string{"token": resetToken, "new_password": string(newPassword)}
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/password-reset-confirm", body: body}, nil)
}

func (c *HTTPClient) ChangePassword(ctx context.Context, currentPassword, newPassword []byte) error {
	body := map[string]string{
		"current_password": string(currentPassword),
		"new_password":     string(newPassword),
	}
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/change-password", body: body, authed: true}, nil)
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, username, email string) (*models.UserProfile, error) {
	body := map[string]string{"username": username, "email": email}
	var user models.UserProfile
	if err := c.do(ctx, call{method: http.MethodPut, path: "/auth/me", body: body, authed: true}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/health"}, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, cl call, out any) error {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}

	reqID := req.Header.Get(common.RequestIDHeaderName)
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "backend request failed", "method", cl.method, "path", cl.path, "request_id", reqID, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug(ctx, "backend request", "method", cl.method, "path", cl.path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		if cl.authed && resp.StatusCode == http.StatusUnauthorized {
			c.unauthorized(ctx)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response from %s: %v", ErrUnavailable, cl.path, err)
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case cl.form != nil:
		body = strings.NewReader(cl.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case cl.body != nil:
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL.JoinPath(cl.path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())

	token := cl.bearer
	if cl.authed {
		if c.tokens == nil {
			return nil, fmt.Errorf("%w: no token source", ErrUnauthorized)
		}
		token, err = c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("read session token: %w", err)
		}
		if token == "" {
			return nil, fmt.Errorf("%w: no session token", ErrUnauthorized)
		}
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return req, nil
}

// errorBody covers both {"detail": "msg", "field": "x"} and the list form
// {"detail": [{"loc": ["body","email"], "msg": "..."}]}.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Field  string          `json:"field"`
}

type detailItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Err: statusSentinel(resp.StatusCode)}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return apiErr
	}
	apiErr.Field = eb.Field

	var msg string
	if err := json.Unmarshal(eb.Detail, &msg); err == nil {
		apiErr.Detail = msg
		return apiErr
	}

	var items []detailItem
	if err := json.Unmarshal(eb.Detail, &items); err == nil && len(items) > 0 {
		apiErr.Detail = items[0].Msg
		if apiErr.Field == "" && len(items[0].Loc) > 0 {
			if f, ok := items[0].Loc[len(items[0].Loc)-1].(string); ok {
				apiErr.Field = f
			}
		}
	}
	return apiErr
}

func statusSentinel(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUnavailable
	}
}
