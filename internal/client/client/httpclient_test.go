package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(context.Context) (string, error) { return s.token, s.err }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.Handler, tokens TokenSource) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL, 5*time.Second, tokens, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.org", time.Second, nil)
	require.Error(t, err)

	_, err = NewHTTPClient("://", time.Second, nil)
	require.Error(t, err)
}

func TestLogin_SendsFormAndReturnsToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "secret123", r.PostForm.Get("password"))
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-1", "token_type": "bearer"})
	})
	c := newTestClient(t, mux, nil)

	tok, err := c.Login(context.Background(), "alice", []byte("secret123"))
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
}

func TestLogin_WrongPassword_DoesNotFireUnauthorizedHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
	})
	c := newTestClient(t, mux, staticTokens{token: "existing"})

	fired := false
	c.SetUnauthorizedHandler(func(context.Context) { fired = true })

	_, err := c.Login(context.Background(), "alice", []byte("nope"))
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Incorrect username or password", apiErr.Detail)
	assert.False(t, fired)
}

func TestLogin_EmptyTokenIsAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})
	c := newTestClient(t, mux, nil)

	_, err := c.Login(context.Background(), "alice", []byte("pw"))
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchProfile_UsesExplicitToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"id": 4, "username": "alice", "email": "a@x.com", "role": "viewer", "account_id": 2,
		})
	})
	c := newTestClient(t, mux, staticTokens{token: "stored"})

	u, err := c.FetchProfile(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, int64(4), u.ID)
	assert.Equal(t, "alice", u.Username)
	require.NotNil(t, u.AccountID)
	assert.Equal(t, int64(2), *u.AccountID)
}

func TestAuthenticatedCall_AttachesStoredToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stored", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "username": body["username"], "email": body["email"]})
	})
	c := newTestClient(t, mux, staticTokens{token: "stored"})

	u, err := c.UpdateProfile(context.Background(), "alice2", "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)
	assert.Equal(t, "new@x.com", u.Email)
}

func TestAuthenticatedCall_401FiresUnauthorizedHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/change-password", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	})
	c := newTestClient(t, mux, staticTokens{token: "expired"})

	fired := 0
	c.SetUnauthorizedHandler(func(context.Context) { fired++ })

	err := c.ChangePassword(context.Background(), []byte("old"), []byte("newpass"))
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, fired)
}

func TestAuthenticatedCall_WithoutToken(t *testing.T) {
	c := newTestClient(t, http.NewServeMux(), staticTokens{})

	_, err := c.UpdateProfile(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrUnauthorized)

	c = newTestClient(t, http.NewServeMux(), staticTokens{err: errors.New("db closed")})
	_, err = c.UpdateProfile(context.Background(), "a", "b")
	require.ErrorContains(t, err, "read session token")
}

func TestRegister_ConflictCarriesDetailAndField(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bob", body["username"])
		assert.Equal(t, "bob@x.com", body["email"])
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username already registered", "field": "username"})
	})
	c := newTestClient(t, mux, nil)

	err := c.Register(context.Background(), "bob", []byte("pw123456"), "bob@x.com")
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Username already registered", apiErr.Detail)
	assert.Equal(t, "username", apiErr.Field)
}

func TestRegister_OmittedEmailIsNull(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		v, ok := body["email"]
		assert.True(t, ok)
		assert.Nil(t, v)
		w.WriteHeader(http.StatusCreated)
	})
	c := newTestClient(t, mux, nil)

	require.NoError(t, c.Register(context.Background(), "carol", []byte("pw123456"), ""))
}

func TestDecodeAPIError_ListDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/password-reset-request", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []any{"body", "email"}, "msg": "value is not a valid email address"}},
		})
	})
	c := newTestClient(t, mux, nil)

	_, err := c.RequestPasswordReset(context.Background(), "nope")
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "email", apiErr.Field)
	assert.Equal(t, "value is not a valid email address", apiErr.Detail)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/password-reset-request", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "reset-1"})
	})
	mux.HandleFunc("POST /auth/password-reset-confirm", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "reset-1", body["token"])
		assert.Equal(t, "brandnew", body["new_password"])
		writeJSON(w, http.StatusOK, map[string]string{"detail": "Password reset"})
	})
	c := newTestClient(t, mux, nil)

	tok, err := c.RequestPasswordReset(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "reset-1", tok)
	require.NoError(t, c.ConfirmPasswordReset(context.Background(), tok, []byte("brandnew")))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusBadRequest, ErrValidation},
		{http.StatusConflict, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusBadGateway, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			c := newTestClient(t, mux, nil)
			require.ErrorIs(t, c.Ping(context.Background()), tt.want)
		})
	}
}

func TestTransportFailure_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, time.Second, nil)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "alice", []byte("pw"))
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMalformedBody_IsUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	c := newTestClient(t, mux, nil)

	_, err := c.FetchProfile(context.Background(), "t")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestPing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	c := newTestClient(t, mux, nil)
	require.NoError(t, c.Ping(context.Background()))
}
