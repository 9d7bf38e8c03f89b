package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/common"
	"github.com/dmitrijs2005/fleetauth/internal/logging"
	"github.com/dmitrijs2005/fleetauth/internal/server/resets"
	"github.com/dmitrijs2005/fleetauth/internal/server/users"
)

type UserService interface {
	tokenResolver
	Register(ctx context.Context, username, password, email string) (*users.User, error)
	Authenticate(ctx context.Context, username, password string) (string, error)
	Get(ctx context.Context, id int64) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	UpdateProfile(ctx context.Context, id int64, username, email string) (*users.User, error)
	ChangePassword(ctx context.Context, id int64, current, next string) error
	ResetPassword(ctx context.Context, id int64, next string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	users    UserService
	resets   resets.Store
	resetTTL time.Duration
	logger   logging.Logger
}

func NewHandler(us UserService, rs resets.Store, resetTTL time.Duration, logger logging.Logger) *Handler {
	return &Handler{users: us, resets: rs, resetTTL: resetTTL, logger: logger}
}

type profileResponse struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     *string `json:"email"`
	Role      string  `json:"role"`
	AccountID *int64  `json:"account_id"`
}

func toProfile(u *users.User) profileResponse {
	p := profileResponse{ID: u.ID, Username: u.Username, Role: u.Role, AccountID: u.AccountID}
	if u.Email != "" {
		email := u.Email
		p.Email = &email
	}
	return p
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token exchanges form-encoded username and password for an access token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid form body", "")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" {
		writeError(w, http.StatusUnprocessableEntity, "Username is required", "username")
		return
	}
	if password == "" {
		writeError(w, http.StatusUnprocessableEntity, "Password is required", "password")
		return
	}

	token, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			unauthorized(w, "Incorrect username or password")
			return
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

type signupRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
		return
	}
	var email string
	if req.Email != nil {
		email = *req.Email
	}

	u, err := h.users.Register(r.Context(), req.Username, req.Password, email)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "user registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, toProfile(u))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := userIDFromContext(r.Context())

	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(u))
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, _ := userIDFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), id, req.Username, req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(u))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := userIDFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
		return
	}

	if err := h.users.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "password changed", "user_id", id)
	writeJSON(w, http.StatusOK, errorResponse{Detail: "Password changed"})
}

type resetRequest struct {
	Email string `json:"email"`
}

// PasswordResetRequest issues a reset token for the account with the given
// email. Without a mail transport the token is returned in the response.
func (h *Handler) PasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
		return
	}

	u, err := h.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "Email not found", "email")
			return
		}
		h.fail(w, r, err)
		return
	}

	token := resets.NewToken()
	if err := h.resets.Save(r.Context(), token, u.ID, h.resetTTL); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "password reset requested", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type resetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "Reset token is required", "token")
		return
	}
	// a rejected password must not burn the token
	if err := users.ValidatePassword("new_password", req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.resets.Consume(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, resets.ErrTokenNotFound) {
			writeError(w, http.StatusBadRequest, "Invalid or expired reset token", "token")
			return
		}
		h.fail(w, r, err)
		return
	}

	if err := h.users.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "password reset", "user_id", id)
	writeJSON(w, http.StatusOK, errorResponse{Detail: "Password reset"})
}

// Health reports ok, or 503 when the reset store is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.resets.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *users.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message, ve.Field)
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "Not found", "")
	case errors.Is(err, common.ErrorUnauthorized):
		unauthorized(w, "Could not validate credentials")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}
