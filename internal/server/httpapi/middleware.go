package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/common"
	"github.com/dmitrijs2005/fleetauth/internal/logging"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userIDKey ctxKey = "userID"

type tokenResolver interface {
	UserIDFromToken(ctx context.Context, token string) (int64, error)
}

func withRequestLogging(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chiMiddleware.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set(common.RequestIDHeaderName, reqID)
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(started),
				"request_id", reqID,
			)
		})
	}
}

func bearerAuth(tokens tokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(common.AuthorizationHeaderName)
			token, ok := strings.CutPrefix(header, common.BearerPrefix)
			if !ok || token == "" {
				unauthorized(w, "Not authenticated")
				return
			}

			id, err := tokens.UserIDFromToken(r.Context(), token)
			if err != nil {
				unauthorized(w, "Could not validate credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
		})
	}
}

func userIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
