package httpapi

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/server/auth"
	"github.com/dmitrijs2005/stavros/internal/server/httpapi/response"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// authenticate requires a valid bearer access token and stores its claims in
// the request context. Tokens are only issued to verified accounts.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing token", nil)
			return
		}

		claims, err := auth.ParseToken(raw, s.jwtSecret)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, msg, nil)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil || !claims.Superuser {
			response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "administrator access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// userID returns the authenticated caller. Only valid behind authenticate.
func userID(r *http.Request) string {
	if c := claimsFrom(r.Context()); c != nil {
		return c.UserID
	}
	return ""
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

// recoverer turns a panic into a 500 and logs the stack.
func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error(r.Context(), "panic",
				"panic", rec,
				"stack", string(debug.Stack()),
				"error_tracking", s.errorTracking,
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
			response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
		}()
		next.ServeHTTP(w, r)
	})
}
