package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"sixchan/models"
	"sixchan/utils"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	AccountKey   ContextKey = "account"
	CSRFTokenKey ContextKey = "csrfToken"
)

const csrfCookieName = "csrf_token"

// NewStructuredLogger logs one line per request through the app logger.
func NewStructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("Request served",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// NewSecurityHeadersMiddleware sets the response headers every JSON
// response carries.
func NewSecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFMiddleware protects against Cross-Site Request Forgery attacks with a
// double-submit cookie.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		csrfCookie, err := r.Cookie(csrfCookieName)
		var csrfToken string

		if err != nil || csrfCookie.Value == "" {
			csrfToken = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     csrfCookieName,
				Value:    csrfToken,
				Path:     "/",
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		} else {
			csrfToken = csrfCookie.Value
		}

		if r.Method == http.MethodPost {
			tokenFromForm := r.Header.Get("X-CSRF-Token")
			if tokenFromForm == "" {
				tokenFromForm = r.FormValue(csrfCookieName)
			}
			if subtle.ConstantTimeCompare([]byte(tokenFromForm), []byte(csrfToken)) != 1 {
				http.Error(w, "Invalid CSRF token", http.StatusForbidden)
				return
			}
		}

		ctx := context.WithValue(r.Context(), CSRFTokenKey, csrfToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware resolves the session cookie to an account. A stale or
// forged cookie is cleared and the request continues anonymously.
func SessionMiddleware(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(utils.SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			accountID, err := app.Sessions().Verify(cookie.Value)
			if err != nil {
				app.Logger().Debug("Rejected session cookie", "error", err)
				clearSessionCookie(w, r)
				next.ServeHTTP(w, r)
				return
			}
			account, err := app.DB().GetAccount(r.Context(), accountID)
			if err != nil || !account.Activated {
				clearSessionCookie(w, r)
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), AccountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentAccount returns the logged-in account, or nil.
func currentAccount(r *http.Request) *models.UserAccount {
	account, _ := r.Context().Value(AccountKey).(*models.UserAccount)
	return account
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireLogin rejects anonymous requests with 401.
func RequireLogin(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if currentAccount(r) == nil {
				respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Login required."}, app)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole restricts a route to accounts whose role satisfies allowed.
func RequireRole(app App, allowed func(models.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := currentAccount(r)
			if account == nil {
				respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Login required."}, app)
				return
			}
			if !allowed(account.Role) {
				app.Logger().Warn("Role check failed", "account_id", account.ID, "role", account.Role, "path", r.URL.Path)
				respondError(w, models.ErrForbidden, app)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isAdministrator(r models.Role) bool { return r == models.RoleAdministrator }

// RateLimit throttles write endpoints per client address.
func RateLimit(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.GetIPAddress(r)
			if !app.RateLimiter().Allow(ip) {
				app.Logger().Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
				rateLimited.Inc()
				respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded. Please wait a moment."}, app)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
