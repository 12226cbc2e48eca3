package secretsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type userContextKey struct{}

// Middleware deserializes the session on every request: session value
// (or a verified auth-token cookie/header) -> user id -> full User from
// the store. The resolved user rides on the request context; requests
// whose token no longer maps to a user degrade to anonymous rather than
// failing.
type Middleware struct {
	AuthTokenHeaderName string
	AuthTokenCookieName string
	CallbackURLParam    string
	SessionGetter       func(r *http.Request, param string) any
	GetRedirURL         func(r *http.Request) string
	VerifyToken         func(tokenString string) (loggedInUserId string, err error)
	Store               UserStore
}

// Ensures that config values have reasonable defaults.
func (a *Middleware) EnsureReasonableDefaults() {
	if a.CallbackURLParam == "" {
		a.CallbackURLParam = "callbackURL"
	}
	if a.AuthTokenHeaderName == "" {
		a.AuthTokenHeaderName = "Authorization"
	}
}

// GetLoggedInUserId resolves the minimal session payload for the
// current request: the session first, then any auth token cookies or
// headers. Empty means anonymous.
func (a *Middleware) GetLoggedInUserId(r *http.Request) string {
	if a.SessionGetter != nil {
		if v, ok := a.SessionGetter(r, SessionUserIdVar).(string); ok && v != "" {
			return v
		}
	}

	if a.VerifyToken == nil {
		slog.Warn("No auth token verifier found.  Please set one")
		return ""
	}

	var authTokens []string
	for _, header := range r.Header.Values(a.AuthTokenHeaderName) {
		authTokens = append(authTokens, strings.TrimPrefix(header, "Bearer "))
	}
	for _, cookie := range r.CookiesNamed(a.AuthTokenCookieName) {
		if len(cookie.Value) > 0 {
			// non-api calls send the token as a cookie instead
			authTokens = append(authTokens, cookie.Value)
		}
	}

	for _, authToken := range authTokens {
		loggedInUserId, err := a.VerifyToken(authToken)
		if err == nil && loggedInUserId != "" {
			return loggedInUserId
		} else if err != nil {
			slog.Warn("Error verifying token", "error", err)
		}
	}

	return ""
}

// ResolveUser reconstructs the full user from the session token. A
// token whose user no longer exists yields nil, not an error.
func (a *Middleware) ResolveUser(r *http.Request) *User {
	userId := a.GetLoggedInUserId(r)
	if userId == "" || a.Store == nil {
		return nil
	}
	user, err := a.Store.GetUserById(userId)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("error loading session user", "userId", userId, "err", err)
		}
		return nil
	}
	return user
}

// ExtractUser loads the resolved user (if any) into the request context
// for downstream handlers. It never redirects; use EnsureUser to also
// enforce that a user is logged in.
func (a *Middleware) ExtractUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, a.withUser(a.ResolveUser(r), r))
		},
	)
}

// EnsureUser is the access gate for protected routes: anonymous
// requests are redirected to the login view (or get a 401 when no
// redirect URL is configured); authenticated ones proceed with the user
// on the context.
func (a *Middleware) EnsureUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			user := a.ResolveUser(r)
			if user == nil {
				redirUrl := ""
				if a.GetRedirURL != nil {
					redirUrl = a.GetRedirURL(r)
				}
				if redirUrl != "" {
					originalUrl := r.URL.Path
					encodedUrl := strings.Replace(url.QueryEscape(originalUrl), "+", "%20", -1)
					fullRedirUrl := fmt.Sprintf("%s?%s=%s", redirUrl, a.CallbackURLParam, encodedUrl)
					http.Redirect(w, r, fullRedirUrl, http.StatusFound)
				} else {
					http.Error(w, "Login Required", http.StatusUnauthorized)
				}
				return
			}
			next.ServeHTTP(w, a.withUser(user, r))
		},
	)
}

func (a *Middleware) withUser(user *User, r *http.Request) *http.Request {
	if user == nil {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), userContextKey{}, user))
}

// UserFromContext returns the user resolved for this request, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*User)
	return user, ok && user != nil
}

// UserFromRequest is a convenience over UserFromContext.
func UserFromRequest(r *http.Request) (*User, bool) {
	return UserFromContext(r.Context())
}

// IsAuthenticated reports whether the request carries a resolved user.
func IsAuthenticated(r *http.Request) bool {
	_, ok := UserFromRequest(r)
	return ok
}
