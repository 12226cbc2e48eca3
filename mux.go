package secretsapp

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/oauth2"
)

// Gateway owns the session-binding side of authentication: it mounts
// provider handlers, installs the logout route, and turns verified
// identities (local or federated) into bound sessions.
type Gateway struct {
	mux        *http.ServeMux
	Session    *scs.SessionManager
	Middleware Middleware

	// Optional name used as a prefix for derived defaults
	AppName string

	// Name of the session variable (and cookie) where the auth token is stored
	AuthTokenSessionVar string

	// Must be passed in
	Store UserStore

	// Resolver for federated identities. Defaults to one over Store.
	Resolver *Resolver

	// All the domains where the auth token cookies will be set on a login success or logout
	CookieDomains []string

	// JWT related fields
	JwtIssuer    string
	JWTSecretKey string

	// How long is a session cookie valid for.  Defaults to 1 day
	SessionTimeoutInSeconds int

	// Where a successful login lands and where logout goes back to.
	PostLoginURL  string
	PostLogoutURL string

	// Where a failed federated resolve sends the browser. Defaults to
	// "/login", matching the provider flows.
	AuthFailureURL string

	// Tokens of logged-out sessions, refused until they expire.
	revoked *revocationList
}

func New(appName string, store UserStore) *Gateway {
	return (&Gateway{AppName: appName, Store: store}).EnsureDefaults()
}

func (a *Gateway) EnsureDefaults() *Gateway {
	if a.AppName == "" {
		a.AppName = "SecretsApp"
	}
	if a.SessionTimeoutInSeconds <= 0 {
		a.SessionTimeoutInSeconds = 86400
	}
	if a.JwtIssuer == "" {
		a.JwtIssuer = fmt.Sprintf("%s-Issuer", a.AppName)
	}
	if a.AuthTokenSessionVar == "" {
		a.AuthTokenSessionVar = fmt.Sprintf("%sAuthToken", a.AppName)
	}
	if a.JWTSecretKey == "" {
		a.JWTSecretKey = strings.TrimSpace(os.Getenv("SECRETS_JWT_SECRET_KEY"))
		if a.JWTSecretKey == "" {
			a.JWTSecretKey = "MyTestJWTSecretKey123456"
		}
	}
	if a.Session == nil {
		a.Session = scs.New()
		a.Session.Lifetime = time.Second * time.Duration(a.SessionTimeoutInSeconds)
	}
	if a.Resolver == nil {
		a.Resolver = &Resolver{Store: a.Store}
	}
	if a.PostLoginURL == "" {
		a.PostLoginURL = "/secrets"
	}
	if a.PostLogoutURL == "" {
		a.PostLogoutURL = "/"
	}
	if a.AuthFailureURL == "" {
		a.AuthFailureURL = "/login"
	}
	if a.revoked == nil {
		a.revoked = newRevocationList()
	}
	if a.Middleware.AuthTokenCookieName == "" {
		a.Middleware.AuthTokenCookieName = a.AuthTokenSessionVar
	}
	if a.Middleware.Store == nil {
		a.Middleware.Store = a.Store
	}
	if a.Middleware.SessionGetter == nil {
		a.Middleware.SessionGetter = func(r *http.Request, param string) any {
			return a.Session.Get(r.Context(), param)
		}
	}
	if a.Middleware.VerifyToken == nil {
		a.Middleware.VerifyToken = a.VerifyAuthToken
	}
	return a
}

func (a *Gateway) Handler() http.Handler {
	return a.setupRoutes().mux
}

// AddAuth mounts a provider handler (e.g. the Google or Facebook flow)
// under prefix, with the usual trailing-slash redirect so /google and
// /google/ both work after outer StripPrefix wrapping.
func (a *Gateway) AddAuth(prefix string, handler http.Handler) *Gateway {
	a.setupRoutes()
	a.EnsureDefaults()
	prefix = strings.TrimSuffix(prefix, "/")
	log.Println("Adding Auth for prefix: ", prefix)
	withSlashPattern := prefix + "/"
	a.mux.Handle(withSlashPattern, http.StripPrefix(prefix, handler))

	a.mux.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		// r.RequestURI preserves parent prefixes already stripped above us
		origPath := r.RequestURI
		if idx := strings.Index(origPath, "?"); idx != -1 {
			origPath = origPath[:idx]
		}
		target := origPath + "/"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		// 308 preserves the method; 301 would turn POSTs into GETs
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})

	return a
}

func (a *Gateway) setupRoutes() *Gateway {
	if a.mux == nil {
		a.mux = http.NewServeMux()
		a.mux.HandleFunc("/logout", a.onLogout)
	}
	return a
}

// SaveUserAndRedirect is the oauth2.HandleUserFunc for this gateway:
// the provider callback hands over its verified profile, we resolve it
// to a canonical user and bind the session.
func (a *Gateway) SaveUserAndRedirect(authtype, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	a.EnsureDefaults()
	providerID, _ := userInfo["id"].(string)
	user, err := a.Resolver.Resolve(provider, providerID)
	if err != nil {
		slog.Warn("federated resolve failed", "provider", provider, "err", err)
		http.Redirect(w, r, a.AuthFailureURL, http.StatusTemporaryRedirect)
		return
	}
	a.BindUserAndRedirect(authtype, provider, user, w, r)
}

// BindUserAndRedirect is the HandleUserFunc for already-resolved users
// (local login/signup). Binds the session and returns to where the flow
// started, or to PostLoginURL.
func (a *Gateway) BindUserAndRedirect(authtype, provider string, user *User, w http.ResponseWriter, r *http.Request) {
	a.EnsureDefaults()
	a.SetLoggedInUser(user, w, r)

	callbackURL := a.PostLoginURL
	if cookie, _ := r.Cookie("oauthCallbackURL"); cookie != nil && cookie.Value != "" {
		callbackURL = cookie.Value
	}
	// delete it too so it wont be used for subsequent redirects
	http.SetCookie(w, &http.Cookie{
		Name:   "oauthCallbackURL",
		Value:  "",
		Path:   "/",
		MaxAge: -1, Expires: time.Now(),
	})
	http.Redirect(w, r, callbackURL, http.StatusFound)
}
