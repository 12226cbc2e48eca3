package secretsapp

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session variable holding the minimal identity payload. The session
// token handed to the client maps back to exactly this: the user id.
const SessionUserIdVar = "loggedInUserId"

// revocationList remembers the ids of auth tokens invalidated before
// their expiry, so a logged-out cookie cannot be replayed. Entries fall
// out once the token would have expired on its own.
type revocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newRevocationList() *revocationList {
	return &revocationList{revoked: map[string]time.Time{}}
}

func (l *revocationList) Revoke(tokenId string, expiresAt time.Time) {
	if tokenId == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune()
	l.revoked[tokenId] = expiresAt
}

func (l *revocationList) IsRevoked(tokenId string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune()
	_, found := l.revoked[tokenId]
	return found
}

// prune assumes the mutex is held.
func (l *revocationList) prune() {
	now := time.Now()
	for id, expiresAt := range l.revoked {
		if now.After(expiresAt) {
			delete(l.revoked, id)
		}
	}
}

// SetLoggedInUser binds a user to the current session: the user id goes
// into the server session and a signed JWT (sub = user id) is set as a
// cookie on every configured domain. Passing nil clears the binding; the
// next request carrying the same transport session is anonymous. Returns
// the signed token for API callers.
func (a *Gateway) SetLoggedInUser(user *User, w http.ResponseWriter, r *http.Request) string {
	a.EnsureDefaults()
	if user == nil {
		// revoke before the session is destroyed, while the token is
		// still readable from it
		a.revokeCurrentTokens(r)
	}
	domains := a.CookieDomains
	if slices.Index(a.CookieDomains, "") < 0 { // default domain
		domains = append(domains, "")
	}
	out := ""
	for _, cookieDomain := range domains {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			Value:  "",
			MaxAge: -1, Expires: time.Now(),
			Domain: cookieDomain,
			Path:   "/",
		})

		if user != nil {
			a.Session.Put(r.Context(), SessionUserIdVar, user.ID)

			tokenString, err := a.signAuthToken(user.ID)
			if err != nil {
				slog.Info("error signing token", "err", err)
				continue
			}
			a.Session.Put(r.Context(), a.AuthTokenSessionVar, tokenString)
			http.SetCookie(w, &http.Cookie{
				Name:     a.AuthTokenSessionVar,
				Value:    tokenString,
				Domain:   cookieDomain,
				Path:     "/",
				HttpOnly: true,
				Expires:  time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)),
				MaxAge:   a.SessionTimeoutInSeconds,
			})
			out = tokenString
		} else {
			// clear the session and cookie values; safe when no binding existed
			if err := a.Session.Destroy(r.Context()); err != nil {
				slog.Warn("error clearing session", "err", err)
			}
			http.SetCookie(w, &http.Cookie{
				Name:    a.AuthTokenSessionVar,
				Domain:  cookieDomain,
				Path:    "/",
				MaxAge:  -1,
				Expires: time.Now(),
			})
		}
	}
	return out
}

func (a *Gateway) signAuthToken(userId string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userId,
		"iss": a.JwtIssuer,
		"jti": uuid.NewString(),
		"exp": now.Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)).Unix(),
		"iat": now.Unix(),
	})
	return token.SignedString([]byte(a.JWTSecretKey))
}

// revokeCurrentTokens invalidates every auth token the request carries,
// from the session and from cookies, so expiring the cookie cannot be
// undone by replaying a saved copy.
func (a *Gateway) revokeCurrentTokens(r *http.Request) {
	var tokens []string
	if v, ok := a.Session.Get(r.Context(), a.AuthTokenSessionVar).(string); ok && v != "" {
		tokens = append(tokens, v)
	}
	for _, cookie := range r.CookiesNamed(a.AuthTokenSessionVar) {
		if cookie.Value != "" {
			tokens = append(tokens, cookie.Value)
		}
	}
	for _, tokenString := range tokens {
		a.revokeToken(tokenString)
	}
}

func (a *Gateway) revokeToken(tokenString string) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(a.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return
	}
	tokenId, _ := claims["jti"].(string)

	expiresAt := time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds))
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}
	a.revoked.Revoke(tokenId, expiresAt)
}

// VerifyAuthToken parses and validates a token minted by SetLoggedInUser
// and returns the bound user id.
func (a *Gateway) VerifyAuthToken(tokenString string) (loggedInUserId string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(a.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	if tokenId, _ := claims["jti"].(string); a.revoked != nil && a.revoked.IsRevoked(tokenId) {
		return "", fmt.Errorf("token revoked")
	}
	return sub, nil
}

func (a *Gateway) onLogout(w http.ResponseWriter, r *http.Request) {
	log.Println("Logging out user...")
	a.SetLoggedInUser(nil, w, r)
	toUrl := r.URL.Query().Get("to")
	if toUrl == "" {
		toUrl = a.PostLogoutURL
	}
	if toUrl == "" {
		fmt.Fprintf(w, "Logged Out")
		return
	}
	http.Redirect(w, r, toUrl, http.StatusFound)
}
