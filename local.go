package secretsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HandleUserFunc is called after any successful authentication with the
// resolved canonical user. Implementations bind the user to the session
// and send the response.
type HandleUserFunc func(authtype string, provider string, user *User, w http.ResponseWriter, r *http.Request)

// AuthErrorHandler handles a failed login/signup. Returning true means
// the response was written (e.g. a redirect back to the form).
type AuthErrorHandler func(err error, w http.ResponseWriter, r *http.Request) bool

// dummyHash is compared against when the username does not exist so the
// unknown-user path costs the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("secretsapp.dummy"), bcrypt.DefaultCost)

// Username: 3-20 chars, alphanumeric + underscore + hyphen. The stores
// use usernames as index keys, so nothing outside this set may reach
// them.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Allows local username/password based authentication
type LocalAuth struct {
	Store UserStore

	// Minimum password length enforced at registration. Defaults to 6.
	MinPasswordLength int

	// Form field names
	UsernameField string
	PasswordField string

	// Handler called after successful authentication
	HandleUser HandleUserFunc

	// OnLoginError is called when login fails. If nil, returns JSON error.
	OnLoginError AuthErrorHandler

	// OnSignupError is called when signup fails. If nil, returns JSON error.
	OnSignupError AuthErrorHandler
}

// Register creates a local account. The password is hashed with bcrypt
// (salted, one-way) before anything touches the store; the store's
// uniqueness constraint decides duplicate usernames.
func (a *LocalAuth) Register(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", ErrInvalidUser)
	}
	if len(username) < 3 || len(username) > 20 {
		return nil, fmt.Errorf("%w: username must be 3-20 characters", ErrInvalidUser)
	}
	if !usernameRegex.MatchString(username) {
		return nil, fmt.Errorf("%w: username can only contain letters, numbers, underscores, and hyphens", ErrInvalidUser)
	}
	if len(password) < a.minPasswordLength() {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrWeakPassword, a.minPasswordLength())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return a.Store.CreateUser(&User{
		Username:     &username,
		PasswordHash: Str(string(hash)),
	})
}

// Verify checks a username/password pair. Unknown users and wrong
// passwords return the same ErrInvalidCredentials; a dummy bcrypt
// compare keeps the two paths at the same cost.
func (a *LocalAuth) Verify(username, password string) (*User, error) {
	user, err := a.Store.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		// Federated-only account that happens to share the name space.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ServeHTTP handles login requests
func (a *LocalAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil || a.HandleUser == nil {
		http.Error(w, `{"error": "Login not configured"}`, http.StatusInternalServerError)
		return
	}

	username, password, err := a.parseCredForm(r)
	if err != nil {
		a.handleLoginError(err, w, r)
		return
	}

	user, err := a.Verify(username, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			log.Println("error validating user: ", err)
			err = ErrInvalidCredentials
		}
		a.handleLoginError(err, w, r)
		return
	}

	a.HandleUser("local", ProviderLocal, user, w, r)
}

// HandleSignup processes user registration
func (a *LocalAuth) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil || a.HandleUser == nil {
		http.Error(w, `{"error": "Signup not configured"}`, http.StatusInternalServerError)
		return
	}

	username, password, err := a.parseCredForm(r)
	if err != nil {
		a.handleSignupError(err, w, r)
		return
	}

	user, err := a.Register(username, password)
	if err != nil {
		if !isAuthFailure(err) {
			log.Println("error creating user: ", err)
		}
		a.handleSignupError(err, w, r)
		return
	}

	a.HandleUser("local", ProviderLocal, user, w, r)
}

func (a *LocalAuth) parseCredForm(r *http.Request) (username, password string, err error) {
	contentType := r.Header.Get("Content-Type")
	usernameField := a.getUsernameField()
	passwordField := a.getPasswordField()

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err = r.ParseForm(); err != nil {
			return "", "", fmt.Errorf("%w: error parsing form", ErrInvalidCredentials)
		}
		username = r.FormValue(usernameField)
		password = r.FormValue(passwordField)
	} else {
		var data map[string]any
		if err = json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return "", "", fmt.Errorf("%w: invalid post body", ErrInvalidCredentials)
		}
		if u, ok := data[usernameField].(string); ok {
			username = u
		}
		if p, ok := data[passwordField].(string); ok {
			password = p
		}
	}

	if username == "" || password == "" {
		return "", "", fmt.Errorf("%w: username and password required", ErrInvalidCredentials)
	}

	return username, password, nil
}

func (a *LocalAuth) minPasswordLength() int {
	if a.MinPasswordLength > 0 {
		return a.MinPasswordLength
	}
	return 6
}

func (a *LocalAuth) getUsernameField() string {
	if a.UsernameField != "" {
		return a.UsernameField
	}
	return "username"
}

func (a *LocalAuth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}

// handleLoginError handles login errors using the configured handler or default JSON
func (a *LocalAuth) handleLoginError(err error, w http.ResponseWriter, r *http.Request) {
	if a.OnLoginError != nil && a.OnLoginError(err, w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusUnauthorized
	if !isAuthFailure(err) {
		status = http.StatusInternalServerError
		err = errors.New("login failed")
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
}

// handleSignupError handles signup errors using the configured handler or default JSON
func (a *LocalAuth) handleSignupError(err error, w http.ResponseWriter, r *http.Request) {
	if a.OnSignupError != nil && a.OnSignupError(err, w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusBadRequest
	if !isAuthFailure(err) {
		status = http.StatusInternalServerError
		err = errors.New("signup failed")
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
}

// isAuthFailure distinguishes normal auth outcomes from infrastructure
// faults, which must never leak detail to the client.
func isAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrDuplicateUsername) ||
		errors.Is(err, ErrWeakPassword) ||
		errors.Is(err, ErrInvalidUser)
}
