package secretsapp

import "time"

// Federated providers understood by the resolver. Local is not a
// federated provider; it appears here only as an auth type label.
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User is the canonical identity record every login resolves to,
// regardless of which credential scheme authenticated it.
//
// A user must carry at least one identity anchor: a username (local
// accounts), a Google id, or a Facebook id. Anchors are unique across
// users when present. A record with no anchor is invalid and stores
// must refuse to create it.
type User struct {
	// ID is assigned at creation, immutable and never reused.
	ID string `json:"id"`

	// Username is set for local accounts only, unique when present.
	Username *string `json:"username,omitempty"`

	// PasswordHash holds the bcrypt hash (salt embedded) for accounts
	// with a local password.
	PasswordHash *string `json:"password_hash,omitempty"`

	// GoogleID and FacebookID are provider-assigned ids, each unique
	// when present.
	GoogleID   *string `json:"google_id,omitempty"`
	FacebookID *string `json:"facebook_id,omitempty"`

	// Secret is the single user-editable protected value.
	Secret *string `json:"secret,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAnchor reports whether the record satisfies the identity anchor
// invariant.
func (u *User) HasAnchor() bool {
	return strSet(u.Username) || strSet(u.GoogleID) || strSet(u.FacebookID)
}

// HasSecret reports whether the user has submitted a secret.
func (u *User) HasSecret() bool { return strSet(u.Secret) }

// ProviderID returns the anchor value for a federated provider, or nil.
func (u *User) ProviderID(provider string) *string {
	switch provider {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderFacebook:
		return u.FacebookID
	}
	return nil
}

// SetProviderID sets the anchor for a federated provider. It reports
// false for providers without an anchor field.
func (u *User) SetProviderID(provider, providerID string) bool {
	switch provider {
	case ProviderGoogle:
		u.GoogleID = &providerID
	case ProviderFacebook:
		u.FacebookID = &providerID
	default:
		return false
	}
	return true
}

func strSet(s *string) bool { return s != nil && *s != "" }

// Str is a convenience for building optional fields.
func Str(s string) *string { return &s }

// UserStore is the single shared mutable resource of the gateway. All
// methods must be safe under concurrent invocation.
type UserStore interface {
	// GetUserById retrieves a user by id. Returns ErrNotFound when no
	// user matches.
	GetUserById(userId string) (*User, error)

	// GetUserByUsername retrieves a local account by its username.
	// Returns ErrNotFound when no user matches.
	GetUserByUsername(username string) (*User, error)

	// CreateUser persists a new user, assigning an id when empty.
	// Fails with ErrInvalidUser when the record has no anchor and with
	// ErrDuplicateUsername on a username conflict.
	CreateUser(user *User) (*User, error)

	// EnsureFederatedUser atomically finds or creates the user anchored
	// to (provider, providerID). Implementations serialize this through
	// a storage-level uniqueness guarantee, never check-then-create, so
	// at most one user exists per distinct anchor even under concurrent
	// calls.
	EnsureFederatedUser(provider, providerID string) (*User, error)

	// UsersWithSecret returns every user whose secret is set. Order is
	// backend-defined.
	UsersWithSecret() ([]*User, error)

	// SetSecret overwrites the user's secret. The prior value is
	// discarded without versioning. Returns ErrNotFound for unknown ids.
	SetSecret(userId string, secret string) error
}
