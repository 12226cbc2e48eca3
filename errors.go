package secretsapp

import "errors"

// Sentinel errors returned by stores and verifiers. Handlers translate
// these into redirects; anything else is an infrastructure fault.
var (
	// ErrNotFound is returned by store lookups when no user matches.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidUser is returned when a user record violates the anchor
	// invariant (no username and no federated id).
	ErrInvalidUser = errors.New("user has no identity anchor")

	// ErrDuplicateUsername is returned on registration conflicts.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrWeakPassword is returned by Register before any store write.
	ErrWeakPassword = errors.New("password too short")

	// ErrInvalidCredentials covers both "no such user" and "wrong
	// password" so login responses cannot be used for enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnknownProvider is returned for providers the resolver does not
	// federate with.
	ErrUnknownProvider = errors.New("unknown federated provider")

	// ErrAnonymous is returned by gated operations invoked without an
	// authenticated user.
	ErrAnonymous = errors.New("not authenticated")
)

// StoreError wraps an infrastructure fault from a storage backend. Auth
// failures are never wrapped in it; only genuine store faults are.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err unless it is already one of the sentinel auth
// errors, which pass through unchanged.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrNotFound, ErrInvalidUser, ErrDuplicateUsername, ErrInvalidCredentials} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &StoreError{Op: op, Err: err}
}
