package secretsapp

import "fmt"

// Resolver turns a verified external provider identity into a canonical
// user. It assumes the OAuth layer has already validated the provider
// identity cryptographically; no token verification happens here.
type Resolver struct {
	Store UserStore
}

// Resolve finds or creates the user anchored to (provider, providerID).
// The create path rides on the store's uniqueness guarantee, so two
// concurrent callbacks for the same id (double-clicked consent screen,
// two tabs) converge on one record.
func (rs *Resolver) Resolve(provider, providerID string) (*User, error) {
	switch provider {
	case ProviderGoogle, ProviderFacebook:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if providerID == "" {
		return nil, fmt.Errorf("%w: empty %s id", ErrInvalidUser, provider)
	}
	return rs.Store.EnsureFederatedUser(provider, providerID)
}
