package secretsapp

// SecretService exposes the protected "secrets" resource. Reading the
// wall is public (matching the original app); submitting requires an
// authenticated user and short-circuits before any store mutation
// otherwise.
type SecretService struct {
	Store UserStore
}

// UsersWithSecret lists every user who has submitted a secret. Users
// without one never appear.
func (s *SecretService) UsersWithSecret() ([]*User, error) {
	return s.Store.UsersWithSecret()
}

// SubmitSecret overwrites the user's secret with text. The prior value
// is discarded. An anonymous caller is rejected with ErrAnonymous
// before the store is touched.
func (s *SecretService) SubmitSecret(user *User, text string) error {
	if user == nil || user.ID == "" {
		return ErrAnonymous
	}
	if err := s.Store.SetSecret(user.ID, text); err != nil {
		return err
	}
	user.Secret = &text
	return nil
}
