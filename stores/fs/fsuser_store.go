// Package fs provides a JSON-file UserStore suitable for development
// and tests.
//
// # File Structure
//
//	{StoragePath}/
//	├── users/
//	│   └── {userId}.json          # full user record
//	├── usernames/
//	│   └── {normalized}.json      # username -> user id
//	└── anchors/
//	    └── {provider}/
//	        └── {providerId}.json  # federated anchor -> user id
//
// # Concurrency Model
//
// A single store-level mutex serializes every operation, so the
// find-or-create of a federated anchor is atomic at this storage
// layer's level: concurrent resolves for one provider id observe or
// create exactly one user. File writes are atomic (temp file + rename).
package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	sa "github.com/YusuffDevOps/Secrets-app"
)

// anchorRef is the payload of username and anchor index files.
type anchorRef struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FSUserStore stores users as JSON files
type FSUserStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) userPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", userId+".json")
}

func (s *FSUserStore) usernamePath(username string) string {
	return filepath.Join(s.StoragePath, "usernames", strings.ToLower(username)+".json")
}

// safeKey rejects values that could escape the store directory when
// joined into an index filename.
func safeKey(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func (s *FSUserStore) anchorPath(provider, providerID string) string {
	// provider ids are provider-assigned opaque tokens, fine as filenames
	return filepath.Join(s.StoragePath, "anchors", provider, providerID+".json")
}

func (s *FSUserStore) GetUserById(userId string) (*sa.User, error) {
	if !safeKey(userId) {
		return nil, sa.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUser(userId)
}

func (s *FSUserStore) GetUserByUsername(username string) (*sa.User, error) {
	if !safeKey(username) {
		return nil, sa.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.loadRef(s.usernamePath(username))
	if err != nil {
		return nil, err
	}
	return s.loadUser(ref.UserID)
}

func (s *FSUserStore) CreateUser(user *sa.User) (*sa.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(user)
}

func (s *FSUserStore) EnsureFederatedUser(provider, providerID string) (*sa.User, error) {
	if !safeKey(providerID) {
		return nil, fmt.Errorf("%w: malformed %s id", sa.ErrInvalidUser, provider)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.loadRef(s.anchorPath(provider, providerID))
	if err == nil {
		return s.loadUser(ref.UserID)
	}
	if err != sa.ErrNotFound {
		return nil, err
	}

	user := &sa.User{}
	if !user.SetProviderID(provider, providerID) {
		return nil, fmt.Errorf("%w: %q", sa.ErrUnknownProvider, provider)
	}
	return s.createUserLocked(user)
}

func (s *FSUserStore) UsersWithSecret() ([]*sa.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.StoragePath, "users"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sa.NewStoreError("list users", err)
	}

	var out []*sa.User
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		user, err := s.loadUser(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		if user.HasSecret() {
			out = append(out, user)
		}
	}
	return out, nil
}

func (s *FSUserStore) SetSecret(userId string, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.loadUser(userId)
	if err != nil {
		return err
	}
	user.Secret = &secret
	user.UpdatedAt = time.Now()
	return s.saveUser(user)
}

// createUserLocked assumes the store mutex is held.
func (s *FSUserStore) createUserLocked(user *sa.User) (*sa.User, error) {
	if !user.HasAnchor() {
		return nil, sa.ErrInvalidUser
	}
	if user.Username != nil && !safeKey(*user.Username) {
		return nil, fmt.Errorf("%w: username is not a valid index key", sa.ErrInvalidUser)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Username != nil {
		if _, err := s.loadRef(s.usernamePath(*user.Username)); err == nil {
			return nil, sa.ErrDuplicateUsername
		}
	}

	if err := s.saveUser(user); err != nil {
		return nil, err
	}

	// A half-indexed user is unreachable and squats on its anchors, so a
	// failed ref write rolls back everything written so far.
	var refPaths []string
	if user.Username != nil {
		refPaths = append(refPaths, s.usernamePath(*user.Username))
	}
	for _, provider := range []string{sa.ProviderGoogle, sa.ProviderFacebook} {
		if pid := user.ProviderID(provider); pid != nil && *pid != "" {
			refPaths = append(refPaths, s.anchorPath(provider, *pid))
		}
	}

	ref := &anchorRef{UserID: user.ID, CreatedAt: now}
	for i, path := range refPaths {
		if err := s.saveRef(path, ref); err != nil {
			for _, written := range refPaths[:i] {
				os.Remove(written)
			}
			os.Remove(s.userPath(user.ID))
			return nil, err
		}
	}
	return user, nil
}

func (s *FSUserStore) loadUser(userId string) (*sa.User, error) {
	data, err := os.ReadFile(s.userPath(userId))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sa.ErrNotFound
		}
		return nil, sa.NewStoreError("read user", err)
	}
	var user sa.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, sa.NewStoreError("decode user", err)
	}
	return &user, nil
}

func (s *FSUserStore) saveUser(user *sa.User) error {
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return sa.NewStoreError("encode user", err)
	}
	return writeAtomicFile(s.userPath(user.ID), data)
}

func (s *FSUserStore) loadRef(path string) (*anchorRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sa.ErrNotFound
		}
		return nil, sa.NewStoreError("read index", err)
	}
	var ref anchorRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, sa.NewStoreError("decode index", err)
	}
	return &ref, nil
}

func (s *FSUserStore) saveRef(path string, ref *anchorRef) error {
	data, err := json.MarshalIndent(ref, "", "  ")
	if err != nil {
		return sa.NewStoreError("encode index", err)
	}
	return writeAtomicFile(path, data)
}
