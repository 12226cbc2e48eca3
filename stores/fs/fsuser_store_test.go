package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	sa "github.com/YusuffDevOps/Secrets-app"
	"github.com/YusuffDevOps/Secrets-app/stores/fs"
)

func setupStore(t *testing.T) (*fs.FSUserStore, string) {
	tmpDir, err := os.MkdirTemp("", "secretsapp-fsstore-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	return fs.NewFSUserStore(tmpDir), tmpDir
}

func cleanup(t *testing.T, tmpDir string) {
	if err := os.RemoveAll(tmpDir); err != nil {
		t.Logf("Warning: failed to cleanup temp dir: %v", err)
	}
}

func TestCreateAndGetUser(t *testing.T) {
	store, tmpDir := setupStore(t)
	defer cleanup(t, tmpDir)

	created, err := store.CreateUser(&sa.User{
		Username:     sa.Str("alice"),
		PasswordHash: sa.Str("hash"),
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Expected created user to get an id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}

	byId, err := store.GetUserById(created.ID)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if byId.Username == nil || *byId.Username != "alice" {
		t.Errorf("Expected username alice, got %v", byId.Username)
	}

	byName, err := store.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("Expected user %q, got %q", created.ID, byName.ID)
	}
}

func TestCreateUserRequiresAnchor(t *testing.T) {
	store, tmpDir := setupStore(t)
	defer cleanup(t, tmpDir)

	_, err := store.CreateUser(&sa.User{PasswordHash: sa.Str("hash")})
	if !errors.Is(err, sa.ErrInvalidUser) {
		t.Errorf("Expected ErrInvalidUser for anchorless user, got %v", err)
	}
}

func TestDuplicateUsernameIsCaseInsensitive(t *testing.T) {
	store, tmpDir := setupStore(t)
	defer cleanup(t, tmpDir)

	if _, err := store.CreateUser(&sa.User{Username: sa.Str("Alice"), PasswordHash: sa.Str("h")}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	tests := []string{"Alice", "alice", "ALICE"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := store.CreateUser(&sa.User{Username: sa.Str(name), PasswordHash: sa.Str("h")})
			if !errors.Is(err, sa.ErrDuplicateUsername) {
				t.Errorf("Expected ErrDuplicateUsername for %q, got %v", name, err)
			}
		})
	}

	// Lookup also normalizes
	user, err := store.GetUserByUsername("aLiCe")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if *user.Username != "Alice" {
		t.Errorf("Expected stored casing Alice, got %q", *user.Username)
	}
}

func TestEnsureFederatedUser(t *testing.T) {
	store, tmpDir := setupStore(t)
	defer cleanup(t, tmpDir)

	first, err := store.EnsureFederatedUser(sa.ProviderGoogle, "g-1")
	if err != nil {
		t.Fatalf("EnsureFederatedUser failed: %v", err)
	}
	if first.GoogleID == nil || *first.GoogleID != "g-1" {
		t.Errorf("Expected GoogleID g-1, got %v", first.GoogleID)
	}

	again, err := store.EnsureFederatedUser(sa.ProviderGoogle, "g-1")
	if err != nil {
		t.Fatalf("Repeat EnsureFederatedUser failed: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("Expected same user on repeat ensure, got %q and %q", first.ID, again.ID)
	}

	if _, err := store.EnsureFederatedUser("myspace", "m-1"); !errors.Is(err, sa.ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
}

func TestStoreRejectsPathTraversalKeys(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "secretsapp-fsstore-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer cleanup(t, tmpDir)

	// Root the store one level down so an escaping write would land in
	// tmpDir, where it can be detected
	store := fs.NewFSUserStore(filepath.Join(tmpDir, "data"))

	_, err = store.CreateUser(&sa.User{Username: sa.Str("../../escaped"), PasswordHash: sa.Str("h")})
	if !errors.Is(err, sa.ErrInvalidUser) {
		t.Errorf("Expected ErrInvalidUser for traversal username, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "escaped.json")); !os.IsNotExist(err) {
		t.Error("Index file escaped the store root")
	}

	if _, err := store.GetUserByUsername("../../escaped"); !errors.Is(err, sa.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for traversal lookup, got %v", err)
	}
	if _, err := store.GetUserById("../escaped"); !errors.Is(err, sa.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for traversal id, got %v", err)
	}
	if _, err := store.EnsureFederatedUser(sa.ProviderGoogle, "../escaped"); !errors.Is(err, sa.ErrInvalidUser) {
		t.Errorf("Expected ErrInvalidUser for traversal provider id, got %v", err)
	}
}

func TestCreateUserRollsBackOnIndexFailure(t *testing.T) {
	store, tmpDir := setupStore(t)
	defer cleanup(t, tmpDir)

	// Occupy the index directory's path with a regular file so the ref
	// write cannot succeed
	if err := os.WriteFile(filepath.Join(tmpDir, "usernames"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to plant blocking file: %v", err)
	}

	_, err := store.CreateUser(&sa.User{Username: sa.Str("alice"), PasswordHash: sa.Str("h")})
	if err == nil {
		t.Fatal("Expected CreateUser to fail")
	}

	// The failed create must not leave an orphaned, unreachable record
	entries, err := os.ReadDir(filepath.Join(tmpDir, "users"))
	if err == nil && len(entries) != 0 {
		t.Errorf("Expected no user files after rollback, found %d", len(entries))
	}
}

func TestGetMissingUser(t *testing.T) {
	store, tmpDir := setupStore(t)
	defer cleanup(t, tmpDir)

	if _, err := store.GetUserById("nope"); !errors.Is(err, sa.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by id, got %v", err)
	}
	if _, err := store.GetUserByUsername("nope"); !errors.Is(err, sa.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by username, got %v", err)
	}
}

func TestSecretsRoundTrip(t *testing.T) {
	store, tmpDir := setupStore(t)
	defer cleanup(t, tmpDir)

	user, err := store.CreateUser(&sa.User{Username: sa.Str("alice"), PasswordHash: sa.Str("h")})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := store.CreateUser(&sa.User{Username: sa.Str("bob"), PasswordHash: sa.Str("h")}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// Empty store section: nobody has submitted yet
	users, err := store.UsersWithSecret()
	if err != nil {
		t.Fatalf("UsersWithSecret failed: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("Expected no users with secrets, got %d", len(users))
	}

	if err := store.SetSecret(user.ID, "hello"); err != nil {
		t.Fatalf("SetSecret failed: %v", err)
	}

	users, err = store.UsersWithSecret()
	if err != nil {
		t.Fatalf("UsersWithSecret failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("Expected 1 user with a secret, got %d", len(users))
	}
	if users[0].ID != user.ID || users[0].Secret == nil || *users[0].Secret != "hello" {
		t.Errorf("Unexpected listing: %+v", users[0])
	}

	if err := store.SetSecret("missing", "x"); !errors.Is(err, sa.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing user, got %v", err)
	}
}
