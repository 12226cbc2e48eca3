package secretsapp_test

import (
	"errors"
	"sync"
	"testing"

	sa "github.com/YusuffDevOps/Secrets-app"
)

func TestResolveCreatesThenReuses(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanup(t, tmpDir)

	resolver := &sa.Resolver{Store: store}

	first, err := resolver.Resolve(sa.ProviderGoogle, "google-123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("Expected resolved user to have an id")
	}
	if first.GoogleID == nil || *first.GoogleID != "google-123" {
		t.Errorf("Expected GoogleID google-123, got %v", first.GoogleID)
	}

	second, err := resolver.Resolve(sa.ProviderGoogle, "google-123")
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same user on repeat resolve, got %q and %q", first.ID, second.ID)
	}

	// Same external id at a different provider is a different person
	other, err := resolver.Resolve(sa.ProviderFacebook, "google-123")
	if err != nil {
		t.Fatalf("Facebook resolve failed: %v", err)
	}
	if other.ID == first.ID {
		t.Error("Expected distinct users for distinct providers")
	}
}

func TestResolveConcurrent(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanup(t, tmpDir)

	resolver := &sa.Resolver{Store: store}

	const n = 16
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := resolver.Resolve(sa.ProviderFacebook, "fb-races")
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = user.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Resolve %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("Resolve %d returned user %q, want %q", i, ids[i], ids[0])
		}
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	store, tmpDir := setupTestStore(t)
	defer cleanup(t, tmpDir)

	resolver := &sa.Resolver{Store: store}

	tests := []struct {
		name       string
		provider   string
		providerID string
		wantErr    error
	}{
		{"unknown provider", "myspace", "abc", sa.ErrUnknownProvider},
		{"local is not federated", sa.ProviderLocal, "abc", sa.ErrUnknownProvider},
		{"empty provider id", sa.ProviderGoogle, "", sa.ErrInvalidUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(tt.provider, tt.providerID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
