package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.MetadataKeyUserID != DefaultMetadataKeyUserID {
		t.Errorf("expected MetadataKeyUserID %q, got %q", DefaultMetadataKeyUserID, config.MetadataKeyUserID)
	}
	if config.MetadataKeyAuthToken != DefaultMetadataKeyAuthToken {
		t.Errorf("expected MetadataKeyAuthToken %q, got %q", DefaultMetadataKeyAuthToken, config.MetadataKeyAuthToken)
	}
}

func TestEnsureDefaults(t *testing.T) {
	config := &Config{}
	config.EnsureDefaults()
	if config.MetadataKeyUserID != DefaultMetadataKeyUserID {
		t.Errorf("expected MetadataKeyUserID %q, got %q", DefaultMetadataKeyUserID, config.MetadataKeyUserID)
	}
	if config.MetadataKeyAuthToken != DefaultMetadataKeyAuthToken {
		t.Errorf("expected MetadataKeyAuthToken %q, got %q", DefaultMetadataKeyAuthToken, config.MetadataKeyAuthToken)
	}
}

func TestUserIDFromContext_NoMetadata(t *testing.T) {
	ctx := context.Background()
	if userID := UserIDFromContext(ctx); userID != "" {
		t.Errorf("expected empty user ID, got %q", userID)
	}
}

func TestUserIDFromContext_WithUserID(t *testing.T) {
	md := metadata.Pairs(DefaultMetadataKeyUserID, "user123")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	if userID := UserIDFromContext(ctx); userID != "user123" {
		t.Errorf("expected user ID %q, got %q", "user123", userID)
	}
}

func TestUserIDFromContext_CustomKey(t *testing.T) {
	md := metadata.Pairs("x-custom-user", "user456")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	config := &Config{MetadataKeyUserID: "x-custom-user"}
	if userID := UserIDFromContextWithConfig(ctx, config); userID != "user456" {
		t.Errorf("expected user ID %q, got %q", "user456", userID)
	}
}

func TestUserIDToOutgoingContext(t *testing.T) {
	ctx := UserIDToOutgoingContext(context.Background(), "user123")

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	values := md.Get(DefaultMetadataKeyUserID)
	if len(values) != 1 || values[0] != "user123" {
		t.Errorf("expected user ID in outgoing metadata, got %v", values)
	}
}

func TestAuthTokenToOutgoingContext(t *testing.T) {
	ctx := AuthTokenToOutgoingContext(context.Background(), "sometoken")

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	values := md.Get(DefaultMetadataKeyAuthToken)
	if len(values) != 1 || values[0] != "Bearer sometoken" {
		t.Errorf("expected bearer token in outgoing metadata, got %v", values)
	}
}

func TestIsAuthenticated(t *testing.T) {
	if IsAuthenticated(context.Background()) {
		t.Error("expected unauthenticated for empty context")
	}

	md := metadata.Pairs(DefaultMetadataKeyUserID, "user123")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	if !IsAuthenticated(ctx) {
		t.Error("expected authenticated with user ID in metadata")
	}
}
