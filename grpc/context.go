// Package grpc carries the authenticated user across gRPC boundaries.
// HTTP-facing code puts the user id (or a signed auth token) into
// outgoing metadata; server interceptors verify it and services read it
// back with UserIDFromContext.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

const (
	// DefaultMetadataKeyUserID is the metadata key carrying the verified user id.
	DefaultMetadataKeyUserID = "x-user-id"

	// DefaultMetadataKeyAuthToken is the metadata key carrying a signed auth token
	// that the interceptor verifies before trusting.
	DefaultMetadataKeyAuthToken = "authorization"
)

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyUserID is the gRPC metadata key for the authenticated user ID.
	// Defaults to "x-user-id".
	MetadataKeyUserID string

	// MetadataKeyAuthToken is the gRPC metadata key for the signed auth token.
	// Defaults to "authorization".
	MetadataKeyAuthToken string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyUserID:    DefaultMetadataKeyUserID,
		MetadataKeyAuthToken: DefaultMetadataKeyAuthToken,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
	if c.MetadataKeyAuthToken == "" {
		c.MetadataKeyAuthToken = DefaultMetadataKeyAuthToken
	}
}

// UserIDFromContext extracts the authenticated user ID from the gRPC context
// metadata. Returns empty string if no user is authenticated.
func UserIDFromContext(ctx context.Context) string {
	return UserIDFromContextWithConfig(ctx, nil)
}

// UserIDFromContextWithConfig extracts the authenticated user ID using the
// specified config.
func UserIDFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeyUserID); len(values) > 0 {
		return values[0]
	}
	return ""
}

// UserIDToOutgoingContext adds the user ID to outgoing gRPC context metadata.
func UserIDToOutgoingContext(ctx context.Context, userID string) context.Context {
	return UserIDToOutgoingContextWithKey(ctx, userID, DefaultMetadataKeyUserID)
}

// UserIDToOutgoingContextWithKey adds the user ID to outgoing gRPC context
// metadata with a custom key.
func UserIDToOutgoingContextWithKey(ctx context.Context, userID string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, userID)
}

// AuthTokenToOutgoingContext adds a signed auth token to outgoing gRPC
// context metadata as a bearer credential.
func AuthTokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthToken, "Bearer "+token)
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}
