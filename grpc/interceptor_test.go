package grpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func testVerifier(token string) (string, error) {
	if token == "goodtoken" {
		return "user123", nil
	}
	return "", errors.New("invalid token")
}

func callUnary(t *testing.T, interceptor grpc.UnaryServerInterceptor, ctx context.Context, method string) (string, error) {
	t.Helper()
	var seenUserID string
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		seenUserID = UserIDFromContext(ctx)
		return "ok", nil
	}
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, handler)
	return seenUserID, err
}

func TestUnaryInterceptor_RejectsAnonymous(t *testing.T) {
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig())

	_, err := callUnary(t, interceptor, context.Background(), "/secrets.Secrets/List")
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestUnaryInterceptor_PublicMethod(t *testing.T) {
	config := NewPublicMethodsConfig("/secrets.Secrets/List")
	interceptor := UnaryAuthInterceptor(config)

	_, err := callUnary(t, interceptor, context.Background(), "/secrets.Secrets/List")
	if err != nil {
		t.Errorf("expected public method to pass, got %v", err)
	}

	_, err = callUnary(t, interceptor, context.Background(), "/secrets.Secrets/Submit")
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated for protected method, got %v", err)
	}
}

func TestUnaryInterceptor_OptionalAuth(t *testing.T) {
	interceptor := UnaryAuthInterceptor(OptionalAuthConfig())

	userID, err := callUnary(t, interceptor, context.Background(), "/secrets.Secrets/List")
	if err != nil {
		t.Errorf("expected optional auth to pass, got %v", err)
	}
	if userID != "" {
		t.Errorf("expected anonymous handler call, got user %q", userID)
	}
}

func TestUnaryInterceptor_VerifiesBearerToken(t *testing.T) {
	config := DefaultInterceptorConfig()
	config.VerifyToken = testVerifier
	interceptor := UnaryAuthInterceptor(config)

	tests := []struct {
		name       string
		token      string
		wantUserID string
		wantCode   codes.Code
	}{
		{"valid token", "Bearer goodtoken", "user123", codes.OK},
		{"valid token without prefix", "goodtoken", "user123", codes.OK},
		{"invalid token", "Bearer badtoken", "", codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := metadata.Pairs(DefaultMetadataKeyAuthToken, tt.token)
			ctx := metadata.NewIncomingContext(context.Background(), md)

			userID, err := callUnary(t, interceptor, ctx, "/secrets.Secrets/Submit")
			if status.Code(err) != tt.wantCode {
				t.Fatalf("expected code %v, got %v", tt.wantCode, err)
			}
			if tt.wantCode == codes.OK && userID != tt.wantUserID {
				t.Errorf("expected handler to see user %q, got %q", tt.wantUserID, userID)
			}
		})
	}
}

func TestStreamInterceptor_VerifiesBearerToken(t *testing.T) {
	config := DefaultInterceptorConfig()
	config.VerifyToken = testVerifier
	interceptor := StreamAuthInterceptor(config)

	md := metadata.Pairs(DefaultMetadataKeyAuthToken, "Bearer goodtoken")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var seenUserID string
	handler := func(srv interface{}, ss grpc.ServerStream) error {
		seenUserID = UserIDFromContext(ss.Context())
		return nil
	}

	err := interceptor(nil, &fakeStream{ctx: ctx}, &grpc.StreamServerInfo{FullMethod: "/secrets.Secrets/Watch"}, handler)
	if err != nil {
		t.Fatalf("expected stream to pass, got %v", err)
	}
	if seenUserID != "user123" {
		t.Errorf("expected handler to see user123, got %q", seenUserID)
	}
}

func TestStreamInterceptor_RejectsAnonymous(t *testing.T) {
	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig())

	handler := func(srv interface{}, ss grpc.ServerStream) error { return nil }
	err := interceptor(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: "/secrets.Secrets/Watch"}, handler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

// fakeStream is a minimal ServerStream for interceptor tests
type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context {
	return f.ctx
}
