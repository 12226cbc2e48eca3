package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	sa "github.com/YusuffDevOps/Secrets-app"
	saoauth2 "github.com/YusuffDevOps/Secrets-app/oauth2"
	"github.com/YusuffDevOps/Secrets-app/stores/fs"
	sagorm "github.com/YusuffDevOps/Secrets-app/stores/gorm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "secrets-app.toml", "path to config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	gateway := sa.New("SecretsApp", store)
	if cfg.Auth.JWTSecret != "" {
		gateway.JWTSecretKey = cfg.Auth.JWTSecret
	}
	if cfg.Auth.SessionTimeoutSec > 0 {
		gateway.SessionTimeoutInSeconds = cfg.Auth.SessionTimeoutSec
	}
	gateway.EnsureDefaults()
	gateway.Middleware.GetRedirURL = func(r *http.Request) string { return "/login" }

	localAuth := &sa.LocalAuth{
		Store:             store,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		HandleUser:        gateway.BindUserAndRedirect,
		OnLoginError: func(err error, w http.ResponseWriter, r *http.Request) bool {
			http.Redirect(w, r, "/login?error="+url.QueryEscape(authErrorMessage(err)), http.StatusFound)
			return true
		},
		OnSignupError: func(err error, w http.ResponseWriter, r *http.Request) bool {
			http.Redirect(w, r, "/register?error="+url.QueryEscape(authErrorMessage(err)), http.StatusFound)
			return true
		},
	}

	if cfg.Google.ClientID != "" {
		google := saoauth2.NewGoogleOAuth2(
			cfg.Google.ClientID,
			cfg.Google.ClientSecret,
			cfg.Server.BaseURL+"/auth/google/callback/",
			gateway.SaveUserAndRedirect,
		)
		gateway.AddAuth("/google/", google)
	}
	if cfg.Facebook.ClientID != "" {
		facebook := saoauth2.NewFacebookOAuth2(
			cfg.Facebook.ClientID,
			cfg.Facebook.ClientSecret,
			cfg.Server.BaseURL+"/auth/facebook/callback/",
			gateway.SaveUserAndRedirect,
		)
		gateway.AddAuth("/facebook/", facebook)
	}

	server := NewServer(gateway, localAuth, &sa.SecretService{Store: store})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: gateway.Session.LoadAndSave(server.Router()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Server.Addr, "store", cfg.Store.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// authErrorMessage maps auth failures to something safe to show on the
// form. Anything else stays generic so store faults never leak detail.
func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, sa.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, sa.ErrDuplicateUsername):
		return "That username is already taken"
	case errors.Is(err, sa.ErrWeakPassword):
		return "Password is too short"
	case errors.Is(err, sa.ErrInvalidUser):
		return "Username is required"
	default:
		return "Something went wrong, please try again"
	}
}

func openStore(cfg *Config) (sa.UserStore, error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.Store.DSN), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		if err := sagorm.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
		return sagorm.NewUserStore(db), nil
	case "fs":
		return fs.NewFSUserStore(cfg.Store.Dir), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
