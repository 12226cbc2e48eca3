//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	sa "github.com/YusuffDevOps/Secrets-app"
)

// Kind constants for Datastore entities
const (
	KindUser     = "User"
	KindAnchor   = "Anchor"
	KindUsername = "Username"
)

// userEntity is the Datastore shape of a user. Datastore has no NULL,
// so absent anchors are empty strings and HasSecret is the indexed flag
// backing the secrets query.
type userEntity struct {
	UserID       string    `datastore:"user_id"`
	Username     string    `datastore:"username"`
	PasswordHash string    `datastore:"password_hash,noindex"`
	GoogleID     string    `datastore:"google_id"`
	FacebookID   string    `datastore:"facebook_id"`
	Secret       string    `datastore:"secret,noindex"`
	HasSecret    bool      `datastore:"has_secret"`
	CreatedAt    time.Time `datastore:"created_at"`
	UpdatedAt    time.Time `datastore:"updated_at"`
}

// refEntity maps an anchor (username or federated id) to a user id.
type refEntity struct {
	UserID    string    `datastore:"user_id"`
	CreatedAt time.Time `datastore:"created_at"`
}

func (e *userEntity) toUser() *sa.User {
	user := &sa.User{
		ID:        e.UserID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Username != "" {
		user.Username = sa.Str(e.Username)
	}
	if e.PasswordHash != "" {
		user.PasswordHash = sa.Str(e.PasswordHash)
	}
	if e.GoogleID != "" {
		user.GoogleID = sa.Str(e.GoogleID)
	}
	if e.FacebookID != "" {
		user.FacebookID = sa.Str(e.FacebookID)
	}
	if e.HasSecret {
		user.Secret = sa.Str(e.Secret)
	}
	return user
}

func toEntity(u *sa.User) *userEntity {
	e := &userEntity{
		UserID:    u.ID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Username != nil {
		e.Username = *u.Username
	}
	if u.PasswordHash != nil {
		e.PasswordHash = *u.PasswordHash
	}
	if u.GoogleID != nil {
		e.GoogleID = *u.GoogleID
	}
	if u.FacebookID != nil {
		e.FacebookID = *u.FacebookID
	}
	if u.Secret != nil {
		e.Secret = *u.Secret
		e.HasSecret = true
	}
	return e
}

// UserStore implements sa.UserStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{
		client:    client,
		namespace: namespace,
		ctx:       context.Background(),
	}
}

// WithContext returns a copy of the store with the given context
func (s *UserStore) WithContext(ctx context.Context) *UserStore {
	return &UserStore{
		client:    s.client,
		namespace: s.namespace,
		ctx:       ctx,
	}
}

func (s *UserStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) userKey(userId string) *datastore.Key {
	return s.namespacedKey(KindUser, userId)
}

func (s *UserStore) usernameKey(username string) *datastore.Key {
	return s.namespacedKey(KindUsername, strings.ToLower(username))
}

func (s *UserStore) anchorKey(provider, providerID string) *datastore.Key {
	return s.namespacedKey(KindAnchor, provider+":"+providerID)
}

func (s *UserStore) GetUserById(userId string) (*sa.User, error) {
	var entity userEntity
	if err := s.client.Get(s.ctx, s.userKey(userId), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, sa.ErrNotFound
		}
		return nil, sa.NewStoreError("get user", err)
	}
	return entity.toUser(), nil
}

func (s *UserStore) GetUserByUsername(username string) (*sa.User, error) {
	var ref refEntity
	if err := s.client.Get(s.ctx, s.usernameKey(username), &ref); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, sa.ErrNotFound
		}
		return nil, sa.NewStoreError("get username", err)
	}
	return s.GetUserById(ref.UserID)
}

func (s *UserStore) CreateUser(user *sa.User) (*sa.User, error) {
	if !user.HasAnchor() {
		return nil, sa.ErrInvalidUser
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		if user.Username != nil {
			var existing refEntity
			err := tx.Get(s.usernameKey(*user.Username), &existing)
			if err == nil {
				return sa.ErrDuplicateUsername
			}
			if !errors.Is(err, datastore.ErrNoSuchEntity) {
				return err
			}
		}

		if _, err := tx.Put(s.userKey(user.ID), toEntity(user)); err != nil {
			return err
		}

		ref := &refEntity{UserID: user.ID, CreatedAt: now}
		if user.Username != nil {
			if _, err := tx.Put(s.usernameKey(*user.Username), ref); err != nil {
				return err
			}
		}
		for _, provider := range []string{sa.ProviderGoogle, sa.ProviderFacebook} {
			if pid := user.ProviderID(provider); pid != nil && *pid != "" {
				if _, err := tx.Put(s.anchorKey(provider, *pid), ref); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, sa.NewStoreError("create user", err)
	}
	return user, nil
}

func (s *UserStore) EnsureFederatedUser(provider, providerID string) (*sa.User, error) {
	switch provider {
	case sa.ProviderGoogle, sa.ProviderFacebook:
	default:
		return nil, fmt.Errorf("%w: %q", sa.ErrUnknownProvider, provider)
	}

	var out *sa.User
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		out = nil
		var ref refEntity
		err := tx.Get(s.anchorKey(provider, providerID), &ref)
		if err == nil {
			var entity userEntity
			if err := tx.Get(s.userKey(ref.UserID), &entity); err != nil {
				return err
			}
			out = entity.toUser()
			return nil
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}

		now := time.Now()
		user := &sa.User{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
		user.SetProviderID(provider, providerID)
		if _, err := tx.Put(s.userKey(user.ID), toEntity(user)); err != nil {
			return err
		}
		if _, err := tx.Put(s.anchorKey(provider, providerID), &refEntity{UserID: user.ID, CreatedAt: now}); err != nil {
			return err
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, sa.NewStoreError("ensure federated user", err)
	}
	return out, nil
}

func (s *UserStore) UsersWithSecret() ([]*sa.User, error) {
	query := datastore.NewQuery(KindUser).
		Namespace(s.namespace).
		FilterField("has_secret", "=", true)

	var out []*sa.User
	it := s.client.Run(s.ctx, query)
	for {
		var entity userEntity
		_, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, sa.NewStoreError("list users with secret", err)
		}
		out = append(out, entity.toUser())
	}
	return out, nil
}

func (s *UserStore) SetSecret(userId string, secret string) error {
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var entity userEntity
		if err := tx.Get(s.userKey(userId), &entity); err != nil {
			return err
		}
		entity.Secret = secret
		entity.HasSecret = true
		entity.UpdatedAt = time.Now()
		_, err := tx.Put(s.userKey(userId), &entity)
		return err
	})
	if err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return sa.ErrNotFound
		}
		return sa.NewStoreError("set secret", err)
	}
	return nil
}
