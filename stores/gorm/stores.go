//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	sa "github.com/YusuffDevOps/Secrets-app"
)

// AutoMigrate runs database migrations for the secrets app tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// UserStore implements sa.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserById(userId string) (*sa.User, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sa.ErrNotFound
		}
		return nil, sa.NewStoreError("get user", err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByUsername(username string) (*sa.User, error) {
	var model UserModel
	if err := s.db.First(&model, "username_key = ?", strings.ToLower(username)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sa.ErrNotFound
		}
		return nil, sa.NewStoreError("get user by username", err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) CreateUser(user *sa.User) (*sa.User, error) {
	if !user.HasAnchor() {
		return nil, sa.ErrInvalidUser
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	model := UserToModel(user)
	if err := s.db.Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if user.Username != nil {
				return nil, sa.ErrDuplicateUsername
			}
			return nil, sa.NewStoreError("create user", err)
		}
		return nil, sa.NewStoreError("create user", err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) EnsureFederatedUser(provider, providerID string) (*sa.User, error) {
	column, err := anchorColumn(provider)
	if err != nil {
		return nil, err
	}

	var model UserModel
	err = s.db.First(&model, column+" = ?", providerID).Error
	if err == nil {
		return model.ToUser(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sa.NewStoreError("find federated user", err)
	}

	// Insert guarded by the unique index: a concurrent loser is skipped
	// and reads the winner's row below.
	fresh := &sa.User{ID: uuid.NewString()}
	fresh.SetProviderID(provider, providerID)
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: column}},
		DoNothing: true,
	}).Create(UserToModel(fresh))
	if result.Error != nil {
		return nil, sa.NewStoreError("create federated user", result.Error)
	}

	if err := s.db.First(&model, column+" = ?", providerID).Error; err != nil {
		return nil, sa.NewStoreError("reload federated user", err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) UsersWithSecret() ([]*sa.User, error) {
	var models []UserModel
	if err := s.db.Where("secret IS NOT NULL").Order("created_at").Find(&models).Error; err != nil {
		return nil, sa.NewStoreError("list users with secret", err)
	}

	users := make([]*sa.User, len(models))
	for i, m := range models {
		users[i] = m.ToUser()
	}
	return users, nil
}

func (s *UserStore) SetSecret(userId string, secret string) error {
	result := s.db.Model(&UserModel{}).
		Where("id = ?", userId).
		Update("secret", secret)
	if result.Error != nil {
		return sa.NewStoreError("set secret", result.Error)
	}
	if result.RowsAffected == 0 {
		return sa.ErrNotFound
	}
	return nil
}

func anchorColumn(provider string) (string, error) {
	switch provider {
	case sa.ProviderGoogle:
		return "google_id", nil
	case sa.ProviderFacebook:
		return "facebook_id", nil
	}
	return "", fmt.Errorf("%w: %q", sa.ErrUnknownProvider, provider)
}
