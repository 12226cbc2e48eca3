//go:build !wasm
// +build !wasm

package gorm

import (
	"strings"
	"time"

	sa "github.com/YusuffDevOps/Secrets-app"
)

// UserModel is the GORM model for users. Pointer columns stay NULL when
// the anchor is absent, so the unique indexes only bite when a value is
// actually present. Username keeps the registered casing; UsernameKey
// is its lowercased form and carries the uniqueness constraint, so
// usernames compare case-insensitively like the other backends.
type UserModel struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Username     *string   `gorm:"size:64"`
	UsernameKey  *string   `gorm:"uniqueIndex;size:64"`
	PasswordHash *string   `gorm:"size:128"`
	GoogleID     *string   `gorm:"uniqueIndex;size:128"`
	FacebookID   *string   `gorm:"uniqueIndex;size:128"`
	Secret       *string   `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *sa.User {
	return &sa.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		GoogleID:     m.GoogleID,
		FacebookID:   m.FacebookID,
		Secret:       m.Secret,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UsernameKeyFor returns the normalized form a username is indexed
// under, nil for users without one.
func UsernameKeyFor(username *string) *string {
	if username == nil {
		return nil
	}
	key := strings.ToLower(*username)
	return &key
}

func UserToModel(u *sa.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Username:     u.Username,
		UsernameKey:  UsernameKeyFor(u.Username),
		PasswordHash: u.PasswordHash,
		GoogleID:     u.GoogleID,
		FacebookID:   u.FacebookID,
		Secret:       u.Secret,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
