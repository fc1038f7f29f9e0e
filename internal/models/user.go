package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                uuid.UUID    `gorm:"type:varchar(36);primarykey"         json:"id"`
	Email             string       `gorm:"not null;uniqueIndex"                json:"email"`
	DisplayName       string       `gorm:"not null;default:''"                 json:"display_name"`
	HashedPassword    string       `gorm:"not null;default:''"                json:"-"`
	EmailVerified     bool         `gorm:"not null;default:false"              json:"email_verified"`
	Disabled          bool         `gorm:"not null;default:false"              json:"disabled"`
	ProviderType      ProviderType `gorm:"type:varchar(16);not null"           json:"provider_type"`
	ProviderKey       string       `gorm:"type:varchar(64);not null"           json:"provider_key"`
	SessionGeneration int          `gorm:"not null;default:1"                  json:"-"`
	CreatedAt         time.Time    `                                           json:"created_at"`
	UpdatedAt         time.Time    `                                           json:"updated_at"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type ActionCodeType string

const (
	ActionCodePasswordReset ActionCodeType = "password_reset"
	ActionCodeVerifyEmail   ActionCodeType = "verify_email"
)

// ActionCode backs the opaque oobCode carried by email links. Only the
// argon2id hash of the secret half is stored.
type ActionCode struct {
	ID           uuid.UUID      `gorm:"type:varchar(36);primarykey"   json:"id"`
	Type         ActionCodeType `gorm:"type:varchar(32);not null"     json:"type"`
	UserID       uuid.UUID      `gorm:"type:varchar(36);not null"     json:"user_id"`
	User         User           `gorm:"foreignKey:UserID"             json:"-"`
	HashedSecret string         `gorm:"not null"                      json:"-"`
	ExpiresAt    time.Time      `gorm:"not null"                      json:"expires_at"`
	AttemptsLeft int            `gorm:"not null;default:3"            json:"attempts_left"`
	CreatedAt    time.Time      `                                     json:"created_at"`
}

func (a *ActionCode) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
