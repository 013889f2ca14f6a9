package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Subscription tiers.
const (
	SubscriptionFree    = "free"
	SubscriptionPremium = "premium"
	SubscriptionTrial   = "trial"
)

// User is an account holder. Owns zero or more UserPlant records.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`

	FCMToken          *string    `json:"-"`
	FCMTokenUpdatedAt *time.Time `json:"-"`

	SubscriptionStatus    string     `json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	PremiumSince          *time.Time `json:"-"`

	WateringStreak int `json:"watering_streak"`

	Bio               *string `json:"bio,omitempty"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
	Country           *string `json:"country,omitempty"`
	State             *string `json:"state,omitempty"`
}

// SetPassword hashes the plaintext password onto the user.
func (u *User) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash.
func (u *User) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}

// IsPremium reports whether the user has an active premium or trial
// subscription at the given instant.
func (u *User) IsPremium(now time.Time) bool {
	if u.SubscriptionStatus != SubscriptionPremium && u.SubscriptionStatus != SubscriptionTrial {
		return false
	}
	return u.SubscriptionExpiresAt == nil || u.SubscriptionExpiresAt.After(now)
}
