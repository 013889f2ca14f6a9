package models

import (
	"time"

	"github.com/google/uuid"
)

// Achievement keys. The catalog itself is seeded by migration; this mirror
// exists so grant call sites can be validated without a database round trip.
const (
	AchievementPremiumUser       = "premium_user"
	AchievementPremium3Months    = "premium_3_months"
	AchievementPremium6Months    = "premium_6_months"
	AchievementPremium1Year      = "premium_1_year"
	AchievementUser3Months       = "user_3_months"
	AchievementUser6Months       = "user_6_months"
	AchievementUser1Year         = "user_1_year"
	AchievementStreak1Month      = "streak_1_month"
	AchievementStreak3Months     = "streak_3_months"
	AchievementStreak6Months     = "streak_6_months"
	AchievementStreak1Year       = "streak_1_year"
	AchievementFirstPlant        = "first_plant"
	AchievementTenPlants         = "ten_plants"
	AchievementFirstDeepAnalysis = "first_deep_analysis"
)

var knownAchievements = map[string]struct{}{
	AchievementPremiumUser:       {},
	AchievementPremium3Months:    {},
	AchievementPremium6Months:    {},
	AchievementPremium1Year:      {},
	AchievementUser3Months:       {},
	AchievementUser6Months:       {},
	AchievementUser1Year:         {},
	AchievementStreak1Month:      {},
	AchievementStreak3Months:     {},
	AchievementStreak6Months:     {},
	AchievementStreak1Year:       {},
	AchievementFirstPlant:        {},
	AchievementTenPlants:         {},
	AchievementFirstDeepAnalysis: {},
}

// IsKnownAchievement reports whether key exists in the seeded catalog.
func IsKnownAchievement(key string) bool {
	_, ok := knownAchievements[key]
	return ok
}

// Achievement is a static catalog entry.
type Achievement struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconName    string `json:"icon_name"`
}

// UserAchievement is a grant record, unique per (user, achievement) pair,
// append-only and immutable once created.
type UserAchievement struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"-"`
	AchievementKey string    `json:"achievement_key"`
	EarnedAt       time.Time `json:"earned_at"`
}
