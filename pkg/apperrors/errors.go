package apperrors

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrConflict                = errors.New("conflict")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrDailyLimitReached       = errors.New("daily premium usage limit reached")
	ErrRateLimiterUnavailable  = errors.New("usage limiter unavailable")
	ErrTokenUnregistered       = errors.New("push token no longer registered")
	ErrUnknownAchievement      = errors.New("unknown achievement key")
	ErrNoIdentificationMatches = errors.New("no identification candidates returned")
)
