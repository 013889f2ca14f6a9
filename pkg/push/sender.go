package push

import (
	"context"
)

// Notification is one push message addressed to a device token.
type Notification struct {
	Token string
	Title string
	Body  string
	// Data carries optional key/value pairs for the client app.
	Data map[string]string
}

// Sender delivers push notifications. Implementations return
// apperrors.ErrTokenUnregistered when the provider reports the token as
// permanently invalid, so callers can schedule token cleanup.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}
