package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/vichsort/PlantE/pkg/apperrors"
)

// FCMSender delivers notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewFCMSender initializes the Firebase app from a service account file and
// returns a sender backed by its messaging client.
func NewFCMSender(ctx context.Context, credentialsFile string, logger *zap.Logger) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return &FCMSender{
		client: client,
		logger: logger.Named("fcm"),
	}, nil
}

var _ Sender = (*FCMSender)(nil)

// Send implements Sender. An unregistered token is mapped to the sentinel so
// the caller can trigger cleanup; every other provider error passes through.
func (s *FCMSender) Send(ctx context.Context, n Notification) error {
	msg := &messaging.Message{
		Token: n.Token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
	}

	id, err := s.client.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) {
			return fmt.Errorf("token no longer registered: %w", apperrors.ErrTokenUnregistered)
		}
		return fmt.Errorf("fcm send failed: %w", err)
	}

	s.logger.Debug("notification delivered", zap.String("message_id", id))
	return nil
}

// NopSender discards every notification. Used when push delivery is not
// configured so the rest of the pipeline keeps working in development.
type NopSender struct{}

var _ Sender = (*NopSender)(nil)

func (NopSender) Send(context.Context, Notification) error { return nil }
