package tasks

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/push"
	"github.com/vichsort/PlantE/pkg/repositories"
)

// NotificationTask delivers one push notification. Key is chosen by the
// producer; sweeps use a per-plant per-day key so re-running a sweep cannot
// double-notify while the first delivery is still in flight.
type NotificationTask struct {
	Key   string
	Token string
	Title string
	Body  string
	Data  map[string]string

	Sender push.Sender
	Users  repositories.UserRepository
	Logger *zap.Logger
}

func (t *NotificationTask) ID() string                { return "notify:" + t.Key }
func (t *NotificationTask) Name() string              { return "notification" }
func (t *NotificationTask) UsesGenerativeModel() bool { return false }

func (t *NotificationTask) Execute(ctx context.Context, enqueuer TaskEnqueuer) error {
	err := t.Sender.Send(ctx, push.Notification{
		Token: t.Token,
		Title: t.Title,
		Body:  t.Body,
		Data:  t.Data,
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, apperrors.ErrTokenUnregistered) {
		// The device is gone. Clean the token up instead of retrying a
		// delivery that can never succeed.
		t.Logger.Info("token unregistered, scheduling invalidation",
			zap.String("task_id", t.ID()))
		enqueuer.Enqueue(&TokenInvalidationTask{
			Token:  t.Token,
			Users:  t.Users,
			Logger: t.Logger,
		})
		return nil
	}

	return fmt.Errorf("push delivery: %w", err)
}

// TokenInvalidationTask clears a dead push token. The conditional clear
// means a token the user has since replaced is left alone.
type TokenInvalidationTask struct {
	Token string

	Users  repositories.UserRepository
	Logger *zap.Logger
}

func (t *TokenInvalidationTask) ID() string                { return "invalidate-token:" + t.Token }
func (t *TokenInvalidationTask) Name() string              { return "token-invalidation" }
func (t *TokenInvalidationTask) UsesGenerativeModel() bool { return false }

func (t *TokenInvalidationTask) Execute(ctx context.Context, _ TaskEnqueuer) error {
	cleared, err := t.Users.ClearFCMTokenIfMatches(ctx, t.Token)
	if err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	if !cleared {
		t.Logger.Debug("token already replaced, nothing to clear")
	}
	return nil
}
