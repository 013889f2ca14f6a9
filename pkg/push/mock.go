package push

import (
	"context"
)

// MockSender is a configurable mock for testing notification producers.
type MockSender struct {
	// SendFunc is called when Send is invoked. If nil, the notification is
	// recorded and delivery succeeds.
	SendFunc func(ctx context.Context, n Notification) error

	SendCalls int
	// Sent records every notification passed to Send, in order.
	Sent []Notification
}

var _ Sender = (*MockSender)(nil)

// Send implements Sender.
func (m *MockSender) Send(ctx context.Context, n Notification) error {
	m.SendCalls++
	m.Sent = append(m.Sent, n)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, n)
	}
	return nil
}
