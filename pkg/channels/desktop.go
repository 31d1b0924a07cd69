package channels

import (
	"context"
	"errors"
)

// ErrRecipientOffline is returned when no desktop session is open for the
// recipient.
var ErrRecipientOffline = errors.New("desktop: recipient has no open session")

// Broadcaster pushes an event to a user's open realtime sessions and reports
// how many sessions received it.
type Broadcaster interface {
	BroadcastToUser(userID, event string, payload any) int
}

const EventNotificationCreated = "notification.created"

type DesktopSender struct {
	Hub Broadcaster
}

func NewDesktopSender(hub Broadcaster) *DesktopSender {
	return &DesktopSender{Hub: hub}
}

func (s *DesktopSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Hub.BroadcastToUser(msg.RecipientID, EventNotificationCreated, msg) == 0 {
		return ErrRecipientOffline
	}
	return nil
}
