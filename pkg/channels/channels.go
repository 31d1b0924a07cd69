package channels

import (
	"context"
	"errors"
	"fmt"
	"time"

	"factorydash.xyz/alert-engine/pkg/models"
)

// ErrNoContact means the recipient has no address for the channel type.
var ErrNoContact = errors.New("channels: recipient has no contact for channel")

// ErrNoSender means no sender is registered for the channel type.
var ErrNoSender = errors.New("channels: no sender for channel type")

// Message is one notification addressed to one recipient over one channel.
type Message struct {
	NotificationID string                  `json:"notificationId"`
	CorrelationID  string                  `json:"correlationId,omitempty"`
	RecipientID    string                  `json:"recipientId"`
	Contact        string                  `json:"contact,omitempty"`
	Title          string                  `json:"title"`
	Body           string                  `json:"message"`
	Type           models.NotificationType `json:"type"`
	Priority       models.Level            `json:"priority"`
	Category       models.Category         `json:"category"`
	Source         string                  `json:"source,omitempty"`
	ActionRequired bool                    `json:"actionRequired"`
	CreatedAt      time.Time               `json:"createdAt"`
	Metadata       map[string]any          `json:"metadata,omitempty"`
	Channel        models.Channel          `json:"-"`
}

// NewMessage addresses n to its recipient through channel, using the
// recipient's contact for the channel type when there is one.
func NewMessage(n *models.Notification, channel models.Channel, prefs models.RecipientPreferences) Message {
	return Message{
		NotificationID: n.ID,
		CorrelationID:  n.CorrelationID,
		RecipientID:    n.RecipientID,
		Contact:        prefs.Contact(channel.Type),
		Title:          n.Title,
		Body:           n.Message,
		Type:           n.Type,
		Priority:       n.Priority,
		Category:       n.Category,
		Source:         n.Source,
		ActionRequired: n.ActionRequired,
		CreatedAt:      n.CreatedAt,
		Metadata:       n.Metadata,
		Channel:        channel,
	}
}

// Sender delivers a message over one channel type. Implementations must be
// safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Senders routes a message to the sender registered for its channel type.
type Senders map[models.ChannelType]Sender

func (s Senders) Send(ctx context.Context, msg Message) error {
	sender, ok := s[msg.Channel.Type]
	if !ok || sender == nil {
		return fmt.Errorf("%w %q", ErrNoSender, msg.Channel.Type)
	}
	return sender.Send(ctx, msg)
}
