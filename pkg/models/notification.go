package models

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	ID             string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RuleID         *string           `gorm:"index" json:"ruleId"`
	CorrelationID  string            `gorm:"index" json:"correlationId,omitempty"`
	DedupeKey      *string           `gorm:"uniqueIndex" json:"-"`
	Title          string            `gorm:"not null" json:"title"`
	Message        string            `gorm:"type:text" json:"message"`
	Type           NotificationType  `gorm:"type:varchar(20);index" json:"type"`
	Priority       Level             `gorm:"type:varchar(10);index" json:"priority"`
	Category       Category          `gorm:"type:varchar(20);index" json:"category"`
	Source         string            `json:"source"`
	RecipientID    string            `gorm:"index;not null" json:"recipientId"`
	CreatedAt      time.Time         `gorm:"index" json:"createdAt"`
	ReadAt         *time.Time        `json:"readAt"`
	ExpiresAt      *time.Time        `json:"expiresAt"`
	ActionRequired bool              `json:"actionRequired"`
	Profile        Profile           `gorm:"type:varchar(10)" json:"profile"`
	Status         Status            `gorm:"type:varchar(20);index" json:"status"`
	Starred        bool              `gorm:"index" json:"starred"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
}

// Expired reports whether the notification has passed its expiry at now.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// Unread covers both lifecycle vocabularies.
func (n *Notification) Unread() bool {
	return n.Status == StatusUnread || n.Status == StatusNew
}

// NotificationFilter narrows listNotifications. Zero values mean "any".
type NotificationFilter struct {
	Type           NotificationType `form:"type"`
	Priority       Level            `form:"priority"`
	Category       Category         `form:"category"`
	Status         Status           `form:"status"`
	UnreadOnly     bool             `form:"unread"`
	StarredOnly    bool             `form:"starred"`
	IncludeExpired bool             `form:"include_expired"`
	Limit          int              `form:"limit"`
	Offset         int              `form:"offset"`
}

// AdHocNotification is a rule-less notification such as a task assignment.
type AdHocNotification struct {
	RecipientIDs   []string         `json:"recipientIds" validate:"required,min=1,dive,required"`
	Title          string           `json:"title" validate:"required"`
	Message        string           `json:"message"`
	Type           NotificationType `json:"type" validate:"required,oneof=maintenance alert info warning emergency system assignment"`
	Priority       Level            `json:"priority" validate:"required,oneof=low medium high critical"`
	Category       Category         `json:"category" validate:"required,oneof=production quality safety maintenance system assignment emergency"`
	Source         string           `json:"source"`
	Channels       []string         `json:"channels" validate:"dive,required"`
	ActionRequired bool             `json:"actionRequired"`
	ExpiresAt      *time.Time       `json:"expiresAt"`
	Metadata       map[string]any   `json:"metadata"`
	// DedupeKey makes repeated submissions idempotent per recipient.
	DedupeKey string `json:"dedupeKey"`
}

type DeliveryReceipt struct {
	ID             string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NotificationID string         `gorm:"uniqueIndex:idx_receipt_key;not null" json:"notificationId"`
	ChannelID      string         `gorm:"uniqueIndex:idx_receipt_key;not null" json:"channelId"`
	RecipientID    string         `gorm:"index" json:"recipientId"`
	Status         DeliveryStatus `gorm:"type:varchar(10)" json:"status"`
	Reason         string         `json:"reason,omitempty"`
	Attempts       int            `json:"attempts"`
	AttemptedAt    time.Time      `json:"attemptedAt"`
}
