package models

import (
	"slices"
	"time"
)

type Category string

const (
	CategoryProduction  Category = "production"
	CategoryQuality     Category = "quality"
	CategorySafety      Category = "safety"
	CategoryMaintenance Category = "maintenance"
	CategorySystem      Category = "system"
	CategoryAssignment  Category = "assignment"
	CategoryEmergency   Category = "emergency"
)

var AllCategories = []Category{
	CategoryProduction, CategoryQuality, CategorySafety, CategoryMaintenance,
	CategorySystem, CategoryAssignment, CategoryEmergency,
}

func (c Category) Valid() bool { return slices.Contains(AllCategories, c) }

// Level is shared by rule severity and notification priority.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

var AllLevels = []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}

func (l Level) Valid() bool { return slices.Contains(AllLevels, l) }

type NotificationType string

const (
	TypeMaintenance NotificationType = "maintenance"
	TypeAlert       NotificationType = "alert"
	TypeInfo        NotificationType = "info"
	TypeWarning     NotificationType = "warning"
	TypeEmergency   NotificationType = "emergency"
	TypeSystem      NotificationType = "system"
	TypeAssignment  NotificationType = "assignment"
)

var AllNotificationTypes = []NotificationType{
	TypeMaintenance, TypeAlert, TypeInfo, TypeWarning, TypeEmergency, TypeSystem, TypeAssignment,
}

func (t NotificationType) Valid() bool { return slices.Contains(AllNotificationTypes, t) }

type Status string

const (
	StatusUnread       Status = "unread"
	StatusRead         Status = "read"
	StatusNew          Status = "new"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusArchived     Status = "archived"
)

// Profile selects which lifecycle vocabulary a notification follows.
type Profile string

const (
	ProfileSimple   Profile = "simple"   // unread -> read -> archived
	ProfileExtended Profile = "extended" // new -> acknowledged -> resolved -> archived
)

type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelSMS     ChannelType = "sms"
	ChannelPush    ChannelType = "push"
	ChannelDesktop ChannelType = "desktop"
	ChannelWebhook ChannelType = "webhook"
)

var AllChannelTypes = []ChannelType{ChannelEmail, ChannelSMS, ChannelPush, ChannelDesktop, ChannelWebhook}

type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

type DeliveryStatus string

const (
	DeliveryOK      DeliveryStatus = "ok"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// Sample is one telemetry reading or event. Field values are float64 or bool;
// labels (machineId, line, taskId) are copied into notification metadata.
type Sample struct {
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Fields    map[string]any    `json:"fields"`
	Labels    map[string]string `json:"labels,omitempty"`
}
