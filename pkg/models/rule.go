package models

import (
	"time"

	"gorm.io/datatypes"
)

// RuleSpec is the configuration-load shape of a rule. Pointer fields are
// required-but-may-be-zero values, so absence is distinguishable from false/0.
type RuleSpec struct {
	ID                  string           `json:"id" yaml:"id" validate:"required"`
	Name                string           `json:"name" yaml:"name" validate:"required"`
	Description         string           `json:"description,omitempty" yaml:"description"`
	Category            Category         `json:"category,omitempty" yaml:"category" validate:"omitempty,oneof=production quality safety maintenance system assignment emergency"`
	Condition           string           `json:"condition" yaml:"condition" validate:"required"`
	Severity            Level            `json:"severity" yaml:"severity" validate:"required,oneof=low medium high critical"`
	Enabled             *bool            `json:"enabled" yaml:"enabled" validate:"required"`
	Channels            []string         `json:"channels" yaml:"channels" validate:"required,dive,required"`
	Recipients          []string         `json:"recipients" yaml:"recipients" validate:"required,dive,required"`
	CooldownSeconds     *int             `json:"cooldownSeconds" yaml:"cooldownSeconds" validate:"required,gte=0"`
	ActionRequired      bool             `json:"actionRequired,omitempty" yaml:"actionRequired"`
	Type                NotificationType `json:"type,omitempty" yaml:"type" validate:"omitempty,oneof=maintenance alert info warning emergency system assignment"`
	ExpiresAfterSeconds int              `json:"expiresAfterSeconds,omitempty" yaml:"expiresAfterSeconds" validate:"gte=0"`
}

type Rule struct {
	ID                  string                      `gorm:"primaryKey" json:"id"`
	Name                string                      `gorm:"not null" json:"name"`
	Description         string                      `json:"description,omitempty"`
	Category            Category                    `gorm:"type:varchar(20);index" json:"category"`
	Condition           string                      `gorm:"not null" json:"condition"`
	Severity            Level                       `gorm:"type:varchar(10)" json:"severity"`
	Enabled             bool                        `gorm:"index" json:"enabled"`
	Channels            datatypes.JSONSlice[string] `json:"channels"`
	Recipients          datatypes.JSONSlice[string] `json:"recipients"`
	CooldownSeconds     int                         `json:"cooldownSeconds"`
	ActionRequired      bool                        `json:"actionRequired"`
	Type                NotificationType            `gorm:"type:varchar(20)" json:"type,omitempty"`
	ExpiresAfterSeconds int                         `json:"expiresAfterSeconds,omitempty"`

	LastTriggeredAt *time.Time `json:"lastTriggeredAt"`
	TriggerCount    int64      `json:"triggerCount"`
	SuppressedCount int64      `json:"suppressedCount"`
	LoadError       string     `json:"loadError,omitempty"`
	CoolingUntil    *time.Time `gorm:"-" json:"coolingUntil,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s RuleSpec) ToRule() Rule {
	category := s.Category
	if category == "" {
		category = CategorySystem
	}
	rule := Rule{
		ID:                  s.ID,
		Name:                s.Name,
		Description:         s.Description,
		Category:            category,
		Condition:           s.Condition,
		Severity:            s.Severity,
		Channels:            append(datatypes.JSONSlice[string]{}, s.Channels...),
		Recipients:          append(datatypes.JSONSlice[string]{}, s.Recipients...),
		ActionRequired:      s.ActionRequired,
		Type:                s.Type,
		ExpiresAfterSeconds: s.ExpiresAfterSeconds,
	}
	if s.Enabled != nil {
		rule.Enabled = *s.Enabled
	}
	if s.CooldownSeconds != nil {
		rule.CooldownSeconds = *s.CooldownSeconds
	}
	return rule
}

// RulePatch is a partial edit; nil fields are left unchanged.
type RulePatch struct {
	Name                *string           `json:"name,omitempty" validate:"omitempty,min=1"`
	Description         *string           `json:"description,omitempty"`
	Category            *Category         `json:"category,omitempty" validate:"omitempty,oneof=production quality safety maintenance system assignment emergency"`
	Condition           *string           `json:"condition,omitempty" validate:"omitempty,min=1"`
	Severity            *Level            `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Enabled             *bool             `json:"enabled,omitempty"`
	Channels            *[]string         `json:"channels,omitempty" validate:"omitempty,dive,required"`
	Recipients          *[]string         `json:"recipients,omitempty" validate:"omitempty,dive,required"`
	CooldownSeconds     *int              `json:"cooldownSeconds,omitempty" validate:"omitempty,gte=0"`
	ActionRequired      *bool             `json:"actionRequired,omitempty"`
	Type                *NotificationType `json:"type,omitempty" validate:"omitempty,oneof=maintenance alert info warning emergency system assignment"`
	ExpiresAfterSeconds *int              `json:"expiresAfterSeconds,omitempty" validate:"omitempty,gte=0"`
}
