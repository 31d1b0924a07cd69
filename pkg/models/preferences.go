package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

type ScheduleWindows struct {
	WorkHours  bool `json:"workHours" yaml:"workHours"`
	AfterHours bool `json:"afterHours" yaml:"afterHours"`
	Weekends   bool `json:"weekends" yaml:"weekends"`
}

type RecipientPreferences struct {
	RecipientID       string                        `gorm:"primaryKey" json:"recipientId" yaml:"recipientId" validate:"required"`
	EnabledChannels   datatypes.JSONSlice[string]   `json:"enabledChannels" yaml:"enabledChannels"`
	EnabledCategories datatypes.JSONSlice[Category] `json:"enabledCategories" yaml:"enabledCategories" validate:"dive,oneof=production quality safety maintenance system assignment emergency"`
	EnabledPriorities datatypes.JSONSlice[Level]    `json:"enabledPriorities" yaml:"enabledPriorities" validate:"dive,oneof=low medium high critical"`
	ScheduleWindows   ScheduleWindows               `gorm:"embedded;embeddedPrefix:schedule_" json:"scheduleWindows" yaml:"scheduleWindows"`
	Frequency         Frequency                     `gorm:"type:varchar(10)" json:"frequency" yaml:"frequency" validate:"omitempty,oneof=immediate hourly daily weekly"`
	Timezone          string                        `json:"timezone,omitempty" yaml:"timezone" validate:"omitempty,timezone"`
	Contacts          datatypes.JSONMap             `json:"contacts,omitempty" yaml:"contacts"`
	UpdatedAt         time.Time                     `json:"updatedAt" yaml:"-"`
}

// DefaultPreferences opts a recipient into everything with immediate delivery.
func DefaultPreferences(recipientID string) RecipientPreferences {
	channels := make([]string, 0, len(AllChannelTypes))
	for _, t := range AllChannelTypes {
		channels = append(channels, string(t))
	}
	return RecipientPreferences{
		RecipientID:       recipientID,
		EnabledChannels:   channels,
		EnabledCategories: slices.Clone(AllCategories),
		EnabledPriorities: slices.Clone(AllLevels),
		ScheduleWindows:   ScheduleWindows{WorkHours: true, AfterHours: true, Weekends: true},
		Frequency:         FrequencyImmediate,
		Timezone:          "UTC",
	}
}

// Contact returns the recipient's address for a channel type, if any.
func (p *RecipientPreferences) Contact(t ChannelType) string {
	if p.Contacts == nil {
		return ""
	}
	if v, ok := p.Contacts[string(t)].(string); ok {
		return v
	}
	return ""
}

// PreferencesPatch is a partial update; nil fields are left unchanged.
type PreferencesPatch struct {
	EnabledChannels   *[]string         `json:"enabledChannels,omitempty" validate:"omitempty,dive,required"`
	EnabledCategories *[]Category       `json:"enabledCategories,omitempty" validate:"omitempty,dive,oneof=production quality safety maintenance system assignment emergency"`
	EnabledPriorities *[]Level          `json:"enabledPriorities,omitempty" validate:"omitempty,dive,oneof=low medium high critical"`
	ScheduleWindows   *ScheduleWindows  `json:"scheduleWindows,omitempty"`
	Frequency         *Frequency        `json:"frequency,omitempty" validate:"omitempty,oneof=immediate hourly daily weekly"`
	Timezone          *string           `json:"timezone,omitempty" validate:"omitempty,timezone"`
	Contacts          map[string]string `json:"contacts,omitempty"`
}

// Apply returns a copy of p with the patch applied.
func (patch PreferencesPatch) Apply(p RecipientPreferences) RecipientPreferences {
	out := p
	if patch.EnabledChannels != nil {
		out.EnabledChannels = slices.Clone(*patch.EnabledChannels)
	}
	if patch.EnabledCategories != nil {
		out.EnabledCategories = slices.Clone(*patch.EnabledCategories)
	}
	if patch.EnabledPriorities != nil {
		out.EnabledPriorities = slices.Clone(*patch.EnabledPriorities)
	}
	if patch.ScheduleWindows != nil {
		out.ScheduleWindows = *patch.ScheduleWindows
	}
	if patch.Frequency != nil {
		out.Frequency = *patch.Frequency
	}
	if patch.Timezone != nil {
		out.Timezone = *patch.Timezone
	}
	if patch.Contacts != nil {
		contacts := datatypes.JSONMap{}
		for k, v := range p.Contacts {
			contacts[k] = v
		}
		for k, v := range patch.Contacts {
			if v == "" {
				delete(contacts, k)
				continue
			}
			contacts[k] = v
		}
		out.Contacts = contacts
	}
	return out
}
