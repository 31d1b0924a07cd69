package models

import (
	"time"

	"gorm.io/datatypes"
)

type Channel struct {
	ID             string                      `gorm:"primaryKey" json:"id" yaml:"id" validate:"required"`
	Type           ChannelType                 `gorm:"type:varchar(10)" json:"type" yaml:"type" validate:"required,oneof=email sms push desktop webhook"`
	Enabled        bool                        `json:"enabled" yaml:"enabled"`
	Targets        datatypes.JSONSlice[string] `json:"targets" yaml:"targets"`
	Flavor         string                      `json:"flavor,omitempty" yaml:"flavor" validate:"omitempty,oneof=slack teams http"`
	LastStatus     DeliveryStatus              `gorm:"type:varchar(10)" json:"lastStatus,omitempty" yaml:"-"`
	LastReason     string                      `json:"lastReason,omitempty" yaml:"-"`
	LastDeliveryAt *time.Time                  `json:"lastDeliveryAt,omitempty" yaml:"-"`
}
