package alerting

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factorydash.xyz/alert-engine/pkg/models"
	"factorydash.xyz/alert-engine/pkg/validator"
)

// ChannelRegistry holds the configured delivery channels. A nil conn keeps
// them in memory only.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string]models.Channel
	conn     *gorm.DB
}

func NewChannelRegistry(conn *gorm.DB) *ChannelRegistry {
	return &ChannelRegistry{channels: make(map[string]models.Channel), conn: conn}
}

// Put validates and upserts a channel. Delivery status fields already recorded
// for the id are preserved.
func (r *ChannelRegistry) Put(ctx context.Context, channel models.Channel) error {
	if err := validator.ValidateStruct(channel); err != nil {
		return toValidation(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.channels[channel.ID]; ok {
		channel.LastStatus = existing.LastStatus
		channel.LastReason = existing.LastReason
		channel.LastDeliveryAt = existing.LastDeliveryAt
	}
	if r.conn != nil {
		err := r.conn.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "enabled", "targets", "flavor"}),
		}).Create(&channel).Error
		if err != nil {
			return fmt.Errorf("channel registry: save %s: %w", channel.ID, err)
		}
	}
	r.channels[channel.ID] = channel
	return nil
}

// Hydrate loads persisted channels, keeping any already registered.
func (r *ChannelRegistry) Hydrate(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	var rows []models.Channel
	if err := r.conn.WithContext(ctx).Find(&rows).Error; err != nil {
		return fmt.Errorf("channel registry: hydrate: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range rows {
		if _, ok := r.channels[c.ID]; !ok {
			r.channels[c.ID] = c
		}
	}
	return nil
}

func (r *ChannelRegistry) Get(id string) (models.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.channels[id]
	return c, ok
}

// Resolve returns the registered channel for id. An unregistered id naming a
// channel type resolves to an enabled channel of that type.
func (r *ChannelRegistry) Resolve(id string) (models.Channel, bool) {
	if c, ok := r.Get(id); ok {
		return c, true
	}
	if slices.Contains(models.AllChannelTypes, models.ChannelType(id)) {
		return models.Channel{ID: id, Type: models.ChannelType(id), Enabled: true}, true
	}
	return models.Channel{}, false
}

func (r *ChannelRegistry) List() []models.Channel {
	r.mu.RLock()
	out := make([]models.Channel, 0, len(r.channels))
	for _, c := range r.channels {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecordDelivery stores the outcome of the latest send on a channel.
func (r *ChannelRegistry) RecordDelivery(ctx context.Context, id string, status models.DeliveryStatus, reason string, at time.Time) error {
	r.mu.Lock()
	c, ok := r.channels[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if c.LastDeliveryAt != nil && at.Before(*c.LastDeliveryAt) {
		r.mu.Unlock()
		return nil
	}
	c.LastStatus = status
	c.LastReason = reason
	c.LastDeliveryAt = &at
	r.channels[id] = c
	r.mu.Unlock()

	if r.conn == nil {
		return nil
	}
	err := r.conn.WithContext(ctx).Model(&models.Channel{}).Where("id = ?", id).
		Updates(map[string]any{"last_status": status, "last_reason": reason, "last_delivery_at": at}).Error
	if err != nil {
		return fmt.Errorf("channel registry: record delivery on %s: %w", id, err)
	}
	return nil
}
