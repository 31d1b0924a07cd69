package alerting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factorydash.xyz/alert-engine/pkg/models"
)

// ReceiptStore keeps the latest delivery receipt per (notification, channel).
// Saving a key again replaces the receipt; Attempts is carried by the caller.
type ReceiptStore interface {
	Save(ctx context.Context, receipt models.DeliveryReceipt) error
	Get(ctx context.Context, notificationID, channelID string) (*models.DeliveryReceipt, error)
	ListByNotification(ctx context.Context, notificationID string) ([]models.DeliveryReceipt, error)
}

type receiptKey struct {
	notificationID string
	channelID      string
}

type MemoryReceiptStore struct {
	mu       sync.RWMutex
	receipts map[receiptKey]models.DeliveryReceipt
}

func NewMemoryReceiptStore() *MemoryReceiptStore {
	return &MemoryReceiptStore{receipts: make(map[receiptKey]models.DeliveryReceipt)}
}

func (m *MemoryReceiptStore) Save(_ context.Context, receipt models.DeliveryReceipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := receiptKey{receipt.NotificationID, receipt.ChannelID}
	if existing, ok := m.receipts[key]; ok {
		receipt.ID = existing.ID
	}
	m.receipts[key] = receipt
	return nil
}

func (m *MemoryReceiptStore) Get(_ context.Context, notificationID, channelID string) (*models.DeliveryReceipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.receipts[receiptKey{notificationID, channelID}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryReceiptStore) ListByNotification(_ context.Context, notificationID string) ([]models.DeliveryReceipt, error) {
	m.mu.RLock()
	out := []models.DeliveryReceipt{}
	for key, r := range m.receipts {
		if key.notificationID == notificationID {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

type GormReceiptStore struct {
	conn *gorm.DB
}

func NewGormReceiptStore(conn *gorm.DB) *GormReceiptStore {
	return &GormReceiptStore{conn: conn}
}

func (s *GormReceiptStore) Save(ctx context.Context, receipt models.DeliveryReceipt) error {
	err := s.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "notification_id"}, {Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "reason", "attempts", "attempted_at"}),
	}).Create(&receipt).Error
	if err != nil {
		return fmt.Errorf("receipt store: save %s/%s: %w", receipt.NotificationID, receipt.ChannelID, err)
	}
	return nil
}

func (s *GormReceiptStore) Get(ctx context.Context, notificationID, channelID string) (*models.DeliveryReceipt, error) {
	var r models.DeliveryReceipt
	err := s.conn.WithContext(ctx).
		Where("notification_id = ? AND channel_id = ?", notificationID, channelID).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receipt store: load %s/%s: %w", notificationID, channelID, err)
	}
	return &r, nil
}

func (s *GormReceiptStore) ListByNotification(ctx context.Context, notificationID string) ([]models.DeliveryReceipt, error) {
	out := []models.DeliveryReceipt{}
	err := s.conn.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("channel_id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("receipt store: list %s: %w", notificationID, err)
	}
	return out, nil
}
