package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/models"
)

// GormNotificationStore persists the inbox through gorm.
type GormNotificationStore struct {
	conn *gorm.DB
}

func NewGormNotificationStore(conn *gorm.DB) *GormNotificationStore {
	return &GormNotificationStore{conn: conn}
}

func (s *GormNotificationStore) findExisting(tx *gorm.DB, n models.Notification) (*models.Notification, error) {
	var existing models.Notification
	query := tx.Where("id = ?", n.ID)
	if n.DedupeKey != nil {
		query = tx.Where("id = ? OR dedupe_key = ?", n.ID, *n.DedupeKey)
	}
	err := query.Limit(1).Find(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing.ID == "" {
		return nil, nil
	}
	return &existing, nil
}

func (s *GormNotificationStore) Insert(ctx context.Context, n models.Notification) (models.Notification, bool, error) {
	var stored models.Notification
	created := false
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findExisting(tx, n)
		if err != nil {
			return err
		}
		if existing != nil {
			stored = *existing
			return nil
		}
		if err := tx.Create(&n).Error; err != nil {
			return err
		}
		stored = n
		created = true
		return nil
	})
	if err != nil {
		return models.Notification{}, false, fmt.Errorf("notification store: insert %s: %w", n.ID, err)
	}
	return stored, created, nil
}

func (s *GormNotificationStore) get(tx *gorm.DB, id string) (*models.Notification, error) {
	var n models.Notification
	if err := tx.Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("notification %s not found", id)
		}
		return nil, fmt.Errorf("notification store: load %s: %w", id, err)
	}
	return &n, nil
}

func (s *GormNotificationStore) Get(ctx context.Context, id string) (*models.Notification, error) {
	return s.get(s.conn.WithContext(ctx), id)
}

func (s *GormNotificationStore) List(ctx context.Context, recipientID string, f models.NotificationFilter, now time.Time) ([]models.Notification, error) {
	query := s.conn.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.Priority != "" {
		query = query.Where("priority = ?", f.Priority)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.UnreadOnly {
		query = query.Where("status IN ?", []models.Status{models.StatusUnread, models.StatusNew})
	}
	if f.StarredOnly {
		query = query.Where("starred = ?", true)
	}
	if !f.IncludeExpired {
		query = query.Where("expires_at IS NULL OR expires_at >= ?", now)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(normalizeLimit(f.Limit)).
		Offset(max(0, f.Offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification store: list for %s: %w", recipientID, err)
	}
	return rows, nil
}

func (s *GormNotificationStore) Apply(ctx context.Context, id string, action Action, at time.Time) (*models.Notification, error) {
	var out *models.Notification
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.get(tx, id)
		if err != nil {
			return err
		}
		from := n.Status
		if err := Transition(n, action, at); err != nil {
			return err
		}
		// guard on the old status so a concurrent transition cannot be overwritten
		result := tx.Model(&models.Notification{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]any{"status": n.Status, "read_at": n.ReadAt})
		if result.Error != nil {
			return fmt.Errorf("notification store: %s %s: %w", action, id, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NewInvalidTransition(string(from), string(action))
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormNotificationStore) SetStarred(ctx context.Context, id string, starred bool) (*models.Notification, error) {
	conn := s.conn.WithContext(ctx)
	result := conn.Model(&models.Notification{}).Where("id = ?", id).Update("starred", starred)
	if result.Error != nil {
		return nil, fmt.Errorf("notification store: star %s: %w", id, result.Error)
	}
	return s.get(conn, id)
}

func (s *GormNotificationStore) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	result := s.conn.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND profile = ? AND status = ?", recipientID, models.ProfileSimple, models.StatusUnread).
		Updates(map[string]any{"status": models.StatusRead, "read_at": at})
	if result.Error != nil {
		return 0, fmt.Errorf("notification store: mark all read for %s: %w", recipientID, result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormNotificationStore) CountUnread(ctx context.Context, recipientID string, now time.Time) (int64, error) {
	var count int64
	err := s.conn.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND status IN ?", recipientID, []models.Status{models.StatusUnread, models.StatusNew}).
		Where("expires_at IS NULL OR expires_at >= ?", now).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("notification store: count unread for %s: %w", recipientID, err)
	}
	return count, nil
}

func (s *GormNotificationStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	result := s.conn.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", before).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification store: purge expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}
