package alerting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/models"
	"factorydash.xyz/alert-engine/pkg/validator"
)

// PreferenceStore holds one preference record per recipient. Get never fails
// for an unknown recipient; it returns the defaults instead.
type PreferenceStore interface {
	Get(ctx context.Context, recipientID string) (models.RecipientPreferences, error)
	Update(ctx context.Context, recipientID string, patch models.PreferencesPatch, at time.Time) (models.RecipientPreferences, error)
	Put(ctx context.Context, prefs models.RecipientPreferences) error
}

// validatePreferences checks the whole record after a patch so a bad update is
// rejected without partial application.
func validatePreferences(p models.RecipientPreferences) error {
	if err := validator.ValidateStruct(p); err != nil {
		return toValidation(err)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return apperrors.NewValidation(fmt.Sprintf("unknown timezone %q", p.Timezone), "timezone")
		}
	}
	return nil
}

func clonePreferences(p models.RecipientPreferences) models.RecipientPreferences {
	out := p
	out.EnabledChannels = slices.Clone(p.EnabledChannels)
	out.EnabledCategories = slices.Clone(p.EnabledCategories)
	out.EnabledPriorities = slices.Clone(p.EnabledPriorities)
	out.Contacts = cloneMap(p.Contacts)
	return out
}

type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]models.RecipientPreferences
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]models.RecipientPreferences)}
}

func (m *MemoryPreferenceStore) Get(_ context.Context, recipientID string) (models.RecipientPreferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.prefs[recipientID]; ok {
		return clonePreferences(p), nil
	}
	return models.DefaultPreferences(recipientID), nil
}

func (m *MemoryPreferenceStore) Update(_ context.Context, recipientID string, patch models.PreferencesPatch, at time.Time) (models.RecipientPreferences, error) {
	if err := validator.ValidateStruct(patch); err != nil {
		return models.RecipientPreferences{}, toValidation(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.prefs[recipientID]
	if !ok {
		current = models.DefaultPreferences(recipientID)
	}
	next := patch.Apply(clonePreferences(current))
	next.RecipientID = recipientID
	next.UpdatedAt = at
	if err := validatePreferences(next); err != nil {
		return models.RecipientPreferences{}, err
	}
	m.prefs[recipientID] = next
	return clonePreferences(next), nil
}

func (m *MemoryPreferenceStore) Put(_ context.Context, prefs models.RecipientPreferences) error {
	if err := validatePreferences(prefs); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[prefs.RecipientID] = clonePreferences(prefs)
	return nil
}

type GormPreferenceStore struct {
	conn *gorm.DB
}

func NewGormPreferenceStore(conn *gorm.DB) *GormPreferenceStore {
	return &GormPreferenceStore{conn: conn}
}

func (s *GormPreferenceStore) load(tx *gorm.DB, recipientID string) (models.RecipientPreferences, error) {
	var p models.RecipientPreferences
	err := tx.Where("recipient_id = ?", recipientID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultPreferences(recipientID), nil
	}
	if err != nil {
		return models.RecipientPreferences{}, fmt.Errorf("preference store: load %s: %w", recipientID, err)
	}
	return p, nil
}

func (s *GormPreferenceStore) Get(ctx context.Context, recipientID string) (models.RecipientPreferences, error) {
	return s.load(s.conn.WithContext(ctx), recipientID)
}

func (s *GormPreferenceStore) Update(ctx context.Context, recipientID string, patch models.PreferencesPatch, at time.Time) (models.RecipientPreferences, error) {
	if err := validator.ValidateStruct(patch); err != nil {
		return models.RecipientPreferences{}, toValidation(err)
	}

	var out models.RecipientPreferences
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.load(tx, recipientID)
		if err != nil {
			return err
		}
		next := patch.Apply(current)
		next.RecipientID = recipientID
		next.UpdatedAt = at
		if err := validatePreferences(next); err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&next).Error; err != nil {
			return fmt.Errorf("preference store: save %s: %w", recipientID, err)
		}
		out = next
		return nil
	})
	return out, err
}

func (s *GormPreferenceStore) Put(ctx context.Context, prefs models.RecipientPreferences) error {
	if err := validatePreferences(prefs); err != nil {
		return err
	}
	if err := s.conn.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&prefs).Error; err != nil {
		return fmt.Errorf("preference store: save %s: %w", prefs.RecipientID, err)
	}
	return nil
}

// toValidation maps validator output onto the API's validation error.
func toValidation(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return apperrors.NewValidation(ve.Error(), ve.Fields()...)
	}
	return apperrors.NewValidation(err.Error())
}
