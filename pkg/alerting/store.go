package alerting

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// NotificationStore is the inbox. Insert is append-only and dedupes on id and
// on DedupeKey; lifecycle fields change only through Apply.
type NotificationStore interface {
	Insert(ctx context.Context, n models.Notification) (stored models.Notification, created bool, err error)
	Get(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, recipientID string, filter models.NotificationFilter, now time.Time) ([]models.Notification, error)
	Apply(ctx context.Context, id string, action Action, at time.Time) (*models.Notification, error)
	SetStarred(ctx context.Context, id string, starred bool) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipientID string, now time.Time) (int64, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func matches(n *models.Notification, f models.NotificationFilter, now time.Time) bool {
	switch {
	case f.Type != "" && n.Type != f.Type:
		return false
	case f.Priority != "" && n.Priority != f.Priority:
		return false
	case f.Category != "" && n.Category != f.Category:
		return false
	case f.Status != "" && n.Status != f.Status:
		return false
	case f.UnreadOnly && !n.Unread():
		return false
	case f.StarredOnly && !n.Starred:
		return false
	case !f.IncludeExpired && n.Expired(now):
		return false
	}
	return true
}

// sortNewestFirst orders by createdAt descending, ties broken by id descending.
func sortNewestFirst(items []models.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}

// MemoryNotificationStore keeps the inbox in process memory.
type MemoryNotificationStore struct {
	mu          sync.RWMutex
	byID        map[string]*models.Notification
	byDedupe    map[string]string
	byRecipient map[string][]string
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{
		byID:        make(map[string]*models.Notification),
		byDedupe:    make(map[string]string),
		byRecipient: make(map[string][]string),
	}
}

func cloneNotification(n *models.Notification) models.Notification {
	out := *n
	out.RuleID = copyString(n.RuleID)
	out.DedupeKey = copyString(n.DedupeKey)
	out.ReadAt = copyTime(n.ReadAt)
	out.ExpiresAt = copyTime(n.ExpiresAt)
	out.Metadata = cloneMap(n.Metadata)
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func (m *MemoryNotificationStore) Insert(_ context.Context, n models.Notification) (models.Notification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byID[n.ID]; ok {
		return cloneNotification(existing), false, nil
	}
	if n.DedupeKey != nil {
		if id, ok := m.byDedupe[*n.DedupeKey]; ok {
			return cloneNotification(m.byID[id]), false, nil
		}
	}

	stored := cloneNotification(&n)
	m.byID[n.ID] = &stored
	if n.DedupeKey != nil {
		m.byDedupe[*n.DedupeKey] = n.ID
	}
	m.byRecipient[n.RecipientID] = append(m.byRecipient[n.RecipientID], n.ID)
	return cloneNotification(&stored), true, nil
}

func (m *MemoryNotificationStore) Get(_ context.Context, id string) (*models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound.WithMessage("notification %s not found", id)
	}
	out := cloneNotification(n)
	return &out, nil
}

func (m *MemoryNotificationStore) List(_ context.Context, recipientID string, filter models.NotificationFilter, now time.Time) ([]models.Notification, error) {
	m.mu.RLock()
	items := make([]models.Notification, 0, len(m.byRecipient[recipientID]))
	for _, id := range m.byRecipient[recipientID] {
		n := m.byID[id]
		if matches(n, filter, now) {
			items = append(items, cloneNotification(n))
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(items)

	offset := max(0, filter.Offset)
	if offset >= len(items) {
		return []models.Notification{}, nil
	}
	end := min(len(items), offset+normalizeLimit(filter.Limit))
	return items[offset:end], nil
}

func (m *MemoryNotificationStore) Apply(_ context.Context, id string, action Action, at time.Time) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound.WithMessage("notification %s not found", id)
	}
	next := cloneNotification(n)
	if err := Transition(&next, action, at); err != nil {
		return nil, err
	}
	*n = next
	out := cloneNotification(n)
	return &out, nil
}

func (m *MemoryNotificationStore) SetStarred(_ context.Context, id string, starred bool) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound.WithMessage("notification %s not found", id)
	}
	n.Starred = starred
	out := cloneNotification(n)
	return &out, nil
}

// MarkAllRead moves every unread simple-profile notification to read. Extended
// notifications need an explicit acknowledge and are left alone.
func (m *MemoryNotificationStore) MarkAllRead(_ context.Context, recipientID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, id := range m.byRecipient[recipientID] {
		n := m.byID[id]
		if n.Profile == models.ProfileSimple && n.Status == models.StatusUnread {
			if err := Transition(n, ActionRead, at); err == nil {
				count++
			}
		}
	}
	return count, nil
}

func (m *MemoryNotificationStore) CountUnread(_ context.Context, recipientID string, now time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, id := range m.byRecipient[recipientID] {
		n := m.byID[id]
		if n.Unread() && !n.Expired(now) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryNotificationStore) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for id, n := range m.byID {
		if n.ExpiresAt == nil || !n.ExpiresAt.Before(before) {
			continue
		}
		delete(m.byID, id)
		if n.DedupeKey != nil {
			delete(m.byDedupe, *n.DedupeKey)
		}
		ids := m.byRecipient[n.RecipientID]
		for i, rid := range ids {
			if rid == id {
				m.byRecipient[n.RecipientID] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
		purged++
	}
	return purged, nil
}
