package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"factorydash.xyz/alert-engine/pkg/channels"
	"factorydash.xyz/alert-engine/pkg/db"
	"factorydash.xyz/alert-engine/pkg/models"
)

// wednesday10 is inside the default workday in UTC.
var wednesday10 = time.Date(2025, time.June, 11, 10, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// openTestDB returns a migrated in-memory sqlite database private to the test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func newTestEngine(t *testing.T, opts ...Option) *AlertEngine {
	t.Helper()
	e := New(opts...)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	})
	return e
}

// fakeSender records messages; failures[channelID] makes that many sends fail first.
type fakeSender struct {
	mu       sync.Mutex
	sent     []channels.Message
	failures map[string]int
	gate     chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{failures: map[string]int{}}
}

func (f *fakeSender) Send(ctx context.Context, msg channels.Message) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[msg.Channel.ID] > 0 {
		f.failures[msg.Channel.ID]--
		return errors.New("gateway unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) messages() []channels.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]channels.Message(nil), f.sent...)
}

type recordedEvent struct {
	recipientID string
	event       string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(recipientID, event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{recipientID, event})
}

func (p *fakePublisher) all() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

func ptr[T any](v T) *T { return &v }

func ruleSpec(id, condition string, severity models.Level, cooldown int, recipients ...string) models.RuleSpec {
	return models.RuleSpec{
		ID:              id,
		Name:            id,
		Category:        models.CategoryProduction,
		Condition:       condition,
		Severity:        severity,
		Enabled:         ptr(true),
		Channels:        []string{"email"},
		Recipients:      recipients,
		CooldownSeconds: ptr(cooldown),
	}
}

func sampleAt(at time.Time, fields map[string]any) models.Sample {
	return models.Sample{Timestamp: at, Source: "press-4", Fields: fields}
}
