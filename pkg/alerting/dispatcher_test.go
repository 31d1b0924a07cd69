package alerting

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorydash.xyz/alert-engine/pkg/channels"
	"factorydash.xyz/alert-engine/pkg/common"
	"factorydash.xyz/alert-engine/pkg/models"
)

func deliveryJob(notificationID, channelID string) DeliveryJob {
	return DeliveryJob{
		Notification: models.Notification{
			ID:          notificationID,
			RecipientID: "op-1",
			Title:       "Press 4 overheating",
			Category:    models.CategoryProduction,
			Priority:    models.LevelMedium,
		},
		Channel:      models.Channel{ID: channelID, Type: models.ChannelEmail, Enabled: true},
		Prefs:        models.DefaultPreferences("op-1"),
	}
}

func startDispatcher(t *testing.T, sender channels.Sender, receipts ReceiptStore, registry *ChannelRegistry, opts DispatcherOptions) *Dispatcher {
	t.Helper()
	d := NewDispatcher(sender, receipts, registry, opts)
	d.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Stop(ctx)
	})
	return d
}

func waitResult(t *testing.T, h *DeliveryHandle) DeliveryResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := h.Wait(ctx)
	require.NoError(t, err)
	return result
}

func TestDispatcher_DispatchIsIdempotent(t *testing.T) {
	common.SetTestLoggerNop()

	started := make(chan struct{}, 4)
	release := make(chan struct{})
	var mu sync.Mutex
	sends := 0
	sender := channels.SenderFunc(func(ctx context.Context, _ channels.Message) error {
		mu.Lock()
		sends++
		mu.Unlock()
		started <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	d := startDispatcher(t, sender, NewMemoryReceiptStore(), nil, DispatcherOptions{})
	ctx := context.Background()

	h1 := d.Dispatch(ctx, deliveryJob("n1", "email"))
	<-started
	h2 := d.Dispatch(ctx, deliveryJob("n1", "email"))
	assert.Same(t, h1, h2, "an in-flight key shares its handle")

	close(release)
	result := waitResult(t, h1)
	assert.True(t, result.OK())
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "op-1", result.RecipientID)

	again, done := d.Dispatch(ctx, deliveryJob("n1", "email")).Result()
	require.True(t, done, "a delivered key answers from its receipt")
	assert.True(t, again.OK())
	assert.Equal(t, 1, again.Attempts)

	mu.Lock()
	assert.Equal(t, 1, sends)
	mu.Unlock()
}

func TestDispatcher_FinishedKeysAreReleased(t *testing.T) {
	common.SetTestLoggerNop()

	sender := newFakeSender()
	sender.failures["sms"] = 1
	d := startDispatcher(t, sender, NewMemoryReceiptStore(), nil, DispatcherOptions{})
	ctx := context.Background()

	var handles []*DeliveryHandle
	for i := range 20 {
		handles = append(handles, d.Dispatch(ctx, deliveryJob(fmt.Sprintf("n%d", i), "email")))
	}
	smsJob := deliveryJob("n0", "sms")
	smsJob.Channel.Type = models.ChannelSMS
	handles = append(handles, d.Dispatch(ctx, smsJob))
	for _, h := range handles {
		waitResult(t, h)
	}
	assert.Eventually(t, func() bool { return d.tracked() == 0 }, 2*time.Second, 10*time.Millisecond)

	failed, done := d.Dispatch(ctx, smsJob).Result()
	require.True(t, done, "a failed key is not re-sent by Dispatch")
	assert.Equal(t, models.DeliveryFailed, failed.Status)

	retried := waitResult(t, d.Retry(ctx, smsJob))
	assert.True(t, retried.OK())
	assert.Equal(t, 2, retried.Attempts)
	assert.Eventually(t, func() bool { return d.tracked() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcher_RetryAfterFailure(t *testing.T) {
	common.SetTestLoggerNop()

	sender := newFakeSender()
	sender.failures["email"] = 1
	receipts := NewMemoryReceiptStore()
	d := startDispatcher(t, sender, receipts, nil, DispatcherOptions{})
	ctx := context.Background()

	first := waitResult(t, d.Dispatch(ctx, deliveryJob("n1", "email")))
	assert.Equal(t, models.DeliveryFailed, first.Status)
	assert.Equal(t, "gateway unavailable", first.Reason)

	second := waitResult(t, d.Retry(ctx, deliveryJob("n1", "email")))
	assert.True(t, second.OK())
	assert.Equal(t, 2, second.Attempts)

	again := d.Retry(ctx, deliveryJob("n1", "email"))
	result, done := again.Result()
	require.True(t, done, "a delivered key is not attempted again")
	assert.Equal(t, 2, result.Attempts)
	assert.Len(t, sender.messages(), 1)

	stored, err := receipts.Get(ctx, "n1", "email")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryOK, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
}

func TestDispatcher_DeliveredReceiptShortCircuits(t *testing.T) {
	common.SetTestLoggerNop()

	receipts := NewMemoryReceiptStore()
	require.NoError(t, receipts.Save(context.Background(), models.DeliveryReceipt{
		ID: "r1", NotificationID: "n1", ChannelID: "email", RecipientID: "op-1",
		Status: models.DeliveryOK, Attempts: 3, AttemptedAt: wednesday10,
	}))

	sender := newFakeSender()
	d := startDispatcher(t, sender, receipts, nil, DispatcherOptions{})

	result, done := d.Dispatch(context.Background(), deliveryJob("n1", "email")).Result()
	require.True(t, done)
	assert.True(t, result.OK())
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, sender.messages())
}

func TestDispatcher_QueueFull(t *testing.T) {
	common.SetTestLoggerNop()

	started := make(chan struct{}, 8)
	release := make(chan struct{})
	sender := channels.SenderFunc(func(ctx context.Context, _ channels.Message) error {
		started <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	d := startDispatcher(t, sender, NewMemoryReceiptStore(), nil, DispatcherOptions{Workers: 1, QueueSize: 1})
	ctx := context.Background()

	h1 := d.Dispatch(ctx, deliveryJob("n1", "email"))
	<-started
	h2 := d.Dispatch(ctx, deliveryJob("n2", "email"))
	h3 := d.Dispatch(ctx, deliveryJob("n3", "email"))

	r3, done := h3.Result()
	require.True(t, done)
	assert.Equal(t, ReasonQueueFull, r3.Reason)

	close(release)
	assert.True(t, waitResult(t, h1).OK())
	assert.True(t, waitResult(t, h2).OK())

	assert.True(t, waitResult(t, d.Retry(ctx, deliveryJob("n3", "email"))).OK(), "a queue_full key stays retryable")
}

func TestDispatcher_Stop(t *testing.T) {
	common.SetTestLoggerNop()

	started := make(chan struct{}, 8)
	sender := channels.SenderFunc(func(ctx context.Context, _ channels.Message) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	})
	receipts := NewMemoryReceiptStore()
	d := NewDispatcher(sender, receipts, nil, DispatcherOptions{Workers: 1, QueueSize: 4})
	d.Start()
	bg := context.Background()

	h1 := d.Dispatch(bg, deliveryJob("n1", "email"))
	<-started
	h2 := d.Dispatch(bg, deliveryJob("n2", "email"))

	ctx, cancel := context.WithTimeout(bg, 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	require.NoError(t, d.Stop(ctx), "stop is idempotent")

	for _, h := range []*DeliveryHandle{h1, h2} {
		result, done := h.Result()
		require.True(t, done)
		assert.Equal(t, models.DeliveryFailed, result.Status)
	}

	late, done := d.Dispatch(bg, deliveryJob("n3", "email")).Result()
	require.True(t, done)
	assert.Equal(t, ReasonDispatcherStopped, late.Reason)

	stored, err := receipts.Get(bg, "n3", "email")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryFailed, stored.Status)
}

func TestDispatcher_NoContactAndSinks(t *testing.T) {
	common.SetTestLoggerNop()

	sender := channels.SenderFunc(func(_ context.Context, msg channels.Message) error {
		if msg.Channel.ID == "sms" {
			return fmt.Errorf("sms: %w", channels.ErrNoContact)
		}
		return nil
	})
	registry := NewChannelRegistry(nil)
	ctx := context.Background()
	require.NoError(t, registry.Put(ctx, models.Channel{ID: "email", Type: models.ChannelEmail, Enabled: true}))
	require.NoError(t, registry.Put(ctx, models.Channel{ID: "sms", Type: models.ChannelSMS, Enabled: true}))

	d := startDispatcher(t, sender, NewMemoryReceiptStore(), registry, DispatcherOptions{Clock: fixedClock(wednesday10)})

	var mu sync.Mutex
	var seen []models.DeliveryReceipt
	d.Subscribe(func(r models.DeliveryReceipt) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r)
	})

	smsJob := deliveryJob("n1", "sms")
	smsJob.Channel.Type = models.ChannelSMS
	failed := waitResult(t, d.Dispatch(ctx, smsJob))
	assert.Equal(t, ReasonNoContact, failed.Reason)
	assert.True(t, waitResult(t, d.Dispatch(ctx, deliveryJob("n1", "email"))).OK())

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()

	email, _ := registry.Get("email")
	assert.Equal(t, models.DeliveryOK, email.LastStatus)
	require.NotNil(t, email.LastDeliveryAt)
	assert.True(t, wednesday10.Equal(*email.LastDeliveryAt))

	sms, _ := registry.Get("sms")
	assert.Equal(t, models.DeliveryFailed, sms.LastStatus)
	assert.Equal(t, ReasonNoContact, sms.LastReason)
}
