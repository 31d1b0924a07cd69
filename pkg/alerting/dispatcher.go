package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"factorydash.xyz/alert-engine/pkg/channels"
	"factorydash.xyz/alert-engine/pkg/common"
	"factorydash.xyz/alert-engine/pkg/metrics"
	"factorydash.xyz/alert-engine/pkg/models"
)

const (
	ReasonQueueFull = "queue_full"

	defaultDispatchWorkers   = 4
	defaultDispatchQueueSize = 1024
)

// DeliveryJob is one notification addressed through one channel.
type DeliveryJob struct {
	Notification models.Notification
	Channel      models.Channel
	Prefs        models.RecipientPreferences
}

func (j DeliveryJob) key() receiptKey {
	return receiptKey{j.Notification.ID, j.Channel.ID}
}

type DeliveryResult struct {
	NotificationID string                `json:"notificationId"`
	ChannelID      string                `json:"channelId"`
	ChannelType    models.ChannelType    `json:"channelType"`
	RecipientID    string                `json:"recipientId"`
	Status         models.DeliveryStatus `json:"status"`
	Reason         string                `json:"reason,omitempty"`
	Attempts       int                   `json:"attempts"`
	AttemptedAt    time.Time             `json:"attemptedAt"`
}

func (r DeliveryResult) OK() bool { return r.Status == models.DeliveryOK }

func (r DeliveryResult) receipt() models.DeliveryReceipt {
	return models.DeliveryReceipt{
		ID:             uuid.NewString(),
		NotificationID: r.NotificationID,
		ChannelID:      r.ChannelID,
		RecipientID:    r.RecipientID,
		Status:         r.Status,
		Reason:         r.Reason,
		Attempts:       r.Attempts,
		AttemptedAt:    r.AttemptedAt,
	}
}

// DeliveryHandle tracks one asynchronous delivery attempt.
type DeliveryHandle struct {
	NotificationID string `json:"notificationId"`
	ChannelID      string `json:"channelId"`

	done   chan struct{}
	result DeliveryResult
}

func newDeliveryHandle(key receiptKey) *DeliveryHandle {
	return &DeliveryHandle{NotificationID: key.notificationID, ChannelID: key.channelID, done: make(chan struct{})}
}

func (h *DeliveryHandle) complete(result DeliveryResult) {
	h.result = result
	close(h.done)
}

func (h *DeliveryHandle) Done() <-chan struct{} { return h.done }

// Result returns the outcome once the attempt has finished.
func (h *DeliveryHandle) Result() (DeliveryResult, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return DeliveryResult{}, false
	}
}

func (h *DeliveryHandle) Wait(ctx context.Context) (DeliveryResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return DeliveryResult{}, ctx.Err()
	}
}

type dispatchTask struct {
	job     DeliveryJob
	attempt int
	handle  *DeliveryHandle
}

// ReceiptSink observes every delivery receipt after it is stored.
type ReceiptSink func(models.DeliveryReceipt)

type DispatcherOptions struct {
	Workers   int
	QueueSize int
	Limiter   *RateLimiterStore
	Clock     func() time.Time
}

// Dispatcher runs channel sends on a worker pool. Each (notification, channel)
// key is attempted at most once unless the previous attempt failed and the
// caller asks for a retry.
type Dispatcher struct {
	sender   channels.Sender
	receipts ReceiptStore
	channels *ChannelRegistry
	limiter  *RateLimiterStore
	clock    func() time.Time
	workers  int
	queue    chan *dispatchTask
	logger   *zap.Logger

	mu      sync.Mutex
	handles map[receiptKey]*DeliveryHandle
	sinks   []ReceiptSink
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDispatcher(sender channels.Sender, receipts ReceiptStore, registry *ChannelRegistry, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultDispatchWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultDispatchQueueSize
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:   sender,
		receipts: receipts,
		channels: registry,
		limiter:  opts.Limiter,
		clock:    opts.Clock,
		workers:  opts.Workers,
		queue:    make(chan *dispatchTask, opts.QueueSize),
		logger: common.GetLoggerWith(
			common.LoggerNameDispatcher,
			zap.String(common.LoggerFieldAlertCategory, common.LoggerCategoryAlertDelivery),
		),
		handles: make(map[receiptKey]*DeliveryHandle),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Subscribe registers a sink for delivery receipts.
func (d *Dispatcher) Subscribe(sink ReceiptSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, sink)
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Stop cancels in-flight sends, waits for the workers and fails every queued
// job so the keys stay retryable.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	d.cancel()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("dispatcher: stop: %w", ctx.Err())
	}

	for {
		select {
		case task := <-d.queue:
			metrics.DispatchQueueDepth.Dec()
			d.finish(task, d.failed(task, ReasonDispatcherStopped))
		default:
			return nil
		}
	}
}

// Dispatch queues job unless its key is in flight or already has a receipt,
// in which case the earlier outcome is returned. A failed key is only sent
// again through Retry. The caller's ctx does not bound the send.
func (d *Dispatcher) Dispatch(ctx context.Context, job DeliveryJob) *DeliveryHandle {
	return d.dispatch(ctx, job, false)
}

// Retry re-attempts a key whose last attempt failed. A key that is in flight
// or already delivered returns its current outcome without a new attempt.
func (d *Dispatcher) Retry(ctx context.Context, job DeliveryJob) *DeliveryHandle {
	key := job.key()

	d.mu.Lock()
	h, ok := d.handles[key]
	if ok {
		if result, done := h.Result(); !done || result.OK() {
			d.mu.Unlock()
			return h
		}
		delete(d.handles, key)
	}
	d.mu.Unlock()

	return d.dispatch(ctx, job, true)
}

func (d *Dispatcher) dispatch(ctx context.Context, job DeliveryJob, retry bool) *DeliveryHandle {
	key := job.key()

	d.mu.Lock()
	if h, ok := d.handles[key]; ok {
		d.mu.Unlock()
		return h
	}
	h := newDeliveryHandle(key)
	d.handles[key] = h
	d.mu.Unlock()

	previous, err := d.receipts.Get(ctx, key.notificationID, key.channelID)
	if err != nil {
		d.logger.Warn("Receipt lookup failed", zap.String("notification_id", key.notificationID), zap.String("channel_id", key.channelID), zap.Error(err))
	}
	if previous != nil && (previous.Status == models.DeliveryOK || !retry) {
		h.complete(resultFromReceipt(*previous, job.Channel.Type))
		d.release(h)
		return h
	}

	attempt := 1
	if previous != nil {
		attempt = previous.Attempts + 1
	}
	d.enqueue(&dispatchTask{job: job, attempt: attempt, handle: h})
	return h
}

// Abandon records a failed receipt for job without sending it. A key that is
// in flight or already has a receipt keeps its outcome. Attempts stays at
// zero, so a later Retry is the first real send.
func (d *Dispatcher) Abandon(ctx context.Context, job DeliveryJob, reason string) *DeliveryHandle {
	key := job.key()
	d.mu.Lock()
	if h, ok := d.handles[key]; ok {
		d.mu.Unlock()
		return h
	}
	h := newDeliveryHandle(key)
	d.handles[key] = h
	d.mu.Unlock()

	if previous, err := d.receipts.Get(ctx, key.notificationID, key.channelID); err == nil && previous != nil {
		h.complete(resultFromReceipt(*previous, job.Channel.Type))
		d.release(h)
		return h
	}
	task := &dispatchTask{job: job, handle: h}
	d.finish(task, d.failed(task, reason))
	return h
}

// release forgets a finished handle; its receipt answers later dispatches.
func (d *Dispatcher) release(h *DeliveryHandle) {
	key := receiptKey{h.NotificationID, h.ChannelID}
	d.mu.Lock()
	if d.handles[key] == h {
		delete(d.handles, key)
	}
	d.mu.Unlock()
}

// tracked reports how many keys are held in memory.
func (d *Dispatcher) tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handles)
}

// Deliver dispatches job and waits for its result.
func (d *Dispatcher) Deliver(ctx context.Context, job DeliveryJob) (DeliveryResult, error) {
	return d.Dispatch(ctx, job).Wait(ctx)
}

func (d *Dispatcher) enqueue(task *dispatchTask) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.finish(task, d.failed(task, ReasonDispatcherStopped))
		return
	}
	select {
	case d.queue <- task:
		metrics.DispatchQueueDepth.Inc()
		d.mu.Unlock()
	default:
		d.mu.Unlock()
		d.logger.Warn("Dispatch queue full", zap.String("notification_id", task.job.Notification.ID), zap.String("channel_id", task.job.Channel.ID))
		d.finish(task, d.failed(task, ReasonQueueFull))
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case task := <-d.queue:
			metrics.DispatchQueueDepth.Dec()
			d.finish(task, d.send(d.ctx, task))
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, task *dispatchTask) DeliveryResult {
	job := task.job
	if err := d.limiter.Wait(ctx, job.Channel.ID); err != nil {
		return d.failed(task, "rate limit wait: "+err.Error())
	}

	msg := channels.NewMessage(&job.Notification, job.Channel, job.Prefs)
	started := time.Now()
	err := d.sender.Send(ctx, msg)
	metrics.DeliveryLatency.WithLabelValues(string(job.Channel.Type)).Observe(time.Since(started).Seconds())

	if err != nil {
		reason := err.Error()
		if errors.Is(err, channels.ErrNoContact) {
			reason = ReasonNoContact
		}
		return d.failed(task, reason)
	}
	result := d.failed(task, "")
	result.Status = models.DeliveryOK
	return result
}

func (d *Dispatcher) failed(task *dispatchTask, reason string) DeliveryResult {
	return DeliveryResult{
		NotificationID: task.job.Notification.ID,
		ChannelID:      task.job.Channel.ID,
		ChannelType:    task.job.Channel.Type,
		RecipientID:    task.job.Notification.RecipientID,
		Status:         models.DeliveryFailed,
		Reason:         reason,
		Attempts:       task.attempt,
		AttemptedAt:    d.clock(),
	}
}

// finish records the result and then releases waiters, so a completed handle
// always has its receipt stored.
func (d *Dispatcher) finish(task *dispatchTask, result DeliveryResult) {
	ctx := context.WithoutCancel(d.ctx)
	logger := d.logger.With(
		zap.String("notification_id", result.NotificationID),
		zap.String("channel_id", result.ChannelID),
		zap.String("status", string(result.Status)),
	)

	receipt := result.receipt()
	saveErr := d.receipts.Save(ctx, receipt)
	if saveErr != nil {
		logger.Error("Failed to store delivery receipt", zap.Error(saveErr))
	}
	if d.channels != nil {
		if err := d.channels.RecordDelivery(ctx, result.ChannelID, result.Status, result.Reason, result.AttemptedAt); err != nil {
			logger.Warn("Failed to record channel status", zap.Error(err))
		}
	}
	metrics.Deliveries.WithLabelValues(string(result.ChannelType), string(result.Status)).Inc()

	if result.OK() {
		logger.Debug("Delivered")
	} else {
		logger.Warn("Delivery failed", zap.String("reason", result.Reason), zap.Int("attempts", result.Attempts))
	}

	d.mu.Lock()
	sinks := append([]ReceiptSink(nil), d.sinks...)
	d.mu.Unlock()
	for _, sink := range sinks {
		sink(receipt)
	}

	task.handle.complete(result)
	// Without a stored receipt the handle is the only record of the key.
	if saveErr == nil {
		d.release(task.handle)
	}
}

func resultFromReceipt(r models.DeliveryReceipt, channelType models.ChannelType) DeliveryResult {
	return DeliveryResult{
		NotificationID: r.NotificationID,
		ChannelID:      r.ChannelID,
		ChannelType:    channelType,
		RecipientID:    r.RecipientID,
		Status:         r.Status,
		Reason:         r.Reason,
		Attempts:       r.Attempts,
		AttemptedAt:    r.AttemptedAt,
	}
}
