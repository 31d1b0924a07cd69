package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"factorydash.xyz/alert-engine/pkg/common"
	"factorydash.xyz/alert-engine/pkg/metrics"
	"factorydash.xyz/alert-engine/pkg/models"
)

var digestSchedules = map[models.Frequency]string{
	models.FrequencyHourly: "@hourly",
	models.FrequencyDaily:  "@daily",
	models.FrequencyWeekly: "@weekly",
}

const defaultRetentionSpec = "@daily"

// SkippedDelivery is a (recipient, channel) pair the preference filter held back.
type SkippedDelivery struct {
	NotificationID string `json:"notificationId"`
	RecipientID    string `json:"recipientId"`
	ChannelID      string `json:"channelId"`
	Reason         string `json:"reason"`
}

// Scheduler owns the background jobs: digest flushes per frequency and the
// retention purge of expired notifications.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher *Dispatcher
	filter     *PreferenceFilter
	prefs      PreferenceStore
	channels   *ChannelRegistry
	store      NotificationStore
	now        func() time.Time
	retention  time.Duration
	logger     *zap.Logger

	retentionSpec string

	mu      sync.Mutex
	pending map[models.Frequency][]DeliveryJob
}

type SchedulerOption func(*Scheduler)

// WithSchedulerCron injects a preconfigured cron instance.
func WithSchedulerCron(c *cron.Cron) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetention purges notifications that expired more than d ago. Zero
// disables the purge job.
func WithRetention(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.retention = d
	}
}

func WithRetentionSchedule(spec string) SchedulerOption {
	return func(s *Scheduler) {
		if spec != "" {
			s.retentionSpec = spec
		}
	}
}

func NewScheduler(dispatcher *Dispatcher, filter *PreferenceFilter, prefs PreferenceStore, registry *ChannelRegistry, store NotificationStore, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		dispatcher:    dispatcher,
		filter:        filter,
		prefs:         prefs,
		channels:      registry,
		store:         store,
		now:           func() time.Time { return time.Now().UTC() },
		retentionSpec: defaultRetentionSpec,
		logger:        common.GetLoggerWith(common.LoggerNameDigest),
		pending:       make(map[models.Frequency][]DeliveryJob),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return s
}

// Enqueue holds job until the next flush of freq.
func (s *Scheduler) Enqueue(job DeliveryJob, freq models.Frequency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[freq] = append(s.pending[freq], job)
	metrics.DigestPending.Inc()
}

func (s *Scheduler) Pending(freq models.Frequency) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[freq])
}

// Flush sends everything held for freq. Preferences and channels are re-read
// and the filter re-applied at flush time, so an opt-out made since the
// notification fired still wins. A job held back only by the schedule moves to
// the hourly bucket and goes out at the first flush inside an enabled window.
func (s *Scheduler) Flush(ctx context.Context, freq models.Frequency) ([]*DeliveryHandle, []SkippedDelivery) {
	jobs := s.take(freq)
	handles, skipped, deferred := s.route(ctx, jobs)
	for _, job := range deferred {
		s.Enqueue(job, models.FrequencyHourly)
	}

	if len(jobs) > 0 {
		s.logger.Info("Digest flushed",
			zap.String("frequency", string(freq)),
			zap.Int("dispatched", len(handles)),
			zap.Int("skipped", len(skipped)),
			zap.Int("deferred", len(deferred)),
		)
	}
	return handles, skipped
}

// Drain empties every bucket on shutdown. Jobs the filter allows now are
// dispatched; jobs still waiting for a schedule window get a failed receipt
// so they can be retried later.
func (s *Scheduler) Drain(ctx context.Context) ([]*DeliveryHandle, []SkippedDelivery) {
	var jobs []DeliveryJob
	for freq := range digestSchedules {
		jobs = append(jobs, s.take(freq)...)
	}
	handles, skipped, deferred := s.route(ctx, jobs)
	for _, job := range deferred {
		handles = append(handles, s.dispatcher.Abandon(ctx, job, ReasonDispatcherStopped))
	}
	if len(jobs) > 0 {
		s.logger.Info("Digests drained",
			zap.Int("dispatched", len(handles)-len(deferred)),
			zap.Int("abandoned", len(deferred)),
			zap.Int("skipped", len(skipped)),
		)
	}
	return handles, skipped
}

func (s *Scheduler) take(freq models.Frequency) []DeliveryJob {
	s.mu.Lock()
	jobs := s.pending[freq]
	delete(s.pending, freq)
	s.mu.Unlock()
	metrics.DigestPending.Sub(float64(len(jobs)))
	return jobs
}

func (s *Scheduler) route(ctx context.Context, jobs []DeliveryJob) (handles []*DeliveryHandle, skipped []SkippedDelivery, deferred []DeliveryJob) {
	at := s.now()
	for _, job := range jobs {
		if prefs, err := s.prefs.Get(ctx, job.Notification.RecipientID); err == nil {
			job.Prefs = prefs
		} else {
			s.logger.Warn("Using preferences captured at fire time", zap.String("recipient_id", job.Notification.RecipientID), zap.Error(err))
		}
		if channel, ok := s.channels.Resolve(job.Channel.ID); ok {
			job.Channel = channel
		}
		decision := s.filter.ShouldDeliver(&job.Notification, job.Prefs, job.Channel, at)
		if decision.Deliver {
			handles = append(handles, s.dispatcher.Dispatch(ctx, job))
			continue
		}
		if decision.Reason == ReasonOutsideSchedule && anyWindow(job.Prefs.ScheduleWindows) && !job.Notification.Expired(at) {
			deferred = append(deferred, job)
			continue
		}
		skipped = append(skipped, SkippedDelivery{
			NotificationID: job.Notification.ID,
			RecipientID:    job.Notification.RecipientID,
			ChannelID:      job.Channel.ID,
			Reason:         decision.Reason,
		})
	}
	return handles, skipped, deferred
}

func anyWindow(w models.ScheduleWindows) bool {
	return w.WorkHours || w.AfterHours || w.Weekends
}

// Purge deletes notifications whose expiry is older than the retention window.
func (s *Scheduler) Purge(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	purged, err := s.store.PurgeExpired(ctx, s.now().Add(-s.retention))
	if err != nil {
		return 0, fmt.Errorf("retention purge: %w", err)
	}
	if purged > 0 {
		s.logger.Info("Expired notifications purged", zap.Int64("count", purged))
	}
	return purged, nil
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	for freq, spec := range digestSchedules {
		if _, err := s.cron.AddFunc(spec, func() {
			s.Flush(context.Background(), freq)
		}); err != nil {
			return fmt.Errorf("schedule %s digest: %w", freq, err)
		}
	}
	if s.retention > 0 {
		if _, err := s.cron.AddFunc(s.retentionSpec, func() {
			if _, err := s.Purge(context.Background()); err != nil {
				s.logger.Warn("Retention purge failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule retention: %w", err)
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runner; the returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce flushes every digest and runs the purge.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs error
	for freq := range digestSchedules {
		s.Flush(ctx, freq)
	}
	if _, err := s.Purge(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
