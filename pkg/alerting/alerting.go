package alerting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"factorydash.xyz/alert-engine/pkg/channels"
	"factorydash.xyz/alert-engine/pkg/common"
	"factorydash.xyz/alert-engine/pkg/models"
)

type IRule interface {
	LoadRules(ctx context.Context, specs []models.RuleSpec) LoadReport
	GetRule(id string) (*models.Rule, error)
	ListRules() []models.Rule
	UpdateRule(ctx context.Context, id string, patch models.RulePatch) (*models.Rule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*models.Rule, error)
}

type ISample interface {
	OnSample(ctx context.Context, sample models.Sample) (*Report, error)
	Notify(ctx context.Context, input models.AdHocNotification) (*Report, error)
}

type IInbox interface {
	ListNotifications(ctx context.Context, recipientID string, filter models.NotificationFilter) ([]models.Notification, error)
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	MarkRead(ctx context.Context, id string) (*models.Notification, error)
	Acknowledge(ctx context.Context, id string) (*models.Notification, error)
	Resolve(ctx context.Context, id string) (*models.Notification, error)
	Archive(ctx context.Context, id string) (*models.Notification, error)
	Star(ctx context.Context, id string, starred bool) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

type IPreference interface {
	GetPreferences(ctx context.Context, recipientID string) (models.RecipientPreferences, error)
	UpdatePreferences(ctx context.Context, recipientID string, patch models.PreferencesPatch) (models.RecipientPreferences, error)
}

type IDelivery interface {
	Receipts(ctx context.Context, notificationID string) ([]models.DeliveryReceipt, error)
	Retry(ctx context.Context, notificationID, channelID string) (*DeliveryHandle, error)
	ListChannels() []models.Channel
}

// EventPublisher receives inbox changes for live clients.
type EventPublisher interface {
	Publish(recipientID, event string, payload any)
}

const (
	EventNotificationUpdated = "notification.updated"
	EventInboxRead           = "inbox.read_all"
)

// AlertEngine wires rule evaluation, the inbox and delivery together. The
// service fields may be swapped, e.g. for mocks, through WithServices.
type AlertEngine struct {
	Rules      *RuleStore
	Store      NotificationStore
	Prefs      PreferenceStore
	Receipts   ReceiptStore
	Channels   *ChannelRegistry
	Cooldown   CooldownTracker
	Factory    *NotificationFactory
	Filter     *PreferenceFilter
	Dispatcher *Dispatcher
	Scheduler  *Scheduler
	Events     EventPublisher

	Rule       IRule
	Sample     ISample
	Inbox      IInbox
	Preference IPreference
	Delivery   IDelivery

	conn        *gorm.DB
	clock       func() time.Time
	evalWorkers int
}

type ServiceOpts struct {
	Rule       IRule
	Sample     ISample
	Inbox      IInbox
	Preference IPreference
	Delivery   IDelivery
}

func (e *AlertEngine) WithServices(opts ServiceOpts) *AlertEngine {
	if opts.Rule != nil {
		e.Rule = opts.Rule
	}
	if opts.Sample != nil {
		e.Sample = opts.Sample
	}
	if opts.Inbox != nil {
		e.Inbox = opts.Inbox
	}
	if opts.Preference != nil {
		e.Preference = opts.Preference
	}
	if opts.Delivery != nil {
		e.Delivery = opts.Delivery
	}
	return e
}

type options struct {
	conn          *gorm.DB
	cooldown      CooldownTracker
	sender        channels.Sender
	clock         func() time.Time
	dispatch      DispatcherOptions
	profiles      LifecycleProfiles
	workday       Workday
	events        EventPublisher
	retention     time.Duration
	evalWorkers   int
	schedulerOpts []SchedulerOption
}

type Option func(*options)

// WithDB persists rules, the inbox, preferences, receipts and channels through
// conn. Without it everything stays in memory.
func WithDB(conn *gorm.DB) Option {
	return func(o *options) { o.conn = conn }
}

func WithCooldownTracker(t CooldownTracker) Option {
	return func(o *options) {
		if t != nil {
			o.cooldown = t
		}
	}
}

func WithSender(sender channels.Sender) Option {
	return func(o *options) {
		if sender != nil {
			o.sender = sender
		}
	}
}

// WithClock overrides wall time for delivery decisions, lifecycle stamps and
// samples without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

func WithDispatcherOptions(d DispatcherOptions) Option {
	return func(o *options) { o.dispatch = d }
}

func WithLifecycleProfiles(p LifecycleProfiles) Option {
	return func(o *options) { o.profiles = p }
}

func WithWorkday(w Workday) Option {
	return func(o *options) { o.workday = w }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(o *options) { o.events = p }
}

// WithRetentionPeriod enables the purge of notifications expired for longer than d.
func WithRetentionPeriod(d time.Duration) Option {
	return func(o *options) { o.retention = d }
}

// WithEvaluationWorkers bounds how many rules are evaluated at once per sample.
func WithEvaluationWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.evalWorkers = n
		}
	}
}

func WithSchedulerOptions(opts ...SchedulerOption) Option {
	return func(o *options) { o.schedulerOpts = append(o.schedulerOpts, opts...) }
}

func New(opts ...Option) *AlertEngine {
	o := options{
		cooldown:    NewMemoryCooldown(),
		sender:      channels.Senders{},
		clock:       func() time.Time { return time.Now().UTC() },
		workday:     DefaultWorkday,
		evalWorkers: 8,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dispatch.Clock == nil {
		o.dispatch.Clock = o.clock
	}

	e := &AlertEngine{
		Rules:       NewRuleStore(o.conn),
		Channels:    NewChannelRegistry(o.conn),
		Cooldown:    o.cooldown,
		Factory:     NewNotificationFactory(o.profiles),
		Filter:      NewPreferenceFilter(o.workday),
		Events:      o.events,
		conn:        o.conn,
		clock:       o.clock,
		evalWorkers: o.evalWorkers,
	}
	if o.conn != nil {
		e.Store = NewGormNotificationStore(o.conn)
		e.Prefs = NewGormPreferenceStore(o.conn)
		e.Receipts = NewGormReceiptStore(o.conn)
	} else {
		e.Store = NewMemoryNotificationStore()
		e.Prefs = NewMemoryPreferenceStore()
		e.Receipts = NewMemoryReceiptStore()
	}
	e.Dispatcher = NewDispatcher(o.sender, e.Receipts, e.Channels, o.dispatch)

	schedulerOpts := append([]SchedulerOption{WithSchedulerClock(o.clock), WithRetention(o.retention)}, o.schedulerOpts...)
	e.Scheduler = NewScheduler(e.Dispatcher, e.Filter, e.Prefs, e.Channels, e.Store, schedulerOpts...)

	e.WithServices(ServiceOpts{
		Rule:       e.GetIRule(),
		Sample:     e.GetISample(),
		Inbox:      e.GetIInbox(),
		Preference: e.GetIPreference(),
		Delivery:   e.GetIDelivery(),
	})
	return e
}

func (e *AlertEngine) now() time.Time {
	return e.clock()
}

// Start restores persisted rules and channels, then starts the delivery
// workers and the background jobs.
func (e *AlertEngine) Start(ctx context.Context) error {
	logger := common.GetLoggerWith(common.LoggerNameAlertCore)
	if e.conn != nil {
		n, err := e.Rules.Hydrate(ctx)
		if err != nil {
			return err
		}
		if err := e.Channels.Hydrate(ctx); err != nil {
			return err
		}
		logger.Info("Engine state restored", zap.Int("rules", n), zap.Int("channels", len(e.Channels.List())))
	}
	e.Dispatcher.Start()
	if err := e.Scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

// Shutdown stops the background jobs, drains the digest buckets, then stops
// the dispatcher. Deliveries still queued are failed and stay retryable.
func (e *AlertEngine) Shutdown(ctx context.Context) error {
	var errs error
	select {
	case <-e.Scheduler.Stop().Done():
	case <-ctx.Done():
		errs = multierr.Append(errs, fmt.Errorf("stop scheduler: %w", ctx.Err()))
	}
	handles, _ := e.Scheduler.Drain(ctx)
	for _, h := range handles {
		if _, err := h.Wait(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("drain digests: %w", err))
			break
		}
	}
	errs = multierr.Append(errs, e.Dispatcher.Stop(ctx))
	return errs
}

func (e *AlertEngine) publish(recipientID, event string, payload any) {
	if e.Events != nil {
		e.Events.Publish(recipientID, event, payload)
	}
}
