package alerting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"factorydash.xyz/alert-engine/pkg/common"
	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/metrics"
	"factorydash.xyz/alert-engine/pkg/models"
	"factorydash.xyz/alert-engine/pkg/validator"
)

// Report summarises what one sample (or ad hoc request) caused.
type Report struct {
	Source               string                `json:"source"`
	SampleAt             time.Time             `json:"sampleAt"`
	FiredRules           []string              `json:"firedRules"`
	SuppressedRules      []string              `json:"suppressedRules"`
	Errors               map[string]error      `json:"-"`
	NotificationsCreated []models.Notification `json:"notificationsCreated"`
	Deliveries           []*DeliveryHandle     `json:"deliveries"`
	Skipped              []SkippedDelivery     `json:"skipped"`
	Digested             int                   `json:"digested"`

	mu sync.Mutex
}

func newReport(source string, at time.Time) *Report {
	return &Report{
		Source:               source,
		SampleAt:             at,
		FiredRules:           []string{},
		SuppressedRules:      []string{},
		Errors:               map[string]error{},
		NotificationsCreated: []models.Notification{},
		Deliveries:           []*DeliveryHandle{},
		Skipped:              []SkippedDelivery{},
	}
}

// ErrorMessages renders Errors for API responses.
func (r *Report) ErrorMessages() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for id, err := range r.Errors {
		out[id] = err.Error()
	}
	return out
}

// Err combines the per-rule errors; nil when every rule evaluated cleanly.
func (r *Report) Err() error {
	ids := make([]string, 0, len(r.Errors))
	for id := range r.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var errs error
	for _, id := range ids {
		errs = multierr.Append(errs, r.Errors[id])
	}
	return errs
}

// Wait blocks until every dispatched delivery of the report has finished.
func (r *Report) Wait(ctx context.Context) ([]DeliveryResult, error) {
	results := make([]DeliveryResult, 0, len(r.Deliveries))
	for _, h := range r.Deliveries {
		res, err := h.Wait(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Report) fired(id string) {
	r.mu.Lock()
	r.FiredRules = append(r.FiredRules, id)
	r.mu.Unlock()
}

func (r *Report) suppressed(id string) {
	r.mu.Lock()
	r.SuppressedRules = append(r.SuppressedRules, id)
	r.mu.Unlock()
}

func (r *Report) failed(id string, err error) {
	r.mu.Lock()
	r.Errors[id] = err
	r.mu.Unlock()
}

func (r *Report) created(n models.Notification) {
	r.mu.Lock()
	r.NotificationsCreated = append(r.NotificationsCreated, n)
	r.mu.Unlock()
}

func (r *Report) dispatched(h *DeliveryHandle) {
	r.mu.Lock()
	r.Deliveries = append(r.Deliveries, h)
	r.mu.Unlock()
}

func (r *Report) skipped(s SkippedDelivery) {
	r.mu.Lock()
	r.Skipped = append(r.Skipped, s)
	r.mu.Unlock()
}

func (r *Report) digested() {
	r.mu.Lock()
	r.Digested++
	r.mu.Unlock()
}

// sort puts the concurrently collected lists in a stable order.
func (r *Report) sort() {
	sort.Strings(r.FiredRules)
	sort.Strings(r.SuppressedRules)
	sort.SliceStable(r.NotificationsCreated, func(i, j int) bool {
		a, b := r.NotificationsCreated[i], r.NotificationsCreated[j]
		if a.CorrelationID != b.CorrelationID {
			return a.CorrelationID < b.CorrelationID
		}
		return a.RecipientID < b.RecipientID
	})
}

func sampleLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameAlertCore,
		zap.String(common.LoggerFieldAlertCategory, common.LoggerCategoryAlertSample),
	)
}

// normalizeSample checks field values and converts integers to float64. A
// sample without fields is valid; no comparison can breach on it.
func normalizeSample(sample models.Sample, now time.Time) (models.Sample, error) {
	var bad []string
	if sample.Source == "" {
		bad = append(bad, "source")
	}
	fields := make(map[string]any, len(sample.Fields))
	for name, v := range sample.Fields {
		switch val := v.(type) {
		case float64, bool:
			fields[name] = val
		case float32:
			fields[name] = float64(val)
		case int:
			fields[name] = float64(val)
		case int64:
			fields[name] = float64(val)
		case nil:
			// an explicit null is treated as an absent field
		default:
			bad = append(bad, "fields."+name)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return sample, apperrors.NewValidation("sample rejected", bad...)
	}
	sample.Fields = fields
	if sample.Timestamp.IsZero() {
		sample.Timestamp = now
	}
	return sample, nil
}

// onSample evaluates every enabled rule against the sample in parallel. A
// failing rule is reported and logged without affecting the others.
func (e *AlertEngine) onSample(ctx context.Context, input models.Sample) (*Report, error) {
	sample, err := normalizeSample(input, e.now())
	if err != nil {
		metrics.SamplesProcessed.WithLabelValues("invalid").Inc()
		return nil, err
	}
	metrics.SamplesProcessed.WithLabelValues("ok").Inc()

	report := newReport(sample.Source, sample.Timestamp)
	rules := e.Rules.active()

	sem := make(chan struct{}, max(1, e.evalWorkers))
	var wg sync.WaitGroup
	for _, rule := range rules {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			e.evaluateRule(ctx, rule, sample, report)
		}()
	}
	wg.Wait()
	report.sort()

	if len(report.FiredRules) > 0 || len(report.Errors) > 0 {
		sampleLogger().Info("Sample processed",
			zap.String("source", sample.Source),
			zap.Strings("fired", report.FiredRules),
			zap.Int("suppressed", len(report.SuppressedRules)),
			zap.Int("errors", len(report.Errors)),
		)
	}
	return report, nil
}

func (e *AlertEngine) evaluateRule(ctx context.Context, rule compiledRule, sample models.Sample, report *Report) {
	id := rule.Rule.ID
	logger := sampleLogger().With(zap.String("rule_id", id), zap.String("source", sample.Source))

	defer func() {
		if r := recover(); r != nil {
			err := apperrors.NewEvaluation(id, fmt.Errorf("panic: %v", r))
			report.failed(id, err)
			metrics.RuleEvaluations.WithLabelValues(id, "error").Inc()
			logger.Error("Rule evaluation panicked", zap.Any("panic", r))
		}
	}()

	breach, err := rule.Expr.Evaluate(sample.Fields)
	if err != nil {
		report.failed(id, apperrors.NewEvaluation(id, err))
		metrics.RuleEvaluations.WithLabelValues(id, "error").Inc()
		logger.Warn("Rule evaluation failed", zap.Error(err))
		return
	}
	if !breach {
		return
	}

	cooldown := time.Duration(rule.Rule.CooldownSeconds) * time.Second
	fire, err := e.Cooldown.TryFire(ctx, id, sample.Timestamp, cooldown)
	if err != nil {
		report.failed(id, fmt.Errorf("rule %s: cooldown: %w", id, err))
		metrics.RuleEvaluations.WithLabelValues(id, "error").Inc()
		logger.Error("Cooldown check failed", zap.Error(err))
		return
	}
	if !fire {
		report.suppressed(id)
		metrics.RuleEvaluations.WithLabelValues(id, "suppressed").Inc()
		if err := e.Rules.RecordSuppressed(ctx, id); err != nil {
			logger.Warn("Failed to record suppression", zap.Error(err))
		}
		return
	}

	report.fired(id)
	metrics.RuleEvaluations.WithLabelValues(id, "fired").Inc()
	fired, err := e.Rules.RecordFire(ctx, id, sample.Timestamp)
	if err != nil {
		logger.Error("Failed to record fire", zap.Error(err))
	}
	if fired.ID == "" {
		fired = rule.Rule
	}

	for _, n := range e.Factory.FromRule(fired, rule.Expr, sample, sample.Timestamp) {
		e.insertAndRoute(ctx, n, rule.Rule.Channels, report)
	}
}

// insertAndRoute stores n, then runs every channel through the preference
// filter. The inbox record is written whatever the filter decides.
func (e *AlertEngine) insertAndRoute(ctx context.Context, n models.Notification, channelIDs []string, report *Report) {
	logger := sampleLogger().With(zap.String("notification_id", n.ID), zap.String("recipient_id", n.RecipientID))

	stored, created, err := e.Store.Insert(ctx, n)
	if err != nil {
		key := n.RecipientID
		if n.RuleID != nil {
			key = *n.RuleID
		}
		report.failed(key, err)
		logger.Error("Failed to store notification", zap.Error(err))
		return
	}
	if !created {
		logger.Debug("Duplicate notification ignored", zap.String("existing_id", stored.ID))
		return
	}
	report.created(stored)
	metrics.NotificationsCreated.WithLabelValues(string(stored.Category), string(stored.Priority)).Inc()

	prefs, err := e.Prefs.Get(ctx, stored.RecipientID)
	if err != nil {
		logger.Warn("Falling back to default preferences", zap.Error(err))
		prefs = models.DefaultPreferences(stored.RecipientID)
	}

	at := e.now()
	for _, channelID := range uniqueSorted(channelIDs) {
		channel, ok := e.Channels.Resolve(channelID)
		if !ok {
			e.skip(report, stored, channelID, ReasonUnknownChannel)
			continue
		}
		decision := e.Filter.ShouldDeliver(&stored, prefs, channel, at)
		if !decision.Deliver {
			e.skip(report, stored, channelID, decision.Reason)
			continue
		}
		job := DeliveryJob{Notification: stored, Channel: channel, Prefs: prefs}
		if prefs.Frequency != "" && prefs.Frequency != models.FrequencyImmediate {
			e.Scheduler.Enqueue(job, prefs.Frequency)
			report.digested()
			continue
		}
		report.dispatched(e.Dispatcher.Dispatch(ctx, job))
	}
}

func (e *AlertEngine) skip(report *Report, n models.Notification, channelID, reason string) {
	report.skipped(SkippedDelivery{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		ChannelID:      channelID,
		Reason:         reason,
	})
	channelType := channelID
	if c, ok := e.Channels.Resolve(channelID); ok {
		channelType = string(c.Type)
	}
	metrics.Deliveries.WithLabelValues(channelType, string(models.DeliverySkipped)).Inc()
}

// notify creates a rule-less notification per recipient and routes it like a
// fired rule. With no channels it only lands in the inbox.
func (e *AlertEngine) notify(ctx context.Context, input models.AdHocNotification) (*Report, error) {
	if err := validator.ValidateStruct(input); err != nil {
		return nil, toValidation(err)
	}
	if input.ExpiresAt != nil && input.ExpiresAt.IsZero() {
		input.ExpiresAt = nil
	}

	at := e.now()
	report := newReport(input.Source, at)
	for _, n := range e.Factory.AdHoc(input, at) {
		e.insertAndRoute(ctx, n, input.Channels, report)
	}
	report.sort()

	common.GetLoggerWith(
		common.LoggerNameAlertCore,
		zap.String(common.LoggerFieldAlertCategory, common.LoggerCategoryAlertInbox),
	).Info("Ad hoc notification created",
		zap.String("title", input.Title),
		zap.Int("recipients", len(report.NotificationsCreated)),
		zap.Int("deliveries", len(report.Deliveries)),
	)
	if err := report.Err(); err != nil && len(report.NotificationsCreated) == 0 {
		return report, err
	}
	return report, nil
}

type ISampleImpl struct {
	engine *AlertEngine
}

func (is *ISampleImpl) OnSample(ctx context.Context, sample models.Sample) (*Report, error) {
	return is.engine.onSample(ctx, sample)
}

func (is *ISampleImpl) Notify(ctx context.Context, input models.AdHocNotification) (*Report, error) {
	return is.engine.notify(ctx, input)
}

func (e *AlertEngine) GetISample() ISample {
	return &ISampleImpl{engine: e}
}

type IRuleImpl struct {
	engine *AlertEngine
}

func (ir *IRuleImpl) LoadRules(ctx context.Context, specs []models.RuleSpec) LoadReport {
	return ir.engine.Rules.Load(ctx, specs)
}

// GetRule also reports the end of the rule's cooldown window when it is
// cooling at the engine clock.
func (ir *IRuleImpl) GetRule(id string) (*models.Rule, error) {
	rule, err := ir.engine.Rules.Get(id)
	if err != nil {
		return nil, err
	}
	if until, ok := ir.engine.Cooldown.CoolingUntil(context.Background(), id, ir.engine.now()); ok {
		rule.CoolingUntil = &until
	}
	return rule, nil
}

func (ir *IRuleImpl) ListRules() []models.Rule {
	return ir.engine.Rules.List()
}

func (ir *IRuleImpl) UpdateRule(ctx context.Context, id string, patch models.RulePatch) (*models.Rule, error) {
	return ir.engine.Rules.Update(ctx, id, patch)
}

func (ir *IRuleImpl) SetEnabled(ctx context.Context, id string, enabled bool) (*models.Rule, error) {
	return ir.engine.Rules.Update(ctx, id, models.RulePatch{Enabled: &enabled})
}

func (e *AlertEngine) GetIRule() IRule {
	return &IRuleImpl{engine: e}
}
