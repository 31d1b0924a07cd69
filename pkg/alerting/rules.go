package alerting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"factorydash.xyz/alert-engine/pkg/common"
	"factorydash.xyz/alert-engine/pkg/condition"
	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/models"
	"factorydash.xyz/alert-engine/pkg/validator"
)

type ruleEntry struct {
	mu   sync.Mutex
	rule models.Rule
	expr *condition.Expr
}

// compiledRule is a point-in-time copy handed to the evaluation path.
type compiledRule struct {
	Rule models.Rule
	Expr *condition.Expr
}

// RuleIssue describes one rejected or auto-disabled rule of a load batch.
type RuleIssue struct {
	Index  int      `json:"index"`
	RuleID string   `json:"ruleId,omitempty"`
	Fields []string `json:"fields,omitempty"`
	Error  string   `json:"error"`
	err    error
}

type LoadReport struct {
	Accepted []string    `json:"accepted"`
	Disabled []RuleIssue `json:"disabled"`
	Rejected []RuleIssue `json:"rejected"`
}

// Err combines every rejection and auto-disable into one error, nil when the
// whole batch loaded cleanly.
func (r LoadReport) Err() error {
	var errs error
	for _, issue := range r.Rejected {
		errs = multierr.Append(errs, issue.err)
	}
	for _, issue := range r.Disabled {
		errs = multierr.Append(errs, issue.err)
	}
	return errs
}

// RuleStore holds rule definitions with their compiled conditions and trigger
// counters. Rules are never deleted; a nil conn keeps everything in memory.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]*ruleEntry
	order []string
	conn  *gorm.DB
}

func NewRuleStore(conn *gorm.DB) *RuleStore {
	return &RuleStore{
		rules: make(map[string]*ruleEntry),
		conn:  conn,
	}
}

func (s *RuleStore) logger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameAlertCore,
		zap.String(common.LoggerFieldAlertCategory, common.LoggerCategoryAlertRule),
	)
}

// Load validates and installs a batch. Each entry stands alone: a malformed
// entry is rejected with the offending fields, an unparseable condition
// installs the rule disabled with LoadError set. Reloading an existing id keeps
// its counters.
func (s *RuleStore) Load(ctx context.Context, specs []models.RuleSpec) LoadReport {
	logger := s.logger()
	report := LoadReport{Accepted: []string{}, Disabled: []RuleIssue{}, Rejected: []RuleIssue{}}
	seen := make(map[string]int, len(specs))

	for i, spec := range specs {
		if err := validator.ValidateStruct(spec); err != nil {
			issue := rejectIssue(i, spec.ID, err)
			logger.Warn("Rule rejected", zap.Int("index", i), zap.String("rule_id", spec.ID), zap.Error(issue.err))
			report.Rejected = append(report.Rejected, issue)
			continue
		}
		if first, dup := seen[spec.ID]; dup {
			err := apperrors.NewValidation(fmt.Sprintf("rule %s duplicates entry %d", spec.ID, first), "id")
			report.Rejected = append(report.Rejected, RuleIssue{Index: i, RuleID: spec.ID, Fields: err.Fields, Error: err.Error(), err: err})
			continue
		}
		seen[spec.ID] = i

		rule := spec.ToRule()
		expr, parseErr := condition.Parse(rule.Condition)
		if parseErr != nil {
			rule.Enabled = false
			rule.LoadError = parseErr.Error()
		}

		if err := s.install(ctx, rule, expr); err != nil {
			issue := RuleIssue{Index: i, RuleID: spec.ID, Error: err.Error(), err: err}
			report.Rejected = append(report.Rejected, issue)
			logger.Error("Rule persist failed", zap.String("rule_id", spec.ID), zap.Error(err))
			continue
		}

		if parseErr != nil {
			err := apperrors.NewValidation(fmt.Sprintf("rule %s disabled: %v", spec.ID, parseErr), "condition")
			report.Disabled = append(report.Disabled, RuleIssue{Index: i, RuleID: spec.ID, Fields: err.Fields, Error: err.Error(), err: err})
			logger.Warn("Rule disabled at load", zap.String("rule_id", spec.ID), zap.Error(parseErr))
			continue
		}
		report.Accepted = append(report.Accepted, spec.ID)
	}

	logger.Info("Rules loaded",
		zap.Int("accepted", len(report.Accepted)),
		zap.Int("disabled", len(report.Disabled)),
		zap.Int("rejected", len(report.Rejected)),
	)
	return report
}

func rejectIssue(index int, ruleID string, err error) RuleIssue {
	var ve validator.ValidationErrors
	fields := []string{}
	if errors.As(err, &ve) {
		fields = ve.Fields()
	}
	appErr := apperrors.NewValidation(fmt.Sprintf("rule entry %d rejected: %v", index, err), fields...)
	return RuleIssue{Index: index, RuleID: ruleID, Fields: fields, Error: appErr.Error(), err: appErr}
}

func (s *RuleStore) install(ctx context.Context, rule models.Rule, expr *condition.Expr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.rules[rule.ID]
	if exists {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		rule.TriggerCount = entry.rule.TriggerCount
		rule.SuppressedCount = entry.rule.SuppressedCount
		rule.LastTriggeredAt = entry.rule.LastTriggeredAt
		rule.CreatedAt = entry.rule.CreatedAt
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	rule.UpdatedAt = time.Now().UTC()

	if s.conn != nil {
		if err := s.conn.WithContext(ctx).Save(&rule).Error; err != nil {
			return fmt.Errorf("rule store: save %s: %w", rule.ID, err)
		}
	}

	if exists {
		entry.rule = rule
		entry.expr = expr
		return nil
	}
	s.rules[rule.ID] = &ruleEntry{rule: rule, expr: expr}
	s.order = append(s.order, rule.ID)
	return nil
}

// Hydrate loads previously persisted rules, e.g. after a restart.
func (s *RuleStore) Hydrate(ctx context.Context) (int, error) {
	if s.conn == nil {
		return 0, nil
	}
	var rows []models.Rule
	if err := s.conn.WithContext(ctx).Order("created_at asc").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("rule store: hydrate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rule := range rows {
		expr, err := condition.Parse(rule.Condition)
		if err != nil {
			rule.Enabled = false
			rule.LoadError = err.Error()
		}
		if _, exists := s.rules[rule.ID]; !exists {
			s.order = append(s.order, rule.ID)
		}
		s.rules[rule.ID] = &ruleEntry{rule: rule, expr: expr}
	}
	return len(rows), nil
}

func (s *RuleStore) entry(id string) (*ruleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.rules[id]
	if !ok {
		return nil, apperrors.ErrNotFound.WithMessage("rule %s not found", id)
	}
	return entry, nil
}

func (s *RuleStore) Get(id string) (*models.Rule, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	rule := entry.rule
	return &rule, nil
}

// List returns copies of every rule in load order.
func (s *RuleStore) List() []models.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Rule, 0, len(s.order))
	for _, id := range s.order {
		entry := s.rules[id]
		entry.mu.Lock()
		out = append(out, entry.rule)
		entry.mu.Unlock()
	}
	return out
}

// active returns the enabled rules with a compiled condition.
func (s *RuleStore) active() []compiledRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]compiledRule, 0, len(s.order))
	for _, id := range s.order {
		entry := s.rules[id]
		entry.mu.Lock()
		if entry.rule.Enabled && entry.expr != nil {
			out = append(out, compiledRule{Rule: entry.rule, Expr: entry.expr})
		}
		entry.mu.Unlock()
	}
	return out
}

// Update applies a partial edit. A new condition must parse, otherwise the edit
// is rejected as a whole.
func (s *RuleStore) Update(ctx context.Context, id string, patch models.RulePatch) (*models.Rule, error) {
	if err := validator.ValidateStruct(patch); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return nil, apperrors.NewValidation("rule patch rejected: "+err.Error(), ve.Fields()...)
		}
		return nil, apperrors.NewValidation(err.Error())
	}

	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	rule := entry.rule
	expr := entry.expr
	applyRulePatch(&rule, patch)

	if patch.Condition != nil {
		parsed, err := condition.Parse(rule.Condition)
		if err != nil {
			return nil, apperrors.NewValidation(fmt.Sprintf("rule %s: %v", id, err), "condition").WithInternal(err)
		}
		expr = parsed
		rule.LoadError = ""
	}
	if rule.Enabled && expr == nil {
		return nil, apperrors.NewValidation(fmt.Sprintf("rule %s cannot be enabled until its condition parses", id), "condition")
	}
	rule.UpdatedAt = time.Now().UTC()

	if s.conn != nil {
		if err := s.conn.WithContext(ctx).Save(&rule).Error; err != nil {
			return nil, fmt.Errorf("rule store: update %s: %w", id, err)
		}
	}

	entry.rule = rule
	entry.expr = expr
	s.logger().Info("Rule updated", zap.String("rule_id", id), zap.Bool("enabled", rule.Enabled))
	return &rule, nil
}

func applyRulePatch(rule *models.Rule, patch models.RulePatch) {
	if patch.Name != nil {
		rule.Name = *patch.Name
	}
	if patch.Description != nil {
		rule.Description = *patch.Description
	}
	if patch.Category != nil {
		rule.Category = *patch.Category
	}
	if patch.Condition != nil {
		rule.Condition = *patch.Condition
	}
	if patch.Severity != nil {
		rule.Severity = *patch.Severity
	}
	if patch.Enabled != nil {
		rule.Enabled = *patch.Enabled
	}
	if patch.Channels != nil {
		rule.Channels = slices.Clone(*patch.Channels)
	}
	if patch.Recipients != nil {
		rule.Recipients = slices.Clone(*patch.Recipients)
	}
	if patch.CooldownSeconds != nil {
		rule.CooldownSeconds = *patch.CooldownSeconds
	}
	if patch.ActionRequired != nil {
		rule.ActionRequired = *patch.ActionRequired
	}
	if patch.Type != nil {
		rule.Type = *patch.Type
	}
	if patch.ExpiresAfterSeconds != nil {
		rule.ExpiresAfterSeconds = *patch.ExpiresAfterSeconds
	}
}

// RecordFire bumps triggerCount and moves lastTriggeredAt forward (never back).
func (s *RuleStore) RecordFire(ctx context.Context, id string, at time.Time) (models.Rule, error) {
	entry, err := s.entry(id)
	if err != nil {
		return models.Rule{}, err
	}

	entry.mu.Lock()
	entry.rule.TriggerCount++
	if entry.rule.LastTriggeredAt == nil || at.After(*entry.rule.LastTriggeredAt) {
		t := at
		entry.rule.LastTriggeredAt = &t
	}
	rule := entry.rule
	entry.mu.Unlock()

	if s.conn != nil {
		conn := s.conn.WithContext(ctx).Model(&models.Rule{})
		err := multierr.Combine(
			conn.Where("id = ?", id).
				UpdateColumn("trigger_count", gorm.Expr("trigger_count + ?", 1)).Error,
			s.conn.WithContext(ctx).Model(&models.Rule{}).
				Where("id = ? AND (last_triggered_at IS NULL OR last_triggered_at < ?)", id, at).
				UpdateColumn("last_triggered_at", at).Error,
		)
		if err != nil {
			return rule, fmt.Errorf("rule store: record fire %s: %w", id, err)
		}
	}
	return rule, nil
}

// RecordSuppressed counts a breach swallowed by the cooldown window. It does
// not touch triggerCount or lastTriggeredAt.
func (s *RuleStore) RecordSuppressed(ctx context.Context, id string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	entry.rule.SuppressedCount++
	entry.mu.Unlock()

	if s.conn != nil {
		return s.conn.WithContext(ctx).Model(&models.Rule{}).Where("id = ?", id).
			UpdateColumn("suppressed_count", gorm.Expr("suppressed_count + ?", 1)).Error
	}
	return nil
}
