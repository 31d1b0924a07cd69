package alerting

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"factorydash.xyz/alert-engine/pkg/common"
	"factorydash.xyz/alert-engine/pkg/condition"
	"factorydash.xyz/alert-engine/pkg/models"
)

// NotificationFactory turns a fired rule, or an ad hoc request, into one
// notification per recipient.
type NotificationFactory struct {
	Profiles LifecycleProfiles
	NewID    func() string
}

func NewNotificationFactory(profiles LifecycleProfiles) *NotificationFactory {
	return &NotificationFactory{
		Profiles: profiles,
		NewID:    newNotificationID,
	}
}

// newNotificationID returns a UUIDv7, whose string form sorts by creation time.
func newNotificationID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CorrelationID names one firing of a rule. seq is the rule's trigger count
// after the fire, so two firings at the same instant stay distinct.
func CorrelationID(ruleID string, firedAt time.Time, seq int64) string {
	return ruleID + ":" + strconv.FormatInt(firedAt.UnixNano(), 10) + ":" + strconv.FormatInt(seq, 10)
}

// FromRule expects rule as returned by RuleStore.RecordFire, so TriggerCount
// identifies this firing.
func (f *NotificationFactory) FromRule(rule models.Rule, expr *condition.Expr, sample models.Sample, firedAt time.Time) []models.Notification {
	actionRequired := rule.ActionRequired || rule.Severity == models.LevelHigh || rule.Severity == models.LevelCritical
	profile := f.Profiles.ProfileFor(rule.Category, actionRequired)
	correlationID := CorrelationID(rule.ID, firedAt, rule.TriggerCount)
	ruleID := rule.ID

	metadata := map[string]any{"source": sample.Source}
	var triggered []string
	if expr != nil {
		for _, field := range expr.Fields() {
			if v, ok := sample.Fields[field]; ok {
				metadata[field] = v
				triggered = append(triggered, fmt.Sprintf("%s=%v", field, v))
			}
		}
	}
	for k, v := range sample.Labels {
		metadata[k] = v
	}

	message := fmt.Sprintf("%s fired on %s: %s", rule.Name, sample.Source, rule.Condition)
	if len(triggered) > 0 {
		message = fmt.Sprintf("%s (%s)", message, strings.Join(triggered, ", "))
	}

	var expiresAt *time.Time
	if rule.ExpiresAfterSeconds > 0 {
		t := firedAt.Add(time.Duration(rule.ExpiresAfterSeconds) * time.Second)
		expiresAt = &t
	}

	recipients := uniqueSorted(rule.Recipients)
	out := make([]models.Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		dedupe := correlationID + "/" + recipientID
		out = append(out, models.Notification{
			ID:             f.NewID(),
			RuleID:         &ruleID,
			CorrelationID:  correlationID,
			DedupeKey:      &dedupe,
			Title:          fmt.Sprintf("[%s] %s", strings.ToUpper(string(rule.Severity)), rule.Name),
			Message:        message,
			Type:           typeFor(rule),
			Priority:       rule.Severity,
			Category:       rule.Category,
			Source:         sample.Source,
			RecipientID:    recipientID,
			CreatedAt:      firedAt,
			ExpiresAt:      copyTime(expiresAt),
			ActionRequired: actionRequired,
			Profile:        profile,
			Status:         InitialStatus(profile),
			Metadata:       cloneMap(metadata),
		})
	}
	return out
}

func (f *NotificationFactory) AdHoc(input models.AdHocNotification, at time.Time) []models.Notification {
	profile := f.Profiles.ProfileFor(input.Category, input.ActionRequired)
	recipients := uniqueSorted(input.RecipientIDs)
	out := make([]models.Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		var dedupe *string
		if input.DedupeKey != "" {
			key := "adhoc:" + input.DedupeKey + "/" + recipientID
			dedupe = &key
		}
		out = append(out, models.Notification{
			ID:             f.NewID(),
			DedupeKey:      dedupe,
			Title:          input.Title,
			Message:        input.Message,
			Type:           input.Type,
			Priority:       input.Priority,
			Category:       input.Category,
			Source:         input.Source,
			RecipientID:    recipientID,
			CreatedAt:      at,
			ExpiresAt:      copyTime(input.ExpiresAt),
			ActionRequired: input.ActionRequired,
			Profile:        profile,
			Status:         InitialStatus(profile),
			Metadata:       cloneMap(input.Metadata),
		})
	}
	return out
}

func typeFor(rule models.Rule) models.NotificationType {
	if rule.Type != "" {
		return rule.Type
	}
	switch rule.Category {
	case models.CategoryEmergency:
		return models.TypeEmergency
	case models.CategoryMaintenance:
		return models.TypeMaintenance
	case models.CategorySystem:
		return models.TypeSystem
	case models.CategoryAssignment:
		return models.TypeAssignment
	}
	switch rule.Severity {
	case models.LevelCritical, models.LevelHigh:
		return models.TypeAlert
	case models.LevelMedium:
		return models.TypeWarning
	default:
		return models.TypeInfo
	}
}

// uniqueSorted drops blanks and duplicates.
func uniqueSorted(items []string) []string {
	nonBlank := common.Filter(items, func(item string) bool { return item != "" })
	return slices.Sorted(maps.Keys(common.SetOf(nonBlank)))
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
