package alerting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"factorydash.xyz/alert-engine/pkg/common"
	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/models"
)

func inboxLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameAlertCore,
		zap.String(common.LoggerFieldAlertCategory, common.LoggerCategoryAlertInbox),
	)
}

func (e *AlertEngine) transition(ctx context.Context, id string, action Action) (*models.Notification, error) {
	n, err := e.Store.Apply(ctx, id, action, e.now())
	if err != nil {
		inboxLogger().Debug("Transition refused", zap.String("notification_id", id), zap.String("action", string(action)), zap.Error(err))
		return nil, err
	}
	inboxLogger().Info("Notification moved",
		zap.String("notification_id", id),
		zap.String("action", string(action)),
		zap.String("status", string(n.Status)),
	)
	e.publish(n.RecipientID, EventNotificationUpdated, n)
	return n, nil
}

type IInboxImpl struct {
	engine *AlertEngine
}

func (ii *IInboxImpl) ListNotifications(ctx context.Context, recipientID string, filter models.NotificationFilter) ([]models.Notification, error) {
	if recipientID == "" {
		return nil, apperrors.NewValidation("recipient id is required", "recipientId")
	}
	return ii.engine.Store.List(ctx, recipientID, filter, ii.engine.now())
}

func (ii *IInboxImpl) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	return ii.engine.Store.Get(ctx, id)
}

func (ii *IInboxImpl) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	return ii.engine.transition(ctx, id, ActionRead)
}

func (ii *IInboxImpl) Acknowledge(ctx context.Context, id string) (*models.Notification, error) {
	return ii.engine.transition(ctx, id, ActionAcknowledge)
}

func (ii *IInboxImpl) Resolve(ctx context.Context, id string) (*models.Notification, error) {
	return ii.engine.transition(ctx, id, ActionResolve)
}

func (ii *IInboxImpl) Archive(ctx context.Context, id string) (*models.Notification, error) {
	return ii.engine.transition(ctx, id, ActionArchive)
}

func (ii *IInboxImpl) Star(ctx context.Context, id string, starred bool) (*models.Notification, error) {
	n, err := ii.engine.Store.SetStarred(ctx, id, starred)
	if err != nil {
		return nil, err
	}
	ii.engine.publish(n.RecipientID, EventNotificationUpdated, n)
	return n, nil
}

func (ii *IInboxImpl) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	count, err := ii.engine.Store.MarkAllRead(ctx, recipientID, ii.engine.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		inboxLogger().Info("Inbox marked read", zap.String("recipient_id", recipientID), zap.Int64("count", count))
		ii.engine.publish(recipientID, EventInboxRead, map[string]int64{"count": count})
	}
	return count, nil
}

func (ii *IInboxImpl) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	return ii.engine.Store.CountUnread(ctx, recipientID, ii.engine.now())
}

func (e *AlertEngine) GetIInbox() IInbox {
	return &IInboxImpl{engine: e}
}

type IPreferenceImpl struct {
	engine *AlertEngine
}

func (ip *IPreferenceImpl) GetPreferences(ctx context.Context, recipientID string) (models.RecipientPreferences, error) {
	return ip.engine.Prefs.Get(ctx, recipientID)
}

func (ip *IPreferenceImpl) UpdatePreferences(ctx context.Context, recipientID string, patch models.PreferencesPatch) (models.RecipientPreferences, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameAlertCore,
		zap.String(common.LoggerFieldAlertCategory, common.LoggerCategoryAlertPreferences),
	)
	prefs, err := ip.engine.Prefs.Update(ctx, recipientID, patch, ip.engine.now())
	if err != nil {
		logger.Info("Preference update rejected", zap.String("recipient_id", recipientID), zap.Error(err))
		return models.RecipientPreferences{}, err
	}
	logger.Info("Preferences updated", zap.String("recipient_id", recipientID))
	return prefs, nil
}

func (e *AlertEngine) GetIPreference() IPreference {
	return &IPreferenceImpl{engine: e}
}

type IDeliveryImpl struct {
	engine *AlertEngine
}

func (idv *IDeliveryImpl) Receipts(ctx context.Context, notificationID string) ([]models.DeliveryReceipt, error) {
	if _, err := idv.engine.Store.Get(ctx, notificationID); err != nil {
		return nil, err
	}
	return idv.engine.Receipts.ListByNotification(ctx, notificationID)
}

// Retry re-attempts a failed delivery. The channel must have been attempted
// before and the recipient's current preferences must still allow it.
func (idv *IDeliveryImpl) Retry(ctx context.Context, notificationID, channelID string) (*DeliveryHandle, error) {
	e := idv.engine
	n, err := e.Store.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	receipt, err := e.Receipts.Get(ctx, notificationID, channelID)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperrors.ErrNotFound.WithMessage("no delivery of %s through %s to retry", notificationID, channelID)
	}
	channel, ok := e.Channels.Resolve(channelID)
	if !ok {
		return nil, apperrors.ErrNotFound.WithMessage("channel %s not found", channelID)
	}
	prefs, err := e.Prefs.Get(ctx, n.RecipientID)
	if err != nil {
		return nil, err
	}
	if decision := e.Filter.ShouldDeliver(n, prefs, channel, e.now()); !decision.Deliver {
		return nil, apperrors.NewValidation(fmt.Sprintf("delivery no longer allowed: %s", decision.Reason), "channelId")
	}
	return e.Dispatcher.Retry(ctx, DeliveryJob{Notification: *n, Channel: channel, Prefs: prefs}), nil
}

func (idv *IDeliveryImpl) ListChannels() []models.Channel {
	return idv.engine.Channels.List()
}

func (e *AlertEngine) GetIDelivery() IDelivery {
	return &IDeliveryImpl{engine: e}
}
