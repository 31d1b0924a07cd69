package channels_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"factorydash.xyz/alert-engine/pkg/channels"
	"factorydash.xyz/alert-engine/pkg/channels/mocks"
	"factorydash.xyz/alert-engine/pkg/models"
)

func message(channelType models.ChannelType, contact string) channels.Message {
	n := &models.Notification{
		ID:          "n1",
		RecipientID: "op-1",
		Title:       "Press 4 overheating",
		Message:     "temperature 95",
		Priority:    models.LevelHigh,
		Category:    models.CategoryProduction,
		Source:      "press-4",
	}
	prefs := models.DefaultPreferences("op-1")
	if contact != "" {
		prefs.Contacts = map[string]any{string(channelType): contact}
	}
	return channels.NewMessage(n, models.Channel{ID: string(channelType), Type: channelType, Enabled: true}, prefs)
}

func TestSenders_RoutesByChannelType(t *testing.T) {
	ctrl := gomock.NewController(t)
	sms := mocks.NewMockSender(ctrl)
	senders := channels.Senders{models.ChannelSMS: sms}

	msg := message(models.ChannelSMS, "+15550100")
	sms.EXPECT().Send(gomock.Any(), msg).Return(nil)
	require.NoError(t, senders.Send(context.Background(), msg))

	err := senders.Send(context.Background(), message(models.ChannelPush, ""))
	assert.ErrorIs(t, err, channels.ErrNoSender)
}

func TestEmailSender(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)
	sender := channels.NewEmailSender(mailer)

	assert.ErrorIs(t, sender.Send(context.Background(), message(models.ChannelEmail, "")), channels.ErrNoContact)

	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, email channels.Email) error {
		assert.Equal(t, []string{"op1@plant.local", "lead@plant.local"}, email.To)
		assert.Equal(t, "Press 4 overheating", email.Subject)
		assert.Contains(t, email.Body, "Priority: high")
		assert.Contains(t, email.Body, "Source: press-4")
		assert.Contains(t, email.Body, "Notification: n1")
		return nil
	})
	msg := message(models.ChannelEmail, "op1@plant.local")
	msg.Channel.Targets = []string{"lead@plant.local"}
	require.NoError(t, sender.Send(context.Background(), msg))
}

func TestPushSender(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	sender := channels.NewPushSender(publisher, "")

	publisher.EXPECT().Publish(gomock.Any(), "alerts/recipients/op-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, payload []byte) error {
			var decoded map[string]any
			require.NoError(t, json.Unmarshal(payload, &decoded))
			assert.Equal(t, "n1", decoded["notificationId"])
			return nil
		})
	require.NoError(t, sender.Send(context.Background(), message(models.ChannelPush, "")))

	publisher.EXPECT().Publish(gomock.Any(), "devices/tablet-7", gomock.Any()).Return(errors.New("broker gone"))
	assert.Error(t, sender.Send(context.Background(), message(models.ChannelPush, "devices/tablet-7")))

	prefixed := channels.NewPushSender(publisher, "plant/alerts/")
	assert.Equal(t, "plant/alerts/op-1", prefixed.Topic(message(models.ChannelPush, "")))
}

type fakeBroadcaster struct {
	sessions map[string]int
	events   []string
}

func (b *fakeBroadcaster) BroadcastToUser(userID, event string, _ any) int {
	b.events = append(b.events, userID+":"+event)
	return b.sessions[userID]
}

func TestDesktopSender(t *testing.T) {
	hub := &fakeBroadcaster{sessions: map[string]int{"op-1": 2}}
	sender := channels.NewDesktopSender(hub)

	require.NoError(t, sender.Send(context.Background(), message(models.ChannelDesktop, "")))
	assert.Equal(t, []string{"op-1:" + channels.EventNotificationCreated}, hub.events)

	offline := message(models.ChannelDesktop, "")
	offline.RecipientID = "op-9"
	assert.ErrorIs(t, sender.Send(context.Background(), offline), channels.ErrRecipientOffline)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sender.Send(ctx, message(models.ChannelDesktop, "")), context.Canceled)
}
