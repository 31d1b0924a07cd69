package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorydash.xyz/alert-engine/pkg/models"
)

type capture struct {
	mu      sync.Mutex
	bodies  []map[string]any
	headers []http.Header
}

func (c *capture) server(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testMessage(channel models.Channel) Message {
	return Message{
		NotificationID: "n1",
		RecipientID:    "op-1",
		Title:          "Press 4 overheating",
		Body:           "temperature 95 above 90",
		Priority:       models.LevelCritical,
		Category:       models.CategoryProduction,
		CreatedAt:      time.Date(2025, time.June, 11, 10, 0, 0, 0, time.UTC),
		Channel:        channel,
	}
}

func TestSMSSender(t *testing.T) {
	var c capture
	srv := c.server(t, http.StatusOK)
	sender := NewSMSSender(NewRestyClient(time.Second), SMSSettings{GatewayURL: srv.URL, Token: "secret"})

	msg := testMessage(models.Channel{ID: "sms", Type: models.ChannelSMS, Enabled: true})
	assert.ErrorIs(t, sender.Send(context.Background(), msg), ErrNoContact)

	msg.Contact = "+15550100"
	require.NoError(t, sender.Send(context.Background(), msg))
	require.Len(t, c.bodies, 1)
	assert.Equal(t, "+15550100", c.bodies[0]["to"])
	assert.Equal(t, "Press 4 overheating: temperature 95 above 90", c.bodies[0]["text"])
	assert.Equal(t, "critical", c.bodies[0]["priority"])
	assert.Equal(t, "n1", c.bodies[0]["ref"])
	assert.Equal(t, "Bearer secret", c.headers[0].Get("Authorization"))
}

func TestSMSSender_GatewayError(t *testing.T) {
	var c capture
	srv := c.server(t, http.StatusBadGateway)
	sender := NewSMSSender(NewRestyClient(time.Second), SMSSettings{GatewayURL: srv.URL})

	msg := testMessage(models.Channel{ID: "sms", Type: models.ChannelSMS, Enabled: true})
	msg.Contact = "+15550100"
	err := sender.Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")

	unconfigured := NewSMSSender(NewRestyClient(time.Second), SMSSettings{})
	assert.Error(t, unconfigured.Send(context.Background(), msg))
}

func TestSMSText_Truncates(t *testing.T) {
	msg := Message{Title: strings.Repeat("x", 200)}
	text := smsText(msg)
	assert.Len(t, []rune(text), 160)
	assert.True(t, strings.HasSuffix(text, "..."))
}

func TestWebhookSender_Flavors(t *testing.T) {
	cases := []struct {
		flavor string
		check  func(t *testing.T, body map[string]any)
	}{
		{"slack", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "*[CRITICAL]* Press 4 overheating\ntemperature 95 above 90", body["text"])
		}},
		{"teams", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "MessageCard", body["@type"])
			assert.Equal(t, "FF4F6A", body["themeColor"])
			assert.Equal(t, "Press 4 overheating", body["title"])
		}},
		{"", func(t *testing.T, body map[string]any) {
			n, ok := body["notification"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "n1", n["notificationId"])
			assert.Equal(t, "op-1", n["recipientId"])
		}},
	}

	for _, tc := range cases {
		t.Run("flavor="+tc.flavor, func(t *testing.T) {
			var c capture
			srv := c.server(t, http.StatusOK)
			sender := NewWebhookSender(NewRestyClient(time.Second))
			channel := models.Channel{ID: "ops", Type: models.ChannelWebhook, Enabled: true, Flavor: tc.flavor, Targets: []string{srv.URL}}

			require.NoError(t, sender.Send(context.Background(), testMessage(channel)))
			require.Len(t, c.bodies, 1)
			tc.check(t, c.bodies[0])
		})
	}
}

func TestWebhookSender_PostsEveryTarget(t *testing.T) {
	var ok, failing capture
	good := ok.server(t, http.StatusOK)
	bad := failing.server(t, http.StatusInternalServerError)
	sender := NewWebhookSender(NewRestyClient(time.Second))

	channel := models.Channel{ID: "ops", Type: models.ChannelWebhook, Enabled: true, Targets: []string{bad.URL, good.URL}}
	err := sender.Send(context.Background(), testMessage(channel))
	require.Error(t, err)
	assert.Len(t, ok.bodies, 1, "a failing target does not stop the others")
	assert.Len(t, failing.bodies, 1)

	channel.Targets = nil
	assert.Error(t, sender.Send(context.Background(), testMessage(channel)))
}
