package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"factorydash.xyz/alert-engine/pkg/alerting"
	"factorydash.xyz/alert-engine/pkg/alerting/mocks"
	"factorydash.xyz/alert-engine/pkg/channels"
	"factorydash.xyz/alert-engine/pkg/common"
	apperrors "factorydash.xyz/alert-engine/pkg/errors"
	"factorydash.xyz/alert-engine/pkg/export"
	"factorydash.xyz/alert-engine/pkg/models"
	_ "factorydash.xyz/alert-engine/pkg/testing"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []channels.Message
	fail atomic.Int32
}

func (s *recordingSender) Send(_ context.Context, msg channels.Message) error {
	if s.fail.Load() > 0 {
		s.fail.Add(-1)
		return errors.New("gateway unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func setupTestServer(t *testing.T, sender channels.Sender) *RestfulServer {
	t.Helper()

	engine := alerting.New(alerting.WithSender(sender))
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	})

	rs := &RestfulServer{
		Server: gin.Default(),
		Engine: engine,
		// default we use no limiter, if need, later assign it rs.RateLimiterStore = alerting.NewRateLimiterStore(...)
	}

	rs.Setup()

	return rs
}

func doJSON(rs *RestfulServer, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	rs.Server.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func overheatRule(recipient string) models.RuleSpec {
	enabled := true
	cooldown := 300
	return models.RuleSpec{
		ID:              "press-overheat",
		Name:            "Press overheat",
		Category:        models.CategoryProduction,
		Condition:       "temperature > 80",
		Severity:        models.LevelHigh,
		Enabled:         &enabled,
		Channels:        []string{"email"},
		Recipients:      []string{recipient},
		CooldownSeconds: &cooldown,
	}
}

func adHoc(recipient string) models.AdHocNotification {
	return models.AdHocNotification{
		RecipientIDs:   []string{recipient},
		Title:          "Replace die on press 4",
		Message:        "Scheduled for the next shift change",
		Type:           models.TypeAssignment,
		Priority:       models.LevelMedium,
		Category:       models.CategoryAssignment,
		Channels:       []string{"email"},
		ActionRequired: true,
	}
}

func TestHealthCheck(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	rs.Server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLoadRulesAndPostSample(t *testing.T) {
	common.SetTestLoggerNop()

	sender := &recordingSender{}
	rs := setupTestServer(t, sender)
	recipient := uuid.NewString()

	w := doJSON(rs, http.MethodPost, "/rules/load", []models.RuleSpec{overheatRule(recipient)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	load := decode[alerting.LoadReport](t, w)
	assert.Equal(t, []string{"press-overheat"}, load.Accepted)

	sample := SampleRequest{
		Timestamp: time.Now().UTC(),
		Source:    "press-4",
		Fields:    map[string]any{"temperature": 95.5},
	}
	w = doJSON(rs, http.MethodPost, "/samples", sample)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[ReportResponse](t, w)
	assert.Equal(t, []string{"press-overheat"}, report.FiredRules)
	require.Len(t, report.Notifications, 1)
	assert.Equal(t, recipient, report.Notifications[0].RecipientID)

	require.Eventually(t, func() bool { return sender.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// second breach inside the cooldown is suppressed
	w = doJSON(rs, http.MethodPost, "/samples", sample)
	require.Equal(t, http.StatusOK, w.Code)
	report = decode[ReportResponse](t, w)
	assert.Empty(t, report.FiredRules)
	assert.Equal(t, []string{"press-overheat"}, report.SuppressedRules)

	w = doJSON(rs, http.MethodGet, "/recipients/"+recipient+"/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode[struct {
		Items  []models.Notification `json:"items"`
		Unread int64                 `json:"unread"`
	}](t, w)
	assert.Len(t, inbox.Items, 1)
	assert.EqualValues(t, 1, inbox.Unread)

	w = doJSON(rs, http.MethodGet, "/rules/press-overheat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rule := decode[models.Rule](t, w)
	assert.EqualValues(t, 1, rule.TriggerCount)
	assert.EqualValues(t, 1, rule.SuppressedCount)
	require.NotNil(t, rule.CoolingUntil, "the rule is still inside its window")
	assert.WithinDuration(t, sample.Timestamp.Add(300*time.Second), *rule.CoolingUntil, time.Second)
}

func TestLoadRules_AllRejected(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})

	w := doJSON(rs, http.MethodPost, "/rules/load", []models.RuleSpec{{ID: "incomplete"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	report := decode[alerting.LoadReport](t, w)
	assert.Len(t, report.Rejected, 1)

	w = doJSON(rs, http.MethodPost, "/rules/load", []byte(`{"not":"a list"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRuleEndpoints(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})

	w := doJSON(rs, http.MethodPost, "/rules/load", []models.RuleSpec{overheatRule("op-1")})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(rs, http.MethodPost, "/rules/press-overheat/disable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.Rule](t, w).Enabled)

	w = doJSON(rs, http.MethodPost, "/rules/press-overheat/enable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Rule](t, w).Enabled)

	w = doJSON(rs, http.MethodPatch, "/rules/press-overheat", map[string]any{"severity": "critical"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.LevelCritical, decode[models.Rule](t, w).Severity)

	w = doJSON(rs, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []models.Rule `json:"items"`
	}](t, w)
	assert.Len(t, list.Items, 1)

	w = doJSON(rs, http.MethodGet, "/rules/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostSample_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})

	{
		// missing source
		w := doJSON(rs, http.MethodPost, "/samples", []byte(`{"fields":{"temperature":1}}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	{
		// malformed body
		w := doJSON(rs, http.MethodPost, "/samples", []byte(`{"source":`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode[map[string]apperrors.AppError](t, w)
		assert.Equal(t, apperrors.CodeValidation, body["error"].Code)
	}

	{
		// field values must be numbers or booleans
		w := doJSON(rs, http.MethodPost, "/samples", []byte(`{"source":"press-4","fields":{"temperature":"hot"}}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestPostSampleWithLimiter(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})
	rs.RateLimiterStore = alerting.NewRateLimiterStore(2, 2)

	sample := SampleRequest{Source: "press-7", Fields: map[string]any{"temperature": 20}}

	// Simulate 3 requests in quick succession, only 2 should be allowed
	for i := range 3 {
		w := doJSON(rs, http.MethodPost, "/samples", sample)
		if i < 2 {
			require.Equal(t, http.StatusOK, w.Code, "request %d should be allowed", i+1)
		} else {
			require.Equal(t, http.StatusTooManyRequests, w.Code, "request %d should be rate limited", i+1)
		}
	}

	w := doJSON(rs, http.MethodPost, "/samples/press-7/limiter", LimiterRequest{Rate: 2, Burst: 2})
	require.Equal(t, http.StatusOK, w.Code, "limiter request should be allowed")

	w = doJSON(rs, http.MethodPost, "/samples", sample)
	require.Equal(t, http.StatusOK, w.Code, "request after resetting the limiter should be allowed")

	// other sources keep their own budget
	w = doJSON(rs, http.MethodPost, "/samples", SampleRequest{Source: "press-8", Fields: map[string]any{"temperature": 20}})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPostLimiter_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})
	rs.RateLimiterStore = alerting.NewRateLimiterStore(2, 2)

	// empty payload should be rejected
	w := doJSON(rs, http.MethodPost, "/samples/press-1/limiter", []byte("{}"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationLifecycle(t *testing.T) {
	common.SetTestLoggerNop()

	sender := &recordingSender{}
	rs := setupTestServer(t, sender)
	recipient := uuid.NewString()

	w := doJSON(rs, http.MethodPost, "/notifications", adHoc(recipient))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	report := decode[ReportResponse](t, w)
	require.Len(t, report.Notifications, 1)
	n := report.Notifications[0]
	assert.Equal(t, models.ProfileExtended, n.Profile)
	assert.Equal(t, models.StatusNew, n.Status)

	w = doJSON(rs, http.MethodPost, "/notifications/"+n.ID+"/acknowledge", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	acked := decode[models.Notification](t, w)
	assert.Equal(t, models.StatusAcknowledged, acked.Status)
	assert.NotNil(t, acked.ReadAt)

	w = doJSON(rs, http.MethodPost, "/notifications/"+n.ID+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusResolved, decode[models.Notification](t, w).Status)

	w = doJSON(rs, http.MethodPost, "/notifications/"+n.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusArchived, decode[models.Notification](t, w).Status)

	// archived is terminal
	w = doJSON(rs, http.MethodPost, "/notifications/"+n.ID+"/acknowledge", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode[map[string]apperrors.AppError](t, w)
	assert.Equal(t, apperrors.CodeInvalidTransition, body["error"].Code)

	w = doJSON(rs, http.MethodGet, "/notifications/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStarAndReadAll(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})
	recipient := uuid.NewString()

	input := adHoc(recipient)
	input.ActionRequired = false
	input.Channels = nil
	w := doJSON(rs, http.MethodPost, "/notifications", input)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	n := decode[ReportResponse](t, w).Notifications[0]
	assert.Equal(t, models.StatusUnread, n.Status)

	w = doJSON(rs, http.MethodPut, "/notifications/"+n.ID+"/star", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(rs, http.MethodPut, "/notifications/"+n.ID+"/star", map[string]bool{"starred": true})
	require.Equal(t, http.StatusOK, w.Code)
	starred := decode[models.Notification](t, w)
	assert.True(t, starred.Starred)
	assert.Equal(t, models.StatusUnread, starred.Status)

	w = doJSON(rs, http.MethodGet, "/recipients/"+recipient+"/notifications?starred=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(rs, http.MethodGet, "/recipients/"+recipient+"/notifications/unread", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread":1}`, w.Body.String())

	w = doJSON(rs, http.MethodPost, "/recipients/"+recipient+"/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, w.Body.String())

	w = doJSON(rs, http.MethodGet, "/recipients/"+recipient+"/notifications/unread", nil)
	assert.JSONEq(t, `{"unread":0}`, w.Body.String())
}

func TestPreferences(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})
	recipient := uuid.NewString()

	w := doJSON(rs, http.MethodGet, "/recipients/"+recipient+"/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	prefs := decode[models.RecipientPreferences](t, w)
	assert.Equal(t, models.FrequencyImmediate, prefs.Frequency)

	w = doJSON(rs, http.MethodPatch, "/recipients/"+recipient+"/preferences", map[string]any{
		"frequency": "daily",
		"timezone":  "Europe/Berlin",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	prefs = decode[models.RecipientPreferences](t, w)
	assert.Equal(t, models.FrequencyDaily, prefs.Frequency)
	assert.Equal(t, "Europe/Berlin", prefs.Timezone)

	w = doJSON(rs, http.MethodPatch, "/recipients/"+recipient+"/preferences", map[string]any{"frequency": "monthly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceiptsAndRetry(t *testing.T) {
	common.SetTestLoggerNop()

	sender := &recordingSender{}
	sender.fail.Store(1)
	rs := setupTestServer(t, sender)
	recipient := uuid.NewString()

	w := doJSON(rs, http.MethodPost, "/notifications", adHoc(recipient))
	require.Equal(t, http.StatusCreated, w.Code)
	n := decode[ReportResponse](t, w).Notifications[0]

	var receipts []models.DeliveryReceipt
	require.Eventually(t, func() bool {
		w := doJSON(rs, http.MethodGet, "/notifications/"+n.ID+"/receipts", nil)
		receipts = decode[struct {
			Items []models.DeliveryReceipt `json:"items"`
		}](t, w).Items
		return len(receipts) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, models.DeliveryFailed, receipts[0].Status)

	w = doJSON(rs, http.MethodPost, "/notifications/"+n.ID+"/channels/email/retry", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode[map[string]any](t, w)["ok"])
	assert.Equal(t, 1, sender.count())

	w = doJSON(rs, http.MethodPost, "/notifications/"+n.ID+"/channels/sms/retry", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportNotifications(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})
	recipient := uuid.NewString()

	w := doJSON(rs, http.MethodPost, "/notifications", adHoc(recipient))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(rs, http.MethodGet, "/recipients/"+recipient+"/notifications/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestListChannels(t *testing.T) {
	common.SetTestLoggerNop()

	rs := setupTestServer(t, &recordingSender{})
	require.NoError(t, rs.Engine.Channels.Put(context.Background(), models.Channel{
		ID:      "ops-slack",
		Type:    models.ChannelWebhook,
		Enabled: true,
		Targets: []string{"https://hooks.example.com/x"},
		Flavor:  "slack",
	}))

	w := doJSON(rs, http.MethodGet, "/channels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []models.Channel `json:"items"`
	}](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "ops-slack", list.Items[0].ID)
}

func TestEngineErrorsMapToStatus(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rs := setupTestServer(t, &recordingSender{})

	inbox := mocks.NewMockIInbox(ctrl)
	sample := mocks.NewMockISample(ctrl)
	rs.Engine.WithServices(alerting.ServiceOpts{Inbox: inbox, Sample: sample})

	inbox.EXPECT().
		ListNotifications(gomock.Any(), "op-1", gomock.Any()).
		Return(nil, errors.New("connection reset")).
		Times(1)
	sample.EXPECT().
		OnSample(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.NewValidation("sample has no fields", "fields")).
		Times(1)
	inbox.EXPECT().
		MarkRead(gomock.Any(), "n-1").
		Return(nil, apperrors.NewInvalidTransition("archived", "read")).
		Times(1)

	w := doJSON(rs, http.MethodGet, "/recipients/op-1/notifications", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = doJSON(rs, http.MethodPost, "/samples", SampleRequest{Source: "press-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]apperrors.AppError](t, w)
	assert.Equal(t, []string{"fields"}, body["error"].Fields)

	w = doJSON(rs, http.MethodPost, "/notifications/n-1/read", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
