package channels

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/multierr"

	"factorydash.xyz/alert-engine/pkg/models"
)

// NewRestyClient returns the client shared by the HTTP based senders. Retries
// stay off: a failed delivery is retried by the caller, keyed on
// (notification, channel).
func NewRestyClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

func postJSON(ctx context.Context, client *resty.Client, url string, headers map[string]string, body any) error {
	resp, err := client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		Post(url)
	if err != nil {
		return fmt.Errorf("http post %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("http post %s: status %d", url, resp.StatusCode())
	}
	return nil
}

type SMSSettings struct {
	GatewayURL string
	Token      string
}

// SMSSender posts to an HTTP SMS gateway.
type SMSSender struct {
	client   *resty.Client
	settings SMSSettings
}

type smsRequest struct {
	To       string `json:"to"`
	Text     string `json:"text"`
	Priority string `json:"priority"`
	Ref      string `json:"ref"`
}

func NewSMSSender(client *resty.Client, settings SMSSettings) *SMSSender {
	return &SMSSender{client: client, settings: settings}
}

func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	if s.settings.GatewayURL == "" {
		return errors.New("sms: gateway url not configured")
	}
	if msg.Contact == "" {
		return ErrNoContact
	}
	headers := map[string]string{}
	if s.settings.Token != "" {
		headers["Authorization"] = "Bearer " + s.settings.Token
	}
	return postJSON(ctx, s.client, s.settings.GatewayURL, headers, smsRequest{
		To:       msg.Contact,
		Text:     smsText(msg),
		Priority: string(msg.Priority),
		Ref:      msg.NotificationID,
	})
}

// smsText keeps a message within a single 160 character segment.
func smsText(msg Message) string {
	text := msg.Title
	if msg.Body != "" {
		text += ": " + msg.Body
	}
	runes := []rune(text)
	if len(runes) > 160 {
		return string(runes[:157]) + "..."
	}
	return text
}

// WebhookSender posts to every target URL of the channel. The payload shape
// follows the channel flavor: slack, teams or plain JSON.
type WebhookSender struct {
	client *resty.Client
}

func NewWebhookSender(client *resty.Client) *WebhookSender {
	return &WebhookSender{client: client}
}

func (s *WebhookSender) Send(ctx context.Context, msg Message) error {
	if len(msg.Channel.Targets) == 0 {
		return fmt.Errorf("webhook %s: no target urls", msg.Channel.ID)
	}
	payload := webhookPayload(msg)
	var errs error
	for _, url := range msg.Channel.Targets {
		errs = multierr.Append(errs, postJSON(ctx, s.client, url, nil, payload))
	}
	return errs
}

func webhookPayload(msg Message) any {
	switch msg.Channel.Flavor {
	case "slack":
		return map[string]string{
			"text": fmt.Sprintf("*%s* %s\n%s", severityLabel(msg), msg.Title, msg.Body),
		}
	case "teams":
		return map[string]any{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": severityColor(msg),
			"summary":    msg.Title,
			"title":      msg.Title,
			"text":       msg.Body,
		}
	default:
		return map[string]any{"notification": msg}
	}
}

func severityLabel(msg Message) string {
	switch msg.Priority {
	case models.LevelCritical:
		return "[CRITICAL]"
	case models.LevelHigh:
		return "[HIGH]"
	case models.LevelMedium:
		return "[MEDIUM]"
	default:
		return "[LOW]"
	}
}

func severityColor(msg Message) string {
	switch msg.Priority {
	case models.LevelCritical:
		return "FF4F6A"
	case models.LevelHigh:
		return "FF7F27"
	case models.LevelMedium:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
