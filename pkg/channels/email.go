package channels

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// ErrSMTPDisabled signals that no SMTP host is configured.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer sends one email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

func (s SMTPSettings) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type smtpClient interface {
	Mail(string) error
	Rcpt(string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
	StartTLS(*tls.Config) error
	Auth(smtp.Auth) error
	Extension(string) (bool, string)
}

type smtpDialFunc func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error)

type smtpMailer struct {
	cfg    SMTPSettings
	dialFn smtpDialFunc
}

func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	if cfg.Enabled() && cfg.Port == 0 {
		return nil, errors.New("smtp: port is required when a host is set")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &smtpMailer{cfg: cfg, dialFn: dialSMTP}, nil
}

func (m *smtpMailer) Send(ctx context.Context, email Email) error {
	if !m.cfg.Enabled() {
		return ErrSMTPDisabled
	}

	recipients := uniqueAddresses(email.To)
	if len(recipients) == 0 {
		return errors.New("smtp: at least one recipient is required")
	}
	from := strings.TrimSpace(email.From)
	if from == "" {
		from = m.cfg.From
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return fmt.Errorf("smtp: invalid from address %q: %w", from, err)
	}
	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return fmt.Errorf("smtp: invalid recipient address %q: %w", rcpt, err)
		}
	}

	conn, client, err := m.dialFn(ctx, m.cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	if m.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp: rcpt to %s: %w", rcpt, err)
		}
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data command: %w", err)
	}
	if _, err := io.WriteString(wc, formatEmail(from, recipients, email.Subject, email.Body)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("smtp: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp: close data writer: %w", err)
	}
	return client.Quit()
}

func dialSMTP(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
	address := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	dialer := &net.Dialer{Timeout: cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if cfg.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: cfg.Host}}).DialContext(ctx, "tcp", address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("smtp: dial %s: %w", address, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("smtp: new client: %w", err)
	}
	if !cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				_ = client.Close()
				_ = conn.Close()
				return nil, nil, fmt.Errorf("smtp: start tls: %w", err)
			}
		}
	}
	return conn, client, nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var out []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func formatEmail(from string, to []string, subject, body string) string {
	headers := []string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + escapeHeader(subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
	}
	return strings.Join(headers, "\r\n") + "\r\n" + body
}

func escapeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

// EmailSender mails the recipient's email contact plus any addresses listed as
// channel targets.
type EmailSender struct {
	Mailer Mailer
}

func NewEmailSender(mailer Mailer) *EmailSender {
	return &EmailSender{Mailer: mailer}
}

func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	to := append([]string{msg.Contact}, msg.Channel.Targets...)
	if len(uniqueAddresses(to)) == 0 {
		return ErrNoContact
	}
	return s.Mailer.Send(ctx, Email{
		To:      to,
		Subject: msg.Title,
		Body:    emailBody(msg),
	})
}

func emailBody(msg Message) string {
	var b strings.Builder
	b.WriteString(msg.Body)
	b.WriteString("\r\n\r\n")
	fmt.Fprintf(&b, "Priority: %s\r\nCategory: %s\r\n", msg.Priority, msg.Category)
	if msg.Source != "" {
		fmt.Fprintf(&b, "Source: %s\r\n", msg.Source)
	}
	if msg.ActionRequired {
		b.WriteString("Action required.\r\n")
	}
	fmt.Fprintf(&b, "Notification: %s\r\n", msg.NotificationID)
	return b.String()
}
