package channels

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferCloser struct {
	bytes.Buffer
}

func (b *bufferCloser) Close() error { return nil }

type fakeSMTPClient struct {
	authed  bool
	from    string
	rcpts   []string
	data    bufferCloser
	quit    bool
	rcptErr error
}

func (c *fakeSMTPClient) Mail(from string) error { c.from = from; return nil }
func (c *fakeSMTPClient) Rcpt(to string) error {
	if c.rcptErr != nil {
		return c.rcptErr
	}
	c.rcpts = append(c.rcpts, to)
	return nil
}
func (c *fakeSMTPClient) Data() (io.WriteCloser, error)   { return &c.data, nil }
func (c *fakeSMTPClient) Quit() error                     { c.quit = true; return nil }
func (c *fakeSMTPClient) Close() error                    { return nil }
func (c *fakeSMTPClient) StartTLS(*tls.Config) error      { return nil }
func (c *fakeSMTPClient) Auth(smtp.Auth) error            { c.authed = true; return nil }
func (c *fakeSMTPClient) Extension(string) (bool, string) { return false, "" }

func newFakeMailer(t *testing.T, cfg SMTPSettings, client *fakeSMTPClient) *smtpMailer {
	t.Helper()
	m, err := NewSMTPMailer(cfg)
	require.NoError(t, err)
	mailer := m.(*smtpMailer)
	mailer.dialFn = func(context.Context, SMTPSettings) (net.Conn, smtpClient, error) {
		local, remote := net.Pipe()
		t.Cleanup(func() { _ = remote.Close() })
		return local, client, nil
	}
	return mailer
}

func TestSMTPMailer_Send(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newFakeMailer(t, SMTPSettings{Host: "mail.plant.local", Port: 587, Username: "alerts", Password: "pw", From: "alerts@plant.local"}, client)

	err := mailer.Send(context.Background(), Email{
		To:      []string{"op1@plant.local", " op1@plant.local", "", "lead@plant.local"},
		Subject: "Press 4\r\nBcc: evil@example.com",
		Body:    "temperature 95",
	})
	require.NoError(t, err)

	assert.True(t, client.authed)
	assert.Equal(t, "alerts@plant.local", client.from)
	assert.Equal(t, []string{"op1@plant.local", "lead@plant.local"}, client.rcpts)
	assert.True(t, client.quit)

	data := client.data.String()
	assert.Contains(t, data, "To: op1@plant.local, lead@plant.local\r\n")
	assert.Contains(t, data, "Subject: Press 4  Bcc: evil@example.com\r\n", "header injection is flattened")
	assert.Contains(t, data, "\r\n\r\ntemperature 95")
}

func TestSMTPMailer_Rejects(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Host: "mail.plant.local"})
	assert.Error(t, err, "port is required with a host")

	disabled, err := NewSMTPMailer(SMTPSettings{})
	require.NoError(t, err)
	assert.ErrorIs(t, disabled.Send(context.Background(), Email{To: []string{"a@b.c"}}), ErrSMTPDisabled)

	cfg := SMTPSettings{Host: "mail.plant.local", Port: 25, From: "alerts@plant.local"}
	mailer := newFakeMailer(t, cfg, &fakeSMTPClient{})
	assert.Error(t, mailer.Send(context.Background(), Email{}))
	assert.Error(t, mailer.Send(context.Background(), Email{To: []string{"not an address"}}))
	assert.Error(t, mailer.Send(context.Background(), Email{From: "nope", To: []string{"a@b.c"}}))

	failing := newFakeMailer(t, cfg, &fakeSMTPClient{rcptErr: errors.New("550 no such user")})
	err = failing.Send(context.Background(), Email{To: []string{"ghost@plant.local"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost@plant.local")
}
