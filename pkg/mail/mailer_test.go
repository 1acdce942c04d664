package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	gomail "github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.ErrorContains(t, err, "port is required")

	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, mailer)
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: []string{"test@example.com"}, Subject: "Test", Body: "Hello"})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func newCapturingMailer(t *testing.T, sent *[]*gomail.Message, dialers *[]*gomail.Dialer) *smtpMailer {
	t.Helper()
	m, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "Registrar <registrar@example.com>",
		UseTLS:  true,
	})
	require.NoError(t, err)
	mailer := m.(*smtpMailer)
	mailer.send = func(d *gomail.Dialer, msg *gomail.Message) error {
		*sent = append(*sent, msg)
		*dialers = append(*dialers, d)
		return nil
	}
	return mailer
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	var (
		sent    []*gomail.Message
		dialers []*gomail.Dialer
	)
	mailer := newCapturingMailer(t, &sent, &dialers)

	err := mailer.Send(context.Background(), Message{
		To:      []string{"admin@example.com", "admin@example.com", " "},
		Subject: "Reset\r\nyour password",
		Body:    "Use this link",
		HTML:    "<p>Use this link</p>",
	})
	require.NoError(t, err)
	require.Len(t, sent, 1)

	require.Equal(t, []string{"admin@example.com"}, sent[0].GetHeader("To"))
	require.Equal(t, []string{"Reset  your password"}, sent[0].GetHeader("Subject"))
	require.Equal(t, gomail.MandatoryStartTLS, dialers[0].StartTLSPolicy)

	var buf bytes.Buffer
	_, err = sent[0].WriteTo(&buf)
	require.NoError(t, err)
	require.True(t, strings.Contains(buf.String(), "text/html"))
}

func TestSMTPMailerRejectsInvalidRecipient(t *testing.T) {
	var (
		sent    []*gomail.Message
		dialers []*gomail.Dialer
	)
	mailer := newCapturingMailer(t, &sent, &dialers)

	err := mailer.Send(context.Background(), Message{To: []string{"not-an-address"}, Subject: "x", Body: "y"})
	require.ErrorContains(t, err, "invalid recipient")
	require.Empty(t, sent)
}

func TestSMTPMailerWrapsSendError(t *testing.T) {
	var (
		sent    []*gomail.Message
		dialers []*gomail.Dialer
	)
	mailer := newCapturingMailer(t, &sent, &dialers)
	mailer.send = func(*gomail.Dialer, *gomail.Message) error { return errors.New("connection refused") }

	err := mailer.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "x", Body: "y"})
	require.ErrorContains(t, err, "connection refused")
}
