package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

const defaultSMTPAddr = "localhost:25"

// Email sends messages as plain-text mail through a local relay.
type Email struct {
	to       string
	smtpAddr string
	subject  string
	log      zerolog.Logger

	// send is swapped in tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewEmail returns an email notifier delivering to the given address.
func NewEmail(to, smtpAddr string, log zerolog.Logger) *Email {
	if smtpAddr == "" {
		smtpAddr = defaultSMTPAddr
	}
	return &Email{
		to:       to,
		smtpAddr: smtpAddr,
		subject:  "Trade Alert",
		log:      log.With().Str("component", "notify").Logger(),
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Send delivers the message. Failures are logged, never returned.
func (e *Email) Send(message string) {
	var b strings.Builder
	fmt.Fprintf(&b, "From: noreply@example.com\r\n")
	fmt.Fprintf(&b, "To: %s\r\n", e.to)
	fmt.Fprintf(&b, "Subject: %s\r\n", e.subject)
	fmt.Fprintf(&b, "\r\n%s\r\n", message)

	if err := e.send(e.smtpAddr, "noreply@example.com", []string{e.to}, []byte(b.String())); err != nil {
		e.log.Warn().Err(err).Msg("Failed to send email")
	}
}
