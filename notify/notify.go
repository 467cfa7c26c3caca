// Package notify delivers human-readable trade alerts. Delivery is best
// effort: every implementation contains its own failures, logging and
// moving on, so a dead SMTP server or webhook can never block or fail a
// trade that has already been committed.
package notify

import "github.com/rs/zerolog"

// Notifier sends a message somewhere a human will see it.
type Notifier interface {
	Send(message string)
}

// Noop discards every message.
type Noop struct{}

func (Noop) Send(string) {}

// Multi fans a message out to several notifiers.
type Multi []Notifier

func (m Multi) Send(message string) {
	for _, n := range m {
		n.Send(message)
	}
}

// Config selects which channels to build.
type Config struct {
	Email      string // destination address; empty disables email
	WebhookURL string // POST target; empty disables the webhook
	SMTPAddr   string // host:port, defaults to localhost:25
}

// FromConfig builds a notifier for the configured channels. With neither
// configured it returns Noop.
func FromConfig(cfg Config, log zerolog.Logger) Notifier {
	var m Multi
	if cfg.Email != "" {
		m = append(m, NewEmail(cfg.Email, cfg.SMTPAddr, log))
	}
	if cfg.WebhookURL != "" {
		m = append(m, NewWebhook(cfg.WebhookURL, log))
	}
	if len(m) == 0 {
		return Noop{}
	}
	return m
}
