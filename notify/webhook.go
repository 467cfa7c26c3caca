package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Webhook POSTs messages as {"text": ...} JSON, the shape Slack-style
// incoming webhooks expect.
type Webhook struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewWebhook returns a webhook notifier for url.
func NewWebhook(url string, log zerolog.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log.With().Str("component", "notify").Logger(),
	}
}

// Send posts the message. Failures are logged, never returned.
func (w *Webhook) Send(message string) {
	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		w.log.Warn().Err(err).Msg("Failed to encode webhook payload")
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		w.log.Warn().Err(err).Msg("Failed to send webhook")
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.log.Warn().Int("status", resp.StatusCode).Msg("Webhook rejected")
	}
}
