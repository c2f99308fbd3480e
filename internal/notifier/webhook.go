package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/solwatch/solwatch/internal/types"
)

// WebhookSender posts the full alert record as JSON to an arbitrary
// HTTP endpoint.
type WebhookSender struct {
	name   string
	url    string
	client *http.Client
}

// NewWebhookSender creates a webhook sender for the given URL.
func NewWebhookSender(name, url string) *WebhookSender {
	return &WebhookSender{
		name: name,
		url:  url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *WebhookSender) Name() string { return s.name }

// Send posts the alert as a JSON document.
func (s *WebhookSender) Send(alert *types.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook error: %s", resp.Status)
	}

	return nil
}
