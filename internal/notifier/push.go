package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/solwatch/solwatch/internal/types"
)

// PushSender posts alerts to an Apprise-compatible notification
// endpoint.
type PushSender struct {
	name   string
	url    string
	client *http.Client
}

// NewPushSender creates a push sender for the given endpoint URL.
func NewPushSender(name, url string) *PushSender {
	return &PushSender{
		name: name,
		url:  url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *PushSender) Name() string { return s.name }

// Send posts the alert body to the push endpoint.
func (s *PushSender) Send(alert *types.Alert) error {
	payload := map[string]string{
		"title":  fmt.Sprintf("SolWatch: %s", alert.Severity),
		"body":   FormatMessage(alert),
		"format": "text",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push endpoint error: %d - %s", resp.StatusCode, string(body))
	}

	return nil
}
