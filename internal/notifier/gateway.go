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

// GatewaySender delivers alerts through an SMS or voice-call HTTP
// gateway (Twilio-style). The gateway decides how to render the call;
// this sender only posts the recipient and message text.
type GatewaySender struct {
	name   string
	kind   string // "sms" or "voice"
	url    string
	to     string
	client *http.Client
}

// NewGatewaySender creates an SMS/voice gateway sender.
func NewGatewaySender(name, kind, url, to string) *GatewaySender {
	return &GatewaySender{
		name: name,
		kind: kind,
		url:  url,
		to:   to,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *GatewaySender) Name() string { return s.name }

// Send posts the delivery request to the gateway.
func (s *GatewaySender) Send(alert *types.Alert) error {
	payload := map[string]string{
		"kind":    s.kind,
		"to":      s.to,
		"message": FormatMessage(alert),
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
		return fmt.Errorf("gateway error: %d - %s", resp.StatusCode, string(body))
	}

	return nil
}
