package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/solwatch/solwatch/internal/types"
)

// TelegramSender delivers alerts via the Telegram Bot API.
type TelegramSender struct {
	name   string
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a telegram sender for the given bot token
// and chat id.
func NewTelegramSender(name, token, chatID string) *TelegramSender {
	return &TelegramSender{
		name:   name,
		token:  token,
		chatID: chatID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *TelegramSender) Name() string { return s.name }

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Send posts the alert text to the configured chat.
func (s *TelegramSender) Send(alert *types.Alert) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.token)

	body, err := json.Marshal(telegramMessage{
		ChatID: s.chatID,
		Text:   FormatMessage(alert),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}

	return nil
}
