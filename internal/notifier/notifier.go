package notifier

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/solwatch/solwatch/internal/config"
	"github.com/solwatch/solwatch/internal/types"
)

// Sender delivers one alert over a single notification channel.
// Implementations may fail; the dispatcher isolates failures per
// channel.
type Sender interface {
	Name() string
	Send(alert *types.Alert) error
}

// Registry holds the configured channel senders, keyed by channel
// name, plus the voice sender used for emergency escalation.
type Registry struct {
	log     zerolog.Logger
	senders map[string]Sender
	voice   Sender
}

// NewRegistry builds senders from the channel configuration. Channels
// whose credentials or URLs are missing from the environment are
// skipped with a warning rather than failing startup.
func NewRegistry(log zerolog.Logger, channels map[string]config.ChannelConfig) *Registry {
	log = log.With().Str("component", "notifier").Logger()
	r := &Registry{
		log:     log,
		senders: make(map[string]Sender),
	}

	for name, cfg := range channels {
		sender, err := buildSender(name, cfg)
		if err != nil {
			log.Warn().
				Err(err).
				Str("channel", name).
				Msg("Channel not configured, skipping")
			continue
		}
		r.senders[name] = sender
		if cfg.Type == "voice" {
			r.voice = sender
		}
	}

	return r
}

func buildSender(name string, cfg config.ChannelConfig) (Sender, error) {
	switch cfg.Type {
	case "push":
		url := os.Getenv(cfg.URLEnv)
		if url == "" {
			return nil, fmt.Errorf("env %s is not set", cfg.URLEnv)
		}
		return NewPushSender(name, url), nil
	case "webhook":
		url := os.Getenv(cfg.URLEnv)
		if url == "" {
			return nil, fmt.Errorf("env %s is not set", cfg.URLEnv)
		}
		return NewWebhookSender(name, url), nil
	case "sms", "voice":
		url := os.Getenv(cfg.URLEnv)
		if url == "" {
			return nil, fmt.Errorf("env %s is not set", cfg.URLEnv)
		}
		return NewGatewaySender(name, cfg.Type, url, cfg.Recipient), nil
	case "email":
		user := os.Getenv(cfg.UserEnv)
		pass := os.Getenv(cfg.PassEnv)
		return NewEmailSender(name, cfg.SMTPHost, cfg.SMTPPort, user, pass, cfg.From, cfg.To), nil
	case "telegram":
		token := os.Getenv(cfg.TokenEnv)
		if token == "" {
			return nil, fmt.Errorf("env %s is not set", cfg.TokenEnv)
		}
		return NewTelegramSender(name, token, cfg.Recipient), nil
	default:
		return nil, fmt.Errorf("unknown channel type %q", cfg.Type)
	}
}

// Get returns the sender registered under the given channel name.
func (r *Registry) Get(name string) (Sender, bool) {
	s, ok := r.senders[name]
	return s, ok
}

// Voice returns the voice-call sender, or nil if none is configured.
func (r *Registry) Voice() Sender {
	return r.voice
}

// FormatMessage renders an alert into a human-readable notification
// body shared by the text-oriented channels.
func FormatMessage(alert *types.Alert) string {
	var emoji string
	switch alert.Severity {
	case types.SeverityCritical:
		emoji = "🔴"
	case types.SeverityHigh:
		emoji = "🟠"
	case types.SeverityMedium:
		emoji = "⚠️"
	default:
		emoji = "ℹ️"
	}

	if alert.Status == types.StatusResolved {
		emoji = "🟢"
	}

	title := fmt.Sprintf("%s SolWatch: %s", emoji, alert.Title)
	body := fmt.Sprintf("%s\n\nCategory: %s\nSeverity: %s\nStatus: %s\nAt: %s",
		alert.Message, alert.Category, alert.Severity, alert.Status,
		alert.Timestamp.Format(time.RFC3339))

	if alert.ResolvedAt != nil {
		body += fmt.Sprintf("\nResolved at: %s", alert.ResolvedAt.Format(time.RFC3339))
	}

	return fmt.Sprintf("%s\n\n%s", title, body)
}
