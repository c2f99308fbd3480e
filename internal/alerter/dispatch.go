package alerter

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solwatch/solwatch/internal/config"
	"github.com/solwatch/solwatch/internal/notifier"
	"github.com/solwatch/solwatch/internal/types"
)

// EmergencyCategory triggers the voice-call escalation for critical
// alerts when voice escalation is enabled in the preferences.
const EmergencyCategory = "battery_critical"

// SenderRegistry resolves channel names to senders and exposes the
// voice escalation channel.
type SenderRegistry interface {
	Get(name string) (notifier.Sender, bool)
	Voice() notifier.Sender
}

// Dispatcher orchestrates delivery of one alert: quiet-hours check,
// cooldown check, per-channel send, last-sent bookkeeping and
// emergency voice escalation. All outcomes are side effects; Dispatch
// never returns an error and never panics outward.
type Dispatcher struct {
	log     zerolog.Logger
	senders SenderRegistry
	limiter *RateLimiter
	store   AlertStore
	prefs   func() config.NotificationPrefs
	now     func() time.Time

	// onSuppressed, when set, records cooldown suppression on the
	// owner's live alert record under the owner's lock.
	onSuppressed func(id, reason string, until time.Time)

	// Serializes whole dispatch passes so two near-simultaneous
	// alerts in one category cannot both pass the cooldown check
	// before either records a send.
	mu sync.Mutex
}

// NewDispatcher creates a dispatcher. prefs is read on every dispatch
// so preference updates take effect immediately.
func NewDispatcher(log zerolog.Logger, senders SenderRegistry, limiter *RateLimiter, store AlertStore, prefs func() config.NotificationPrefs, onSuppressed func(id, reason string, until time.Time)) *Dispatcher {
	return &Dispatcher{
		log:          log.With().Str("component", "dispatcher").Logger(),
		senders:      senders,
		limiter:      limiter,
		store:        store,
		prefs:        prefs,
		now:          time.Now,
		onSuppressed: onSuppressed,
	}
}

// Dispatch attempts delivery of the alert across the enabled channels.
// The alert must be a private snapshot: the dispatcher annotates it and
// hands it to senders without further locking.
func (d *Dispatcher) Dispatch(alert *types.Alert) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Interface("panic", r).
				Str("alert_id", alert.ID).
				Msg("Dispatch panicked, alert delivery abandoned")
		}
	}()

	d.mu.Lock()
	defer d.mu.Unlock()

	prefs := d.prefs()
	now := d.now()

	// Critical alerts bypass quiet hours entirely. Quiet-hours
	// suppression is not recorded on the alert, unlike cooldown
	// suppression.
	if alert.Severity != types.SeverityCritical && InQuietWindow(prefs.QuietHours, now) {
		d.log.Info().
			Str("alert_id", alert.ID).
			Str("category", alert.Category).
			Msg("Quiet hours active, notification suppressed")
		return
	}

	if blocked, nextAllowed := d.limiter.Check(alert.Category); blocked {
		if alert.Metadata == nil {
			alert.Metadata = make(map[string]any)
		}
		alert.Metadata[types.MetaSuppressedReason] = "cooldown"
		alert.Metadata[types.MetaSuppressedUntil] = nextAllowed
		if d.onSuppressed != nil {
			d.onSuppressed(alert.ID, "cooldown", nextAllowed)
		}

		d.log.Info().
			Str("alert_id", alert.ID).
			Str("category", alert.Category).
			Time("next_allowed", nextAllowed).
			Msg("Cooldown active, notification suppressed")

		if err := d.store.WriteAlert(alert.Clone()); err != nil {
			d.log.Error().
				Err(err).
				Str("alert_id", alert.ID).
				Msg("Failed to persist suppressed alert")
		}
		return
	}

	for _, name := range prefs.Channels {
		sender, ok := d.senders.Get(name)
		if !ok {
			d.log.Warn().
				Str("channel", name).
				Msg("Channel sender not found, skipping")
			continue
		}
		if err := sender.Send(alert); err != nil {
			d.log.Error().
				Err(err).
				Str("channel", name).
				Str("alert_id", alert.ID).
				Msg("Failed to send notification")
			continue
		}
		d.log.Info().
			Str("channel", name).
			Str("alert_id", alert.ID).
			Msg("Notification sent")
	}

	if alert.Severity == types.SeverityCritical && alert.Category == EmergencyCategory && prefs.VoiceEscalation {
		if voice := d.senders.Voice(); voice != nil {
			if err := voice.Send(alert); err != nil {
				d.log.Error().
					Err(err).
					Str("alert_id", alert.ID).
					Msg("Failed to place emergency voice call")
			} else {
				d.log.Info().
					Str("alert_id", alert.ID).
					Msg("Emergency voice call placed")
			}
		}
	}

	d.limiter.MarkSent(alert.Category)
}
