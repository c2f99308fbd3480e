package alerter

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solwatch/solwatch/internal/config"
	"github.com/solwatch/solwatch/internal/types"
)

// AlertStore is the persistent alert store. Failures are non-fatal to
// the alert lifecycle: writes are fire-and-forget, queries fall back
// to in-memory state.
type AlertStore interface {
	WriteAlert(alert types.Alert) error
	UpdateAlertStatus(id string, status types.Status, at time.Time) error
	QueryRecentAlerts(hours int) ([]types.Alert, error)
}

// Manager owns the active and historical alert collections, creates
// alerts on trigger conditions and hands them to the dispatcher.
type Manager struct {
	log        zerolog.Logger
	store      AlertStore
	limiter    *RateLimiter
	dispatcher *Dispatcher

	mu      sync.RWMutex
	active  map[string]*types.Alert
	history []types.Alert

	prefsMu sync.RWMutex
	prefs   config.NotificationPrefs

	// Joins in-flight persistence and dispatch tasks; used by tests
	// and shutdown via Flush.
	pending sync.WaitGroup

	now func() time.Time
}

// NewManager constructs the alert aggregate: rate limiter over the
// cooldown policy, dispatcher over the sender registry, and the
// active/history collections.
func NewManager(log zerolog.Logger, store AlertStore, senders SenderRegistry, policy CooldownPolicy, prefs config.NotificationPrefs) *Manager {
	m := &Manager{
		log:    log.With().Str("component", "alert-manager").Logger(),
		store:  store,
		active: make(map[string]*types.Alert),
		now:    time.Now,
	}
	m.prefs = prefs
	m.limiter = NewRateLimiter(policy)
	m.dispatcher = NewDispatcher(log, senders, m.limiter, store, m.Preferences, m.markSuppressed)
	return m
}

// markSuppressed copies cooldown suppression annotations onto the live
// alert record. The dispatcher works on a snapshot, so this is the only
// path that mutates the live record's metadata after creation.
func (m *Manager) markSuppressed(id, reason string, until time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.active[id]
	if !ok {
		return
	}
	if alert.Metadata == nil {
		alert.Metadata = make(map[string]any)
	}
	alert.Metadata[types.MetaSuppressedReason] = reason
	alert.Metadata[types.MetaSuppressedUntil] = until
}

// Preferences returns the current notification preferences.
func (m *Manager) Preferences() config.NotificationPrefs {
	m.prefsMu.RLock()
	defer m.prefsMu.RUnlock()
	return m.prefs
}

// UpdatePreferences replaces the active notification configuration
// wholesale. Takes effect on the next dispatch.
func (m *Manager) UpdatePreferences(prefs config.NotificationPrefs) {
	m.prefsMu.Lock()
	m.prefs = prefs
	m.prefsMu.Unlock()
	m.log.Info().
		Strs("channels", prefs.Channels).
		Int("max_per_hour", prefs.MaxPerHour).
		Msg("Notification preferences updated")
}

// Create constructs a new active alert, records it in the active map
// and the history list, and fires persistence and dispatch as
// independent tasks. It returns immediately; callers must not assume
// the alert is stored or notified yet.
func (m *Manager) Create(title, message string, severity types.Severity, category string, metadata map[string]any) *types.Alert {
	alert := &types.Alert{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Status:    types.StatusActive,
		Timestamp: m.now(),
		Metadata:  metadata,
	}

	// Snapshots for the background tasks are taken before the record
	// is shared, so later Acknowledge/Resolve mutations cannot race
	// with the store write or the sender reads.
	stored := alert.Clone()
	dispatched := alert.Clone()

	m.mu.Lock()
	m.active[alert.ID] = alert
	m.history = append(m.history, alert.Clone())
	m.mu.Unlock()

	m.log.Info().
		Str("alert_id", alert.ID).
		Str("category", category).
		Str("severity", string(severity)).
		Msg("Alert created")

	m.pending.Add(2)
	go func() {
		defer m.pending.Done()
		if err := m.store.WriteAlert(stored); err != nil {
			m.log.Error().
				Err(err).
				Str("alert_id", alert.ID).
				Msg("Failed to persist alert")
		}
	}()
	go func() {
		defer m.pending.Done()
		m.dispatcher.Dispatch(&dispatched)
	}()

	return alert
}

// Acknowledge marks an active alert acknowledged. The alert stays in
// the active collection. Returns false when the id is unknown.
func (m *Manager) Acknowledge(id string) bool {
	m.mu.Lock()
	alert, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	now := m.now()
	alert.Status = types.StatusAcknowledged
	alert.AcknowledgedAt = &now
	m.mu.Unlock()

	m.log.Info().Str("alert_id", id).Msg("Alert acknowledged")
	m.persistStatus(id, types.StatusAcknowledged, now)
	return true
}

// Resolve marks an alert resolved and removes it from the active
// collection; the history list keeps its creation snapshot. Returns
// false when the id is unknown.
func (m *Manager) Resolve(id string) bool {
	m.mu.Lock()
	alert, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	now := m.now()
	alert.Status = types.StatusResolved
	alert.ResolvedAt = &now
	delete(m.active, id)
	m.mu.Unlock()

	m.log.Info().Str("alert_id", id).Msg("Alert resolved")
	m.persistStatus(id, types.StatusResolved, now)
	return true
}

// persistStatus fires the status update at the store without blocking
// the caller.
func (m *Manager) persistStatus(id string, status types.Status, at time.Time) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		if err := m.store.UpdateAlertStatus(id, status, at); err != nil {
			m.log.Error().
				Err(err).
				Str("alert_id", id).
				Str("status", string(status)).
				Msg("Failed to persist alert status")
		}
	}()
}

// Active returns snapshots of the alerts currently in the active map.
func (m *Manager) Active() []types.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alerts := make([]types.Alert, 0, len(m.active))
	for _, alert := range m.active {
		alerts = append(alerts, alert.Clone())
	}
	return alerts
}

// ResolveByCategory resolves every active alert in the given category.
// Used by the monitor when a trigger condition clears. Returns the
// number of alerts resolved.
func (m *Manager) ResolveByCategory(category string) int {
	m.mu.RLock()
	var ids []string
	for id, alert := range m.active {
		if alert.Category == category {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Resolve(id)
	}
	return len(ids)
}

// ActiveInCategory reports whether any active alert exists for the
// category.
func (m *Manager) ActiveInCategory(category string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, alert := range m.active {
		if alert.Category == category {
			return true
		}
	}
	return false
}

// Recent returns alerts created within the trailing window. It prefers
// the persistent store; when the store query fails it falls back to an
// in-memory view of history plus active alerts, with active entries
// overriding historical snapshots sharing the same id. Never fails: an
// internal error yields an empty list.
func (m *Manager) Recent(hours int) []types.Alert {
	if alerts, err := m.store.QueryRecentAlerts(hours); err == nil {
		return alerts
	} else {
		m.log.Error().
			Err(err).
			Int("hours", hours).
			Msg("Store query failed, falling back to in-memory alerts")
	}

	cutoff := m.now().Add(-time.Duration(hours) * time.Hour)

	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := make(map[string]types.Alert)
	order := make([]string, 0, len(m.history))
	for _, alert := range m.history {
		if alert.Timestamp.Before(cutoff) {
			continue
		}
		if _, seen := byID[alert.ID]; !seen {
			order = append(order, alert.ID)
		}
		byID[alert.ID] = alert
	}
	for id, alert := range m.active {
		if alert.Timestamp.Before(cutoff) {
			continue
		}
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = alert.Clone()
	}

	out := make([]types.Alert, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// Flush waits for all in-flight persistence and dispatch tasks.
func (m *Manager) Flush() {
	m.pending.Wait()
}
