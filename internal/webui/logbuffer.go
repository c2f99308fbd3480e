package webui

import (
	"strings"
	"sync"
	"time"
)

// LogEntry represents a single captured log line.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Raw       string    `json:"raw"`
}

// LogBuffer is a thread-safe ring buffer of recent log entries. It
// implements io.Writer so it can sit behind an io.MultiWriter next to
// stdout.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	size    int
	head    int
	count   int
}

// NewLogBuffer creates a log buffer with the given capacity.
func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Write captures one log line.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	raw := string(p)

	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.entries[lb.head] = LogEntry{
		Timestamp: time.Now(),
		Level:     parseField(raw, "level", "info"),
		Message:   parseField(raw, "message", raw),
		Raw:       raw,
	}
	lb.head = (lb.head + 1) % lb.size
	if lb.count < lb.size {
		lb.count++
	}

	return len(p), nil
}

// Entries returns all captured entries in chronological order.
func (lb *LogBuffer) Entries() []LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	result := make([]LogEntry, lb.count)
	start := 0
	if lb.count == lb.size {
		start = lb.head
	}
	for i := 0; i < lb.count; i++ {
		result[i] = lb.entries[(start+i)%lb.size]
	}
	return result
}

// Recent returns the most recent n entries.
func (lb *LogBuffer) Recent(n int) []LogEntry {
	entries := lb.Entries()
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

// parseField extracts a string field value from a zerolog JSON line
// without a full JSON parse.
func parseField(raw, field, fallback string) string {
	marker := `"` + field + `":"`
	start := strings.Index(raw, marker)
	if start == -1 {
		return fallback
	}
	start += len(marker)
	end := start
	for end < len(raw) && raw[end] != '"' {
		if raw[end] == '\\' && end+1 < len(raw) {
			end += 2
			continue
		}
		end++
	}
	if end <= start {
		return fallback
	}
	return raw[start:end]
}
