package logger

import (
	"encoding/json"
	"sync"
)

const defaultStreamSize = 500

// Broadcaster pushes messages out to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// LogEntry is one parsed log line, kept for the live log feed.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Stream implements io.Writer. It parses zerolog JSON lines into a ring
// buffer and forwards them to an optional websocket hub.
type Stream struct {
	ring *ring[LogEntry]
	mu   sync.RWMutex
	hub  Broadcaster
}

// NewStream creates a stream keeping the last size entries.
func NewStream(size int) *Stream {
	if size <= 0 {
		size = defaultStreamSize
	}
	return &Stream{ring: newRing[LogEntry](size)}
}

// SetHub attaches the hub that receives new entries. May be nil.
func (s *Stream) SetHub(hub Broadcaster) {
	s.mu.Lock()
	s.hub = hub
	s.mu.Unlock()
}

// Write accepts a zerolog JSON line. Malformed lines are dropped; the
// write itself never fails so logging stays non-fatal.
func (s *Stream) Write(p []byte) (int, error) {
	entry, ok := parseEntry(p)
	if !ok {
		return len(p), nil
	}

	s.ring.push(entry)

	s.mu.RLock()
	hub := s.hub
	s.mu.RUnlock()

	if hub != nil {
		_ = hub.Broadcast("logs:entry", entry)
	}
	return len(p), nil
}

// Recent returns the buffered entries, oldest first.
func (s *Stream) Recent() []LogEntry {
	return s.ring.snapshot()
}

func parseEntry(data []byte) (LogEntry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogEntry{}, false
	}

	entry := LogEntry{Fields: make(map[string]any)}

	if ts, ok := raw["time"].(string); ok {
		entry.Timestamp = ts
		delete(raw, "time")
	}
	if level, ok := raw["level"].(string); ok {
		entry.Level = level
		delete(raw, "level")
	}
	if component, ok := raw["component"].(string); ok {
		entry.Component = component
		delete(raw, "component")
	}
	if msg, ok := raw["message"].(string); ok {
		entry.Message = msg
		delete(raw, "message")
	}
	for k, v := range raw {
		entry.Fields[k] = v
	}

	return entry, true
}
