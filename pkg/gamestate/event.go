// Package gamestate owns the append-only game event log, the
// de-duplication window, and the announcement watcher that turns new
// events into spoken lines.
package gamestate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Winner identifies the victor of a match, when an event carries one.
type Winner struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Event is one ingested gamestate record. Immutable once appended.
type Event struct {
	EventID    string          `json:"event_id"`
	Event      string          `json:"event"`
	Who        string          `json:"who"`
	Winner     *Winner         `json:"winner"`
	Raw        json.RawMessage `json:"-"`
	ReceivedAt time.Time       `json:"-"`
}

// ParseEvent validates a raw ingest payload and extracts the recognized
// fields. Any JSON object is accepted; non-object payloads are rejected.
func ParseEvent(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("gamestate: parse event: %w", err)
	}
	ev.Raw = append(json.RawMessage(nil), raw...)
	ev.ReceivedAt = time.Now()
	return ev, nil
}

// Key returns the de-duplication key: the event ID when present, else
// the event name. Empty means the event cannot be announced.
func (e Event) Key() string {
	if e.EventID != "" {
		return e.EventID
	}
	return e.Event
}

// IsVictory reports whether the event announces a match winner.
func (e Event) IsVictory() bool {
	return e.Winner != nil && e.Winner.Name != ""
}

// AnnounceLine renders the templated line spoken for this event.
// Victory events use the winner fields; everything else falls back to
// an elimination or generic line.
func (e Event) AnnounceLine() string {
	if e.IsVictory() {
		if e.Winner.Reason != "" {
			return fmt.Sprintf("Victory! %s takes the match: %s.", e.Winner.Name, e.Winner.Reason)
		}
		return fmt.Sprintf("Victory! %s takes the match.", e.Winner.Name)
	}
	if e.Who != "" {
		return fmt.Sprintf("%s has been eliminated.", e.Who)
	}
	return fmt.Sprintf("New game event: %s.", e.Event)
}
