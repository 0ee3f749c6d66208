// Package overlay owns the stream overlay: the current bubble state
// document and the HTTP server that exposes it to the browser source.
package overlay

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Mode is the bubble rendering style.
type Mode string

const (
	// ModeSpeak renders a speech bubble with the reply text.
	ModeSpeak Mode = "speak"
	// ModeThink renders a thinking bubble while a turn is in flight.
	ModeThink Mode = "think"
)

// DefaultFontSize matches the overlay page's default rendering size.
const DefaultFontSize = 30

// State is the single mutable overlay document. Empty text with
// Visible=false is the idle state.
type State struct {
	Text      string    `json:"text"`
	Mode      Mode      `json:"mode"`
	Visible   bool      `json:"visible"`
	FontSize  int       `json:"fontSize"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store guards the overlay state document. The pipeline and the
// announcement watcher are its only writers and both go through
// Update; the HTTP server only reads snapshots.
type Store struct {
	mu       sync.RWMutex
	state    State
	path     string
	onChange func(State)
	logger   *slog.Logger
}

// NewStore creates a store in the idle state.
func NewStore(fontSize int) *Store {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	return &Store{
		state: State{
			Mode:     ModeSpeak,
			FontSize: fontSize,
		},
		logger: slog.Default().With("component", "overlay.store"),
	}
}

// MirrorToFile makes every update also write the state document as JSON
// to the given path. Write failures are logged, never fatal.
func (s *Store) MirrorToFile(path string) {
	s.mu.Lock()
	s.path = path
	s.mu.Unlock()
}

// OnChange registers a callback invoked with a snapshot after each
// update. Used to push state to websocket clients.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Update applies a mutation inside the store's critical section and
// stamps UpdatedAt. The callback and the file mirror run outside the
// lock on a copy of the new state.
func (s *Store) Update(update func(*State)) {
	s.mu.Lock()
	update(&s.state)
	if s.state.Mode != ModeThink {
		s.state.Mode = ModeSpeak
	}
	s.state.UpdatedAt = time.Now()
	snapshot := s.state
	path := s.path
	onChange := s.onChange
	s.mu.Unlock()

	if path != "" {
		s.writeFile(path, snapshot)
	}
	if onChange != nil {
		onChange(snapshot)
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetThink shows a thinking bubble with the given placeholder text.
func (s *Store) SetThink(text string) {
	s.Update(func(st *State) {
		st.Mode = ModeThink
		st.Text = text
		st.Visible = true
	})
}

// SetSpeak shows a speech bubble with the reply text.
func (s *Store) SetSpeak(text string) {
	s.Update(func(st *State) {
		st.Mode = ModeSpeak
		st.Text = text
		st.Visible = true
	})
}

// Clear returns the overlay to idle: hidden, empty text.
func (s *Store) Clear() {
	s.Update(func(st *State) {
		st.Text = ""
		st.Visible = false
	})
}

func (s *Store) writeFile(path string, snapshot State) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		s.logger.Error("marshal overlay state", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Error("create overlay state dir", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("write overlay state file", "error", err, "path", path)
	}
}
