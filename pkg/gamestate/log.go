package gamestate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Log is an append-only, newline-delimited JSON event log backed by a
// single file. One writer (the ingest endpoint) appends; readers tail
// from an explicit byte offset. Lines that fail to parse are skipped so
// a hand-edited or truncated file never wedges the watcher.
type Log struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// OpenLog creates the log's parent directory and returns a handle.
// The file itself is created lazily on first append.
func OpenLog(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("gamestate: create log dir: %w", err)
	}
	return &Log{
		path:   path,
		logger: slog.Default().With("component", "gamestate.log"),
	}, nil
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append validates the raw payload, appends it as one compact JSON line,
// and returns the parsed event. Invalid payloads leave the file untouched.
func (l *Log) Append(raw []byte) (Event, error) {
	ev, err := ParseEvent(raw)
	if err != nil {
		return Event{}, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return Event{}, fmt.Errorf("gamestate: compact event: %w", err)
	}
	compact.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Event{}, fmt.Errorf("gamestate: open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(compact.Bytes()); err != nil {
		return Event{}, fmt.Errorf("gamestate: append event: %w", err)
	}

	l.logger.Debug("event appended", "key", ev.Key(), "bytes", compact.Len())
	return ev, nil
}

// ReadFrom returns all events appended after the given byte offset, in
// file order, together with the offset to resume from. A missing file
// yields no events and the same offset.
func (l *Log) ReadFrom(offset int64) ([]Event, int64, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("gamestate: open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("gamestate: seek log: %w", err)
	}

	var events []Event
	next := offset
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			// A trailing line without its newline is an append still in
			// progress; leave the cursor before it for the next poll.
			return events, next, nil
		}
		if err != nil {
			return events, next, fmt.Errorf("gamestate: scan log: %w", err)
		}
		next += int64(len(line))
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		ev, err := ParseEvent(line)
		if err != nil {
			l.logger.Warn("skipping unparsable log line", "error", err)
			continue
		}
		events = append(events, ev)
	}
}

// Size returns the current byte size of the log file, or 0 if it does
// not exist yet.
func (l *Log) Size() (int64, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}
