package gamestate

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval is how often the watcher tails the log.
const DefaultPollInterval = time.Second

// SubmitFunc delivers a new announceable event and its rendered line to
// the pipeline. Implementations must not block for the duration of a
// voice turn; the watcher runs one poll at a time.
type SubmitFunc func(ev Event, line string)

// Watcher tails the event log on a fixed interval and submits each new,
// unseen event for announcement in log-append order.
type Watcher struct {
	log      *Log
	seen     *SeenSet
	interval time.Duration
	offset   int64
	submit   SubmitFunc
	logger   *slog.Logger
}

// NewWatcher creates a watcher over the given log. The cursor starts at
// the log's current end, so events persisted before construction are
// never re-announced on restart; only fresh appends are eligible. A
// zero interval falls back to DefaultPollInterval.
func NewWatcher(log *Log, interval time.Duration, seenCapacity int, submit SubmitFunc) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	w := &Watcher{
		log:      log,
		seen:     NewSeenSet(seenCapacity),
		interval: interval,
		submit:   submit,
		logger:   slog.Default().With("component", "gamestate.watcher"),
	}
	offset, err := log.Size()
	if err != nil {
		w.logger.Warn("could not stat log, tailing from the start", "error", err)
		offset = 0
	}
	w.offset = offset
	return w
}

// Run polls until the context is cancelled. It is single-threaded by
// construction: the next poll cannot start before the previous returns.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watcher started", "interval", w.interval, "log", w.log.Path())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}

// Poll reads events appended since the last poll and submits the new,
// announceable ones. Exported so tests can drive the watcher without
// the ticker.
func (w *Watcher) Poll() {
	events, next, err := w.log.ReadFrom(w.offset)
	if err != nil {
		w.logger.Error("poll failed", "error", err)
		return
	}
	w.offset = next

	for _, ev := range events {
		key := ev.Key()
		if key == "" {
			w.logger.Warn("event has no id or name, not announceable")
			continue
		}
		if !w.seen.Add(key) {
			w.logger.Debug("duplicate event skipped", "key", key)
			continue
		}
		line := ev.AnnounceLine()
		w.logger.Info("announcing event", "key", key, "victory", ev.IsVictory())
		w.submit(ev, line)
	}
}

// Offset returns the current read cursor. Useful for tests.
func (w *Watcher) Offset() int64 {
	return w.offset
}
