package leviathan

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/leviathanlabs/leviathan/pkg/brain"
	"github.com/leviathanlabs/leviathan/pkg/gamestate"
	"github.com/leviathanlabs/leviathan/pkg/overlay"
	"github.com/leviathanlabs/leviathan/pkg/stt"
	"github.com/leviathanlabs/leviathan/pkg/tts"
)

// ErrBusy is returned when a voice trigger arrives while a turn is in
// flight. The trigger is dropped, not queued.
var ErrBusy = errors.New("leviathan: turn in flight, trigger dropped")

// triggerQueueSize bounds pending gamestate announcements. A full queue
// drops the oldest news, which is stale by definition.
const triggerQueueSize = 64

type triggerKind int

const (
	triggerPushToTalk triggerKind = iota
	triggerDirectText
	triggerGamestate
)

// trigger is one unit of work for the run loop. The loop is the only
// place the turn permit is taken, so a queued trigger can never starve
// whatever sits ahead of it in the channel.
type trigger struct {
	kind triggerKind
	text string // directText request
	line string // gamestate announce line
	key  string // gamestate dedup key, for logging
}

// OrchestratorConfig holds the pipeline's wiring. Recorder and
// Transcriber may be nil when only direct-text turns are used;
// Synthesizer and Speaker may be nil to run overlay-only.
type OrchestratorConfig struct {
	Config      Config
	Store       *overlay.Store
	Recorder    stt.Recorder
	Transcriber stt.Transcriber
	Brain       brain.Provider
	Synthesizer tts.Provider
	Speaker     tts.Speaker
	Context     ContextProvider
}

// Orchestrator runs voice turns one at a time. Triggers arrive on a
// buffered channel consumed by a single run loop; there is no callback
// re-entrancy and exactly one playback per turn.
type Orchestrator struct {
	cfg      Config
	store    *overlay.Store
	recorder stt.Recorder
	stt      stt.Transcriber
	brain    brain.Provider
	synth    tts.Provider
	speaker  tts.Speaker
	extra    ContextProvider

	persona  *brain.Persona
	sem      *semaphore.Weighted
	triggers chan trigger
	logger   *slog.Logger

	// inFlight is set while a turn runs; voicePending is set while a
	// voice trigger is queued or running. Together they back the voice
	// drop policy without holding the turn permit across the queue.
	inFlight     atomic.Bool
	voicePending atomic.Bool

	// OnTurnEnd fires after each completed turn with the turn ID.
	// Used by the one-shot --say path and by tests.
	OnTurnEnd func(id string)
}

// NewOrchestrator creates the pipeline. The store and brain are
// required; everything else degrades gracefully when absent.
func NewOrchestrator(oc OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		cfg:      oc.Config,
		store:    oc.Store,
		recorder: oc.Recorder,
		stt:      oc.Transcriber,
		brain:    oc.Brain,
		synth:    oc.Synthesizer,
		speaker:  oc.Speaker,
		extra:    oc.Context,
		persona:  brain.NewPersona(),
		sem:      semaphore.NewWeighted(1),
		triggers: make(chan trigger, triggerQueueSize),
		logger:   slog.Default().With("component", "pipeline"),
	}
}

// PushToTalk requests one capture-transcribe-reply-speak turn. Returns
// ErrBusy when a turn is already in flight.
func (o *Orchestrator) PushToTalk() error {
	return o.submitVoice(trigger{kind: triggerPushToTalk})
}

// Say requests one direct-text turn, skipping capture and
// transcription. Returns ErrBusy when a turn is already in flight.
func (o *Orchestrator) Say(text string) error {
	return o.submitVoice(trigger{kind: triggerDirectText, text: text})
}

// SubmitGamestate queues an announcement turn. Matches
// gamestate.SubmitFunc so it wires straight into the watcher. Gamestate
// triggers queue rather than drop so log-order announcements survive a
// turn in flight.
func (o *Orchestrator) SubmitGamestate(ev gamestate.Event, line string) {
	select {
	case o.triggers <- trigger{kind: triggerGamestate, line: line, key: ev.Key()}:
	default:
		o.logger.Warn("announcement queue full, dropping event", "key", ev.Key())
	}
}

// submitVoice enforces the drop policy: a voice trigger is rejected
// while a turn is running or another voice trigger is already waiting.
// The permit itself is only ever taken by the run loop, so a waiting
// voice trigger cannot stall announcements queued ahead of it.
func (o *Orchestrator) submitVoice(tr trigger) error {
	if o.inFlight.Load() || !o.voicePending.CompareAndSwap(false, true) {
		o.logger.Warn("turn in flight, trigger dropped", "kind", tr.kind)
		return ErrBusy
	}

	select {
	case o.triggers <- tr:
		return nil
	default:
		o.voicePending.Store(false)
		o.logger.Warn("trigger queue full, trigger dropped", "kind", tr.kind)
		return ErrBusy
	}
}

// Run consumes triggers until the context is cancelled. It is the sole
// acquirer of the turn permit.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("pipeline started", "brain", o.brain.Name())
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("pipeline stopped")
			return
		case tr := <-o.triggers:
			if err := o.sem.Acquire(ctx, 1); err != nil {
				return
			}
			o.inFlight.Store(true)
			o.runTurn(ctx, tr)
			o.inFlight.Store(false)
			o.sem.Release(1)
			if tr.kind != triggerGamestate {
				o.voicePending.Store(false)
			}
		}
	}
}

// runTurn executes one turn end to end. The overlay always returns to
// idle, whatever fails along the way.
func (o *Orchestrator) runTurn(ctx context.Context, tr trigger) {
	id := uuid.NewString()[:8]
	logger := o.logger.With("turn", id)

	defer func() {
		if o.OnTurnEnd != nil {
			o.OnTurnEnd(id)
		}
	}()

	switch tr.kind {
	case triggerGamestate:
		logger.Info("announcement turn", "key", tr.key)
		o.speakReply(ctx, logger, tr.line)

	case triggerDirectText:
		logger.Info("direct text turn")
		o.store.SetThink("...")
		reply := o.reply(ctx, logger, tr.text)
		o.speakReply(ctx, logger, reply)

	case triggerPushToTalk:
		logger.Info("push-to-talk turn")
		text, ok := o.listen(ctx, logger)
		if !ok {
			return
		}
		reply := o.reply(ctx, logger, text)
		o.speakReply(ctx, logger, reply)
	}
}

// listen captures and transcribes one clip. A false return means the
// turn is over and the overlay is back to idle.
func (o *Orchestrator) listen(ctx context.Context, logger *slog.Logger) (string, bool) {
	if o.recorder == nil || o.stt == nil {
		logger.Error("push-to-talk requires a recorder and a transcriber")
		return "", false
	}

	captureCtx, cancel := context.WithTimeout(ctx, o.cfg.CaptureTimeout)
	audio, err := o.recorder.Record(captureCtx)
	cancel()
	if err != nil {
		logger.Error("capture failed", "error", err)
		return "", false
	}
	if len(audio) == 0 {
		logger.Info("heard nothing")
		return "", false
	}

	o.store.SetThink("...")

	sttCtx, cancel := context.WithTimeout(ctx, o.cfg.STTTimeout)
	text, err := o.stt.Transcribe(sttCtx, audio)
	cancel()
	if err != nil {
		logger.Error("transcription failed", "error", err)
		o.store.Clear()
		return "", false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		logger.Info("heard nothing recognizable")
		o.store.Clear()
		return "", false
	}

	logger.Info("operator said", "text", text)
	return text, true
}

// reply asks the brain for a line, falling back to the deterministic
// persona so a turn always has something to say.
func (o *Orchestrator) reply(ctx context.Context, logger *slog.Logger, text string) string {
	extra := o.cfg.ExtraContext
	if o.extra != nil && o.cfg.IncludeContext {
		if injected := o.extra.Context(ctx); injected != "" {
			if extra != "" {
				extra += "\n"
			}
			extra += injected
		}
	}

	brainCtx, cancel := context.WithTimeout(ctx, o.cfg.BrainTimeout)
	defer cancel()

	line, err := o.brain.Reply(brainCtx, text, extra)
	if err != nil {
		logger.Warn("brain failed, using persona", "error", err)
		return o.persona.Line(text, extra)
	}
	logger.Info("reply ready", "backend", o.brain.Name(), "chars", len(line))
	return line
}

// speakReply shows the line on the overlay, plays it once, lingers,
// then clears. Synthesis or playback failure leaves the line visible
// for the linger window so the stream still shows the reply.
func (o *Orchestrator) speakReply(ctx context.Context, logger *slog.Logger, line string) {
	o.show(line)
	defer func() {
		o.linger(ctx)
		o.store.Clear()
	}()

	if o.synth == nil || o.speaker == nil {
		logger.Info("synthesis disabled, reply shown on overlay only")
		return
	}

	ttsCtx, cancel := context.WithTimeout(ctx, o.cfg.TTSTimeout)
	result, err := o.synthesize(ttsCtx, line)
	cancel()
	if err != nil {
		logger.Error("synthesis failed", "error", err)
		return
	}

	playCtx, cancel := context.WithTimeout(ctx, o.cfg.PlaybackTimeout)
	err = o.speaker.Play(playCtx, result)
	cancel()
	if err != nil {
		logger.Warn("playback failed", "error", err)
		if path, aerr := tts.WriteArtifact(result); aerr == nil {
			logger.Warn("saved unplayed audio", "path", path)
		}
		return
	}

	logger.Info("turn complete", "chars", len(line))
}

// synthesize produces the full clip, using the streaming endpoint when
// configured so the latency-optimized path gets exercised.
func (o *Orchestrator) synthesize(ctx context.Context, line string) (*tts.AudioResult, error) {
	if !o.cfg.Stream {
		return o.synth.Synthesize(ctx, line)
	}

	stream, err := o.synth.Stream(ctx, line)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var audio []byte
	for {
		chunk, err := stream.Read()
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			break
		}
		audio = append(audio, chunk...)
	}
	return &tts.AudioResult{
		Audio:     audio,
		Format:    stream.Format(),
		CharCount: len(line),
	}, nil
}

// show renders the reply in the configured bubble style.
func (o *Orchestrator) show(line string) {
	if overlay.Mode(o.cfg.OverlayMode) == overlay.ModeThink {
		o.store.SetThink(line)
		return
	}
	o.store.SetSpeak(line)
}

// linger keeps the bubble visible briefly after playback.
func (o *Orchestrator) linger(ctx context.Context) {
	if o.cfg.LingerDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(o.cfg.LingerDelay):
	}
}
