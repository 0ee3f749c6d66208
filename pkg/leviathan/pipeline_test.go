package leviathan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leviathanlabs/leviathan/pkg/brain"
	"github.com/leviathanlabs/leviathan/pkg/gamestate"
	"github.com/leviathanlabs/leviathan/pkg/leviathan"
	"github.com/leviathanlabs/leviathan/pkg/overlay"
	"github.com/leviathanlabs/leviathan/pkg/stt"
	"github.com/leviathanlabs/leviathan/pkg/tts"
)

// stateLog records overlay snapshots in order.
type stateLog struct {
	mu     sync.Mutex
	states []overlay.State
}

func (l *stateLog) record(st overlay.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, st)
}

func (l *stateLog) snapshot() []overlay.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]overlay.State, len(l.states))
	copy(out, l.states)
	return out
}

// fixture wires an orchestrator from mocks and runs it until cleanup.
type fixture struct {
	orch    *leviathan.Orchestrator
	store   *overlay.Store
	states  *stateLog
	brain   *brain.Mock
	speaker *tts.MockSpeaker
	done    chan string
}

func newFixture(t *testing.T, oc leviathan.OrchestratorConfig) *fixture {
	t.Helper()

	cfg := leviathan.DefaultConfig()
	cfg.LingerDelay = 0
	oc.Config = cfg

	f := &fixture{
		states:  &stateLog{},
		done:    make(chan string, 8),
		speaker: &tts.MockSpeaker{},
	}

	if oc.Store == nil {
		oc.Store = overlay.NewStore(0)
	}
	f.store = oc.Store
	f.store.OnChange(f.states.record)

	if oc.Brain == nil {
		oc.Brain = brain.NewMock()
	}
	if mb, ok := oc.Brain.(*brain.Mock); ok {
		f.brain = mb
	}

	if oc.Speaker == nil {
		oc.Speaker = f.speaker
	} else if ms, ok := oc.Speaker.(*tts.MockSpeaker); ok {
		f.speaker = ms
	}
	if oc.Synthesizer == nil {
		oc.Synthesizer = tts.NewMock()
	}

	f.orch = leviathan.NewOrchestrator(oc)
	f.orch.OnTurnEnd = func(id string) { f.done <- id }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go f.orch.Run(ctx)

	return f
}

func (f *fixture) waitTurn(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not complete")
	}
}

func TestDirectTextTurn(t *testing.T) {
	f := newFixture(t, leviathan.OrchestratorConfig{})

	if err := f.orch.Say("ship it"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.waitTurn(t)

	if got := f.speaker.PlayCount(); got != 1 {
		t.Errorf("expected exactly one playback, got %d", got)
	}

	states := f.states.snapshot()
	var sawThink, sawSpeak bool
	for _, st := range states {
		if st.Mode == overlay.ModeThink && st.Visible {
			sawThink = true
		}
		if st.Mode == overlay.ModeSpeak && st.Visible && st.Text == "echo: ship it" {
			sawSpeak = true
		}
	}
	if !sawThink || !sawSpeak {
		t.Errorf("expected think then speak states, got %+v", states)
	}

	final := f.store.Snapshot()
	if final.Visible || final.Text != "" {
		t.Errorf("expected idle overlay after turn, got %+v", final)
	}
}

func TestSingleFlightDropsSecondTrigger(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	speaker := &tts.MockSpeaker{
		PlayFunc: func(ctx context.Context, result *tts.AudioResult) error {
			started <- struct{}{}
			<-release
			return nil
		},
	}
	f := newFixture(t, leviathan.OrchestratorConfig{Speaker: speaker})

	if err := f.orch.Say("first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	if err := f.orch.Say("second"); !errors.Is(err, leviathan.ErrBusy) {
		t.Errorf("expected ErrBusy for trigger during turn, got %v", err)
	}
	if err := f.orch.PushToTalk(); !errors.Is(err, leviathan.ErrBusy) {
		t.Errorf("expected ErrBusy for push-to-talk during turn, got %v", err)
	}

	close(release)
	f.waitTurn(t)

	if got := f.speaker.PlayCount(); got != 1 {
		t.Errorf("expected one playback, got %d", got)
	}
}

func TestQueuedAnnouncementThenVoiceTrigger(t *testing.T) {
	// Both triggers enter the queue before the run loop starts: the
	// announcement first, then a voice turn while nothing is in flight.
	// The loop must drain both in order instead of stalling.
	cfg := leviathan.DefaultConfig()
	cfg.LingerDelay = 0
	speaker := &tts.MockSpeaker{}
	orch := leviathan.NewOrchestrator(leviathan.OrchestratorConfig{
		Config:      cfg,
		Store:       overlay.NewStore(0),
		Brain:       brain.NewMock(),
		Synthesizer: tts.NewMock(),
		Speaker:     speaker,
	})
	done := make(chan string, 2)
	orch.OnTurnEnd = func(id string) { done <- id }

	ev, err := gamestate.ParseEvent([]byte(`{"event_id":"kill_7","event":"elimination","who":"PlayerX"}`))
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	orch.SubmitGamestate(ev, ev.AnnounceLine())
	if err := orch.Say("hello chat"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go orch.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("pipeline stalled after %d of 2 queued turns", i)
		}
	}
	if got := speaker.PlayCount(); got != 2 {
		t.Errorf("expected both turns to play, got %d", got)
	}
}

func TestTranscriptionFailureRestoresIdle(t *testing.T) {
	f := newFixture(t, leviathan.OrchestratorConfig{
		Recorder:    &stt.MockRecorder{Audio: []byte("wav")},
		Transcriber: stt.MockWithError(errors.New("whisper broke")),
	})

	if err := f.orch.PushToTalk(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.waitTurn(t)

	if f.brain.CallCount("Reply") != 0 {
		t.Error("expected brain untouched after transcription failure")
	}
	if f.speaker.PlayCount() != 0 {
		t.Error("expected no playback after transcription failure")
	}
	final := f.store.Snapshot()
	if final.Visible {
		t.Errorf("expected idle overlay, got %+v", final)
	}
}

func TestEmptyTranscriptEndsTurn(t *testing.T) {
	f := newFixture(t, leviathan.OrchestratorConfig{
		Recorder:    &stt.MockRecorder{Audio: []byte("wav")},
		Transcriber: stt.NewMock("   "),
	})

	if err := f.orch.PushToTalk(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.waitTurn(t)

	if f.brain.CallCount("Reply") != 0 {
		t.Error("expected brain untouched for empty transcript")
	}
	if !isIdle(f.store.Snapshot()) {
		t.Errorf("expected idle overlay, got %+v", f.store.Snapshot())
	}
}

func TestGamestateTurnBypassesBrain(t *testing.T) {
	f := newFixture(t, leviathan.OrchestratorConfig{})

	ev, err := gamestate.ParseEvent([]byte(`{"event_id":"m1","event":"match_end","winner":{"name":"Ada","reason":"clean sweep"}}`))
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}

	f.orch.SubmitGamestate(ev, ev.AnnounceLine())
	f.waitTurn(t)

	if f.brain.CallCount("Reply") != 0 {
		t.Error("expected announcement to bypass the brain")
	}
	if f.speaker.PlayCount() != 1 {
		t.Errorf("expected one playback, got %d", f.speaker.PlayCount())
	}

	var spoke bool
	for _, st := range f.states.snapshot() {
		if st.Visible && st.Text == ev.AnnounceLine() {
			spoke = true
		}
	}
	if !spoke {
		t.Error("expected the announce line on the overlay")
	}
}

func TestBrainFailureFallsBackToPersona(t *testing.T) {
	f := newFixture(t, leviathan.OrchestratorConfig{
		Brain: brain.MockWithError(errors.New("ollama down")),
	})

	if err := f.orch.Say("roast my deploy"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.waitTurn(t)

	want := brain.NewPersona().Line("roast my deploy", "")
	var spoke bool
	for _, st := range f.states.snapshot() {
		if st.Visible && st.Text == want {
			spoke = true
		}
	}
	if !spoke {
		t.Errorf("expected persona fallback line %q on the overlay", want)
	}
	if f.speaker.PlayCount() != 1 {
		t.Errorf("expected one playback, got %d", f.speaker.PlayCount())
	}
}

func TestPlaybackFailureKeepsReplyVisible(t *testing.T) {
	var visibleAtFailure bool
	var f *fixture
	speaker := &tts.MockSpeaker{
		PlayFunc: func(ctx context.Context, result *tts.AudioResult) error {
			visibleAtFailure = f.store.Snapshot().Visible
			return errors.New("ffplay missing")
		},
	}
	f = newFixture(t, leviathan.OrchestratorConfig{Speaker: speaker})

	if err := f.orch.Say("hello chat"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.waitTurn(t)

	if !visibleAtFailure {
		t.Error("expected reply visible while playback was attempted")
	}
	if f.store.Snapshot().Visible {
		t.Error("expected idle overlay after the turn")
	}
}

func isIdle(st overlay.State) bool {
	return !st.Visible && st.Text == ""
}
