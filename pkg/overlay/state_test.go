package overlay_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leviathanlabs/leviathan/pkg/overlay"
)

func TestStore(t *testing.T) {
	t.Run("starts idle", func(t *testing.T) {
		store := overlay.NewStore(0)
		st := store.Snapshot()
		if st.Visible {
			t.Error("expected hidden state")
		}
		if st.Text != "" {
			t.Errorf("expected empty text, got %q", st.Text)
		}
		if st.FontSize != overlay.DefaultFontSize {
			t.Errorf("expected default font size, got %d", st.FontSize)
		}
	})

	t.Run("think then speak then clear", func(t *testing.T) {
		store := overlay.NewStore(30)

		store.SetThink("...")
		st := store.Snapshot()
		if st.Mode != overlay.ModeThink || !st.Visible || st.Text != "..." {
			t.Errorf("unexpected think state: %+v", st)
		}

		store.SetSpeak("We are Code Leviathan.")
		st = store.Snapshot()
		if st.Mode != overlay.ModeSpeak || !st.Visible {
			t.Errorf("unexpected speak state: %+v", st)
		}
		if st.Text != "We are Code Leviathan." {
			t.Errorf("unexpected text: %q", st.Text)
		}

		store.Clear()
		st = store.Snapshot()
		if st.Visible || st.Text != "" {
			t.Errorf("expected idle state, got %+v", st)
		}
	})

	t.Run("mode is always a known value", func(t *testing.T) {
		store := overlay.NewStore(30)
		store.Update(func(st *overlay.State) {
			st.Mode = overlay.Mode("sing")
		})
		if got := store.Snapshot().Mode; got != overlay.ModeSpeak {
			t.Errorf("expected unknown mode coerced to speak, got %q", got)
		}
	})

	t.Run("updates stamp UpdatedAt", func(t *testing.T) {
		store := overlay.NewStore(30)
		before := store.Snapshot().UpdatedAt
		store.SetSpeak("hello")
		if !store.Snapshot().UpdatedAt.After(before) {
			t.Error("expected UpdatedAt to advance")
		}
	})

	t.Run("change callback sees each snapshot", func(t *testing.T) {
		store := overlay.NewStore(30)
		var mu sync.Mutex
		var seen []overlay.State
		store.OnChange(func(st overlay.State) {
			mu.Lock()
			seen = append(seen, st)
			mu.Unlock()
		})

		store.SetThink("...")
		store.SetSpeak("reply")
		store.Clear()

		mu.Lock()
		defer mu.Unlock()
		if len(seen) != 3 {
			t.Fatalf("expected 3 notifications, got %d", len(seen))
		}
		if seen[0].Mode != overlay.ModeThink || seen[1].Text != "reply" || seen[2].Visible {
			t.Errorf("unexpected notification sequence: %+v", seen)
		}
	})

	t.Run("file mirror writes the document", func(t *testing.T) {
		store := overlay.NewStore(30)
		path := filepath.Join(t.TempDir(), "overlay", "state.json")
		store.MirrorToFile(path)

		store.SetSpeak("mirrored")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read mirror: %v", err)
		}
		var st overlay.State
		if err := json.Unmarshal(data, &st); err != nil {
			t.Fatalf("unmarshal mirror: %v", err)
		}
		if st.Text != "mirrored" || !st.Visible {
			t.Errorf("unexpected mirrored state: %+v", st)
		}
	})
}
