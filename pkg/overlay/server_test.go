package overlay_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leviathanlabs/leviathan/pkg/gamestate"
	"github.com/leviathanlabs/leviathan/pkg/overlay"
)

func newTestServer(t *testing.T) (*overlay.Server, *overlay.Store, *gamestate.Log) {
	t.Helper()
	store := overlay.NewStore(30)
	events, err := gamestate.OpenLog(filepath.Join(t.TempDir(), "gamestate.log"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	srv := overlay.NewServer(overlay.ServerConfig{
		Host:   "127.0.0.1",
		Port:   5005,
		Store:  store,
		Events: events,
	})
	return srv, store, events
}

func TestStateEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)

	t.Run("returns the current document", func(t *testing.T) {
		store.SetSpeak("hello chat")

		req := httptest.NewRequest(http.MethodGet, "/state", nil)
		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var st overlay.State
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if st.Text != "hello chat" || st.Mode != overlay.ModeSpeak || !st.Visible {
			t.Errorf("unexpected state: %+v", st)
		}
	})

	t.Run("reads succeed while a writer is mid-turn", func(t *testing.T) {
		// A voice turn holds no store lock between stage transitions,
		// so a read between think and speak must still return 200.
		store.SetThink("...")

		req := httptest.NewRequest(http.MethodGet, "/state", nil)
		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})
}

func TestIngestEndpoint(t *testing.T) {
	t.Run("accepts a valid event with 202", func(t *testing.T) {
		srv, _, events := newTestServer(t)

		body := `{"event_id":"kill_42","event":"elimination","who":"PlayerX"}`
		req := httptest.NewRequest(http.MethodPost, "/gamestate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusAccepted {
			raw, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected 202, got %d: %s", resp.StatusCode, raw)
		}

		appended, _, _ := events.ReadFrom(0)
		if len(appended) != 1 || appended[0].EventID != "kill_42" {
			t.Errorf("expected one appended event, got %v", appended)
		}
	})

	t.Run("rejects malformed JSON with 400 and unchanged log", func(t *testing.T) {
		srv, _, events := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/gamestate", strings.NewReader(`{broken`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
		if size, _ := events.Size(); size != 0 {
			t.Errorf("expected empty log, got %d bytes", size)
		}
	})

	t.Run("arbitrary extra fields are accepted", func(t *testing.T) {
		srv, _, _ := newTestServer(t)

		body := `{"event":"round_start","map":"vertigo","players":10}`
		req := httptest.NewRequest(http.MethodPost, "/gamestate", strings.NewReader(body))
		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Errorf("expected 202, got %d", resp.StatusCode)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
