package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	t.Run("loads values without overriding existing env", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".env")
		content := "# comment\nFOO_TEST_KEY=from-file\nBAR_TEST_KEY=\"quoted\"\n\nnot a pair\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		t.Setenv("FOO_TEST_KEY", "from-env")
		os.Unsetenv("BAR_TEST_KEY")
		defer os.Unsetenv("BAR_TEST_KEY")

		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("FOO_TEST_KEY"); got != "from-env" {
			t.Errorf("expected existing env to win, got %q", got)
		}
		if got := os.Getenv("BAR_TEST_KEY"); got != "quoted" {
			t.Errorf("expected quoted value, got %q", got)
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestGetenvHelpers(t *testing.T) {
	t.Run("Getenv fallback", func(t *testing.T) {
		os.Unsetenv("LEV_TEST_STR")
		if got := Getenv("LEV_TEST_STR", "dflt"); got != "dflt" {
			t.Errorf("expected fallback, got %q", got)
		}
		t.Setenv("LEV_TEST_STR", "set")
		if got := Getenv("LEV_TEST_STR", "dflt"); got != "set" {
			t.Errorf("expected set value, got %q", got)
		}
	})

	t.Run("GetenvFloat parses and falls back", func(t *testing.T) {
		t.Setenv("LEV_TEST_FLOAT", "0.35")
		if got := GetenvFloat("LEV_TEST_FLOAT", 1.0); got != 0.35 {
			t.Errorf("expected 0.35, got %f", got)
		}
		t.Setenv("LEV_TEST_FLOAT", "not-a-float")
		if got := GetenvFloat("LEV_TEST_FLOAT", 1.0); got != 1.0 {
			t.Errorf("expected fallback, got %f", got)
		}
	})

	t.Run("GetenvInt parses and falls back", func(t *testing.T) {
		t.Setenv("LEV_TEST_INT", "42")
		if got := GetenvInt("LEV_TEST_INT", 7); got != 42 {
			t.Errorf("expected 42, got %d", got)
		}
		t.Setenv("LEV_TEST_INT", "nope")
		if got := GetenvInt("LEV_TEST_INT", 7); got != 7 {
			t.Errorf("expected fallback, got %d", got)
		}
	})
}
