package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarshalJSON(t *testing.T) {
	v := map[string]any{"name": "Beyoncé & <Jay-Z>", "n": 1}

	t.Run("Compact", func(t *testing.T) {
		got, err := MarshalJSON(v, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"n":1,"name":"Beyoncé & <Jay-Z>"}`
		if string(got) != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("Pretty", func(t *testing.T) {
		got, err := MarshalJSON(v, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(got), "\n  \"name\": \"Beyoncé & <Jay-Z>\"") {
			t.Errorf("expected two-space indent and literal characters, got %s", got)
		}
		if bytes.HasSuffix(got, []byte("\n")) {
			t.Error("trailing newline should be trimmed")
		}
	})
}

func TestJoinArtists(t *testing.T) {
	tc := []struct {
		name    string
		artists []string
		sep     string
		want    string
	}{
		{"single", []string{"Daft Punk"}, ", ", "Daft Punk"},
		{"multiple", []string{"Simon", "Garfunkel"}, " ", "Simon Garfunkel"},
		{"skips blanks", []string{" A ", "", "  ", "B"}, ", ", "A, B"},
		{"empty", nil, ", ", ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinArtists(tt.artists, tt.sep); got != tt.want {
				t.Errorf("JoinArtists() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoggers(t *testing.T) {
	t.Run("NewLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "test")
		logger.Info("hello", "k", "v")
		out := buf.String()
		if !strings.Contains(out, "hello") || !strings.Contains(out, "component=test") {
			t.Errorf("unexpected log output %q", out)
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "spotfetch.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Info("written")

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(content), "written") {
			t.Errorf("expected log line in file, got %q", content)
		}
	})

	t.Run("GenerateID", func(t *testing.T) {
		a, b := GenerateID(), GenerateID()
		if a == b || len(a) != 36 {
			t.Errorf("unexpected ids %s %s", a, b)
		}
	})
}
