package resolver

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/desertthunder/spotfetch/internal/models"
)

func TestHeaderRandomizer(t *testing.T) {
	t.Run("Fixed Browser Headers", func(t *testing.T) {
		headers := NewHeaderRandomizer(rand.New(rand.NewPCG(1, 1))).Headers()

		for _, key := range []string{
			"Accept", "Accept-Language", "Accept-Encoding", "DNT", "Connection",
			"Sec-Fetch-Dest", "Sec-Fetch-Mode", "Sec-Fetch-Site", "Sec-Fetch-User", "User-Agent",
		} {
			if headers[key] == "" {
				t.Errorf("missing header %s", key)
			}
		}
		if headers["Accept-Language"] != "en-US,en;q=0.5" {
			t.Errorf("unexpected Accept-Language %q", headers["Accept-Language"])
		}
	})

	t.Run("Deterministic With Seeded Source", func(t *testing.T) {
		a := NewHeaderRandomizer(rand.New(rand.NewPCG(7, 9)))
		b := NewHeaderRandomizer(rand.New(rand.NewPCG(7, 9)))
		for i := 0; i < 10; i++ {
			if a.Headers()["User-Agent"] != b.Headers()["User-Agent"] {
				t.Fatal("same seed should yield the same user agents")
			}
		}
	})

	t.Run("Draws Every Agent", func(t *testing.T) {
		pool := UserAgents()
		if len(pool) < 4 {
			t.Fatalf("expected at least 4 user agents, got %d", len(pool))
		}

		h := NewHeaderRandomizer(rand.New(rand.NewPCG(42, 42)))
		seen := map[string]bool{}
		for i := 0; i < 500; i++ {
			ua := h.Headers()["User-Agent"]
			if !slices.Contains(pool, ua) {
				t.Fatalf("user agent %q is not in the pool", ua)
			}
			seen[ua] = true
		}
		if len(seen) != len(pool) {
			t.Errorf("expected all %d agents to be drawn, saw %d", len(pool), len(seen))
		}
	})

	t.Run("Fresh Map Per Call", func(t *testing.T) {
		h := NewHeaderRandomizer(nil)
		first := h.Headers()
		first["Accept"] = "mutated"
		if h.Headers()["Accept"] == "mutated" {
			t.Error("callers must not be able to mutate the shared header set")
		}
	})
}

func TestQuery(t *testing.T) {
	t.Run("BuildQuery", func(t *testing.T) {
		tests := []struct {
			name    string
			title   string
			artists []string
			want    string
		}{
			{"single artist", "Song", []string{"A"}, "A Song audio"},
			{"multiple artists", "Song", []string{"A", "B"}, "A B Song audio"},
			{"no artists", "Song", nil, " Song audio"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				track := trackOf(tt.title, tt.artists...)
				if got := BuildQuery(track); got != tt.want {
					t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
				}
			})
		}
	})

	t.Run("SafeFilename", func(t *testing.T) {
		got := SafeFilename(trackOf(`AC/DC\Thunder`, "AC/DC", "Other"))
		if got != "AC_DC_Thunder - AC_DC, Other" {
			t.Errorf("unexpected filename %q", got)
		}
		for _, r := range got {
			if r == '/' || r == '\\' {
				t.Fatalf("filename %q contains a path separator", got)
			}
		}
	})

	t.Run("escapeGlob", func(t *testing.T) {
		if got := escapeGlob("a*b?[c]"); got != `a\*b\?\[c\]` {
			t.Errorf("unexpected escape %q", got)
		}
	})
}

func trackOf(name string, artists ...string) models.TrackDescriptor {
	return models.TrackDescriptor{Name: name, Artists: artists}
}
