package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestResolutionResult(t *testing.T) {
	t.Run("Succeeded", func(t *testing.T) {
		r := Succeeded(Location{Kind: RemoteURL, Value: "https://example.com/a"})
		if !r.OK() || r.Reason != "" {
			t.Errorf("expected success without reason, got %+v", r)
		}
		if r.Location.Kind.String() != "remote_url" {
			t.Errorf("unexpected kind %s", r.Location.Kind)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := json.Marshal(Succeeded(Location{Kind: RemoteURL, Value: "u"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"location":{"kind":"remote_url","value":"u"}}` {
			t.Errorf("unexpected JSON %s", data)
		}
	})

	t.Run("Failed", func(t *testing.T) {
		r := Failed("")
		if r.OK() || r.Location != nil {
			t.Errorf("expected failure without location, got %+v", r)
		}
		if r.Reason != "unknown error" {
			t.Errorf("unexpected reason %q", r.Reason)
		}
	})
}

func TestNewLedgerEntry(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)

	t.Run("Optional Fields", func(t *testing.T) {
		entry := NewLedgerEntry(TrackDescriptor{Name: "X", Artists: []string{"Y"}}, "/d/X.mp3", at)
		if entry.Album != nil || entry.AlbumImage != nil {
			t.Error("absent album data should stay nil")
		}
		if entry.DownloadedAt != "2024-03-09 07:05:01" {
			t.Errorf("unexpected timestamp %q", entry.DownloadedAt)
		}
	})

	t.Run("Copies Artists", func(t *testing.T) {
		artists := []string{"A"}
		entry := NewLedgerEntry(TrackDescriptor{Name: "X", Artists: artists, Album: "LP"}, "/d/X.mp3", at)
		artists[0] = "changed"
		if entry.Artists[0] != "A" {
			t.Error("entry should not alias the descriptor's artists")
		}
		if entry.Album == nil || *entry.Album != "LP" {
			t.Errorf("expected album LP, got %v", entry.Album)
		}
	})
}

func TestLedgerEntryMatches(t *testing.T) {
	entry := LedgerEntry{Name: "Song", Artists: []string{"A", "B"}}

	tests := []struct {
		name  string
		track TrackDescriptor
		want  bool
	}{
		{"exact", TrackDescriptor{Name: "Song", Artists: []string{"A", "B"}}, true},
		{"case and space", TrackDescriptor{Name: " song ", Artists: []string{"a", "b "}}, true},
		{"artist order", TrackDescriptor{Name: "Song", Artists: []string{"B", "A"}}, false},
		{"missing artist", TrackDescriptor{Name: "Song", Artists: []string{"A"}}, false},
		{"other name", TrackDescriptor{Name: "Other", Artists: []string{"A", "B"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.Matches(tt.track); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrackDescriptor(t *testing.T) {
	track := TrackDescriptor{Name: "Song", Artists: []string{"A", "B"}, DurationMS: 1500}
	if track.String() != "A, B - Song" {
		t.Errorf("unexpected string %q", track.String())
	}
	if track.Duration() != 1500*time.Millisecond {
		t.Errorf("unexpected duration %v", track.Duration())
	}

	p := NewPersistedTrack(TrackDescriptor{Name: "Song"})
	if err := p.Validate(); err == nil {
		t.Error("expected validation error without spotify id")
	}
}

func TestDetails(t *testing.T) {
	t.Run("Spotify URL", func(t *testing.T) {
		var none *TrackDetails
		if none.SpotifyURL() != "" {
			t.Error("nil details should have no link")
		}
		d := &CollectionDetails{ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/album/x"}}
		if d.SpotifyURL() != "https://open.spotify.com/album/x" {
			t.Errorf("unexpected link %q", d.SpotifyURL())
		}
	})

	t.Run("Omitted When Absent", func(t *testing.T) {
		data, err := json.Marshal(TrackDescriptor{Name: "Song", Artists: []string{"A"}})
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != `{"name":"Song","artists":["A"]}` {
			t.Errorf("unexpected JSON %s", data)
		}
	})
}
