package audio

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
	th "github.com/desertthunder/spotfetch/internal/testing"
)

func writeMP3(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Thunderstruck - AC_DC.mp3")
	th.MustWriteFile(t, path, "\xff\xfb\x90\x00audio frames")
	return path
}

func TestTagger(t *testing.T) {
	track := models.TrackDescriptor{
		Name:    "Thunderstruck",
		Artists: []string{"AC/DC", "Guest"},
		Album:   "The Razors Edge",
	}

	t.Run("Writes Text Frames", func(t *testing.T) {
		path := writeMP3(t)
		if err := NewTagger(nil, nil).Tag(context.Background(), path, track); err != nil {
			t.Fatalf("Tag failed: %v", err)
		}

		tags, err := ReadTags(path)
		if err != nil {
			t.Fatalf("ReadTags failed: %v", err)
		}
		if tags.Title != "Thunderstruck" || tags.Artist != "AC/DC, Guest" || tags.Album != "The Razors Edge" {
			t.Errorf("unexpected tags %+v", tags)
		}
		if tags.HasCover {
			t.Error("expected no cover without album image")
		}
	})

	t.Run("Embeds Cover", func(t *testing.T) {
		srv := th.NewImageServer(t, http.StatusOK, "image/jpeg", []byte("\xff\xd8\xffcover"))
		path := writeMP3(t)

		withCover := track
		withCover.AlbumImage = srv.URL + "/cover.jpg"
		if err := NewTagger(srv.Client(), nil).Tag(context.Background(), path, withCover); err != nil {
			t.Fatalf("Tag failed: %v", err)
		}

		tags, _ := ReadTags(path)
		if !tags.HasCover {
			t.Error("expected embedded cover")
		}
	})

	t.Run("Cover Failure Still Tags", func(t *testing.T) {
		path := writeMP3(t)
		tagger := NewTagger(nil, nil)
		tagger.fetch = func(ctx context.Context, url string) ([]byte, string, error) {
			return nil, "", errors.New("unreachable")
		}

		withCover := track
		withCover.AlbumImage = "http://cdn.invalid/cover.jpg"
		if err := tagger.Tag(context.Background(), path, withCover); err != nil {
			t.Fatalf("Tag failed: %v", err)
		}

		tags, _ := ReadTags(path)
		if tags.Title != "Thunderstruck" || tags.HasCover {
			t.Errorf("unexpected tags %+v", tags)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		err := NewTagger(nil, nil).Tag(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), track)
		if !errors.Is(err, shared.ErrTagging) {
			t.Errorf("expected ErrTagging, got %v", err)
		}
	})
}
