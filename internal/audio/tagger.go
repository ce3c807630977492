// package audio writes catalog metadata into downloaded MP3 files
package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfetch/internal/formatter"
	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
)

// ImageFetcher downloads cover art and returns its bytes and MIME type.
type ImageFetcher func(ctx context.Context, url string) ([]byte, string, error)

// Tags is the subset of ID3 frames written by [Tagger].
type Tags struct {
	Title    string
	Artist   string
	Album    string
	HasCover bool
}

// Tagger writes ID3v2.4 title, artist, album and front cover frames.
type Tagger struct {
	fetch  ImageFetcher
	logger *log.Logger
}

// NewTagger creates a Tagger that fetches cover art with client. A nil client uses a 30s timeout.
func NewTagger(client *http.Client, logger *log.Logger) *Tagger {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Tagger{
		fetch: func(ctx context.Context, url string) ([]byte, string, error) {
			return formatter.FetchImage(ctx, client, url)
		},
		logger: logger,
	}
}

// Tag writes track's metadata into the MP3 at path, replacing existing frames.
//
// A failed cover download is logged and the text frames are still written.
func (t *Tagger) Tag(ctx context.Context, path string, track models.TrackDescriptor) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrTagging, path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(track.Name)
	tag.SetArtist(shared.JoinArtists(track.Artists, ", "))
	if track.Album != "" {
		tag.SetAlbum(track.Album)
	}

	if track.AlbumImage != "" {
		data, mime, err := t.fetch(ctx, track.AlbumImage)
		if err != nil {
			t.logger.Warn("failed to fetch cover art", "url", track.AlbumImage, "error", err)
		} else {
			tag.DeleteFrames(tag.CommonID("Attached picture"))
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    mime,
				PictureType: id3v2.PTFrontCover,
				Description: "Front cover",
				Picture:     data,
			})
		}
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrTagging, path, err)
	}

	t.logger.Debug("tagged file", "path", path, "title", track.Name)
	return nil
}

// ReadTags reads the frames written by [Tagger.Tag].
func ReadTags(path string) (*Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}
	defer tag.Close()

	return &Tags{
		Title:    tag.Title(),
		Artist:   tag.Artist(),
		Album:    tag.Album(),
		HasCover: len(tag.GetFrames(tag.CommonID("Attached picture"))) > 0,
	}, nil
}
