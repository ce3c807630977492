// package services defines interface Catalog for looking up track metadata
//
// Spotify (Web API, client credentials), SQLite cache decorator
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
)

// Catalog looks up track metadata for Spotify IDs.
type Catalog interface {
	// Track retrieves a single track.
	Track(ctx context.Context, id string) (*models.TrackDescriptor, error)

	// Album retrieves an album with all of its tracks in disc order.
	// Every track carries the album name and cover image.
	Album(ctx context.Context, id string) (*models.Collection, error)

	// Playlist retrieves a playlist with all of its track items in playlist order.
	Playlist(ctx context.Context, id string) (*models.Collection, error)

	// Name returns the name of the catalog (e.g., "Spotify")
	Name() string
}

// RefKind is the entity type a [Reference] points at.
type RefKind string

const (
	TrackRef    RefKind = "track"
	AlbumRef    RefKind = "album"
	PlaylistRef RefKind = "playlist"
)

// Reference is a parsed Spotify URL, URI or bare track ID.
type Reference struct {
	Kind RefKind
	ID   string
}

func (r Reference) String() string {
	return string(r.Kind) + " " + r.ID
}

var (
	urlPattern = regexp.MustCompile(`(?:open\.spotify\.com/(?:intl-[a-z-]+/)?)(track|album|playlist)/([A-Za-z0-9]{22})`)
	uriPattern = regexp.MustCompile(`^spotify:(track|album|playlist):([A-Za-z0-9]{22})$`)
	idPattern  = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
)

// ParseReference accepts open.spotify.com URLs, spotify: URIs and bare 22 character track IDs.
func ParseReference(ref string) (Reference, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Reference{}, fmt.Errorf("%w: empty reference", shared.ErrInvalidInput)
	}

	if m := urlPattern.FindStringSubmatch(ref); m != nil {
		return Reference{Kind: RefKind(m[1]), ID: m[2]}, nil
	}
	if m := uriPattern.FindStringSubmatch(ref); m != nil {
		return Reference{Kind: RefKind(m[1]), ID: m[2]}, nil
	}
	if idPattern.MatchString(ref) {
		return Reference{Kind: TrackRef, ID: ref}, nil
	}

	return Reference{}, fmt.Errorf("%w: %s", shared.ErrUnsupportedURL, ref)
}

// Lookup resolves ref to its tracks. The collection is nil for single tracks.
func Lookup(ctx context.Context, catalog Catalog, ref Reference) ([]models.TrackDescriptor, *models.Collection, error) {
	switch ref.Kind {
	case TrackRef:
		track, err := catalog.Track(ctx, ref.ID)
		if err != nil {
			return nil, nil, err
		}
		return []models.TrackDescriptor{*track}, nil, nil
	case AlbumRef:
		album, err := catalog.Album(ctx, ref.ID)
		if err != nil {
			return nil, nil, err
		}
		return album.Tracks, album, nil
	case PlaylistRef:
		playlist, err := catalog.Playlist(ctx, ref.ID)
		if err != nil {
			return nil, nil, err
		}
		return playlist.Tracks, playlist, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", shared.ErrUnsupportedURL, ref.Kind)
	}
}
