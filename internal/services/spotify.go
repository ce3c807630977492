// Spotify Web API implementation of [Catalog]
//
// Uses the client credentials flow, so only public catalog data is available.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyOptions configures a [SpotifyCatalog].
type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	TokenURL     string       // default spotifyauth.TokenURL
	BaseURL      string       // default Web API base, must end in "/"
	HTTPClient   *http.Client // base transport for token and API requests
	Logger       *log.Logger
}

// audioFeaturesBatch is the most IDs the audio-features endpoint accepts per request.
const audioFeaturesBatch = 100

// SpotifyCatalog implements [Catalog] using the Spotify Web API.
//
// Audio features are best effort. Spotify refuses the endpoint for newer applications, so
// after a 401/403 from it the catalog stops asking.
type SpotifyCatalog struct {
	client     *spotify.Client
	logger     *log.Logger
	noFeatures atomic.Bool
}

// NewSpotifyCatalog creates a catalog client. The access token is fetched lazily on the first request.
func NewSpotifyCatalog(ctx context.Context, opts SpotifyOptions) (*SpotifyCatalog, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	config := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     tokenURL,
	}

	var clientOpts []spotify.ClientOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(opts.BaseURL))
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &SpotifyCatalog{client: spotify.New(config.Client(ctx), clientOpts...), logger: logger}, nil
}

func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// Track retrieves a single track by ID.
func (s *SpotifyCatalog) Track(ctx context.Context, id string) (*models.TrackDescriptor, error) {
	full, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, mapError(err, shared.ErrTrackNotFound, id)
	}

	track := fromFullTrack(full)
	s.attachFeatures(ctx, []models.TrackDescriptor{track})
	return &track, nil
}

// Album retrieves an album and pages through all of its tracks.
func (s *SpotifyCatalog) Album(ctx context.Context, id string) (*models.Collection, error) {
	album, err := s.client.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, mapError(err, shared.ErrAlbumNotFound, id)
	}

	c := &models.Collection{
		Kind:  models.AlbumCollection,
		ID:    id,
		Name:  album.Name,
		Image: firstImage(album.Images),
		Details: &models.CollectionDetails{
			Artists:      artistNames(album.Artists),
			ReleaseDate:  album.ReleaseDate,
			TotalTracks:  int(album.Tracks.Total),
			ExternalURLs: album.ExternalURLs,
		},
	}

	page := &album.Tracks
	for {
		for _, t := range page.Tracks {
			c.Tracks = append(c.Tracks, models.TrackDescriptor{
				ID:         string(t.ID),
				Name:       t.Name,
				Artists:    artistNames(t.Artists),
				Album:      c.Name,
				AlbumImage: c.Image,
				DurationMS: int(t.Duration),
				Details: &models.TrackDetails{
					AlbumType:    album.AlbumType,
					ReleaseDate:  album.ReleaseDate,
					TrackNumber:  int(t.TrackNumber),
					Explicit:     t.Explicit,
					PreviewURL:   t.PreviewURL,
					ExternalURLs: t.ExternalURLs,
				},
			})
		}

		err := s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, mapError(err, shared.ErrAlbumNotFound, id)
		}
	}

	s.attachFeatures(ctx, c.Tracks)
	return c, nil
}

// Playlist retrieves a playlist and pages through all of its items, skipping empty slots.
func (s *SpotifyCatalog) Playlist(ctx context.Context, id string) (*models.Collection, error) {
	playlist, err := s.client.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, mapError(err, shared.ErrPlaylistNotFound, id)
	}

	c := &models.Collection{
		Kind:  models.PlaylistCollection,
		ID:    id,
		Name:  playlist.Name,
		Image: firstImage(playlist.Images),
		Details: &models.CollectionDetails{
			Owner:        playlist.Owner.DisplayName,
			Description:  playlist.Description,
			Followers:    int(playlist.Followers.Count),
			TotalTracks:  int(playlist.Tracks.Total),
			ExternalURLs: playlist.ExternalURLs,
		},
	}

	page := &playlist.Tracks
	for {
		for _, item := range page.Tracks {
			if item.Track.ID == "" && item.Track.Name == "" {
				continue
			}
			c.Tracks = append(c.Tracks, fromFullTrack(&item.Track))
		}

		err := s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, mapError(err, shared.ErrPlaylistNotFound, id)
		}
	}

	s.attachFeatures(ctx, c.Tracks)
	return c, nil
}

func fromFullTrack(t *spotify.FullTrack) models.TrackDescriptor {
	return models.TrackDescriptor{
		ID:         string(t.ID),
		Name:       t.Name,
		Artists:    artistNames(t.Artists),
		Album:      t.Album.Name,
		AlbumImage: firstImage(t.Album.Images),
		DurationMS: int(t.Duration),
		Details: &models.TrackDetails{
			AlbumType:    t.Album.AlbumType,
			ReleaseDate:  t.Album.ReleaseDate,
			TrackNumber:  int(t.TrackNumber),
			Popularity:   int(t.Popularity),
			Explicit:     t.Explicit,
			PreviewURL:   t.PreviewURL,
			ExternalURLs: t.ExternalURLs,
		},
	}
}

// attachFeatures fills Details.AudioFeatures in place. Failures are logged and skipped.
func (s *SpotifyCatalog) attachFeatures(ctx context.Context, tracks []models.TrackDescriptor) {
	byID := make(map[spotify.ID][]int, len(tracks))
	ids := make([]spotify.ID, 0, len(tracks))
	for i, t := range tracks {
		if t.ID == "" || t.Details == nil {
			continue
		}
		id := spotify.ID(t.ID)
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = append(byID[id], i)
	}

	for start := 0; start < len(ids) && !s.noFeatures.Load(); start += audioFeaturesBatch {
		batch := ids[start:min(start+audioFeaturesBatch, len(ids))]
		features, err := s.client.GetAudioFeatures(ctx, batch...)
		if err != nil {
			var serr spotify.Error
			if errors.As(err, &serr) && (serr.Status == http.StatusForbidden || serr.Status == http.StatusUnauthorized) {
				s.noFeatures.Store(true)
			}
			s.logger.Debug("audio features unavailable", "error", err)
			return
		}

		for _, f := range features {
			if f == nil {
				continue
			}
			af := &models.AudioFeatures{
				Danceability: float64(f.Danceability),
				Energy:       float64(f.Energy),
				Valence:      float64(f.Valence),
				Tempo:        float64(f.Tempo),
			}
			for _, i := range byID[f.ID] {
				tracks[i].Details.AudioFeatures = af
			}
		}
	}
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}

// firstImage returns the largest image, which Spotify lists first.
func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// mapError translates token and Web API failures into shared sentinel errors.
func mapError(err error, notFound error, id string) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}

	status := 0
	var serr spotify.Error
	if errors.As(err, &serr) {
		status = serr.Status
	}

	switch {
	case status == http.StatusNotFound, status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", notFound, id)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	case status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
}
