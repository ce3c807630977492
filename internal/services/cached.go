package services

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfetch/internal/models"
)

// TrackStore caches single tracks. Implemented by repositories.TrackRepository.
type TrackStore interface {
	GetBySpotifyID(spotifyID string) (*models.PersistedTrack, error)
	Upsert(track models.TrackDescriptor) error
}

// CollectionStore caches albums and playlists. Implemented by repositories.CollectionRepository.
type CollectionStore interface {
	Get(kind models.CollectionKind, spotifyID string) (*models.Collection, error)
	Save(c *models.Collection) error
}

// CachedCatalog decorates a [Catalog] with a SQLite-backed cache.
//
// Tracks and albums are served from the cache once stored. Playlists change over time, so they
// are always fetched and the fresh copy is written back. Cache write failures are logged and ignored.
type CachedCatalog struct {
	inner       Catalog
	tracks      TrackStore
	collections CollectionStore
	logger      *log.Logger
}

// NewCachedCatalog wraps inner. A nil logger discards cache warnings.
func NewCachedCatalog(inner Catalog, tracks TrackStore, collections CollectionStore, logger *log.Logger) *CachedCatalog {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachedCatalog{inner: inner, tracks: tracks, collections: collections, logger: logger}
}

func (c *CachedCatalog) Name() string {
	return c.inner.Name()
}

func (c *CachedCatalog) Track(ctx context.Context, id string) (*models.TrackDescriptor, error) {
	if cached, err := c.tracks.GetBySpotifyID(id); err == nil {
		c.logger.Debug("track cache hit", "id", id)
		track := cached.Track
		return &track, nil
	}

	track, err := c.inner.Track(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.tracks.Upsert(*track); err != nil {
		c.logger.Warn("failed to cache track", "id", id, "error", err)
	}
	return track, nil
}

func (c *CachedCatalog) Album(ctx context.Context, id string) (*models.Collection, error) {
	if cached, err := c.collections.Get(models.AlbumCollection, id); err == nil && len(cached.Tracks) > 0 {
		c.logger.Debug("album cache hit", "id", id)
		return cached, nil
	}

	album, err := c.inner.Album(ctx, id)
	if err != nil {
		return nil, err
	}
	c.save(album)
	return album, nil
}

func (c *CachedCatalog) Playlist(ctx context.Context, id string) (*models.Collection, error) {
	playlist, err := c.inner.Playlist(ctx, id)
	if err != nil {
		return nil, err
	}
	c.save(playlist)
	return playlist, nil
}

func (c *CachedCatalog) save(col *models.Collection) {
	if err := c.collections.Save(col); err != nil {
		c.logger.Warn("failed to cache collection", "kind", col.Kind, "id", col.ID, "error", err)
	}
}
