package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
)

// CollectionSummary is a cached album or playlist without its tracks.
type CollectionSummary struct {
	Kind       models.CollectionKind `json:"kind"`
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	TrackCount int                   `json:"track_count"`
}

// CollectionRepository stores albums and playlists together with their track order.
//
// Tracks are written through to the tracks table so single-track lookups hit the cache too.
type CollectionRepository struct {
	db *sql.DB
}

// NewCollectionRepository creates a new CollectionRepository with the given database connection
func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Save replaces the cached copy of c, including its track list, in a single transaction.
// Tracks without a Spotify ID are not cached.
func (r *CollectionRepository) Save(c *models.Collection) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: collection id is required", shared.ErrInvalidInput)
	}

	details, err := encodeDetails(c.Details)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO collections (id, kind, spotify_id, name, image, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, spotify_id) DO UPDATE SET
			name = excluded.name,
			image = excluded.image,
			details = excluded.details,
			created_at = excluded.created_at
	`, shared.GenerateID(), string(c.Kind), c.ID, c.Name, c.Image, details, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}

	var rowID string
	if err := tx.QueryRow(`SELECT id FROM collections WHERE kind = ? AND spotify_id = ?`, string(c.Kind), c.ID).Scan(&rowID); err != nil {
		return fmt.Errorf("failed to read collection id: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM collection_tracks WHERE collection_id = ?`, rowID); err != nil {
		return fmt.Errorf("failed to reset collection tracks: %w", err)
	}

	for i, track := range c.Tracks {
		if track.ID == "" {
			continue
		}
		if err := upsertTrack(tx, track); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO collection_tracks (collection_id, position, spotify_id) VALUES (?, ?, ?)`,
			rowID, i, track.ID,
		); err != nil {
			return fmt.Errorf("failed to save collection track %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection: %w", err)
	}
	return nil
}

// Get retrieves a cached collection with its tracks in catalog order.
func (r *CollectionRepository) Get(kind models.CollectionKind, spotifyID string) (*models.Collection, error) {
	c := &models.Collection{Kind: kind, ID: spotifyID, Tracks: []models.TrackDescriptor{}}

	var rowID, details string
	err := r.db.QueryRow(
		`SELECT id, name, image, details FROM collections WHERE kind = ? AND spotify_id = ?`, string(kind), spotifyID,
	).Scan(&rowID, &c.Name, &c.Image, &details)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(kind, spotifyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	if c.Details, err = decodeDetails[models.CollectionDetails](details); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(`
		SELECT t.id, t.spotify_id, t.name, t.artists, t.album, t.album_image, t.duration_ms, t.details, t.created_at, t.updated_at
		FROM collection_tracks ct
		JOIN tracks t ON t.spotify_id = ct.spotify_id
		WHERE ct.collection_id = ?
		ORDER BY ct.position ASC
	`, rowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		c.Tracks = append(c.Tracks, track.Track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return c, nil
}

// List returns summaries of every cached collection, newest first.
func (r *CollectionRepository) List() ([]CollectionSummary, error) {
	rows, err := r.db.Query(`
		SELECT c.kind, c.spotify_id, c.name, COUNT(ct.position)
		FROM collections c
		LEFT JOIN collection_tracks ct ON ct.collection_id = c.id
		GROUP BY c.id
		ORDER BY c.created_at DESC, c.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var summaries []CollectionSummary
	for rows.Next() {
		var (
			s    CollectionSummary
			kind string
		)
		if err := rows.Scan(&kind, &s.ID, &s.Name, &s.TrackCount); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		s.Kind = models.CollectionKind(kind)
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return summaries, nil
}

// Delete removes a cached collection. Its tracks stay cached.
func (r *CollectionRepository) Delete(kind models.CollectionKind, spotifyID string) error {
	result, err := r.db.Exec(`DELETE FROM collections WHERE kind = ? AND spotify_id = ?`, string(kind), spotifyID)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound(kind, spotifyID)
	}
	return nil
}

// Clear removes every cached collection and returns how many were deleted.
func (r *CollectionRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM collections`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear collections: %w", err)
	}
	return result.RowsAffected()
}

func notFound(kind models.CollectionKind, id string) error {
	if kind == models.PlaylistCollection {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, id)
}
