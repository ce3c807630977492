package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
)

const trackColumns = `id, spotify_id, name, artists, album, album_image, duration_ms, details, created_at, updated_at`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// TrackRepository implements models.Repository[*models.PersistedTrack] for the catalog cache.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] with a generated ID.
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artists, err := encodeArtists(track.Track.Artists)
	if err != nil {
		return err
	}
	details, err := encodeDetails(track.Track.Details)
	if err != nil {
		return err
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO tracks (` + trackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		id,
		track.Track.ID,
		track.Track.Name,
		artists,
		track.Track.Album,
		track.Track.AlbumImage,
		track.Track.DurationMS,
		details,
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("track %s is already cached: %w", track.Track.ID, err)
		}
		return fmt.Errorf("failed to insert track: %w", err)
	}

	track.SetID(id)
	return nil
}

// Upsert stores track, replacing any cached metadata for the same Spotify ID.
func (r *TrackRepository) Upsert(track models.TrackDescriptor) error {
	return upsertTrack(r.db, track)
}

func upsertTrack(q querier, track models.TrackDescriptor) error {
	p := models.NewPersistedTrack(track)
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artists, err := encodeArtists(track.Artists)
	if err != nil {
		return err
	}
	details, err := encodeDetails(track.Details)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tracks (` + trackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (spotify_id) DO UPDATE SET
			name = excluded.name,
			artists = excluded.artists,
			album = excluded.album,
			album_image = excluded.album_image,
			duration_ms = excluded.duration_ms,
			details = excluded.details,
			updated_at = excluded.updated_at
	`
	_, err = q.Exec(query,
		shared.GenerateID(), track.ID, track.Name, artists, track.Album, track.AlbumImage, track.DurationMS, details,
		p.CreatedAt(), p.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert track: %w", err)
	}
	return nil
}

// Get retrieves a track by its row ID.
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	return scanTrack(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves a track by its Spotify ID.
func (r *TrackRepository) GetBySpotifyID(spotifyID string) (*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE spotify_id = ?`
	return scanTrack(r.db.QueryRow(query, spotifyID))
}

// Update modifies an existing track in the database
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artists, err := encodeArtists(track.Track.Artists)
	if err != nil {
		return err
	}
	details, err := encodeDetails(track.Track.Details)
	if err != nil {
		return err
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	query := `
		UPDATE tracks
		SET name = ?, artists = ?, album = ?, album_image = ?, duration_ms = ?, details = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		track.Track.Name,
		artists,
		track.Track.Album,
		track.Track.AlbumImage,
		track.Track.DurationMS,
		details,
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	return expectAffected(result, track.ID())
}

// Delete removes a track by ID
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return expectAffected(result, id)
}

// List retrieves cached tracks ordered by name. Supported criteria: "name" and "album"
// (substring match) and "limit".
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE 1 = 1`
	args := []any{}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name LIKE ?"
		args = append(args, "%"+name+"%")
	}

	if album, ok := criteria["album"].(string); ok && album != "" {
		query += " AND album LIKE ?"
		args = append(args, "%"+album+"%")
	}

	query += " ORDER BY name COLLATE NOCASE ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Count returns the number of cached tracks.
func (r *TrackRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

// Clear removes every cached track and returns how many were deleted.
func (r *TrackRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM tracks`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear tracks: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTrack scans a single row into a [models.PersistedTrack]
func scanTrack(row scanner) (*models.PersistedTrack, error) {
	var (
		id        string
		artists   string
		details   string
		createdAt time.Time
		updatedAt time.Time
		t         models.TrackDescriptor
	)

	err := row.Scan(&id, &t.ID, &t.Name, &artists, &t.Album, &t.AlbumImage, &t.DurationMS, &details, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	if t.Artists, err = decodeArtists(artists); err != nil {
		return nil, err
	}
	if t.Details, err = decodeDetails[models.TrackDetails](details); err != nil {
		return nil, err
	}

	track := models.NewPersistedTrack(t)
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)
	return track, nil
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return nil
}
