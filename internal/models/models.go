// package models defines the data model for the spotfetch download pipeline
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// TrackDescriptor is the catalog metadata needed to resolve a track to audio.
//
// Album, AlbumImage and DurationMS are optional; their zero values mean absent.
type TrackDescriptor struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album,omitempty"`
	AlbumImage string   `json:"album_image,omitempty"`
	DurationMS int      `json:"duration_ms,omitempty"`

	Details *TrackDetails `json:"details,omitempty"`
}

// TrackDetails is catalog metadata shown by `info` and the API but unused for resolution.
type TrackDetails struct {
	AlbumType     string            `json:"album_type,omitempty"`
	ReleaseDate   string            `json:"release_date,omitempty"`
	TrackNumber   int               `json:"track_number,omitempty"`
	Popularity    int               `json:"popularity,omitempty"`
	Explicit      bool              `json:"explicit,omitempty"`
	PreviewURL    string            `json:"preview_url,omitempty"`
	ExternalURLs  map[string]string `json:"external_urls,omitempty"`
	AudioFeatures *AudioFeatures    `json:"audio_features,omitempty"`
}

// SpotifyURL returns the open.spotify.com link, or "".
func (d *TrackDetails) SpotifyURL() string {
	if d == nil {
		return ""
	}
	return d.ExternalURLs["spotify"]
}

// AudioFeatures is Spotify's audio analysis of a track. Values other than Tempo are in [0, 1].
type AudioFeatures struct {
	Danceability float64 `json:"danceability"`
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Tempo        float64 `json:"tempo"`
}

// Duration returns DurationMS as a [time.Duration].
func (t TrackDescriptor) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// String renders "Artist, Artist - Name".
func (t TrackDescriptor) String() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return strings.Join(t.Artists, ", ") + " - " + t.Name
}

// CollectionKind distinguishes albums from playlists.
type CollectionKind string

const (
	AlbumCollection    CollectionKind = "album"
	PlaylistCollection CollectionKind = "playlist"
)

// Collection is an ordered group of tracks from an album or playlist.
type Collection struct {
	Kind   CollectionKind    `json:"kind"`
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Image  string            `json:"image,omitempty"`
	Tracks []TrackDescriptor `json:"tracks"`

	Details *CollectionDetails `json:"details,omitempty"`
}

// CollectionDetails holds album and playlist metadata. Artists and ReleaseDate are set for
// albums; Owner, Description and Followers for playlists.
type CollectionDetails struct {
	Artists      []string          `json:"artists,omitempty"`
	ReleaseDate  string            `json:"release_date,omitempty"`
	Owner        string            `json:"owner,omitempty"`
	Description  string            `json:"description,omitempty"`
	Followers    int               `json:"followers,omitempty"`
	TotalTracks  int               `json:"total_tracks,omitempty"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// SpotifyURL returns the open.spotify.com link, or "".
func (d *CollectionDetails) SpotifyURL() string {
	if d == nil {
		return ""
	}
	return d.ExternalURLs["spotify"]
}

// LocationKind tags a resolved [Location].
type LocationKind int

const (
	LocalPath LocationKind = iota
	RemoteURL
)

func (k LocationKind) String() string {
	switch k {
	case LocalPath:
		return "local_path"
	case RemoteURL:
		return "remote_url"
	default:
		return ""
	}
}

// MarshalText encodes the kind by name.
func (k LocationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Location is where resolved audio can be found.
type Location struct {
	Kind  LocationKind `json:"kind"`
	Value string       `json:"value"`
}

// ResolutionResult is either a Location or a failure reason, never both.
type ResolutionResult struct {
	Location *Location `json:"location,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Succeeded builds a successful [ResolutionResult].
func Succeeded(loc Location) ResolutionResult {
	return ResolutionResult{Location: &loc}
}

// Failed builds a failed [ResolutionResult]. An empty reason is replaced with "unknown error".
func Failed(reason string) ResolutionResult {
	if reason == "" {
		reason = "unknown error"
	}
	return ResolutionResult{Reason: reason}
}

// OK reports whether the result carries a location.
func (r ResolutionResult) OK() bool {
	return r.Location != nil
}

// LedgerTimeLayout is the downloaded_at format of the ledger file.
const LedgerTimeLayout = "2006-01-02 15:04:05"

// LedgerEntry is one localized download recorded in downloads.json.
type LedgerEntry struct {
	Name         string   `json:"name"`
	Artists      []string `json:"artists"`
	FilePath     string   `json:"file_path"`
	DownloadedAt string   `json:"downloaded_at"`
	Album        *string  `json:"album"`
	AlbumImage   *string  `json:"album_image"`
}

// NewLedgerEntry stamps track with at for filePath.
func NewLedgerEntry(track TrackDescriptor, filePath string, at time.Time) LedgerEntry {
	entry := LedgerEntry{
		Name:         track.Name,
		Artists:      append([]string{}, track.Artists...),
		FilePath:     filePath,
		DownloadedAt: at.Format(LedgerTimeLayout),
	}
	if track.Album != "" {
		album := track.Album
		entry.Album = &album
	}
	if track.AlbumImage != "" {
		image := track.AlbumImage
		entry.AlbumImage = &image
	}
	return entry
}

// Matches reports whether the entry was recorded for a track with the same name and artists.
func (e LedgerEntry) Matches(track TrackDescriptor) bool {
	if !strings.EqualFold(strings.TrimSpace(e.Name), strings.TrimSpace(track.Name)) {
		return false
	}
	if len(e.Artists) != len(track.Artists) {
		return false
	}
	for i := range e.Artists {
		if !strings.EqualFold(strings.TrimSpace(e.Artists[i]), strings.TrimSpace(track.Artists[i])) {
			return false
		}
	}
	return true
}

// LedgerDocument is the on-disk shape of downloads.json.
type LedgerDocument struct {
	Tracks []LedgerEntry `json:"tracks"`
}

// BatchProgress reports how far a batch run has progressed.
type BatchProgress struct {
	Completed int
	Total     int
	Current   TrackDescriptor
}

// PersistedTrack is a [TrackDescriptor] cached in the catalog database.
type PersistedTrack struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
	Track     TrackDescriptor
}

// NewPersistedTrack wraps track with fresh timestamps. The ID is assigned on insert.
func NewPersistedTrack(track TrackDescriptor) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{createdAt: now, updatedAt: now, Track: track}
}

func (p *PersistedTrack) ID() string               { return p.id }
func (p *PersistedTrack) SetID(id string)          { p.id = id }
func (p *PersistedTrack) CreatedAt() time.Time     { return p.createdAt }
func (p *PersistedTrack) SetCreatedAt(t time.Time) { p.createdAt = t }
func (p *PersistedTrack) UpdatedAt() time.Time     { return p.updatedAt }
func (p *PersistedTrack) SetUpdatedAt(t time.Time) { p.updatedAt = t }

// Validate requires a Spotify ID and a name.
func (p *PersistedTrack) Validate() error {
	if p.Track.ID == "" {
		return fmt.Errorf("spotify id is required")
	}
	if strings.TrimSpace(p.Track.Name) == "" {
		return fmt.Errorf("track name is required")
	}
	return nil
}
