package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testTrack(id, name string) models.TrackDescriptor {
	return models.TrackDescriptor{
		ID:         id,
		Name:       name,
		Artists:    []string{"AC/DC", "Guest"},
		Album:      "The Razors Edge",
		AlbumImage: "https://i.scdn.co/image/abc",
		DurationMS: 292000,
	}
}

func TestTrackRepository(t *testing.T) {
	t.Run("Create & Get", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		track := models.NewPersistedTrack(testTrack("57bgtoPSgt236HzfBOd8kj", "Thunderstruck"))

		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}
		if track.ID() == "" {
			t.Fatal("track ID should be set after creation")
		}

		got, err := repo.Get(track.ID())
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if got.Track.Name != "Thunderstruck" || len(got.Track.Artists) != 2 || got.Track.Artists[0] != "AC/DC" {
			t.Errorf("unexpected track %+v", got.Track)
		}
		if got.Track.DurationMS != 292000 || got.Track.AlbumImage == "" {
			t.Errorf("optional fields not persisted: %+v", got.Track)
		}
	})

	t.Run("Create Duplicate", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		if err := repo.Create(models.NewPersistedTrack(testTrack("id1", "A"))); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}
		if err := repo.Create(models.NewPersistedTrack(testTrack("id1", "A"))); err == nil {
			t.Error("expected duplicate spotify id to fail")
		}
	})

	t.Run("Create Invalid", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		if err := repo.Create(models.NewPersistedTrack(testTrack("", "A"))); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("GetBySpotifyID", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		if err := repo.Upsert(testTrack("id1", "A")); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		got, err := repo.GetBySpotifyID("id1")
		if err != nil || got.Track.Name != "A" {
			t.Fatalf("unexpected result %v, %v", got, err)
		}

		if _, err := repo.GetBySpotifyID("missing"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("Upsert Replaces Metadata", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		_ = repo.Upsert(testTrack("id1", "Old"))
		if err := repo.Upsert(testTrack("id1", "New")); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		n, _ := repo.Count()
		got, _ := repo.GetBySpotifyID("id1")
		if n != 1 || got.Track.Name != "New" {
			t.Errorf("expected a single updated row, got %d rows and name %q", n, got.Track.Name)
		}
	})

	t.Run("Details Round Trip", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		track := testTrack("id1", "Thunderstruck")
		track.Details = &models.TrackDetails{
			ReleaseDate:   "1990-09-24",
			Popularity:    80,
			PreviewURL:    "https://p.scdn.co/mp3-preview/x",
			ExternalURLs:  map[string]string{"spotify": "https://open.spotify.com/track/id1"},
			AudioFeatures: &models.AudioFeatures{Tempo: 133.5},
		}
		if err := repo.Upsert(track); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		_ = repo.Upsert(testTrack("id2", "Plain"))

		got, err := repo.GetBySpotifyID("id1")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		d := got.Track.Details
		if d == nil || d.ReleaseDate != "1990-09-24" || d.Popularity != 80 || d.SpotifyURL() != "https://open.spotify.com/track/id1" {
			t.Errorf("details not restored: %+v", d)
		}
		if d != nil && (d.AudioFeatures == nil || d.AudioFeatures.Tempo != 133.5) {
			t.Errorf("audio features not restored: %+v", d.AudioFeatures)
		}

		plain, _ := repo.GetBySpotifyID("id2")
		if plain.Track.Details != nil {
			t.Errorf("expected no details, got %+v", plain.Track.Details)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		track := models.NewPersistedTrack(testTrack("id1", "A"))
		_ = repo.Create(track)

		track.Track.Name = "B"
		if err := repo.Update(track); err != nil {
			t.Fatalf("failed to update: %v", err)
		}
		got, _ := repo.Get(track.ID())
		if got.Track.Name != "B" {
			t.Errorf("expected name B, got %q", got.Track.Name)
		}

		ghost := models.NewPersistedTrack(testTrack("id2", "C"))
		ghost.SetID("nope")
		if err := repo.Update(ghost); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		track := models.NewPersistedTrack(testTrack("id1", "A"))
		_ = repo.Create(track)

		if err := repo.Delete(track.ID()); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get(track.ID()); err == nil {
			t.Error("expected deleted track to be gone")
		}
		if err := repo.Delete(track.ID()); err == nil {
			t.Error("expected second delete to fail")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		for _, tr := range []models.TrackDescriptor{testTrack("1", "beta"), testTrack("2", "Alpha"), testTrack("3", "Gamma")} {
			_ = repo.Upsert(tr)
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 || all[0].Track.Name != "Alpha" || all[1].Track.Name != "beta" {
			t.Errorf("unexpected order %v", all)
		}

		filtered, _ := repo.List(map[string]any{"name": "amm"})
		if len(filtered) != 1 || filtered[0].Track.Name != "Gamma" {
			t.Errorf("unexpected filter result %v", filtered)
		}

		limited, _ := repo.List(map[string]any{"limit": 2})
		if len(limited) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(limited))
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		_ = repo.Upsert(testTrack("1", "A"))
		_ = repo.Upsert(testTrack("2", "B"))

		n, err := repo.Clear()
		if err != nil || n != 2 {
			t.Errorf("expected 2 cleared, got %d, %v", n, err)
		}
	})
}

func TestCollectionRepository(t *testing.T) {
	album := func() *models.Collection {
		return &models.Collection{
			Kind:   models.AlbumCollection,
			ID:     "album1",
			Name:   "The Razors Edge",
			Image:  "https://i.scdn.co/image/abc",
			Tracks: []models.TrackDescriptor{testTrack("t2", "Thunderstruck"), testTrack("t1", "Fire Your Guns")},
		}
	}

	t.Run("Save & Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCollectionRepository(db)

		if err := repo.Save(album()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := repo.Get(models.AlbumCollection, "album1")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.Name != "The Razors Edge" || len(got.Tracks) != 2 {
			t.Fatalf("unexpected collection %+v", got)
		}
		if got.Tracks[0].ID != "t2" || got.Tracks[1].ID != "t1" {
			t.Errorf("track order not preserved: %v", got.Tracks)
		}

		if _, err := NewTrackRepository(db).GetBySpotifyID("t1"); err != nil {
			t.Errorf("expected tracks to be written through: %v", err)
		}
	})

	t.Run("Details Round Trip", func(t *testing.T) {
		repo := NewCollectionRepository(setupTestDB(t))
		c := album()
		c.Details = &models.CollectionDetails{Artists: []string{"AC/DC"}, ReleaseDate: "1990-09-24", TotalTracks: 12}
		c.Tracks[0].Details = &models.TrackDetails{TrackNumber: 1}
		if err := repo.Save(c); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := repo.Get(models.AlbumCollection, "album1")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.Details == nil || got.Details.TotalTracks != 12 || got.Details.ReleaseDate != "1990-09-24" {
			t.Errorf("collection details not restored: %+v", got.Details)
		}
		if got.Tracks[0].Details == nil || got.Tracks[0].Details.TrackNumber != 1 || got.Tracks[1].Details != nil {
			t.Errorf("track details not restored: %+v, %+v", got.Tracks[0].Details, got.Tracks[1].Details)
		}
	})

	t.Run("Save Replaces Tracks", func(t *testing.T) {
		repo := NewCollectionRepository(setupTestDB(t))
		_ = repo.Save(album())

		c := album()
		c.Tracks = c.Tracks[:1]
		if err := repo.Save(c); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, _ := repo.Get(models.AlbumCollection, "album1")
		if len(got.Tracks) != 1 {
			t.Errorf("expected 1 track after replace, got %d", len(got.Tracks))
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo := NewCollectionRepository(setupTestDB(t))
		if _, err := repo.Get(models.AlbumCollection, "x"); !errors.Is(err, shared.ErrAlbumNotFound) {
			t.Errorf("expected ErrAlbumNotFound, got %v", err)
		}
		if _, err := repo.Get(models.PlaylistCollection, "x"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("List & Delete", func(t *testing.T) {
		repo := NewCollectionRepository(setupTestDB(t))
		_ = repo.Save(album())

		list, err := repo.List()
		if err != nil || len(list) != 1 || list[0].TrackCount != 2 || list[0].Kind != models.AlbumCollection {
			t.Fatalf("unexpected list %+v, %v", list, err)
		}

		if err := repo.Delete(models.AlbumCollection, "album1"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete(models.AlbumCollection, "album1"); err == nil {
			t.Error("expected second delete to fail")
		}
	})

	t.Run("Skips Tracks Without ID", func(t *testing.T) {
		repo := NewCollectionRepository(setupTestDB(t))
		c := album()
		c.Kind = models.PlaylistCollection
		c.Tracks = append(c.Tracks, models.TrackDescriptor{Name: "local file"})

		if err := repo.Save(c); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		got, _ := repo.Get(models.PlaylistCollection, "album1")
		if len(got.Tracks) != 2 {
			t.Errorf("expected 2 cached tracks, got %d", len(got.Tracks))
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		repo := NewCollectionRepository(setupTestDB(t))
		if err := repo.Save(&models.Collection{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
