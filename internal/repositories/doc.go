// Package repositories implements SQLite persistence for the Spotify catalog cache.
//
// Key Implementations:
//   - [TrackRepository] : Track metadata keyed by Spotify ID, implementing models.Repository
//   - [CollectionRepository] : Album and playlist membership in catalog order
//
// Artist lists are stored as JSON arrays. Internal row IDs are UUIDs from [shared.GenerateID]
// and are never exposed in CLI output.
package repositories
