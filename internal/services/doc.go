// Package services looks up Spotify catalog metadata for the download pipeline.
//
// # Catalog
//
// [Catalog] is implemented by:
//   - [SpotifyCatalog] : Spotify Web API through the client credentials flow
//   - [CachedCatalog] : A decorator backed by the SQLite catalog cache
//
// Errors are mapped to shared sentinels: unknown IDs become ErrTrackNotFound,
// ErrAlbumNotFound or ErrPlaylistNotFound, rejected credentials become
// ErrInvalidCredentials, and 429/5xx responses become ErrServiceUnavailable.
//
// # References
//
// [ParseReference] accepts open.spotify.com URLs (with or without an intl- prefix and query
// string), spotify: URIs, and bare 22 character IDs, which are treated as tracks.
// [Lookup] expands a reference into its ordered track list.
package services
