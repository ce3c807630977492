// Package models defines the entities that flow through the spotfetch download pipeline.
//
// The package contains three groups of types:
//
// 1. Catalog input
//   - [TrackDescriptor] : Name, artists and optional album data of one track
//   - [Collection] : An album or playlist with its tracks in catalog order
//
// 2. Resolution output
//   - [Location] : A local file path or a remote stream URL
//   - [ResolutionResult] : Either a Location or a failure reason
//   - [BatchProgress] : Completed/total counters for a running batch
//
// 3. Persistence
//   - [LedgerEntry] and [LedgerDocument] : The downloads.json ledger format
//   - [PersistedTrack] : Cached catalog entries implementing [Model]
package models
