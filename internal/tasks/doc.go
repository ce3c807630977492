// Package tasks runs tracks through the resolver with retries and real-time progress reporting.
//
// # Core Operations
//
//  1. [DownloadEngine.RunBatch] : Sequential localization of a track list
//     - Every track is attempted up to three times through [Retrier]
//     - A failure is recorded on its [ItemResult] and the batch continues
//     - Successful downloads are tagged (native MP3 only) and recorded in the ledger
//
//  2. [DownloadEngine.ResolveTrack] and [DownloadEngine.ResolveAll] : Direct URL resolution
//     - One attempt per track, no retries
//
// # Retries
//
// [Retrier] pauses for a random 2-5s before every attempt after the first and hands each
// attempt freshly generated request headers. Only errors classified as recoverable by
// [resolver.Recoverable] are retried.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional
// [models.BatchProgress] data for the progress bar. Updates use select with default to
// prevent blocking.
package tasks
