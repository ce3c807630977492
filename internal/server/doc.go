// Package server exposes direct audio URL resolution over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [BasicRouter] dispatches on [http.ServeMux] patterns, then on method. HEAD falls back to
// GET and a wrong method gets 405 with an Allow header. Middleware wraps the whole mux,
// first added outermost, so unmatched paths still get logged and rate limited.
//
// # Middleware
//
//   - [Recover] : Converts panics into 500 responses
//   - [RequestID] : Propagates or assigns X-Request-ID
//   - [Logging] : One structured log line per request
//   - [RateLimit] : Per-client token bucket from golang.org/x/time/rate
//
// # Endpoints
//
//	GET /health          {"status": "ok"}
//	GET /v1/track/{id}   {"status": "success", "track_info": {...}, "download_url": "..."}
//
// Spotify credentials may be sent in client-id and client-secret headers, or in client_id and
// client_secret. The track_info object carries the catalog metadata: album_type, release_date,
// image_url, preview_url, popularity, external_urls and audio_features (null when Spotify
// refuses the audio-features endpoint).
//
// Errors use {"detail": "..."}. An unknown track or a track without a usable audio stream
// returns 404, rejected Spotify credentials 401, and an unreachable upstream 502.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
