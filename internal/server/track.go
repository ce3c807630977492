package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/resolver"
	"github.com/desertthunder/spotfetch/internal/services"
	"github.com/desertthunder/spotfetch/internal/shared"
)

// CatalogFactory builds a catalog for per-request credentials.
type CatalogFactory func(ctx context.Context, clientID, clientSecret string) (services.Catalog, error)

// URLResolver maps a track to a direct audio URL. Implemented by tasks.DownloadEngine.
type URLResolver interface {
	ResolveTrack(ctx context.Context, track models.TrackDescriptor) (string, error)
}

// Credential headers. The underscore spellings are read when the hyphenated ones are absent.
const (
	ClientIDHeader     = "client-id"
	ClientSecretHeader = "client-secret"
)

// TrackResponse is the success body of GET /v1/track/{id}.
type TrackResponse struct {
	Status      string    `json:"status"`
	TrackInfo   TrackInfo `json:"track_info"`
	DownloadURL string    `json:"download_url"`
}

// TrackInfo is the catalog metadata returned alongside a download URL.
type TrackInfo struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Artists       []string              `json:"artists"`
	Album         string                `json:"album"`
	AlbumType     string                `json:"album_type,omitempty"`
	ReleaseDate   string                `json:"release_date,omitempty"`
	ImageURL      string                `json:"image_url,omitempty"`
	DurationMS    int                   `json:"duration_ms"`
	PreviewURL    string                `json:"preview_url,omitempty"`
	Popularity    int                   `json:"popularity"`
	ExternalURL   string                `json:"external_urls,omitempty"`
	AudioFeatures *models.AudioFeatures `json:"audio_features"`
}

func newTrackInfo(t models.TrackDescriptor) TrackInfo {
	info := TrackInfo{
		ID:          t.ID,
		Name:        t.Name,
		Artists:     t.Artists,
		Album:       t.Album,
		ImageURL:    t.AlbumImage,
		DurationMS:  t.DurationMS,
		ExternalURL: t.Details.SpotifyURL(),
	}
	if d := t.Details; d != nil {
		info.AlbumType = d.AlbumType
		info.ReleaseDate = d.ReleaseDate
		info.PreviewURL = d.PreviewURL
		info.Popularity = d.Popularity
		info.AudioFeatures = d.AudioFeatures
	}
	return info
}

// TrackHandler serves GET /v1/track/{id}: catalog lookup followed by URL resolution.
//
// Credentials may be passed in client-id and client-secret request headers (client_id and
// client_secret are accepted too); without them the configured catalog is used.
type TrackHandler struct {
	catalog  services.Catalog // may be nil when no credentials are configured
	factory  CatalogFactory
	resolver URLResolver
	logger   *log.Logger
}

// NewTrackHandler creates a new [TrackHandler].
func NewTrackHandler(catalog services.Catalog, factory CatalogFactory, resolver URLResolver, logger *log.Logger) *TrackHandler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &TrackHandler{catalog: catalog, factory: factory, resolver: resolver, logger: logger}
}

func (h *TrackHandler) Routes() []string {
	return []string{"/v1/track/"}
}

func (h *TrackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/track/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeDetail(w, http.StatusNotFound, "Not found")
		return
	}

	catalog, err := h.catalogFor(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid Spotify credentials")
		return
	}

	ctx := r.Context()
	logger := h.logger.With("request_id", RequestIDFrom(ctx), "track_id", id)

	track, err := catalog.Track(ctx, id)
	if err != nil {
		status, detail := catalogStatus(err)
		logger.Warn("track lookup failed", "error", err, "status", status)
		writeDetail(w, status, detail)
		return
	}

	url, err := h.resolver.ResolveTrack(ctx, *track)
	if err != nil {
		status, detail := resolveStatus(err)
		logger.Warn("resolution failed", "track", track.String(), "error", err, "status", status)
		writeDetail(w, status, detail)
		return
	}

	writeJSON(w, http.StatusOK, TrackResponse{Status: "success", TrackInfo: newTrackInfo(*track), DownloadURL: url})
}

func (h *TrackHandler) catalogFor(r *http.Request) (services.Catalog, error) {
	clientID := headerValue(r.Header, ClientIDHeader, "client_id")
	clientSecret := headerValue(r.Header, ClientSecretHeader, "client_secret")

	if clientID != "" || clientSecret != "" {
		if h.factory == nil {
			return nil, shared.ErrMissingCredentials
		}
		return h.factory(r.Context(), clientID, clientSecret)
	}
	if h.catalog == nil {
		return nil, shared.ErrMissingCredentials
	}
	return h.catalog, nil
}

// headerValue returns the first non-empty value among names.
func headerValue(h http.Header, names ...string) string {
	for _, name := range names {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func catalogStatus(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrTrackNotFound):
		return http.StatusNotFound, "Track not found"
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrMissingCredentials):
		return http.StatusUnauthorized, "Invalid Spotify credentials"
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusBadGateway, "Spotify is unavailable"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func resolveStatus(err error) (int, string) {
	kind, ok := resolver.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, err.Error()
	}
	switch kind {
	case resolver.NotFound, resolver.Extraction:
		return http.StatusNotFound, "Could not find download URL"
	case resolver.Transient:
		return http.StatusBadGateway, "Video index is unavailable"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// HealthHandler serves GET /health.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewAPIRouter wires the API routes with the standard middleware stack.
func NewAPIRouter(tracks *TrackHandler, logger *log.Logger, perSecond float64, burst int) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(logger), RequestID(), Logging(logger), RateLimit(perSecond, burst))
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(HealthHandler))
	router.Handler(tracks)
	return router
}
