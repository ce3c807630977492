package tasks

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/resolver"
)

// Localizer downloads or resolves audio for a track.
//
// Implemented by [resolver.Resolver].
type Localizer interface {
	Fetch(ctx context.Context, track models.TrackDescriptor, headers map[string]string) (*resolver.Download, error)
	ResolveURL(ctx context.Context, track models.TrackDescriptor) (string, error)
}

// Recorder persists successful downloads.
//
// Implemented by [ledger.Ledger].
type Recorder interface {
	Record(track models.TrackDescriptor, filePath string) (bool, error)
	Find(track models.TrackDescriptor) (models.LedgerEntry, bool)
}

// Tagger writes catalog metadata into a downloaded file.
type Tagger interface {
	Tag(ctx context.Context, path string, track models.TrackDescriptor) error
}

// ItemResult is the outcome for one track of a batch.
type ItemResult struct {
	Track    models.TrackDescriptor `json:"track"`
	Success  bool                   `json:"success"`
	Skipped  bool                   `json:"skipped,omitempty"`
	Path     string                 `json:"path,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Attempts int                    `json:"attempts"`
}

// Detail returns the path for successes and the failure reason otherwise.
func (r ItemResult) Detail() string {
	if r.Success {
		return r.Path
	}
	return r.Error
}

// BatchResult holds per-track results in input order.
type BatchResult struct {
	Items     []ItemResult `json:"items"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
}

// EngineOpts contains the dependencies of a [DownloadEngine].
type EngineOpts struct {
	Resolver     Localizer
	Retrier      *Retrier
	Ledger       Recorder // optional
	Tagger       Tagger   // optional, applied to native MP3 downloads only
	Logger       *log.Logger
	SkipExisting bool
}

// DownloadEngine runs tracks through the resolver one at a time.
type DownloadEngine struct {
	resolver     Localizer
	retrier      *Retrier
	ledger       Recorder
	tagger       Tagger
	logger       *log.Logger
	skipExisting bool
}

// NewDownloadEngine creates a new [DownloadEngine].
func NewDownloadEngine(opts EngineOpts) *DownloadEngine {
	if opts.Retrier == nil {
		opts.Retrier = NewRetrier(RetryOpts{Logger: opts.Logger})
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &DownloadEngine{
		resolver:     opts.Resolver,
		retrier:      opts.Retrier,
		ledger:       opts.Ledger,
		tagger:       opts.Tagger,
		logger:       opts.Logger,
		skipExisting: opts.SkipExisting,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *DownloadEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// RunBatch downloads every track sequentially and returns one result per track in input order.
//
// A failing track never stops the batch. Once ctx is cancelled the remaining tracks are
// reported as failed without being attempted.
func (e *DownloadEngine) RunBatch(ctx context.Context, tracks []models.TrackDescriptor, progress chan<- ProgressUpdate) *BatchResult {
	total := len(tracks)
	result := &BatchResult{Items: make([]ItemResult, 0, total), Total: total}

	e.sendProgress(progress, batchStartedUpdate(total))

	for i, track := range tracks {
		var item ItemResult
		if err := ctx.Err(); err != nil {
			item = ItemResult{Track: track, Error: err.Error()}
		} else {
			e.sendProgress(progress, itemStartedUpdate(i, total, track))
			item = e.downloadTrack(ctx, track, progress)
		}

		switch {
		case item.Skipped:
			result.Skipped++
		case item.Success:
			result.Succeeded++
		default:
			result.Failed++
		}
		result.Items = append(result.Items, item)

		e.sendProgress(progress, itemDoneUpdate(i+1, total, item))
	}

	e.logger.Info("batch finished",
		"total", total, "succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
	return result
}

// DownloadTrack downloads a single track with retries.
func (e *DownloadEngine) DownloadTrack(ctx context.Context, track models.TrackDescriptor) ItemResult {
	return e.downloadTrack(ctx, track, nil)
}

func (e *DownloadEngine) downloadTrack(ctx context.Context, track models.TrackDescriptor, progress chan<- ProgressUpdate) ItemResult {
	item := ItemResult{Track: track}

	if e.skipExisting && e.ledger != nil {
		if entry, ok := e.ledger.Find(track); ok {
			e.logger.Debug("skipping downloaded track", "track", track.String(), "path", entry.FilePath)
			item.Success, item.Skipped, item.Path = true, true, entry.FilePath
			return item
		}
	}

	limit := e.retrier.MaxAttempts()
	dl, err := e.retrier.Do(ctx, func(ctx context.Context, headers map[string]string) (*resolver.Download, error) {
		item.Attempts++
		if item.Attempts > 1 {
			e.sendProgress(progress, retryUpdate(item.Attempts, limit, track))
		}
		return e.resolver.Fetch(ctx, track, headers)
	})
	if err != nil {
		e.logger.Error("download failed", "track", track.String(), "error", err)
		item.Error = err.Error()
		return item
	}

	item.Success, item.Path = true, dl.Path

	if e.tagger != nil && dl.Native {
		if err := e.tagger.Tag(ctx, dl.Path, track); err != nil {
			e.logger.Warn("failed to tag file", "path", dl.Path, "error", err)
		}
	}

	if e.ledger != nil {
		if _, err := e.ledger.Record(track, dl.Path); err != nil {
			e.logger.Warn("failed to record download", "path", dl.Path, "error", err)
		}
	}

	e.logger.Info("downloaded", "track", track.String(), "path", dl.Path, "attempts", item.Attempts)
	return item
}

// ResolveTrack returns a direct audio URL for track. Resolution is never retried.
func (e *DownloadEngine) ResolveTrack(ctx context.Context, track models.TrackDescriptor) (string, error) {
	return e.resolver.ResolveURL(ctx, track)
}

// ResolveAll resolves every track to a remote URL, returning results in input order.
func (e *DownloadEngine) ResolveAll(ctx context.Context, tracks []models.TrackDescriptor, progress chan<- ProgressUpdate) []models.ResolutionResult {
	total := len(tracks)
	results := make([]models.ResolutionResult, 0, total)

	for i, track := range tracks {
		var res models.ResolutionResult
		if err := ctx.Err(); err != nil {
			res = models.Failed(err.Error())
		} else if url, err := e.resolver.ResolveURL(ctx, track); err != nil {
			res = models.Failed(err.Error())
		} else {
			res = models.Succeeded(models.Location{Kind: models.RemoteURL, Value: url})
		}

		results = append(results, res)
		e.sendProgress(progress, resolvedUpdate(i+1, total, track, res))
	}
	return results
}
