package tasks

import (
	"fmt"

	"github.com/desertthunder/spotfetch/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	DownloadTracks
	RetryTrack
	ResolveTracks
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case DownloadTracks:
		return "download_tracks"
	case RetryTrack:
		return "retry_track"
	case ResolveTracks:
		return "resolve_tracks"
	default:
		return ""
	}
}

// FetchSourceUpdate reports a catalog lookup. Exported for callers that resolve references before a batch.
func FetchSourceUpdate(ref string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s from Spotify...", ref),
	}
}

func batchStartedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Downloading %d tracks...", total),
		Data:    models.BatchProgress{Completed: 0, Total: total},
	}
}

func itemStartedUpdate(done, total int, track models.TrackDescriptor) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    done,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", done+1, total, track),
		Data:    models.BatchProgress{Completed: done, Total: total, Current: track},
	}
}

func itemDoneUpdate(done, total int, item ItemResult) ProgressUpdate {
	var msg string
	switch {
	case item.Skipped:
		msg = fmt.Sprintf("[%d/%d] ↷ %s (already downloaded)", done, total, item.Track)
	case item.Success:
		msg = fmt.Sprintf("[%d/%d] ✓ %s", done, total, item.Track)
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", done, total, item.Track, item.Error)
	}

	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    done,
		Total:   total,
		Message: msg,
		Data:    models.BatchProgress{Completed: done, Total: total, Current: item.Track},
	}
}

func retryUpdate(attempt, limit int, track models.TrackDescriptor) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RetryTrack,
		Step:    attempt,
		Total:   limit,
		Message: fmt.Sprintf("   retrying %s (attempt %d/%d)", track.Name, attempt, limit),
	}
}

func resolvedUpdate(done, total int, track models.TrackDescriptor, res models.ResolutionResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", done, total, track)
	if !res.OK() {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", done, total, track, res.Reason)
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    done,
		Total:   total,
		Message: msg,
		Data:    models.BatchProgress{Completed: done, Total: total, Current: track},
	}
}
