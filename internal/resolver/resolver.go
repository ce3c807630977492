// package resolver maps track descriptors to audio found through a video index.
//
// Two modes share the same query: [Resolver.Localize] downloads the best audio stream into the
// download directory, and [Resolver.ResolveURL] only extracts a direct stream URL.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/spotfetch/internal/models"
)

// DefaultFormat prefers native MP3, then M4A, then any audio-only stream.
const DefaultFormat = "bestaudio[ext=mp3]/bestaudio[ext=m4a]/bestaudio"

// Options configures a [Resolver].
type Options struct {
	Dir               string
	Format            string
	CooldownMin       time.Duration
	CooldownMax       time.Duration
	DurationTolerance time.Duration // zero disables the duration check
	Headers           HeaderSource
	Jitter            *Jitter
	Logger            Logger
}

// Download describes a localized file.
type Download struct {
	Path   string // absolute path ending in .mp3
	Native bool   // the stream was MP3 before any rename
	Entry  *Entry
}

// Resolver resolves tracks through an [Index].
type Resolver struct {
	index   Index
	opts    Options
	headers HeaderSource
	jitter  *Jitter
	logger  Logger
	rename  func(oldpath, newpath string) error
}

// New creates a Resolver. Missing options fall back to [DefaultFormat], a 1-3s cooldown and a fresh [HeaderRandomizer].
func New(index Index, opts Options) *Resolver {
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.CooldownMin == 0 && opts.CooldownMax == 0 {
		opts.CooldownMin, opts.CooldownMax = time.Second, 3*time.Second
	}
	if opts.Headers == nil {
		opts.Headers = NewHeaderRandomizer(nil)
	}
	if opts.Jitter == nil {
		opts.Jitter = NewJitter(nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	return &Resolver{
		index:   index,
		opts:    opts,
		headers: opts.Headers,
		jitter:  opts.Jitter,
		logger:  opts.Logger,
		rename:  os.Rename,
	}
}

// Dir returns the download directory.
func (r *Resolver) Dir() string {
	return r.opts.Dir
}

// Localize downloads the best audio for track and returns the absolute path of the .mp3 file.
func (r *Resolver) Localize(ctx context.Context, track models.TrackDescriptor, headers map[string]string) (string, error) {
	dl, err := r.Fetch(ctx, track, headers)
	if err != nil {
		return "", err
	}
	return dl.Path, nil
}

// Fetch is [Resolver.Localize] with details about the produced file.
//
// After a successful download it pauses for the cooldown window before locating the file.
func (r *Resolver) Fetch(ctx context.Context, track models.TrackDescriptor, headers map[string]string) (*Download, error) {
	const op = "localize"

	dir := r.opts.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, newError(Localization, op, fmt.Errorf("failed to create download directory: %w", err))
	}

	stem := SafeFilename(track)
	entry, err := r.index.Download(ctx, BuildQuery(track), DownloadOptions{
		OutputTemplate: outputTemplate(dir, stem),
		Format:         r.opts.Format,
		Headers:        headers,
	})
	if err != nil {
		return nil, classify(op, err)
	}
	r.checkDuration(track, entry)

	if _, err := r.jitter.Pause(ctx, r.opts.CooldownMin, r.opts.CooldownMax); err != nil {
		return nil, err
	}

	found, err := locate(dir, stem, entryExt(entry))
	if err != nil {
		return nil, newError(NotFound, op, err)
	}

	isMP3 := strings.EqualFold(filepath.Ext(found), ".mp3")
	dl := &Download{Entry: entry, Native: isMP3 && streamIsMP3(entry)}
	if !isMP3 {
		target := filepath.Join(dir, stem+".mp3")
		if err := r.rename(found, target); err != nil {
			return nil, newError(Localization, op, fmt.Errorf("failed to rename %s: %w", filepath.Base(found), err))
		}
		found = target
	}

	abs, err := filepath.Abs(found)
	if err != nil {
		return nil, newError(Localization, op, err)
	}
	dl.Path = abs
	return dl, nil
}

// ResolveURL searches for track and returns a direct audio URL without downloading anything.
//
// The result is never retried.
func (r *Resolver) ResolveURL(ctx context.Context, track models.TrackDescriptor) (string, error) {
	const op = "resolve"

	entry, err := r.index.Search(ctx, BuildQuery(track), r.headers.Headers())
	if err != nil {
		return "", classify(op, err)
	}
	r.checkDuration(track, entry)

	url, ok := ExtractURL(entry)
	if !ok {
		return "", newError(Extraction, op, fmt.Errorf("no audio stream for %q", entry.Title))
	}
	return url, nil
}

// ExtractURL returns the entry's top-level URL, or the first audio-only format URL.
func ExtractURL(entry *Entry) (string, bool) {
	if entry == nil {
		return "", false
	}
	if entry.URL != "" {
		return entry.URL, true
	}
	for _, f := range entry.Formats {
		if f.AudioOnly() && f.URL != "" {
			return f.URL, true
		}
	}
	return "", false
}

// checkDuration logs a warning when the top match is much longer or shorter than the track.
func (r *Resolver) checkDuration(track models.TrackDescriptor, entry *Entry) {
	if r.opts.DurationTolerance <= 0 || track.DurationMS <= 0 || entry == nil || entry.Duration <= 0 {
		return
	}

	got := time.Duration(entry.Duration * float64(time.Second))
	if diff := time.Duration(math.Abs(float64(got - track.Duration()))); diff > r.opts.DurationTolerance {
		r.logger.Warn("top match duration differs from track",
			"track", track.String(), "match", entry.Title, "want", track.Duration(), "got", got)
	}
}

// locate returns the file this download produced for stem, ignoring partial downloads.
//
// The file named after the reported extension wins. Otherwise a non-mp3 file is preferred
// over an .mp3, since an .mp3 next to it is left over from an earlier rename.
func locate(dir, stem, ext string) (string, error) {
	if ext != "" {
		p := filepath.Join(dir, stem+"."+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}

	matches, err := filepath.Glob(outputPattern(dir, stem))
	if err != nil {
		return "", err
	}

	var mp3, other string
	for _, m := range matches {
		switch strings.ToLower(filepath.Ext(m)) {
		case ".part", ".ytdl", ".tmp":
			continue
		case ".mp3":
			if mp3 == "" {
				mp3 = m
			}
		default:
			if other == "" {
				other = m
			}
		}
	}

	switch {
	case other != "":
		return other, nil
	case mp3 != "":
		return mp3, nil
	}
	return "", fmt.Errorf("no file matching %q after download", stem)
}

func entryExt(entry *Entry) string {
	if entry == nil {
		return ""
	}
	return strings.TrimPrefix(entry.Ext, ".")
}

// streamIsMP3 reports whether the downloaded stream itself was MP3. An unknown extension counts.
func streamIsMP3(entry *Entry) bool {
	ext := entryExt(entry)
	return ext == "" || strings.EqualFold(ext, "mp3")
}

// classify keeps typed errors and cancellation as they are and marks anything else as Transient.
func classify(op string, err error) error {
	if _, ok := KindOf(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return newError(Transient, op, err)
}
