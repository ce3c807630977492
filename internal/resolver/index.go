package resolver

import "context"

// Format is one stream listed for an index entry. Nil codecs are absent in the source data.
type Format struct {
	ID     string
	URL    string
	Ext    string
	ACodec *string
	VCodec *string
}

// AudioOnly reports whether the format carries audio and no video.
func (f Format) AudioOnly() bool {
	if f.ACodec == nil || *f.ACodec == "none" {
		return false
	}
	return f.VCodec == nil || *f.VCodec == "none"
}

// Entry is the best match returned by the video index.
type Entry struct {
	ID         string
	Title      string
	URL        string
	WebpageURL string
	Ext        string
	Duration   float64 // seconds
	Formats    []Format
}

// DownloadOptions configures a search-and-download call.
type DownloadOptions struct {
	OutputTemplate string
	Format         string
	Headers        map[string]string
}

// Index is the external video index: a top-1 search with or without downloading the media.
//
// Implementations return [*Error] values classified as NotFound or Transient.
type Index interface {
	Search(ctx context.Context, query string, headers map[string]string) (*Entry, error)
	Download(ctx context.Context, query string, opts DownloadOptions) (*Entry, error)
}

// Logger receives log lines from the resolver and the index, with explicit severities.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Info(any, ...any)  {}
func (nopLogger) Warn(any, ...any)  {}
func (nopLogger) Error(any, ...any) {}
