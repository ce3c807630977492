package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/tidwall/gjson"
)

const searchPrefix = "ytsearch1:"

// SearchFormat selects the stream whose URL a metadata-only search reports at the top level.
const SearchFormat = "bestaudio"

// IndexOptions configures the yt-dlp process.
type IndexOptions struct {
	Executable        string        // empty resolves yt-dlp from $PATH
	SearchFormat      string        // default SearchFormat
	SocketTimeout     time.Duration // default 30s
	Retries           int           // transport-level retries inside yt-dlp, default 3
	CheckCertificates bool
}

type execFunc func(ctx context.Context, cmd *ytdlp.Command, target string) (*ytdlp.Result, error)

func runCommand(ctx context.Context, cmd *ytdlp.Command, target string) (*ytdlp.Result, error) {
	return cmd.Run(ctx, target)
}

// YTDLPIndex implements [Index] on top of the yt-dlp executable.
type YTDLPIndex struct {
	opts   IndexOptions
	logger Logger
	exec   execFunc
}

// NewYTDLPIndex creates a [YTDLPIndex]. A nil logger discards yt-dlp output.
func NewYTDLPIndex(opts IndexOptions, logger Logger) *YTDLPIndex {
	if opts.SocketTimeout <= 0 {
		opts.SocketTimeout = 30 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.SearchFormat == "" {
		opts.SearchFormat = SearchFormat
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &YTDLPIndex{opts: opts, logger: logger, exec: runCommand}
}

// command builds the flags shared by search and download.
func (y *YTDLPIndex) command(headers map[string]string) *ytdlp.Command {
	cmd := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		NoProgress().
		SocketTimeout(y.opts.SocketTimeout.Seconds()).
		Retries(strconv.Itoa(y.opts.Retries))

	if y.opts.Executable != "" {
		cmd.SetExecutable(y.opts.Executable)
	}
	if !y.opts.CheckCertificates {
		cmd.NoCheckCertificates()
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		cmd.AddHeaders(k + ":" + headers[k])
	}
	return cmd
}

// Search runs a metadata-only top-1 search.
func (y *YTDLPIndex) Search(ctx context.Context, query string, headers map[string]string) (*Entry, error) {
	const op = "search"

	cmd := y.command(headers).
		Format(y.opts.SearchFormat).
		DumpSingleJSON()
	res, err := y.run(ctx, op, cmd, query)
	if err != nil {
		return nil, err
	}

	return entryFromSearch(op, res.Stdout)
}

// Download runs a top-1 search and downloads the selected stream to opts.OutputTemplate.
func (y *YTDLPIndex) Download(ctx context.Context, query string, opts DownloadOptions) (*Entry, error) {
	const op = "download"

	cmd := y.command(opts.Headers).
		Format(opts.Format).
		Output(opts.OutputTemplate).
		DumpJSON().
		NoSimulate()

	res, err := y.run(ctx, op, cmd, query)
	if err != nil {
		return nil, err
	}

	return entryFromLines(op, res.Stdout)
}

func (y *YTDLPIndex) run(ctx context.Context, op string, cmd *ytdlp.Command, query string) (*ytdlp.Result, error) {
	y.logger.Debug("running yt-dlp", "op", op, "query", query)

	res, err := y.exec(ctx, cmd, searchPrefix+query)
	if res != nil {
		y.forward(res.Stderr)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, newError(Transient, op, fmt.Errorf("yt-dlp failed: %w", err))
	}
	if res == nil {
		return nil, newError(Transient, op, errors.New("yt-dlp returned no result"))
	}
	return res, nil
}

// forward routes yt-dlp's stderr lines to the logger by severity prefix.
func (y *YTDLPIndex) forward(stderr string) {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "ERROR:"):
			y.logger.Error("yt-dlp", "line", strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")))
		case strings.HasPrefix(line, "WARNING:"):
			y.logger.Debug("yt-dlp", "warning", strings.TrimSpace(strings.TrimPrefix(line, "WARNING:")))
		default:
			y.logger.Debug("yt-dlp", "line", line)
		}
	}
}

// entryFromSearch parses --dump-single-json output of a ytsearch1: query.
func entryFromSearch(op, stdout string) (*Entry, error) {
	if !gjson.Valid(stdout) {
		return nil, newError(Transient, op, errors.New("unparsable yt-dlp output"))
	}

	doc := gjson.Parse(stdout)
	entries := doc.Get("entries")
	if !entries.Exists() {
		return parseEntry(doc), nil
	}

	first := entries.Get("0")
	if !first.Exists() || first.Type == gjson.Null {
		return nil, newError(NotFound, op, errors.New("no search results"))
	}
	return parseEntry(first), nil
}

// entryFromLines parses the first JSON line of --dump-json output.
func entryFromLines(op, stdout string) (*Entry, error) {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			return nil, newError(Transient, op, errors.New("unparsable yt-dlp output"))
		}
		return parseEntry(gjson.Parse(line)), nil
	}
	return nil, newError(NotFound, op, errors.New("no search results"))
}

func parseEntry(doc gjson.Result) *Entry {
	entry := &Entry{
		ID:         doc.Get("id").String(),
		Title:      doc.Get("title").String(),
		URL:        doc.Get("url").String(),
		WebpageURL: doc.Get("webpage_url").String(),
		Ext:        doc.Get("ext").String(),
		Duration:   doc.Get("duration").Float(),
	}

	doc.Get("formats").ForEach(func(_, f gjson.Result) bool {
		entry.Formats = append(entry.Formats, Format{
			ID:     f.Get("format_id").String(),
			URL:    f.Get("url").String(),
			Ext:    f.Get("ext").String(),
			ACodec: optionalString(f.Get("acodec")),
			VCodec: optionalString(f.Get("vcodec")),
		})
		return true
	})
	return entry
}

func optionalString(r gjson.Result) *string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	s := r.String()
	return &s
}

// InstallYTDLP downloads a managed yt-dlp binary when none is available and returns its path.
func InstallYTDLP(ctx context.Context) (string, error) {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return resolved.Executable, nil
}
