// package ledger persists the record of localized downloads in a JSON document.
//
// The ledger is keyed by file path and heals itself on read: entries whose file no
// longer exists are dropped and the document is rewritten. It assumes a single writer.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
)

// Ledger reads and writes downloads.json.
type Ledger struct {
	path   string
	now    func() time.Time
	exists func(string) bool
	logger *log.Logger
}

// Option customizes a [Ledger].
type Option func(*Ledger)

// WithClock replaces [time.Now] for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithExists replaces the filesystem existence check used by [Ledger.ListExisting].
func WithExists(exists func(string) bool) Option {
	return func(l *Ledger) { l.exists = exists }
}

// WithLogger sets the logger used to report absorbed read errors.
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New returns a Ledger stored at path.
func New(path string, opts ...Option) *Ledger {
	l := &Ledger{
		path:   path,
		now:    time.Now,
		exists: fileExists,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the location of the ledger file.
func (l *Ledger) Path() string {
	return l.path
}

// Load returns the ledger document. A missing or unparsable file yields an empty document.
func (l *Ledger) Load() models.LedgerDocument {
	doc := models.LedgerDocument{Tracks: []models.LedgerEntry{}}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("ledger unreadable, treating as empty", "path", l.path, "error", err)
		}
		return doc
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		l.logger.Warn("ledger corrupt, treating as empty", "path", l.path, "error", err)
		return models.LedgerDocument{Tracks: []models.LedgerEntry{}}
	}
	if doc.Tracks == nil {
		doc.Tracks = []models.LedgerEntry{}
	}
	return doc
}

// Record appends an entry for filePath unless one already exists. It reports whether an entry was added.
func (l *Ledger) Record(track models.TrackDescriptor, filePath string) (bool, error) {
	doc := l.Load()
	for _, entry := range doc.Tracks {
		if entry.FilePath == filePath {
			return false, nil
		}
	}

	doc.Tracks = append(doc.Tracks, models.NewLedgerEntry(track, filePath, l.now()))
	if err := l.save(doc); err != nil {
		return false, err
	}
	return true, nil
}

// ListExisting returns the entries whose files still exist, in insertion order.
//
// When entries were dropped the ledger is rewritten with the survivors.
func (l *Ledger) ListExisting() ([]models.LedgerEntry, error) {
	doc := l.Load()

	kept := make([]models.LedgerEntry, 0, len(doc.Tracks))
	for _, entry := range doc.Tracks {
		if l.exists(entry.FilePath) {
			kept = append(kept, entry)
		}
	}

	if len(kept) < len(doc.Tracks) {
		l.logger.Debug("pruning ledger", "removed", len(doc.Tracks)-len(kept), "kept", len(kept))
		if err := l.save(models.LedgerDocument{Tracks: kept}); err != nil {
			return kept, err
		}
	}
	return kept, nil
}

// Find returns the first entry recorded for a track with the same name and artists whose file still exists.
func (l *Ledger) Find(track models.TrackDescriptor) (models.LedgerEntry, bool) {
	for _, entry := range l.Load().Tracks {
		if entry.Matches(track) && l.exists(entry.FilePath) {
			return entry, true
		}
	}
	return models.LedgerEntry{}, false
}

// Remove deletes the entry for filePath. It reports whether an entry was removed.
func (l *Ledger) Remove(filePath string) (bool, error) {
	doc := l.Load()

	kept := make([]models.LedgerEntry, 0, len(doc.Tracks))
	for _, entry := range doc.Tracks {
		if entry.FilePath != filePath {
			kept = append(kept, entry)
		}
	}

	if len(kept) == len(doc.Tracks) {
		return false, nil
	}
	if err := l.save(models.LedgerDocument{Tracks: kept}); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Ledger) save(doc models.LedgerDocument) error {
	data, err := shared.MarshalJSON(doc, true)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerWrite, err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerWrite, err)
	}
	if err := atomicWriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerWrite, err)
	}
	return nil
}

// atomicWriteFile writes content to a temp file next to path and renames it into place.
func atomicWriteFile(path string, content []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
