package resolver

import (
	"path/filepath"
	"strings"

	"github.com/desertthunder/spotfetch/internal/models"
)

var pathSeparators = strings.NewReplacer("/", "_", `\`, "_")

// BuildQuery returns the free-text search for track: artists, title, then "audio".
func BuildQuery(track models.TrackDescriptor) string {
	return strings.Join(track.Artists, " ") + " " + track.Name + " audio"
}

// SafeFilename returns "<title> - <artist, artist>" with path separators replaced by underscores.
//
// The result is used as a file stem inside the download directory.
func SafeFilename(track models.TrackDescriptor) string {
	return pathSeparators.Replace(track.Name + " - " + strings.Join(track.Artists, ", "))
}

// escapeGlob quotes the meta characters understood by [filepath.Match].
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// outputTemplate returns the yt-dlp output template for stem in dir. Literal percent signs are doubled.
func outputTemplate(dir, stem string) string {
	return filepath.Join(dir, strings.ReplaceAll(stem, "%", "%%")+".%(ext)s")
}

// outputPattern returns the glob matching every file produced for stem in dir.
func outputPattern(dir, stem string) string {
	return filepath.Join(dir, escapeGlob(stem)+".*")
}
