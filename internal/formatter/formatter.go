// package formatter renders collections and the download library as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
)

// Format is an export format name accepted on the command line.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "text"
)

// ParseFormat validates a format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (use json, csv, markdown or text)", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	switch f {
	case JSON:
		return ".json"
	case CSV:
		return ".csv"
	case Markdown:
		return ".md"
	default:
		return ".txt"
	}
}

// formatDuration renders milliseconds as m:ss.
func formatDuration(ms int) string {
	if ms <= 0 {
		return "-"
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// collectionFacts lists the catalog metadata shown under a collection heading, skipping empty values.
func collectionFacts(c *models.Collection) [][2]string {
	d := c.Details
	if d == nil {
		return nil
	}

	var facts [][2]string
	add := func(label, value string) {
		if value != "" {
			facts = append(facts, [2]string{label, value})
		}
	}
	add("Artists", strings.Join(d.Artists, ", "))
	add("Owner", d.Owner)
	add("Released", d.ReleaseDate)
	if d.TotalTracks > len(c.Tracks) {
		add("Catalog Tracks", strconv.Itoa(d.TotalTracks))
	}
	if d.Followers > 0 {
		add("Followers", strconv.Itoa(d.Followers))
	}
	add("Description", d.Description)
	add("Spotify", d.SpotifyURL())
	return facts
}

// CollectionToCSV converts a collection to CSV with columns: ID, Name, Artists, Album, Duration,
// Release Date, Popularity, Spotify URL
func CollectionToCSV(c *models.Collection) ([]byte, error) {
	records := make([][]string, 0, len(c.Tracks))
	for _, track := range c.Tracks {
		var released, popularity string
		if d := track.Details; d != nil {
			released = d.ReleaseDate
			if d.Popularity > 0 {
				popularity = strconv.Itoa(d.Popularity)
			}
		}
		records = append(records, []string{
			track.ID,
			track.Name,
			shared.JoinArtists(track.Artists, "; "),
			track.Album,
			formatDuration(track.DurationMS),
			released,
			popularity,
			track.Details.SpotifyURL(),
		})
	}
	return writeCSV([]string{"ID", "Name", "Artists", "Album", "Duration", "Release Date", "Popularity", "Spotify URL"}, records)
}

// CollectionToMarkdown converts a collection to Markdown with an optional cover image
func CollectionToMarkdown(c *models.Collection, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", c.Name)
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Type**: %s\n", c.Kind)
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(c.Tracks))
	for _, fact := range collectionFacts(c) {
		fmt.Fprintf(&buf, "**%s**: %s\n", fact[0], fact[1])
	}
	buf.WriteString("\n")

	buf.WriteString("## Tracks\n\n")
	for i, track := range c.Tracks {
		albumPart := ""
		if track.Album != "" && c.Kind != models.AlbumCollection {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		line := fmt.Sprintf("%d. %s%s [%s]", i+1, track, albumPart, formatDuration(track.DurationMS))
		if url := track.Details.SpotifyURL(); url != "" {
			line += fmt.Sprintf(" ([Spotify](%s))", url)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// CollectionToText converts a collection to plain text
func CollectionToText(c *models.Collection) ([]byte, error) {
	var buf bytes.Buffer

	label := "Collection"
	switch c.Kind {
	case models.AlbumCollection:
		label = "Album"
	case models.PlaylistCollection:
		label = "Playlist"
	}
	fmt.Fprintf(&buf, "%s: %s\n", label, c.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n", len(c.Tracks))
	for _, fact := range collectionFacts(c) {
		fmt.Fprintf(&buf, "%s: %s\n", fact[0], fact[1])
	}
	buf.WriteString("\n")

	for i, track := range c.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track)
	}

	return buf.Bytes(), nil
}

// RenderCollection renders c in the given format.
func RenderCollection(c *models.Collection, format Format) ([]byte, error) {
	switch format {
	case JSON:
		return shared.MarshalJSON(c, true)
	case CSV:
		return CollectionToCSV(c)
	case Markdown:
		return CollectionToMarkdown(c, "")
	default:
		return CollectionToText(c)
	}
}

// LibraryToCSV converts ledger entries to CSV with columns: Name, Artists, Album, File, Downloaded
func LibraryToCSV(entries []models.LedgerEntry) ([]byte, error) {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			e.Name,
			shared.JoinArtists(e.Artists, "; "),
			deref(e.Album),
			e.FilePath,
			e.DownloadedAt,
		})
	}
	return writeCSV([]string{"Name", "Artists", "Album", "File", "Downloaded"}, records)
}

// LibraryToMarkdown converts ledger entries to a Markdown table
func LibraryToMarkdown(entries []models.LedgerEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Downloads\n\n")
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(entries))
	buf.WriteString("| # | Track | Album | Downloaded |\n")
	buf.WriteString("|---|-------|-------|------------|\n")
	for i, e := range entries {
		fmt.Fprintf(&buf, "| %d | %s - %s | %s | %s |\n",
			i+1, escapeCell(shared.JoinArtists(e.Artists, ", ")), escapeCell(e.Name), escapeCell(deref(e.Album)), e.DownloadedAt)
	}

	return buf.Bytes(), nil
}

// LibraryToText converts ledger entries to plain text, one per line
func LibraryToText(entries []models.LedgerEntry) ([]byte, error) {
	var buf bytes.Buffer
	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. %s - %s\n   %s (%s)\n", i+1, shared.JoinArtists(e.Artists, ", "), e.Name, e.FilePath, e.DownloadedAt)
	}
	return buf.Bytes(), nil
}

// RenderLibrary renders ledger entries in the given format.
func RenderLibrary(entries []models.LedgerEntry, format Format) ([]byte, error) {
	switch format {
	case JSON:
		return shared.MarshalJSON(models.LedgerDocument{Tracks: entries}, true)
	case CSV:
		return LibraryToCSV(entries)
	case Markdown:
		return LibraryToMarkdown(entries)
	default:
		return LibraryToText(entries)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// FetchImage downloads an image and returns its bytes and MIME type.
//
// A nil client uses a client with a 30 second timeout.
func FetchImage(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("%w: empty image URL", shared.ErrInvalidInput)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	Warnings   []string
}

// WriteMarkdownExport exports a collection to Markdown format in a dedicated directory.
//
// Directory name defaults to the collection ID. When the collection has an image it is saved
// as cover.jpg next to README.md. A failed image download is reported in Warnings.
func WriteMarkdownExport(ctx context.Context, c *models.Collection, outputDir string, client *http.Client) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = c.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverFilename string
	if c.Image != "" {
		if data, _, err := FetchImage(ctx, client, c.Image); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to download cover image: %v", err))
		} else {
			coverPath := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(coverPath, data, 0644); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("failed to save cover image: %v", err))
			} else {
				coverFilename = "cover.jpg"
				result.CoverImage = coverPath
				result.Files = append(result.Files, coverPath)
			}
		}
	}

	mdData, err := CollectionToMarkdown(c, coverFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteExport renders c in format and writes it to path.
//
// Defaults to {collection.ID}_tracks{ext} as the filename.
func WriteExport(c *models.Collection, format Format, path string) (string, error) {
	if path == "" {
		path = c.ID + "_tracks" + format.Extension()
	}

	data, err := RenderCollection(c, format)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}
