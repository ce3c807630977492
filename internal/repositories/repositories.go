// package repositories provides persistence layer implementations for the catalog cache.
//
// Each repository wraps a *sql.DB opened by [shared.OpenDatabase].
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintUnique || serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// encodeArtists stores an artist list as a JSON array in a TEXT column.
func encodeArtists(artists []string) (string, error) {
	if artists == nil {
		artists = []string{}
	}
	data, err := json.Marshal(artists)
	if err != nil {
		return "", fmt.Errorf("failed to encode artists: %w", err)
	}
	return string(data), nil
}

func decodeArtists(raw string) ([]string, error) {
	artists := []string{}
	if raw == "" {
		return artists, nil
	}
	if err := json.Unmarshal([]byte(raw), &artists); err != nil {
		return nil, fmt.Errorf("failed to decode artists: %w", err)
	}
	return artists, nil
}

// encodeDetails stores optional catalog metadata as JSON. A nil value is stored as "".
func encodeDetails[T any](details *T) (string, error) {
	if details == nil {
		return "", nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("failed to encode details: %w", err)
	}
	return string(data), nil
}

func decodeDetails[T any](raw string) (*T, error) {
	if raw == "" {
		return nil, nil
	}
	var details T
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		return nil, fmt.Errorf("failed to decode details: %w", err)
	}
	return &details, nil
}
