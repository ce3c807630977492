package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrAlbumNotFound      = fmt.Errorf("album not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Download pipeline errors
	ErrDownloadFailed = fmt.Errorf("download failed")
	ErrNoDownloadURL  = fmt.Errorf("could not find download URL")
	ErrLedgerWrite    = fmt.Errorf("failed to write ledger")
	ErrTagging        = fmt.Errorf("failed to tag file")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrUnsupportedURL  = fmt.Errorf("unsupported Spotify reference")
)
