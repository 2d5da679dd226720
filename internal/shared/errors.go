package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Request errors
	ErrInvalidSource = fmt.Errorf("invalid source reference")
	ErrInvalidKind   = fmt.Errorf("invalid media kind")

	// Resolution and selection errors
	ErrNoFormats      = fmt.Errorf("no formats found")
	ErrFormatNotFound = fmt.Errorf("requested format not found")

	// Backend errors
	ErrBackendUnavailable = fmt.Errorf("backend unavailable")

	// Durable store errors
	ErrUploadFailed = fmt.Errorf("upload failed")
	ErrFileTooLarge = fmt.Errorf("file exceeds size limit")

	// Delivery errors
	ErrStaleHandle = fmt.Errorf("stored handle no longer usable")
)
