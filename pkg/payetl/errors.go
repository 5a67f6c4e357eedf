package payetl

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := p.RunPolling(ctx)
//	if errors.Is(err, payetl.ErrMissingFiles) {
//	    // the drop is incomplete
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingFiles indicates one or more categories had no matching object.
	ErrMissingFiles = errors.New("missing required files")

	// ErrHeaderMismatch indicates concatenated files disagree on their header.
	ErrHeaderMismatch = errors.New("header mismatch")

	// ErrNoData indicates none of the cleaned files had a header row.
	ErrNoData = errors.New("no data found in provided Excel files")

	// ErrMissingDateToken indicates a trigger key carries no YYYY-MM-DD token.
	ErrMissingDateToken = errors.New("no YYYY-MM-DD date in key")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrLoadFailed indicates a truncate or insert against the warehouse failed.
	ErrLoadFailed = errors.New("load failed")

	// ErrMarkerExists indicates a conditional marker write lost to an existing object.
	ErrMarkerExists = errors.New("marker already exists")

	// ErrUnsupportedFormat indicates a source file is not a readable spreadsheet.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
)

// MissingFilesError names the categories a polling run could not satisfy.
type MissingFilesError struct {
	Bucket     string
	Prefix     string
	Categories []Category
}

func (e *MissingFilesError) Error() string {
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = c.String()
	}
	return fmt.Sprintf("missing required files in s3://%s/%s: [%s]", e.Bucket, e.Prefix, strings.Join(names, ", "))
}

func (e *MissingFilesError) Unwrap() error {
	return ErrMissingFiles
}

// HeaderMismatchError reports the first file whose header differs from the
// header established by the earlier files of the same category.
type HeaderMismatchError struct {
	Path string
	Want []string
	Got  []string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("header mismatch in file %s: want %d columns [%s], got %d columns [%s]",
		e.Path, len(e.Want), strings.Join(e.Want, ", "), len(e.Got), strings.Join(e.Got, ", "))
}

func (e *HeaderMismatchError) Unwrap() error {
	return ErrHeaderMismatch
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrMissingFiles):
		return ExitMissingFiles
	case errors.Is(err, ErrHeaderMismatch),
		errors.Is(err, ErrNoData),
		errors.Is(err, ErrMissingDateToken),
		errors.Is(err, ErrUnsupportedFormat):
		return ExitFormatError
	case errors.Is(err, ErrLoadFailed):
		return ExitLoadFailed
	}

	errStr := err.Error()
	if isUsageError(errStr) {
		return ExitUsageError
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// isUsageError matches the messages cobra produces for bad invocations.
func isUsageError(msg string) bool {
	for _, marker := range []string{
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"accepts ",
		"requires at least",
		"required flag",
		"invalid argument",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
