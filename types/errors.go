package types

import "errors"

var (
	// ErrUnsupportedFileType is returned when a file's extension maps
	// to a MIME type the pipeline does not handle.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrSizeLimitExceeded is returned when an upload exceeds the
	// configured size ceiling.
	ErrSizeLimitExceeded = errors.New("file size limit exceeded")
	// ErrNoTextExtracted is returned when extraction succeeds but
	// yields no usable text.
	ErrNoTextExtracted = errors.New("no text extracted from document")
	// ErrExtractionFailure is returned when a format-specific decoder
	// fails on the file contents.
	ErrExtractionFailure = errors.New("failed to extract text from document")
)
