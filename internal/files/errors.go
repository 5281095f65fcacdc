package files

import "errors"

var (
	// ErrFileNotFound means no metadata record exists for the id, or a blob
	// the metadata claims uploaded is absent from object storage.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileNotUploaded means the record exists but no content has been
	// uploaded for it yet.
	ErrFileNotUploaded = errors.New("file has not been uploaded yet")

	// ErrUnauthorizedFileAccess means the requester does not own the file.
	// Existence is checked first, ownership second, uniformly.
	ErrUnauthorizedFileAccess = errors.New("no access to this file")

	// ErrInvalidContentType means uploaded content was not declared as PDF.
	ErrInvalidContentType = errors.New("only PDF content is accepted")

	// ErrInvalidInput is the generic validation error for malformed inputs.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal hides collaborator failures from callers.
	ErrInternal = errors.New("internal file service error")
)

// MergeError wraps whatever caused a merge to fail after its placeholder
// record had been created. By the time the caller sees it the placeholder
// has already been compensated away.
type MergeError struct {
	Cause error
}

func (e *MergeError) Error() string {
	return "merging files: " + e.Cause.Error()
}

func (e *MergeError) Unwrap() error {
	return e.Cause
}
