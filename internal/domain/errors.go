package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the coarse category a download failure is reported under
type ErrorKind string

const (
	KindValidation ErrorKind = "validation" // bad request, rejected before any I/O
	KindFetch      ErrorKind = "fetch"      // network or extraction failure
	KindTranscode  ErrorKind = "transcode"  // audio conversion failure
	KindFilesystem ErrorKind = "filesystem" // write or delete failure in the output directory
)

// Sentinels usable with errors.Is against a *DownloadError
var (
	ErrValidation = errors.New("validation error")
	ErrFetch      = errors.New("fetch error")
	ErrTranscode  = errors.New("transcode error")
	ErrFilesystem = errors.New("filesystem error")

	ErrEmptyURL = errors.New("please paste a video link")
)

// DownloadError is the only error type the orchestrator hands to callers
type DownloadError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewDownloadError wraps err under kind; the message is err's text
func NewDownloadError(kind ErrorKind, err error) *DownloadError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &DownloadError{Kind: kind, Message: msg, Err: err}
}

// Validationf creates a validation error with a formatted message
func Validationf(format string, args ...interface{}) *DownloadError {
	return NewDownloadError(KindValidation, fmt.Errorf(format, args...))
}

func (e *DownloadError) Error() string {
	return e.Message
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *DownloadError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrFetch:
		return e.Kind == KindFetch
	case ErrTranscode:
		return e.Kind == KindTranscode
	case ErrFilesystem:
		return e.Kind == KindFilesystem
	}
	return false
}

// KindOf returns the kind of a *DownloadError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
