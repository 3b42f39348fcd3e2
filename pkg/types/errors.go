package types

import (
	"errors"
	"fmt"
)

// ErrPathExhausted reports that collision retries ran out before a free
// (tenant, path) candidate was found.
var ErrPathExhausted = errors.New("path allocation exhausted")

// InvalidBaseURLError reports a base document URL that cannot be broken
// into scheme, host, and path. It is the only call-level precondition
// failure; everything else is per-image.
type InvalidBaseURLError struct {
	Base string
	Err  error
}

func (e *InvalidBaseURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid base url %q: %v", e.Base, e.Err)
	}
	return fmt.Sprintf("invalid base url %q", e.Base)
}

func (e *InvalidBaseURLError) Unwrap() error { return e.Err }

// FetchError wraps a network or timeout failure for a single origin URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RejectedError reports a response the classifier refused: an unsupported
// or missing content type, or a body below the configured minimum size.
type RejectedError struct {
	ContentType string
	Reason      string
}

func (e *RejectedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("rejected: %s", e.Reason)
	}
	if e.ContentType == "" {
		return "rejected: no content type"
	}
	return fmt.Sprintf("rejected: unsupported content type %q", e.ContentType)
}

// DecodeError reports bytes that did not decode as the classified kind.
type DecodeError struct {
	Kind ImageKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
