package core

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrMatchNotFound     = "MATCH_NOT_FOUND"
	ErrScrapeFailed      = "SCRAPE_FAILED"
	ErrStorageFailed     = "STORAGE_FAILED"
	ErrRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrInvalidRequest    = "INVALID_REQUEST"
	ErrInternalError     = "INTERNAL_ERROR"
	ErrUnauthorized      = "UNAUTHORIZED"
	ErrIngestionBusy     = "INGESTION_IN_PROGRESS"
	ErrJobNotFound       = "JOB_NOT_FOUND"
	ErrRouteNotFound     = "NOT_FOUND"
	ErrInvalidContent    = "INVALID_CONTENT_TYPE"
)

// Kind classifies a failure by the collaborator that produced it
type Kind int

const (
	KindInternal Kind = iota
	KindScrape
	KindStorage
	KindNotFound
	KindInvalid
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindScrape:
		return "scrape"
	case KindStorage:
		return "storage"
	case KindNotFound:
		return "not found"
	case KindInvalid:
		return "invalid"
	case KindBusy:
		return "busy"
	default:
		return "internal"
	}
}

// Code maps a kind to its API error code
func (k Kind) Code() string {
	switch k {
	case KindScrape:
		return ErrScrapeFailed
	case KindStorage:
		return ErrStorageFailed
	case KindNotFound:
		return ErrMatchNotFound
	case KindInvalid:
		return ErrInvalidRequest
	case KindBusy:
		return ErrIngestionBusy
	default:
		return ErrInternalError
	}
}

// ErrNotFound is returned by lookups that matched no row
var ErrNotFound = errors.New("not found")

// Error is a classified failure carrying the operation that raised it
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with a kind and operation name; nil stays nil
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Kind: existing.Kind, Op: op, Err: err}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err, treating ErrNotFound as KindNotFound
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}
