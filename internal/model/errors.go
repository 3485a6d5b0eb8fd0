package model

import (
	"errors"
	"fmt"

	"github.com/fenwick-labs/corpusengine/internal/clock"
)

// Code is a stable machine-readable error code, safe to cross a transport
// boundary (MCP, CLI exit status, replication wire format).
type Code string

// Closed error taxonomy. Every category spec.md §7 names has exactly the
// kinds listed there; this list is not meant to grow ad hoc.
const (
	// storage
	ErrDatabase           Code = "database"
	ErrDocumentNotFound   Code = "document_not_found"
	ErrChunkNotFound      Code = "chunk_not_found"
	ErrCollectionNotFound Code = "collection_not_found"
	ErrCollectionExists   Code = "collection_exists"
	ErrDuplicateDocument  Code = "duplicate_document"

	// embedding
	ErrEmbeddingModel Code = "embedding_model"
	ErrTextTooLong    Code = "text_too_long"
	ErrEmptyText      Code = "empty_text"

	// chunking
	ErrParse                  Code = "parse_error"
	ErrUnsupportedContentType Code = "unsupported_content_type"
	ErrEmptyChunks            Code = "empty_chunks"

	// replication
	ErrSyncFailed         Code = "sync_failed"
	ErrPeerUnreachable    Code = "peer_unreachable"
	ErrConflictResolution Code = "conflict_resolution"
	ErrInvalidClock       Code = "invalid_clock"

	// loading
	ErrLoadFailed Code = "load_failed"
	ErrIO         Code = "io"
	ErrHTTP       Code = "http"

	// validation
	ErrInvalidArgument       Code = "invalid_argument"
	ErrInvalidURI            Code = "invalid_uri"
	ErrInvalidCollectionName Code = "invalid_collection_name"

	// protocol
	ErrMCPProtocol Code = "mcp_protocol"
	ErrUnknownTool Code = "unknown_tool"

	// internal
	ErrInternal       Code = "internal"
	ErrNotImplemented Code = "not_implemented"
)

// retryable is the set of codes spec.md §7 marks as transient/worth retrying.
var retryable = map[Code]bool{
	ErrDatabase:        true,
	ErrPeerUnreachable: true,
	ErrSyncFailed:      true,
	ErrHTTP:            true,
	ErrIO:              true,
}

// Error is the single concrete error type backing the whole taxonomy. It
// carries a stable Code for transport plus a human Message, and wraps the
// underlying cause (if any) so errors.Is/errors.As keep working.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// NewError constructs a taxonomy error. cause may be nil.
func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, model.NewError(code, "", nil)) match by Code alone.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return te.Code == e.Code
}

// IsRetryable reports whether the caller may reasonably retry the operation
// that produced this error.
func (e *Error) IsRetryable() bool {
	return retryable[e.Code]
}

// IsRetryable reports whether err (or an error it wraps) is retryable per
// the taxonomy's predicate.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}

// CodeOf extracts the machine code from err, or ErrInternal if err does not
// carry one.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, clock.ErrInvalidClock) {
		return ErrInvalidClock
	}
	return ErrInternal
}

// Sentinel returns a bare sentinel of the given code, suitable for
// errors.Is(err, model.Sentinel(model.ErrDocumentNotFound)).
func Sentinel(code Code) error {
	return &Error{Code: code}
}

// TextTooLongDetail is attached to ErrTextTooLong errors via Message.
type TextTooLongDetail struct {
	Tokens int
	Max    int
}

func (d TextTooLongDetail) String() string {
	return fmt.Sprintf("text has %d tokens, exceeds max %d", d.Tokens, d.Max)
}
