package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the gateways and the pipeline. Callers match them
// with errors.Is; the concrete cause stays reachable through Unwrap.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrFetch             = errors.New("image fetch failed")
	ErrModerationService = errors.New("moderation service error")
	ErrRemoteValidation  = errors.New("remote validation rejected request")
	ErrGenerationService = errors.New("generation service error")
	ErrGenerationFailed  = errors.New("generation task failed")
	ErrEmptyOutput       = errors.New("generation task returned no output")
	ErrPollTimeout       = errors.New("generation task did not finish in time")
	ErrDownload          = errors.New("artifact download failed")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrStorageService    = errors.New("storage service error")
)

// Error attaches a taxonomy kind and the failing operation to an underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// NewError builds an Error. A nil cause is allowed; the message then only
// carries the kind and operation.
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is a shorthand for NewError with a formatted cause.
func Errorf(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool { return target == e.Kind }

var kindCodes = []struct {
	kind error
	code string
}{
	{ErrInvalidRequest, "invalid_request"},
	{ErrFetch, "fetch_error"},
	{ErrModerationService, "moderation_error"},
	{ErrRemoteValidation, "remote_validation_error"},
	{ErrGenerationService, "generation_service_error"},
	{ErrGenerationFailed, "generation_failed"},
	{ErrEmptyOutput, "empty_output"},
	{ErrPollTimeout, "poll_timeout"},
	{ErrDownload, "download_error"},
	{ErrUnsupportedFormat, "unsupported_format"},
	{ErrStorageService, "storage_error"},
}

// KindCode returns a stable machine-readable code for err, or "internal"
// when err does not belong to the taxonomy.
func KindCode(err error) string {
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return kc.code
		}
	}
	return "internal"
}
