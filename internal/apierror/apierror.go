// Package apierror gives every engine a single typed-error vocabulary
// instead of ad-hoc sentinel errors, and a pure mapper from that
// vocabulary to an HTTP status. Modeled on the zeebo/errs.Class
// conventions used throughout storj.io/storj (see e.g. pkg/auth,
// pkg/cache): one Class per package, wrapped errors carry their Kind so
// the HTTP layer never needs to string-match.
package apierror

import (
	"errors"
	"net/http"

	"github.com/zeebo/errs"
)

// Kind discriminates the error taxonomy from spec §7.
type Kind int

// Error kinds, in the order they appear in the taxonomy table.
const (
	KindUnknown Kind = iota
	KindIntegrityViolation
	KindPermissionDenied
	KindNotFound
	KindInvalidArgument
	KindUnauthorized
	KindUpstreamError
	KindConflictInState
)

// Class is the zeebo/errs class every apierror.Error is wrapped in, so
// callers can still do errs.Is/errs.Wrap against it like the rest of
// the teacher's codebase does.
var Class = errs.Class("apierror")

// Error is a classified error carrying an HTTP-mappable Kind.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds a classified error and folds it into the package's
// zeebo/errs class.
func New(kind Kind, format string, args ...interface{}) error {
	e := &Error{Kind: kind, Message: errs.New(format, args...).Error()}
	return Class.Wrap(e)
}

// Wrap classifies an existing error, preserving it as the cause so
// diagnostics (and errors.Is) still see the original upstream error.
func Wrap(kind Kind, cause error, message string) error {
	if cause == nil {
		return nil
	}
	e := &Error{Kind: kind, Message: message, cause: cause}
	return Class.Wrap(e)
}

// IntegrityViolation classifies a unique/foreign-key constraint error.
func IntegrityViolation(cause error, message string) error {
	return Wrap(KindIntegrityViolation, cause, message)
}

// PermissionDenied classifies an ownership/operator check failure.
func PermissionDenied(format string, args ...interface{}) error {
	return New(KindPermissionDenied, format, args...)
}

// NotFound classifies an entity-lookup miss.
func NotFound(format string, args ...interface{}) error {
	return New(KindNotFound, format, args...)
}

// InvalidArgument classifies a malformed request: unknown root,
// malformed search term, unsupported event type.
func InvalidArgument(format string, args ...interface{}) error {
	return New(KindInvalidArgument, format, args...)
}

// Unauthorized classifies a missing or invalid credential.
func Unauthorized(format string, args ...interface{}) error {
	return New(KindUnauthorized, format, args...)
}

// UpstreamError classifies an STS/search-engine/object-store failure.
// The upstream error's code is preserved as the cause for diagnosis.
func UpstreamError(cause error, message string) error {
	return Wrap(KindUpstreamError, cause, message)
}

// ConflictInState classifies an operation rejected by the current
// state machine, e.g. a bulk batch against a closed crawl round.
func ConflictInState(format string, args ...interface{}) error {
	return New(KindConflictInState, format, args...)
}

// KindOf extracts the Kind from a (possibly wrapped) apierror.Error,
// defaulting to KindUnknown for anything else.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}

// HTTPStatus is the pure, total mapping from Kind to HTTP status code
// required by spec §5 ("the HTTP mapper is a pure total function of
// that discriminator").
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindIntegrityViolation, KindConflictInState:
		return http.StatusConflict
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body is the {message: string} JSON shape spec §7 requires for every
// error response.
type Body struct {
	Message string `json:"message"`
}

// ToBody renders an error into its user-visible JSON body.
func ToBody(err error) Body {
	return Body{Message: err.Error()}
}
