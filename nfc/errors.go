package nfc

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an NFC error for programmatic handling.
//
// Every error surfaced by a backend or the client carries exactly one Kind.
// KindUnexpected is the zero value and the fallback when a fault cannot be
// matched against any known pattern.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotSupported
	KindNotEnabled
	KindPermissionDenied
	KindNoTag
	KindTagError
	KindIOError
	KindTimeout
	KindCancelled
)

// String returns the wire-level code for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotSupported:
		return "NOT_SUPPORTED"
	case KindNotEnabled:
		return "NOT_ENABLED"
	case KindPermissionDenied:
		return "PERMISSION_DENIED"
	case KindNoTag:
		return "NO_TAG"
	case KindTagError:
		return "TAG_ERROR"
	case KindIOError:
		return "IO_ERROR"
	case KindTimeout:
		return "TIMEOUT"
	case KindCancelled:
		return "CANCELLED"
	default:
		return "UNEXPECTED_ERROR"
	}
}

// Error provides structured error information for NFC operations.
type Error struct {
	Kind    Kind   // Classification code
	Op      string // Operation that failed (e.g., "StartScanSession", "Write")
	Message string // Human-readable message
	Detail  any    // Optional backend-specific detail
	Cause   error  // Underlying error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// newError creates an Error with a formatted message.
func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// wrapError wraps an underlying error with NFC context.
func wrapError(kind Kind, op, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// NotImplementedError indicates a bridge does not expose the function slot an
// operation needs. It is distinct from a generic unsupported error: the
// platform family claims NFC support, but this particular bridge lacks the
// capability.
type NotImplementedError struct {
	Backend    string // Backend name (e.g., "ios")
	Capability string // Missing bridge function slot
	Op         string // Operation that needed it
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: %q is not implemented in the %s bridge", e.Op, e.Capability, e.Backend)
}

// IsNotImplemented checks if an error indicates a missing bridge capability.
func IsNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var nie *NotImplementedError
	return errors.As(err, &nie)
}

// KindOf extracts the Kind from an error. Errors that are not classified yet
// are run through Classify.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnexpected
	}
	var nfcErr *Error
	if errors.As(err, &nfcErr) {
		return nfcErr.Kind
	}
	return Classify(err)
}

// Classify maps a raw fault onto the error taxonomy by testing its message
// against a fixed set of substring and error-name patterns. Patterns are
// checked in priority order; anything unmatched falls back to KindUnexpected.
func Classify(err error) Kind {
	if err == nil {
		return KindUnexpected
	}
	if IsNotImplemented(err) {
		return KindNotSupported
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not supported") ||
		strings.Contains(msg, "notsupportederror"):
		return KindNotSupported
	case strings.Contains(msg, "permission") ||
		strings.Contains(msg, "notallowederror"):
		return KindPermissionDenied
	case strings.Contains(msg, "not enabled"):
		return KindNotEnabled
	case strings.Contains(msg, "no tag") ||
		strings.Contains(msg, "tag was lost") ||
		strings.Contains(msg, "tag left the field"):
		return KindNoTag
	case strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "timeout"):
		return KindTimeout
	case strings.Contains(msg, "cancel"):
		return KindCancelled
	case strings.Contains(msg, "i/o error") ||
		strings.Contains(msg, "input/output error") ||
		strings.Contains(msg, "broken pipe"):
		return KindIOError
	case strings.Contains(msg, "tag error") ||
		strings.Contains(msg, "tag mismatch"):
		return KindTagError
	default:
		return KindUnexpected
	}
}

// classifyErr wraps a raw fault into a classified Error, preserving the
// original message. Already-classified errors pass through unchanged.
func classifyErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var nfcErr *Error
	if errors.As(err, &nfcErr) {
		return nfcErr
	}
	return &Error{
		Kind:    Classify(err),
		Op:      op,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var nfcErr *Error
	if errors.As(err, &nfcErr) {
		return nfcErr.Kind == kind
	}
	return false
}
