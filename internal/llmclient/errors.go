package llmclient

import "fmt"

// ErrorKind classifies failures of a model round trip.
type ErrorKind int

const (
	// KindTransport: the call could not complete (network, auth, quota).
	KindTransport ErrorKind = iota + 1
	// KindEmptyResponse: the service answered without usable text.
	KindEmptyResponse
	// KindMalformedResponse: the text could not be parsed as JSON.
	KindMalformedResponse
	// KindInvalidFormat: parsed, but a required top-level field is missing.
	KindInvalidFormat
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "TransportFailure"
	case KindEmptyResponse:
		return "EmptyResponse"
	case KindMalformedResponse:
		return "MalformedResponse"
	case KindInvalidFormat:
		return "InvalidFormat"
	default:
		return "Unknown"
	}
}

// Error is the typed failure of a round trip. Raw holds the model text for
// diagnostics when there was any.
type Error struct {
	Kind ErrorKind
	Raw  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
	}
	return "llm " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrEmptyResponse)
// works regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrTransport         = &Error{Kind: KindTransport}
	ErrEmptyResponse     = &Error{Kind: KindEmptyResponse}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrInvalidFormat     = &Error{Kind: KindInvalidFormat}
)

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, raw string, err error) *Error {
	return &Error{Kind: kind, Raw: raw, Err: err}
}
