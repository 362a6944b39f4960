package websocket

import (
	"errors"
	"fmt"
)

// Kind classifies a session failure. Every kind is fatal to the session.
type Kind int

const (
	// IoFailure is a read or write error on the underlying stream.
	IoFailure Kind = iota + 1
	// ProtocolViolation is a peer (or caller) breaking the supported protocol subset.
	ProtocolViolation
	// ContentValidation is a well-framed payload that is not valid text.
	ContentValidation
)

func (k Kind) String() string {
	switch k {
	case IoFailure:
		return "io failure"
	case ProtocolViolation:
		return "protocol violation"
	case ContentValidation:
		return "content validation"
	default:
		return "unknown"
	}
}

var (
	ErrMissingChallenge       = errors.New("websocket: no challenge header")
	ErrUnsupportedFrameLength = errors.New("websocket: frame length > 65535 not supported")
	ErrInvalidText            = errors.New("websocket: invalid unicode")
	ErrSessionState           = errors.New("websocket: operation not allowed in current session state")

	// ErrHeaderParseComplete is returned by ParseHeaderLine for a line without a
	// name/value separator. It ends header parsing and is not a failure.
	ErrHeaderParseComplete = errors.New("websocket: header parse complete")
)

// Error is returned by every fallible session operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err, or 0 if err did not come from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func ioFailure(op string, err error) error {
	return &Error{Kind: IoFailure, Op: op, Err: err}
}

func protocolViolation(op string, err error) error {
	return &Error{Kind: ProtocolViolation, Op: op, Err: err}
}

func contentValidation(op string, err error) error {
	return &Error{Kind: ContentValidation, Op: op, Err: err}
}
