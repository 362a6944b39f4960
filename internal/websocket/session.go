package websocket

import (
	"bufio"
	"io"
)

// State is the lifecycle position of a Session.
type State int

const (
	AwaitingHandshake State = iota
	Established
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingHandshake:
		return "awaiting-handshake"
	case Established:
		return "established"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one server-side WebSocket conversation over a byte stream.
// It is not safe for concurrent use; a single goroutine drives it.
type Session struct {
	br     *bufio.Reader
	w      io.Writer
	closer io.Closer
	state  State
	last   FrameKind
}

// New wraps rw in a Session awaiting its handshake. If rw is an io.Closer,
// Close closes it.
func New(rw io.ReadWriter) *Session {
	return NewWithReader(bufio.NewReader(rw), rw)
}

// NewWithReader builds a Session on a reader the caller has already buffered,
// so bytes it peeked are not lost. If w is an io.Closer, Close closes it.
func NewWithReader(br *bufio.Reader, w io.Writer) *Session {
	s := &Session{br: br, w: w, state: AwaitingHandshake}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Accept creates a Session on rw and negotiates it.
func Accept(rw io.ReadWriter) (*Session, error) {
	s := New(rw)
	if err := s.Negotiate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) State() State {
	return s.state
}

// LastFrameKind is the kind announced by the most recently received frame.
func (s *Session) LastFrameKind() FrameKind {
	return s.last
}

// Negotiate performs the opening handshake. It may be called once.
func (s *Session) Negotiate() error {
	if s.state != AwaitingHandshake {
		return protocolViolation("handshake", ErrSessionState)
	}
	if err := Negotiate(s.br, s.w); err != nil {
		s.state = Closed
		return err
	}
	s.state = Established
	return nil
}

// Send writes payload as one text frame.
func (s *Session) Send(payload []byte) error {
	if s.state != Established {
		return protocolViolation("send", ErrSessionState)
	}
	if err := WriteTextFrame(s.w, payload); err != nil {
		s.state = Closed
		return err
	}
	return nil
}

func (s *Session) SendText(text string) error {
	return s.Send([]byte(text))
}

// Recv reads one frame and returns its payload as text.
func (s *Session) Recv() (string, error) {
	if s.state != Established {
		return "", protocolViolation("recv", ErrSessionState)
	}
	kind, text, err := readTextFrame(s.br)
	s.last = kind
	if err != nil {
		s.state = Closed
		return "", err
	}
	return text, nil
}

// Close marks the session closed and closes the stream if it can be closed.
func (s *Session) Close() error {
	s.state = Closed
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
