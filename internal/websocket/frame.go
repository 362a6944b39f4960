package websocket

import (
	"io"
	"unicode/utf8"
)

const (
	finText byte = 0x81

	maxShortLength = 125
	extLength16    = 126
	extLength64    = 127

	// MaxPayloadLength is the largest payload the 16-bit length form can carry.
	MaxPayloadLength = 0xFFFF
)

// WriteTextFrame writes payload as a single unmasked text frame.
// Payloads longer than MaxPayloadLength are rejected before anything is written.
func WriteTextFrame(w io.Writer, payload []byte) error {
	const op = "send"

	n := len(payload)
	if n > MaxPayloadLength {
		return protocolViolation(op, ErrUnsupportedFrameLength)
	}

	header := make([]byte, 0, 4)
	header = append(header, finText)
	if n <= maxShortLength {
		header = append(header, byte(n))
	} else {
		header = append(header, extLength16, byte(n>>8), byte(n))
	}

	if _, err := w.Write(header); err != nil {
		return ioFailure(op, err)
	}
	if _, err := w.Write(payload); err != nil {
		return ioFailure(op, err)
	}
	return nil
}

// ReadTextFrame reads one masked frame from r and returns its payload as text.
func ReadTextFrame(r io.Reader) (string, error) {
	_, text, err := readTextFrame(r)
	return text, err
}

func readTextFrame(r io.Reader) (FrameKind, string, error) {
	const op = "recv"

	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return FrameUnsupported, "", ioFailure(op, err)
	}
	kind := Classify(hdr[0])

	var length int
	switch len1 := hdr[1] & 0x7F; {
	case len1 <= maxShortLength:
		length = int(len1)
	case len1 == extLength16:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return kind, "", ioFailure(op, err)
		}
		length = int(ext[0])<<8 | int(ext[1])
	default:
		return kind, "", protocolViolation(op, ErrUnsupportedFrameLength)
	}

	// the mask key is read whether or not the mask bit is set
	var key [4]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return kind, "", ioFailure(op, err)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return kind, "", ioFailure(op, err)
	}
	MaskBytes(key, 0, payload)

	if !utf8.Valid(payload) {
		return kind, "", contentValidation(op, ErrInvalidText)
	}
	return kind, string(payload), nil
}

// MaskBytes XORs b in place with key, starting at key offset pos, and
// returns the offset to continue from. Applying it twice restores b.
func MaskBytes(key [4]byte, pos int, b []byte) int {
	for i := range b {
		b[i] ^= key[(pos+i)%4]
	}
	return (pos + len(b)) % 4
}
