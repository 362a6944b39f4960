package sniff

import (
	"bufio"
	"bytes"
	"io"
)

// peekLineSlice returns the first line buffered in br, without its CRLF and
// without consuming it. Only bytes already buffered (up to maxSize) are looked
// at; io.EOF means no complete line is available yet.
func peekLineSlice(br *bufio.Reader, maxSize int) ([]byte, error) {
	peekSize := maxSize
	if peekSize == 0 {
		return nil, io.EOF
	}
	if buffered := br.Buffered(); buffered < peekSize {
		peekSize = buffered
	}

	buf, err := br.Peek(peekSize)
	if err != nil {
		return nil, err
	}

	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return nil, io.EOF
	}
	line := bytes.TrimSuffix(buf[:i], []byte{'\r'})
	return append([]byte(nil), line...), nil
}
