package sniff

import "bufio"

// SniffClientFrame reports whether header looks like the start of a frame
// a conforming client sends: mask bit set, RSV bits clear, and an opcode
// defined by RFC 6455.
func SniffClientFrame(header []byte) bool {
	if len(header) < 2 {
		return false
	}

	b0, b1 := header[0], header[1]

	if b1&0x80 == 0 {
		return false
	}
	if b0&0x70 != 0 {
		return false
	}
	switch b0 & 0x0F {
	case 0x0, 0x1, 0x2, 0x8, 0x9, 0xA:
		return true
	default:
		return false
	}
}

// PeekClientFrame peeks the two leading header bytes of the next frame.
func PeekClientFrame(reader *bufio.Reader) (bool, error) {
	header, err := reader.Peek(2)
	if err != nil {
		return false, err
	}
	return SniffClientFrame(header), nil
}
