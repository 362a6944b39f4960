package websocket

// Opcode is the low nibble of the first frame header byte.
type Opcode byte

const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// FrameKind tells which frame types a received header byte announced.
// Only FrameText is handled; every other kind is still decoded as text.
type FrameKind int

const (
	FrameUnsupported FrameKind = iota
	FrameText
	FrameClose
	FramePing
	FramePong
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameClose:
		return "close"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	default:
		return "unsupported"
	}
}

// Classify maps the first header byte of a frame to its FrameKind.
func Classify(b0 byte) FrameKind {
	switch Opcode(b0 & 0x0F) {
	case OpText:
		return FrameText
	case OpClose:
		return FrameClose
	case OpPing:
		return FramePing
	case OpPong:
		return FramePong
	default:
		return FrameUnsupported
	}
}
