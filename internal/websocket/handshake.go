package websocket

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// GUID is concatenated with the client key before hashing (RFC 6455, Section 1.3).
const GUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

const challengeHeader = "Sec-WebSocket-Key"

// HeaderLine is one "Name: value" line of the handshake request.
type HeaderLine struct {
	Name  string
	Value string
}

// ParseHeaderLine splits line at its first colon and trims both halves.
// A line without a colon, including the blank line that ends the request,
// yields ErrHeaderParseComplete.
func ParseHeaderLine(line string) (HeaderLine, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return HeaderLine{}, ErrHeaderParseComplete
	}
	return HeaderLine{
		Name:  strings.TrimSpace(name),
		Value: strings.TrimSpace(value),
	}, nil
}

// ReadHeaders reads header lines until one fails to parse. Names are kept as
// sent and a repeated name overwrites the earlier value.
func ReadHeaders(r *bufio.Reader) (map[string]string, error) {
	headers := make(map[string]string)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return headers, err
		}
		h, err := ParseHeaderLine(line)
		if errors.Is(err, ErrHeaderParseComplete) {
			return headers, nil
		}
		headers[h.Name] = h.Value
	}
}

// AcceptToken computes the Sec-WebSocket-Accept value for a client key.
func AcceptToken(key string) string {
	sum := sha1.Sum([]byte(key + GUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func upgradeResponse(token string) string {
	return "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + token + "\r\n" +
		"\r\n"
}

// Negotiate upgrades the connection: it consumes the request line and
// headers from r and writes the 101 response to w. Nothing is written
// unless the request carries a Sec-WebSocket-Key. The Origin header is
// not checked.
func Negotiate(r *bufio.Reader, w io.Writer) error {
	const op = "handshake"

	// request line is not validated
	if _, err := r.ReadString('\n'); err != nil {
		return ioFailure(op, err)
	}

	// EOF before the blank line fails the handshake even if the key was read
	headers, err := ReadHeaders(r)
	if err != nil {
		return ioFailure(op, err)
	}

	// values keep any colons after the first one
	key, ok := headers[challengeHeader]
	if !ok {
		return protocolViolation(op, ErrMissingChallenge)
	}

	if _, err := io.WriteString(w, upgradeResponse(AcceptToken(key))); err != nil {
		return ioFailure(op, err)
	}
	return nil
}
