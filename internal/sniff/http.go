package sniff

import (
	"bufio"
	"strings"
)

// HTTP methods recognised at the start of a request line.
var methodBytes = [...][]byte{
	[]byte("GET"),
	[]byte("POST"),
	[]byte("HEAD"),
	[]byte("CONNECT"),
	[]byte("PUT"),
	[]byte("DELETE"),
	[]byte("OPTIONS"),
	[]byte("PATCH"),
	[]byte("TRACE"),
}

const maxMethodLen = 7

type node struct {
	next map[byte]*node
	end  bool
}

var methodTrie = buildTrie()

func buildTrie() *node {
	root := &node{next: make(map[byte]*node)}
	for _, m := range methodBytes {
		n := root
		for _, c := range m {
			if n.next[c] == nil {
				n.next[c] = &node{next: make(map[byte]*node)}
			}
			n = n.next[c]
		}
		n.end = true
	}
	return root
}

// beginWithHTTPMethod peeks the first bytes and walks them through the
// method trie.
func beginWithHTTPMethod(reader *bufio.Reader) (bool, error) {
	n := methodTrie
	var prevLen int

	for size := 3; size <= maxMethodLen; size++ {
		buf, err := reader.Peek(size)
		if err != nil {
			return false, err
		}
		for _, c := range buf[prevLen:] {
			next, ok := n.next[c]
			if !ok {
				return false, nil
			}
			n = next
			if n.end {
				return true, nil
			}
		}
		prevLen = len(buf)
	}

	return false, nil
}

// RequestLine is the first line of an HTTP request.
type RequestLine struct {
	Method string
	Target string
	Proto  string
}

// parseRequestLine parses "GET /foo HTTP/1.1" into its three parts.
func parseRequestLine(line string) (RequestLine, bool) {
	method, rest, ok1 := strings.Cut(line, " ")
	target, proto, ok2 := strings.Cut(rest, " ")
	if !ok1 || !ok2 {
		return RequestLine{}, false
	}
	return RequestLine{Method: method, Target: target, Proto: proto}, true
}

// PeekRequestLine returns the buffered request line without consuming it.
func PeekRequestLine(reader *bufio.Reader) (RequestLine, bool) {
	line, err := peekLineSlice(reader, 512)
	if err != nil {
		return RequestLine{}, false
	}
	return parseRequestLine(string(line))
}

// SniffHTTP reports whether the buffered bytes start like an HTTP/1.x
// request. Nothing is consumed.
func SniffHTTP(reader *bufio.Reader) (bool, error) {
	beginHTTP, err := beginWithHTTPMethod(reader)
	if err != nil || !beginHTTP {
		return false, err
	}

	rl, ok := PeekRequestLine(reader)
	if !ok {
		return true, nil
	}
	if rl.Proto != "HTTP/1.1" && rl.Proto != "HTTP/1.0" {
		return false, nil
	}
	return true, nil
}
