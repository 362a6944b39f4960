package websocket

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upgradeRequest = "GET /chat HTTP/1.1\r\n" +
	"Host: localhost:9000\r\n" +
	"Upgrade: websocket\r\n" +
	"Connection: Upgrade\r\n" +
	"Sec-WebSocket-Key: " + sampleKey + "\r\n" +
	"Sec-WebSocket-Version: 13\r\n\r\n"

type stream struct {
	io.Reader
	bytes.Buffer
	closed bool
}

func (s *stream) Read(p []byte) (int, error) { return s.Reader.Read(p) }
func (s *stream) Close() error {
	s.closed = true
	return nil
}

func newStream(in ...[]byte) *stream {
	return &stream{Reader: bytes.NewReader(bytes.Join(in, nil))}
}

func TestSessionLifecycle(t *testing.T) {
	key := [4]byte{0x11, 0x22, 0x33, 0x44}
	st := newStream([]byte(upgradeRequest), maskedFrame([]byte("ping?"), key))

	s := New(st)
	assert.Equal(t, AwaitingHandshake, s.State())

	require.NoError(t, s.Negotiate())
	assert.Equal(t, Established, s.State())
	assert.True(t, strings.HasPrefix(st.String(), "HTTP/1.1 101 Switching Protocols\r\n"))
	st.Reset()

	msg, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ping?", msg)
	assert.Equal(t, FrameText, s.LastFrameKind())

	require.NoError(t, s.SendText(msg))
	assert.Equal(t, append([]byte{0x81, 5}, "ping?"...), st.Bytes())

	// stream exhausted: next recv is an I/O failure and closes the session
	_, err = s.Recv()
	assert.Equal(t, IoFailure, KindOf(err))
	assert.Equal(t, Closed, s.State())

	err = s.SendText("late")
	assert.ErrorIs(t, err, ErrSessionState)

	require.NoError(t, s.Close())
	assert.True(t, st.closed)
}

func TestSessionOperationsBeforeHandshake(t *testing.T) {
	st := newStream()
	s := New(st)

	_, err := s.Recv()
	assert.ErrorIs(t, err, ErrSessionState)
	assert.ErrorIs(t, s.SendText("x"), ErrSessionState)
	assert.Zero(t, st.Len())
	assert.Equal(t, AwaitingHandshake, s.State())
}

func TestSessionNegotiateTwice(t *testing.T) {
	s := New(newStream([]byte(upgradeRequest)))
	require.NoError(t, s.Negotiate())

	err := s.Negotiate()
	assert.ErrorIs(t, err, ErrSessionState)
	assert.Equal(t, ProtocolViolation, KindOf(err))
	assert.Equal(t, Established, s.State())
}

func TestSessionFailedHandshakeCloses(t *testing.T) {
	st := newStream([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	s := New(st)

	err := s.Negotiate()
	assert.ErrorIs(t, err, ErrMissingChallenge)
	assert.Equal(t, Closed, s.State())
	assert.Zero(t, st.Len())
}

func TestSessionInvalidTextCloses(t *testing.T) {
	st := newStream([]byte(upgradeRequest), maskedFrame([]byte{0x80}, [4]byte{1, 1, 1, 1}))
	s := New(st)
	require.NoError(t, s.Negotiate())

	_, err := s.Recv()
	assert.Equal(t, ContentValidation, KindOf(err))
	assert.Equal(t, Closed, s.State())
}

func TestSessionSendTooLongCloses(t *testing.T) {
	st := newStream([]byte(upgradeRequest))
	s := New(st)
	require.NoError(t, s.Negotiate())
	st.Reset()

	err := s.Send(textPayload(MaxPayloadLength + 1))
	assert.ErrorIs(t, err, ErrUnsupportedFrameLength)
	assert.Equal(t, Closed, s.State())
	assert.Zero(t, st.Len())
}

func TestSessionRecordsControlFrameKind(t *testing.T) {
	ping := maskedFrame([]byte("are you there"), [4]byte{7, 7, 7, 7})
	ping[0] = 0x89
	s := New(newStream([]byte(upgradeRequest), ping))
	require.NoError(t, s.Negotiate())

	msg, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "are you there", msg)
	assert.Equal(t, FramePing, s.LastFrameKind())
}

func TestAcceptOverPipe(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		s, err := Accept(server)
		if err != nil {
			done <- err
			return
		}
		defer s.Close()
		msg, err := s.Recv()
		if err != nil {
			done <- err
			return
		}
		done <- s.SendText(strings.ToUpper(msg))
	}()

	_, err := client.Write([]byte(upgradeRequest))
	require.NoError(t, err)

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 101 Switching Protocols\r\n", status)
	headers, err := ReadHeaders(br)
	require.NoError(t, err)
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", headers["Sec-WebSocket-Accept"])

	_, err = client.Write(maskedFrame([]byte("echo"), [4]byte{0xa, 0xb, 0xc, 0xd}))
	require.NoError(t, err)

	reply := make([]byte, 6)
	_, err = io.ReadFull(br, reply)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x81, 4}, "ECHO"...), reply)
	require.NoError(t, <-done)
}
