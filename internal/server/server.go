package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wsecho/wsecho/internal/config"
	"github.com/wsecho/wsecho/internal/sniff"
	"github.com/wsecho/wsecho/internal/statistics"
	"github.com/wsecho/wsecho/internal/websocket"
)

const maxAcceptDelay = time.Second

// Server accepts TCP connections and runs an echo session on each one.
type Server struct {
	Cfg      *config.Config
	Recorder *statistics.Recorder

	listener net.Listener
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func New(cfg *config.Config, recorder *statistics.Recorder) *Server {
	return &Server{
		Cfg:      cfg,
		Recorder: recorder,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and serves connections in the background.
func (s *Server) Start() (err error) {
	if s.listener, err = net.Listen("tcp", s.Cfg.ListenAddr()); err != nil {
		return fmt.Errorf("net.Listen: %w", err)
	}
	slog.Info("echo server listening", slog.String("addr", s.listener.Addr().String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.serve()
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, closes every live connection and waits for their
// handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(delay*2, maxAcceptDelay)
			}
			slog.Error("Accept failed", slog.Any("error", err), slog.Duration("retry", delay))
			time.Sleep(delay)
			continue
		}
		delay = 0

		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleClient(conn)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) handleClient(conn net.Conn) {
	c := newClient(conn)
	record := s.Recorder.NewSession(c.RemoteAddr, c.LocalAddr)
	c.LogInfo("Handling client")

	err := s.serveSession(c, record)

	var reason string
	switch {
	case errors.Is(err, io.EOF):
		reason = "client quit"
		c.LogInfo("Client quit without error")
	case errors.Is(err, net.ErrClosed):
		reason = "server closed"
		c.LogDebug("Connection closed by server")
	default:
		reason = err.Error()
		c.LogInfof("Client exited with error: %v", err)
	}

	s.Recorder.EndSession(record, reason)
	s.untrack(conn)
	_ = conn.Close()
}

// serveSession upgrades the connection, sends the greeting and echoes
// every text message until the first error, which it returns.
func (s *Server) serveSession(c *client, record *statistics.SessionRecord) error {
	br := bufio.NewReader(c.conn)

	// the handshake itself does not validate the request line
	if isHTTP, err := sniff.SniffHTTP(br); err == nil {
		if rl, ok := sniff.PeekRequestLine(br); ok {
			c.LogDebugf("Upgrade request %s %s %s", rl.Method, rl.Target, rl.Proto)
		}
		if !isHTTP {
			c.LogWarn("Request does not look like HTTP")
		}
	}

	sess := websocket.NewWithReader(br, c.conn)
	if err := sess.Negotiate(); err != nil {
		return fmt.Errorf("sess.Negotiate: %w", err)
	}
	c.LogDebug("Handshake complete")

	if s.Cfg.Greeting != "" {
		if err := sess.SendText(s.Cfg.Greeting); err != nil {
			return fmt.Errorf("sess.SendText greeting: %w", err)
		}
		record.AddSent()
	}

	debug := slog.Default().Enabled(context.Background(), slog.LevelDebug)
	for {
		if debug {
			if ok, err := sniff.PeekClientFrame(br); err == nil && !ok {
				c.LogDebug("Next frame is not a masked client frame")
			}
		}

		msg, err := sess.Recv()
		if err != nil {
			return fmt.Errorf("sess.Recv: %w", err)
		}
		record.AddReceived()
		if kind := sess.LastFrameKind(); kind != websocket.FrameText {
			c.LogDebugf("%s frame handled as text", kind)
		}

		if err := sess.SendText(msg); err != nil {
			return fmt.Errorf("sess.SendText: %w", err)
		}
		record.AddSent()
	}
}
