package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const logWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLogs streams log lines as they are written. WebSocket clients get
// one text message per line, everyone else gets a chunked text/plain body.
func (s *APIServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logBroadcaster == nil {
		http.Error(w, "log streaming disabled", http.StatusServiceUnavailable)
		return
	}
	if websocket.IsWebSocketUpgrade(r) {
		s.handleLogsWS(w, r)
		return
	}
	s.handleLogsHTTP(w, r)
}

// pumpLogs forwards broadcast lines to send until ctx is done, the
// subscription is closed or send fails.
func (s *APIServer) pumpLogs(ctx context.Context, send func([]byte) error) {
	ch := s.logBroadcaster.Subscribe()
	defer s.logBroadcaster.Unsubscribe(ch)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := send(msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *APIServer) handleLogsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrader.Upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	// the read side only detects the peer going away
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.pumpLogs(ctx, func(msg []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(logWriteTimeout))
		return conn.WriteMessage(websocket.TextMessage, msg)
	})
}

func (s *APIServer) handleLogsHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.pumpLogs(r.Context(), func(msg []byte) error {
		if _, err := w.Write(msg); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}
