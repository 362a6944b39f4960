package server

import (
	"fmt"
	"log/slog"
	"net"
)

// client is one accepted connection, carried through log records as a group.
type client struct {
	conn       net.Conn
	RemoteAddr string
	LocalAddr  string
}

func newClient(conn net.Conn) *client {
	return &client{
		conn:       conn,
		RemoteAddr: conn.RemoteAddr().String(),
		LocalAddr:  conn.LocalAddr().String(),
	}
}

func (c *client) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("RemoteAddr", c.RemoteAddr),
		slog.String("LocalAddr", c.LocalAddr),
	)
}

func (c *client) LogDebug(msg string) {
	slog.Debug(msg, "Client", c)
}

func (c *client) LogInfo(msg string) {
	slog.Info(msg, "Client", c)
}

func (c *client) LogWarn(msg string) {
	slog.Warn(msg, "Client", c)
}

func (c *client) LogDebugf(format string, args ...interface{}) {
	c.LogDebug(fmt.Sprintf(format, args...))
}

func (c *client) LogInfof(format string, args ...interface{}) {
	c.LogInfo(fmt.Sprintf(format, args...))
}
