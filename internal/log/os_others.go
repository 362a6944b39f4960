//go:build !unix

package log

import (
	"log/slog"
	"os"
	"runtime"
)

func GetOSInfo() []any {
	attrs := []any{
		slog.String("GOOS", runtime.GOOS),
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("go", runtime.Version()),
	}
	if hostname, err := os.Hostname(); err == nil {
		attrs = append(attrs, slog.String("hostname", hostname))
	}
	if v, ok := os.LookupEnv("OS"); ok {
		attrs = append(attrs, slog.String("os", v))
	}
	return attrs
}
