package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wsecho/wsecho/internal/config"
)

// SetLogConf installs the default slog logger. Records go to stdout, to a
// rotating file under GetLogDir and, when lb is not nil, to its subscribers.
func SetLogConf(level string, lb *Broadcaster) {
	fileWriter := &lumberjack.Logger{
		Filename:   GetLogFilePath(),
		MaxSize:    5, // megabytes
		MaxBackups: 5,
		MaxAge:     7, // days
		LocalTime:  true,
		Compress:   true,
	}

	writers := []io.Writer{os.Stdout, fileWriter}
	if lb != nil {
		writers = append(writers, lb)
	}

	slog.SetDefault(NewLogger(io.MultiWriter(writers...), level))
}

// NewLogger builds the text logger used everywhere, writing to w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	loc := LoadLocalLocation()
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				t := a.Value.Time().In(loc)
				return slog.String(slog.TimeKey, t.Format("2006-01-02 15:04:05"))
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a config log level to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func LogHeader(version string, cfg *config.Config) {
	slog.Info("wsecho started", slog.String("version", version), slog.Any("config", cfg))
	slog.Debug("host", GetOSInfo()...)
}

// LoadLocalLocation tries to detect and load the system local timezone from
// `/etc/localtime` or `/etc/TZ`.
func LoadLocalLocation() *time.Location {
	if _, err := os.Stat("/etc/localtime"); err == nil {
		if loc, _ := time.LoadLocation("Local"); loc != nil {
			return loc
		}
	}
	if data, err := os.ReadFile("/etc/TZ"); err == nil {
		tz := strings.TrimSpace(string(data))
		if strings.HasPrefix(tz, "CST-8") {
			return time.FixedZone("CST", 8*3600)
		}
	}
	return time.UTC
}
