package log

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const appName = "wsecho"

var (
	logDir     string
	logDirOnce sync.Once
)

// GetLogDir returns the directory log and stats files are written to:
// /var/log/wsecho on Linux when writable, otherwise ~/.wsecho, otherwise a
// directory under os.TempDir. It is created on first use.
func GetLogDir() string {
	logDirOnce.Do(func() {
		logDir = determineLogDir()
		if err := os.MkdirAll(logDir, 0755); err != nil {
			logDir = filepath.Join(os.TempDir(), appName)
			_ = os.MkdirAll(logDir, 0755)
		}
	})
	return logDir
}

func determineLogDir() string {
	if runtime.GOOS == "linux" {
		varLogDir := filepath.Join("/var/log", appName)
		if writable(varLogDir) {
			return varLogDir
		}
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		userLogDir := filepath.Join(homeDir, "."+appName)
		if writable(userLogDir) {
			return userLogDir
		}
	}
	return filepath.Join(os.TempDir(), appName)
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// GetLogFilePath returns the full path to the main log file.
func GetLogFilePath() string {
	return filepath.Join(GetLogDir(), appName+".log")
}

// GetStatsFilePath returns the full path to a stats file.
func GetStatsFilePath(name string) string {
	return filepath.Join(GetLogDir(), name)
}
