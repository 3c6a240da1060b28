// Package checkpoint persists sync watermarks as small plain text files so a
// restart resumes where the previous process stopped.
package checkpoint

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MillisFile stores a millisecond epoch timestamp. A missing, empty or
// unreadable file yields now minus the configured lookback, so the first run
// after a deploy still covers the recent window.
type MillisFile struct {
	logger   *zap.Logger
	path     string
	lookback time.Duration
	now      func() time.Time
}

func NewMillisFile(path string, lookback time.Duration, logger *zap.Logger) *MillisFile {
	return &MillisFile{logger: logger, path: path, lookback: lookback, now: time.Now}
}

// Load returns the stored watermark in millisecond epoch.
func (f *MillisFile) Load() int64 {
	fallback := f.now().Add(-f.lookback).UnixMilli()
	data, err := os.ReadFile(f.path)
	if err != nil {
		f.logger.Warn("checkpoint unreadable, falling back to lookback window",
			zap.String("path", f.path), zap.Int64("fallback_ms", fallback), zap.Error(err))
		return fallback
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		f.logger.Warn("checkpoint empty, falling back to lookback window",
			zap.String("path", f.path), zap.Int64("fallback_ms", fallback))
		return fallback
	}
	ms, err := strconv.ParseInt(content, 10, 64)
	if err != nil {
		f.logger.Warn("checkpoint corrupt, falling back to lookback window",
			zap.String("path", f.path), zap.String("content", content), zap.Int64("fallback_ms", fallback))
		return fallback
	}
	return ms
}

// Store writes the watermark, creating parent directories as needed.
func (f *MillisFile) Store(ms int64) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(strconv.FormatInt(ms, 10)), 0o644)
}

const timeLayout = "2006-01-02 15:04:05"

// TimeFile stores a wall clock timestamp in "2006-01-02 15:04:05" form. It
// marks the last completed full sync; incremental queries start from it.
type TimeFile struct {
	path string
}

func NewTimeFile(path string) *TimeFile {
	return &TimeFile{path: path}
}

// Load returns the stored timestamp and true, or a zero time and false when
// no usable value is on disk. A false result means a full sync is due.
func (f *TimeFile) Load() (time.Time, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return time.Time{}, false
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(timeLayout, content, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (f *TimeFile) Store(t time.Time) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(t.Format(timeLayout)), 0o644)
}
