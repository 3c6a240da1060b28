package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMillisFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "checkpoint.txt")
	f := NewMillisFile(path, 5*time.Minute, zap.NewNop())

	require.NoError(t, f.Store(1700000000000))
	assert.Equal(t, int64(1700000000000), f.Load())
}

func TestMillisFileFallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := now.Add(-5 * time.Minute).UnixMilli()

	t.Run("missing file", func(t *testing.T) {
		f := NewMillisFile(filepath.Join(t.TempDir(), "missing.txt"), 5*time.Minute, zap.NewNop())
		f.now = func() time.Time { return now }
		assert.Equal(t, want, f.Load())
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
		f := NewMillisFile(path, 5*time.Minute, zap.NewNop())
		f.now = func() time.Time { return now }
		assert.Equal(t, want, f.Load())
	})

	t.Run("garbage content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.txt")
		require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))
		f := NewMillisFile(path, 5*time.Minute, zap.NewNop())
		f.now = func() time.Time { return now }
		assert.Equal(t, want, f.Load())
	})
}

func TestMillisFileFallbackWarns(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(t *testing.T, dir string) string
	}{
		{"missing file", func(t *testing.T, dir string) string {
			return filepath.Join(dir, "missing.txt")
		}},
		{"empty file", func(t *testing.T, dir string) string {
			path := filepath.Join(dir, "empty.txt")
			require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
			return path
		}},
		{"garbage content", func(t *testing.T, dir string) string {
			path := filepath.Join(dir, "bad.txt")
			require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))
			return path
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			path := tc.prepare(t, t.TempDir())

			NewMillisFile(path, 5*time.Minute, zap.New(core)).Load()

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, zap.WarnLevel, entry.Level)
			assert.Equal(t, path, entry.ContextMap()["path"])
		})
	}
}

func TestTimeFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last-sync.txt")
	f := NewTimeFile(path)

	_, ok := f.Load()
	assert.False(t, ok)

	stamp := time.Date(2026, 3, 1, 8, 30, 15, 0, time.Local)
	require.NoError(t, f.Store(stamp))

	got, ok := f.Load()
	require.True(t, ok)
	assert.True(t, stamp.Equal(got))
}

func TestTimeFileBadContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last-sync.txt")
	require.NoError(t, os.WriteFile(path, []byte("2026-13-99"), 0o644))

	_, ok := NewTimeFile(path).Load()
	assert.False(t, ok)
}
