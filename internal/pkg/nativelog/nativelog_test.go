package nativelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendsToDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	day := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return day }
	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	day = day.Add(2 * time.Minute)
	_, err = w.Write([]byte("third\n"))
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "doorlock_2024-05-01.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(b))

	b, err = os.ReadFile(filepath.Join(dir, "doorlock_2024-05-02.log"))
	require.NoError(t, err)
	assert.Equal(t, "third\n", string(b))
}

func TestWriterIgnoresEmptyWrites(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	n, err := w.Write(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)

	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
