package record

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(dir, "frames")
	require.NoError(t, err)

	payloads := [][]byte{
		[]byte("first"),
		{},
		[]byte("third record with more bytes"),
	}
	for _, p := range payloads {
		require.NoError(t, w.Record(p))
	}
	require.NoError(t, w.Close())
	assert.Error(t, w.Record([]byte("late")), "writes after close must fail")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	r, err := OpenReader(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	defer r.Close()

	for i, want := range payloads {
		got, capturedAt, err := r.Next()
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, want, got)
		assert.Positive(t, capturedAt)
	}
	_, _, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpenReaderRejectsForeignFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bogus.bin")
	require.NoError(t, os.WriteFile(path, []byte("NOTALOG0payload"), 0o644))
	_, err := OpenReader(path)
	assert.Error(t, err)
}
