//go:build linux

package platform

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeSparse writes a file with a leading hole, a data block, and a
// trailing hole.
func makeSparse(t *testing.T, path string) (size int64, data []byte) {
	t.Helper()
	const holeSize = 1 << 20
	data = bytes.Repeat([]byte("B"), 4096)
	size = 2*holeSize + int64(len(data))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(size))
	_, err = f.WriteAt(data, holeSize)
	require.NoError(t, err)
	return size, data
}

func TestDataSegments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse")
	size, data := makeSparse(t, path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	segs, ok, err := dataSegments(f, size)
	require.NoError(t, err)
	if !ok || !hasHoles(segs, size) {
		t.Skip("filesystem does not report holes")
	}

	var mapped int64
	for _, s := range segs {
		mapped += s.length
	}
	assert.GreaterOrEqual(t, mapped, int64(len(data)))
	assert.Less(t, mapped, size)
}

func TestDataSegmentsDenseFile(t *testing.T) {
	data := bytes.Repeat([]byte("A"), 8192)
	_, src, _ := copyPair(t, data)

	segs, ok, err := dataSegments(src, int64(len(data)))
	require.NoError(t, err)
	if ok {
		assert.False(t, hasHoles(segs, int64(len(data))))
	}
}

func TestCopyFileSparse(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")
	size, _ := makeSparse(t, srcPath)

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	require.NoError(t, err)
	defer dst.Close()

	result, err := CopyFile(dst, src, size)
	require.NoError(t, err)
	require.NoError(t, dst.Close())

	want, err := os.ReadFile(srcPath)
	require.NoError(t, err)
	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	if result.Method == Sparse {
		assert.Less(t, result.BytesWritten, size)
	}
}

func TestHasHoles(t *testing.T) {
	assert.False(t, hasHoles(nil, 0))
	assert.True(t, hasHoles(nil, 10))
	assert.False(t, hasHoles([]segment{{offset: 0, length: 10}}, 10))
	assert.True(t, hasHoles([]segment{{offset: 4, length: 6}}, 10))
}
