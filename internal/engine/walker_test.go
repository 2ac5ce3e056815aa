package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fastcopy/internal/filter"
)

func relJobs(t *testing.T, src string, jobs []Job) []string {
	t.Helper()
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		rel, err := filepath.Rel(src, j.Src)
		require.NoError(t, err)
		out = append(out, rel)
	}
	return out
}

func TestWalker_PreOrderAndMirroredDirs(t *testing.T) {
	src, dst := testDirs(t)
	createTestTree(t, src)

	var got []Job
	for j := range Walk(src, dst, WalkOptions{Overwrite: true, Verify: true}) {
		// The destination directory must exist before the job is seen.
		info, err := os.Stat(filepath.Dir(j.Dst))
		require.NoError(t, err, "parent of %s not created", j.Dst)
		require.True(t, info.IsDir())
		assert.True(t, j.Overwrite)
		assert.True(t, j.Verify)
		got = append(got, j)
	}

	assert.Equal(t, []string{
		"big.bin",
		"link.txt",
		"root.txt",
		filepath.Join("sub", "mid.txt"),
		filepath.Join("sub", "deep", "leaf.txt"),
	}, relJobs(t, src, got))

	// Empty directories are mirrored too.
	info, err := os.Stat(filepath.Join(dst, "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	for _, j := range got {
		rel, err := filepath.Rel(src, j.Src)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dst, rel), j.Dst)
	}
}

func TestWalker_ExcludesDirectoriesByName(t *testing.T) {
	src, dst := testDirs(t)

	require.NoError(t, os.MkdirAll(filepath.Join(src, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "a", "node_modules"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "Node_Modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "node_modules", "pkg", "index.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "node_modules", "dep.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Node_Modules", "kept.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "app.js"), []byte("x"), 0o644))

	jobs := Collect(Walk(src, dst, WalkOptions{Exclude: filter.Default()}))

	assert.ElementsMatch(t, []string{
		filepath.Join("Node_Modules", "kept.js"),
		filepath.Join("a", "app.js"),
	}, relJobs(t, src, jobs))

	_, err := os.Stat(filepath.Join(dst, "node_modules"))
	assert.True(t, os.IsNotExist(err), "pruned directory must not be mirrored")
	_, err = os.Stat(filepath.Join(dst, "a", "node_modules"))
	assert.True(t, os.IsNotExist(err))
}

func TestWalker_FileNamedLikeExcludedDirIsKept(t *testing.T) {
	src, dst := testDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(src, "node_modules"), []byte("file"), 0o644))

	jobs := Collect(Walk(src, dst, WalkOptions{Exclude: filter.Default()}))
	assert.Equal(t, []string{"node_modules"}, relJobs(t, src, jobs))
}

func TestWalker_SymlinkedDirNotDescended(t *testing.T) {
	src, dst := testDirs(t)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "real"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "real", "f.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("real", filepath.Join(src, "alias")))
	// A loop back to the root must not recurse.
	require.NoError(t, os.Symlink(".", filepath.Join(src, "loop")))

	jobs := Collect(Walk(src, dst, WalkOptions{}))
	assert.Equal(t, []string{"alias", "loop", filepath.Join("real", "f.txt")}, relJobs(t, src, jobs))
}

func TestWalker_CancelStopsSequence(t *testing.T) {
	src, dst := testDirs(t)
	for i := range 20 {
		require.NoError(t, os.WriteFile(filepath.Join(src, string(rune('a'+i))+".txt"), []byte("x"), 0o644))
	}

	seen := 0
	cancelled := func() bool { return seen >= 3 }
	for range Walk(src, dst, WalkOptions{Cancelled: cancelled}) {
		seen++
	}
	assert.Equal(t, 3, seen)
}

func TestWalker_CancelledBeforeStartYieldsNothing(t *testing.T) {
	src, dst := testDirs(t)
	createTestTree(t, src)

	jobs := Collect(Walk(src, dst, WalkOptions{Cancelled: func() bool { return true }}))
	assert.Empty(t, jobs)
	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

func TestWalker_ReiterationRestarts(t *testing.T) {
	src, dst := testDirs(t)
	createTestTree(t, src)

	seq := Walk(src, dst, WalkOptions{})
	first := Collect(seq)
	second := Collect(seq)
	assert.Len(t, first, testTreeFiles)
	assert.Equal(t, first, second)
}

func TestWalker_EarlyBreak(t *testing.T) {
	src, dst := testDirs(t)
	createTestTree(t, src)

	n := 0
	for range Walk(src, dst, WalkOptions{}) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestWalker_UnreadableDirReported(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root, cannot test permission denied")
	}

	src, dst := testDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(src, "ok.txt"), []byte("x"), 0o644))
	forbidden := filepath.Join(src, "forbidden")
	require.NoError(t, os.Mkdir(forbidden, 0o000))
	defer func() { _ = os.Chmod(forbidden, 0o755) }() //nolint:errcheck // best-effort cleanup in test

	var errs []error
	jobs := Collect(Walk(src, dst, WalkOptions{OnError: func(err error) { errs = append(errs, err) }}))

	assert.Equal(t, []string{"ok.txt"}, relJobs(t, src, jobs))
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], os.ErrPermission))
}

func TestWalker_MkdirFailureSkipsSubtree(t *testing.T) {
	src, dst := testDirs(t)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "f.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("x"), 0o644))

	// A regular file where the mirrored directory should go.
	require.NoError(t, os.MkdirAll(dst, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "sub"), []byte("blocker"), 0o644))

	var errs []error
	jobs := Collect(Walk(src, dst, WalkOptions{OnError: func(err error) { errs = append(errs, err) }}))

	assert.Equal(t, []string{"top.txt"}, relJobs(t, src, jobs))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "create directory")
}

func TestWalker_IgnoresSpecialFiles(t *testing.T) {
	src, dst := testDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(src, "f.txt"), []byte("x"), 0o644))
	if err := mkfifo(filepath.Join(src, "pipe")); err != nil {
		t.Skipf("mkfifo unsupported: %v", err)
	}

	jobs := Collect(Walk(src, dst, WalkOptions{}))
	assert.Equal(t, []string{"f.txt"}, relJobs(t, src, jobs))
}
