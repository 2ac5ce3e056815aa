package engine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bamsammich/fastcopy/internal/platform"
)

// tmpSuffix marks in-progress copies in a destination directory.
const tmpSuffix = ".fastcopy-tmp"

// Execute performs one job. It touches nothing but the two paths in j and
// never panics; every failure is reported in the returned Outcome.
func Execute(j Job) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failed(j, "panic: %v", r)
		}
	}()

	if !j.Overwrite {
		if _, err := os.Lstat(j.Dst); err == nil {
			return skipped(j, SkipExists)
		}
	}

	info, err := os.Lstat(j.Src)
	if err != nil {
		return failed(j, "stat %s: %v", j.Src, err)
	}

	src := j.Src
	if info.Mode()&fs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(j.Src)
		if err != nil {
			return skipped(j, SkipDanglingSymlink)
		}
		info, err = os.Stat(resolved)
		if err != nil {
			return skipped(j, SkipDanglingSymlink)
		}
		if !info.Mode().IsRegular() {
			return skipped(j, SkipSymlinkNotFile)
		}
		src = resolved
	} else if !info.Mode().IsRegular() {
		return failed(j, "%s: not a regular file", j.Src)
	}

	n, err := copyRegularFile(src, j.Dst, info, j.Verify)
	if err != nil {
		return failed(j, "%v", err)
	}
	return Outcome{Src: j.Src, Dst: j.Dst, OK: true, Bytes: n}
}

// copyRegularFile copies src to dst through a temp file in dst's directory,
// carrying over permission bits and access/modification times, then renames
// it into place.
func copyRegularFile(src, dst string, info fs.FileInfo, verify bool) (int64, error) {
	dir := filepath.Dir(dst)
	base := filepath.Base(dst)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s%s", base, uuid.New().String()[:8], tmpSuffix))

	srcFd, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer srcFd.Close()

	globalTmpRegistry.add(tmpPath)
	defer func() {
		globalTmpRegistry.remove(tmpPath)
		_ = os.Remove(tmpPath) // no-op if rename succeeded
	}()

	tmpFd, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create tmp %s: %w", tmpPath, err)
	}

	result, err := platform.CopyFile(tmpFd, srcFd, info.Size())
	if err != nil {
		tmpFd.Close()
		return 0, fmt.Errorf("copy data %s: %w", src, err)
	}
	if err := tmpFd.Close(); err != nil {
		return 0, fmt.Errorf("close tmp %s: %w", tmpPath, err)
	}

	mode := info.Mode() & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
	if err := os.Chmod(tmpPath, mode); err != nil {
		return 0, fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := setFileTimes(tmpPath, accessTime(info), info.ModTime()); err != nil {
		return 0, fmt.Errorf("set times %s: %w", dst, err)
	}

	if verify {
		if err := verifyCopy(src, tmpPath); err != nil {
			return 0, err
		}
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("rename %s -> %s: %w", tmpPath, dst, err)
	}
	return result.BytesWritten, nil
}
