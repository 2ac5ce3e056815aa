//go:build linux

package platform

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile copies size bytes from src into dst, trying copy_file_range first
// and falling back to read/write when the kernel or filesystem refuses it.
// Sources with holes are copied region by region so dst stays sparse.
// dst is expected to be a freshly created, empty file.
func CopyFile(dst, src *os.File, size int64) (CopyResult, error) {
	segs, ok, err := dataSegments(src, size)
	if err != nil {
		return CopyResult{}, err
	}
	if ok && hasHoles(segs, size) {
		return copySparse(dst, src, segs, size)
	}
	// Hole detection moved the file offset.
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return CopyResult{}, fmt.Errorf("rewind source: %w", err)
	}

	preallocate(dst, size)

	result, err := copyFileRange(dst, src, size)
	if err == nil {
		return result, nil
	}
	if result.BytesWritten > 0 || !isFallbackErr(err) {
		return result, err
	}

	return copyReadWrite(dst, src)
}

func copyFileRange(dst, src *os.File, size int64) (CopyResult, error) {
	var total int64
	remaining := size
	for remaining > 0 {
		//nolint:gosec // G115: fds are small non-negative integers
		n, err := unix.CopyFileRange(int(src.Fd()), nil, int(dst.Fd()), nil, int(remaining), 0)
		if err != nil {
			return CopyResult{BytesWritten: total, Method: CopyFileRange}, err
		}
		if n == 0 {
			// Source shrank underneath us; what we have is what there is.
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}
	return CopyResult{BytesWritten: total, Method: CopyFileRange}, nil
}

// preallocate reserves disk space for the destination. fallocate is advisory
// and not supported everywhere, so errors are ignored.
func preallocate(fd *os.File, size int64) {
	if size <= 0 {
		return
	}
	//nolint:errcheck,gosec // advisory
	unix.Fallocate(int(fd.Fd()), 0, 0, size)
}

// isFallbackErr reports whether err means copy_file_range is unusable for
// this pair of files and read/write should be tried instead.
func isFallbackErr(err error) bool {
	for _, e := range []error{unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP, unix.EOPNOTSUPP, unix.EPERM} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
