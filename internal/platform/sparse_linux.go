//go:build linux

package platform

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// segment is one data region of a file. Anything between segments is a hole.
type segment struct {
	offset int64
	length int64
}

// dataSegments walks SEEK_DATA/SEEK_HOLE to find the data regions of f.
// ok is false when the filesystem can't report holes.
func dataSegments(f *os.File, size int64) (segs []segment, ok bool, err error) {
	fd := int(f.Fd()) //nolint:gosec // G115: fds are small non-negative integers
	for off := int64(0); off < size; {
		start, err := unix.Seek(fd, off, unix.SEEK_DATA)
		switch {
		case errors.Is(err, unix.ENXIO):
			// Only a hole remains.
			return segs, true, nil
		case errors.Is(err, unix.EINVAL), errors.Is(err, unix.EOPNOTSUPP):
			return nil, false, nil
		case err != nil:
			return nil, false, fmt.Errorf("seek data: %w", err)
		}

		end, err := unix.Seek(fd, start, unix.SEEK_HOLE)
		switch {
		case errors.Is(err, unix.ENXIO):
			end = size
		case err != nil:
			return nil, false, fmt.Errorf("seek hole: %w", err)
		}
		end = min(end, size)
		if end <= start {
			break
		}

		segs = append(segs, segment{offset: start, length: end - start})
		off = end
	}
	return segs, true, nil
}

// hasHoles reports whether segs leave any part of a size-byte file unmapped.
func hasHoles(segs []segment, size int64) bool {
	var data int64
	for _, s := range segs {
		data += s.length
	}
	return data < size
}

// copySparse copies only the data regions of src and sizes dst so the holes
// are recreated instead of written out as zeros.
func copySparse(dst, src *os.File, segs []segment, size int64) (CopyResult, error) {
	result := CopyResult{Method: Sparse}
	for _, s := range segs {
		n, err := copyRange(dst, src, s)
		result.BytesWritten += n
		if err != nil {
			return result, err
		}
	}
	if err := dst.Truncate(size); err != nil {
		return result, fmt.Errorf("extend to %d bytes: %w", size, err)
	}
	return result, nil
}

// copyRange copies one segment at the same offset in both files, falling back
// to pread/pwrite when copy_file_range is refused.
func copyRange(dst, src *os.File, s segment) (int64, error) {
	roff, woff := s.offset, s.offset
	var total int64
	for total < s.length {
		//nolint:gosec // G115: fds are small non-negative integers
		n, err := unix.CopyFileRange(int(src.Fd()), &roff, int(dst.Fd()), &woff, int(s.length-total), 0)
		if err != nil {
			if total == 0 && isFallbackErr(err) {
				return copyRangeReadWrite(dst, src, s)
			}
			return total, err
		}
		if n == 0 {
			break
		}
		total += int64(n)
	}
	return total, nil
}

func copyRangeReadWrite(dst, src *os.File, s segment) (int64, error) {
	bufp := bufPool.Get().(*[]byte) //nolint:forcetypeassert // pool only holds *[]byte
	defer bufPool.Put(bufp)

	r := io.NewSectionReader(src, s.offset, s.length)
	w := io.NewOffsetWriter(dst, s.offset)
	return io.CopyBuffer(struct{ io.Writer }{w}, struct{ io.Reader }{r}, *bufp)
}
