//go:build !linux

package platform

import "os"

// CopyFile falls back to read/write on platforms without copy_file_range.
func CopyFile(dst, src *os.File, _ int64) (CopyResult, error) {
	return copyReadWrite(dst, src)
}
