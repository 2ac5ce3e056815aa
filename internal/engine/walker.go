package engine

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/bamsammich/fastcopy/internal/filter"
)

// WalkOptions controls a tree walk.
type WalkOptions struct {
	// Exclude prunes directories by bare name. Nil prunes nothing.
	Exclude *filter.Policy
	// Cancelled is polled before each directory and each file.
	Cancelled func() bool
	// OnError receives per-directory failures; the subtree is skipped.
	OnError func(error)

	Overwrite bool
	Verify    bool
}

// Walk returns a lazy pre-order sequence of copy jobs for the tree at src,
// mirroring every visited directory under dst before yielding its files.
// Symlinks are yielded as jobs and never descended. Sockets, devices and
// fifos are ignored. Each call to the returned sequence starts a new walk.
func Walk(src, dst string, opts WalkOptions) iter.Seq[Job] {
	return func(yield func(Job) bool) {
		w := walker{opts: opts, yield: yield}
		w.dir(src, dst)
	}
}

// Collect drains seq into a slice.
func Collect(seq iter.Seq[Job]) []Job {
	var jobs []Job
	for j := range seq {
		jobs = append(jobs, j)
	}
	return jobs
}

type walker struct {
	opts  WalkOptions
	yield func(Job) bool
}

func (w *walker) cancelled() bool {
	return w.opts.Cancelled != nil && w.opts.Cancelled()
}

func (w *walker) fail(err error) {
	if w.opts.OnError != nil {
		w.opts.OnError(err)
	}
}

// dir walks one directory. It returns false when the walk must stop,
// either because the consumer stopped or cancellation was observed.
func (w *walker) dir(srcDir, dstDir string) bool {
	if w.cancelled() {
		return false
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		w.fail(fmt.Errorf("create directory %s: %w", dstDir, err))
		return true
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		w.fail(fmt.Errorf("read directory %s: %w", srcDir, err))
		return true
	}

	// Files first, then subdirectories, in name order.
	var subdirs []string
	for _, e := range entries {
		name := e.Name()
		typ := e.Type()
		switch {
		case typ.IsDir():
			if !w.opts.Exclude.Pruned(name) {
				subdirs = append(subdirs, name)
			}
		case typ.IsRegular(), typ&os.ModeSymlink != 0:
			if w.cancelled() {
				return false
			}
			job := Job{
				Src:       filepath.Join(srcDir, name),
				Dst:       filepath.Join(dstDir, name),
				Overwrite: w.opts.Overwrite,
				Verify:    w.opts.Verify,
			}
			if !w.yield(job) {
				return false
			}
		}
	}

	for _, name := range subdirs {
		if !w.dir(filepath.Join(srcDir, name), filepath.Join(dstDir, name)) {
			return false
		}
	}
	return true
}
