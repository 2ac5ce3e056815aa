// Package stats keeps run counters that presenters can read while the engine
// is still writing them.
package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Writer is the side of the collector the engine uses.
type Writer interface {
	SetTotal(files int64)
	AddDone(n int64)
	AddFailed(n int64)
	AddSkipped(n int64)
	AddBytes(n int64)
}

// Reader is the side of the collector presenters use.
type Reader interface {
	Snapshot() Snapshot
	RollingSpeed(seconds int) float64
	RollingFilesPerSec(seconds int) float64
	SparklineData(n int) []float64
	ETA() time.Duration
}

// ReadTicker is a Reader that also owns the once-per-second sampling.
type ReadTicker interface {
	Reader
	Tick()
}

// Collector tracks run statistics using lock-free atomic counters.
type Collector struct {
	filesDone    atomic.Int64
	filesFailed  atomic.Int64
	filesSkipped atomic.Int64
	filesTotal   atomic.Int64
	bytesCopied  atomic.Int64
	startTime    time.Time

	// Ring buffer, written only by Tick.
	mu          sync.Mutex
	throughput  [ringSize]int64 // bytes delta per second
	filesPerSec [ringSize]int64 // files delta per second
	ringIdx     int
	ringCount   int
	lastBytes   int64
	lastFiles   int64
}

var (
	_ Writer     = (*Collector)(nil)
	_ ReadTicker = (*Collector)(nil)
)

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetTotal records the file count once it is known (accurate mode only).
func (c *Collector) SetTotal(files int64) { c.filesTotal.Store(files) }

func (c *Collector) AddDone(n int64)    { c.filesDone.Add(n) }
func (c *Collector) AddFailed(n int64)  { c.filesFailed.Add(n) }
func (c *Collector) AddSkipped(n int64) { c.filesSkipped.Add(n) }
func (c *Collector) AddBytes(n int64)   { c.bytesCopied.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesDone    int64
	FilesFailed  int64
	FilesSkipped int64
	FilesTotal   int64 // 0 when unknown
	BytesCopied  int64
	Elapsed      time.Duration
}

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesDone:    c.filesDone.Load(),
		FilesFailed:  c.filesFailed.Load(),
		FilesSkipped: c.filesSkipped.Load(),
		FilesTotal:   c.filesTotal.Load(),
		BytesCopied:  c.bytesCopied.Load(),
		Elapsed:      c.Elapsed(),
	}
}

// Tick snapshots byte/file deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesCopied.Load()
	currentFiles := c.filesDone.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.filesPerSec[c.ringIdx] = currentFiles - c.lastFiles
	c.lastBytes = currentBytes
	c.lastFiles = currentFiles

	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingFilesPerSec returns average files/sec over the last n seconds.
func (c *Collector) RollingFilesPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.filesPerSec[:], seconds)
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := min(n, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// SparklineData returns up to n per-second file completion counts, oldest
// first.
func (c *Collector) SparklineData(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(n, c.ringCount)
	if count <= 0 {
		return nil
	}

	data := make([]float64, count)
	for i := range count {
		idx := (c.ringIdx - count + i + ringSize) % ringSize
		data[i] = float64(c.filesPerSec[idx])
	}
	return data
}

// ETA estimates remaining time from the rolling file rate. Zero when the
// total is unknown or nothing is moving.
func (c *Collector) ETA() time.Duration {
	total := c.filesTotal.Load()
	if total <= 0 {
		return 0
	}
	rate := c.RollingFilesPerSec(10)
	if rate <= 0 {
		return 0
	}
	remaining := total - c.filesDone.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"done=%d failed=%d skipped=%d total=%d bytes=%d",
		s.FilesDone, s.FilesFailed, s.FilesSkipped, s.FilesTotal, s.BytesCopied,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
