package engine

import (
	"fmt"

	"github.com/bamsammich/fastcopy/internal/proto"
)

// Job is one unit of copy work. It is a plain value so it can cross a
// process boundary unchanged.
type Job struct {
	Src       string
	Dst       string
	Overwrite bool
	Verify    bool
}

// SkipReason says why a successful outcome copied nothing.
type SkipReason uint8

const (
	SkipNone SkipReason = iota
	// SkipExists means the destination was present and overwrite was off.
	SkipExists
	// SkipSymlinkNotFile means a symlink resolved to a directory or other
	// non-regular file.
	SkipSymlinkNotFile
	// SkipDanglingSymlink means a symlink could not be resolved.
	SkipDanglingSymlink
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipExists:
		return "exists"
	case SkipSymlinkNotFile:
		return "symlink-not-file"
	case SkipDanglingSymlink:
		return "dangling-symlink"
	default:
		return "unknown"
	}
}

// Outcome is the result of executing one Job.
type Outcome struct {
	Src   string
	Dst   string
	Err   string
	Bytes int64
	Skip  SkipReason
	OK    bool
}

// Skipped reports whether the job succeeded without copying anything.
func (o Outcome) Skipped() bool {
	return o.OK && o.Skip != SkipNone
}

func failed(j Job, format string, args ...any) Outcome {
	return Outcome{Src: j.Src, Dst: j.Dst, Err: fmt.Sprintf(format, args...)}
}

func skipped(j Job, reason SkipReason) Outcome {
	return Outcome{Src: j.Src, Dst: j.Dst, OK: true, Skip: reason}
}

// ToMsg converts a Job to its wire form.
func (j Job) ToMsg() proto.JobMsg {
	return proto.JobMsg{Src: j.Src, Dst: j.Dst, Overwrite: j.Overwrite, Verify: j.Verify}
}

// JobFromMsg converts a wire job back to a Job.
func JobFromMsg(m proto.JobMsg) Job {
	return Job{Src: m.Src, Dst: m.Dst, Overwrite: m.Overwrite, Verify: m.Verify}
}

// ToMsg converts an Outcome to its wire form.
func (o Outcome) ToMsg() proto.OutcomeMsg {
	return proto.OutcomeMsg{
		Src:   o.Src,
		Dst:   o.Dst,
		OK:    o.OK,
		Skip:  uint8(o.Skip),
		Bytes: o.Bytes,
		Err:   o.Err,
	}
}

// OutcomeFromMsg converts a wire outcome back to an Outcome.
func OutcomeFromMsg(m proto.OutcomeMsg) Outcome {
	return Outcome{
		Src:   m.Src,
		Dst:   m.Dst,
		OK:    m.OK,
		Skip:  SkipReason(m.Skip),
		Bytes: m.Bytes,
		Err:   m.Err,
	}
}

// ExecuteMsg is Execute over wire types; it is what a worker child serves.
func ExecuteMsg(m proto.JobMsg) proto.OutcomeMsg {
	return Execute(JobFromMsg(m)).ToMsg()
}
