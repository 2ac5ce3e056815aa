package proto

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
)

// WorkerModeFlag is the hidden CLI flag that signals a child process should
// run as a copy worker serving jobs on stdin/stdout.
const WorkerModeFlag = "--copy-worker"

// ExecFunc executes one job and reports its outcome. It must not panic
// across the protocol boundary; Serve recovers if it does.
type ExecFunc func(JobMsg) OutcomeMsg

// Serve is the worker loop: read a job frame from r, execute it, write the
// outcome frame to w. It returns nil when r reaches EOF, which is how the
// parent asks a worker to exit.
func Serve(ctx context.Context, r io.Reader, w io.Writer, exec ExecFunc) error {
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := ReadFrame(br)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read job: %w", err)
		}
		if f.MsgType != MsgJob {
			return fmt.Errorf("unexpected message type 0x%02x", f.MsgType)
		}

		var job JobMsg
		if _, err := job.UnmarshalMsg(f.Payload); err != nil {
			return fmt.Errorf("decode job: %w", err)
		}

		out := safeExec(exec, job)
		if err := writeMsg(w, MsgOutcome, &out); err != nil {
			return fmt.Errorf("write outcome: %w", err)
		}
	}
}

func safeExec(exec ExecFunc, job JobMsg) (out OutcomeMsg) {
	defer func() {
		if r := recover(); r != nil {
			out = OutcomeMsg{Src: job.Src, Dst: job.Dst, Err: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return exec(job)
}

// ErrWorkerExited is returned by Worker.Do when the child's stdout closes
// before an outcome arrives.
var ErrWorkerExited = errors.New("worker process exited")

// Worker is the parent-side handle to one child process. A Worker is driven
// by a single goroutine; Do is not safe for concurrent use.
type Worker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	logger *slog.Logger
}

// StartWorker launches argv as a worker child. When argv is empty the
// current executable is re-executed with WorkerModeFlag. Stderr is inherited
// so the child's diagnostics reach the parent's terminal.
func StartWorker(argv []string, env []string, logger *slog.Logger) (*Worker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(argv) == 0 {
		executable, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		argv = []string{executable, WorkerModeFlag}
	}

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // argv is our own binary
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{}
	setPdeathsig(cmd.SysProcAttr)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	logger.Debug("started worker", "pid", cmd.Process.Pid)

	return &Worker{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		logger: logger,
	}, nil
}

// Pid returns the child's process id.
func (w *Worker) Pid() int {
	return w.cmd.Process.Pid
}

// Do sends job to the child and waits for its outcome.
func (w *Worker) Do(job JobMsg) (OutcomeMsg, error) {
	if err := writeMsg(w.stdin, MsgJob, &job); err != nil {
		return OutcomeMsg{}, fmt.Errorf("%w: %w", ErrWorkerExited, err)
	}

	f, err := ReadFrame(w.stdout)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return OutcomeMsg{}, ErrWorkerExited
		}
		return OutcomeMsg{}, fmt.Errorf("read outcome: %w", err)
	}
	if f.MsgType != MsgOutcome {
		return OutcomeMsg{}, fmt.Errorf("unexpected message type 0x%02x", f.MsgType)
	}

	var out OutcomeMsg
	if _, err := out.UnmarshalMsg(f.Payload); err != nil {
		return OutcomeMsg{}, fmt.Errorf("decode outcome: %w", err)
	}
	return out, nil
}

// Close closes the child's stdin and waits for it to exit.
func (w *Worker) Close() error {
	w.stdin.Close()
	err := w.cmd.Wait()
	w.logger.Debug("worker exited", "pid", w.cmd.Process.Pid, "error", err)
	return err
}

// Kill terminates the child without waiting for in-flight work.
func (w *Worker) Kill() error {
	w.stdin.Close()
	killErr := w.cmd.Process.Kill()
	_ = w.cmd.Wait()
	if killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
		return killErr
	}
	return nil
}
