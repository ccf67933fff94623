package jobs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

const (
	// MaxOutputLen caps captured command output per job.
	MaxOutputLen = 200_000

	truncationMarker = "\n... [output truncated]"

	// HealthCheckTimeout and UpdateTimeout bound the wall clock of the
	// external maintenance commands.
	HealthCheckTimeout = 300 * time.Second
	UpdateTimeout      = 1800 * time.Second

	// DefaultWaitDelay bounds how long a finished or killed command may
	// hold the output pipes open. Maintenance scripts background children
	// (restart spawns daemons); without this the worker blocks on the
	// inherited pipe until every descendant exits.
	DefaultWaitDelay = 5 * time.Second
)

// Runner executes one external command per job on a background goroutine
// and writes the terminal result back into the registry. It never retries;
// the command's own side effects are its only effects besides registry
// mutation.
type Runner struct {
	registry  *Registry
	log       *zap.Logger
	waitDelay time.Duration
}

// NewRunner returns a runner bound to a registry. A nil logger is replaced
// with a no-op logger.
func NewRunner(registry *Registry, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{registry: registry, log: log, waitDelay: DefaultWaitDelay}
}

// Dispatch marks the job running and executes the command asynchronously.
// It returns immediately; callers poll the registry for completion.
func (r *Runner) Dispatch(jobID string, command string, args []string, timeout time.Duration) {
	go r.run(jobID, command, args, timeout)
}

// Execute runs the command synchronously. Exposed for tests and for the
// one-task-per-job goroutine spawned by Dispatch.
func (r *Runner) Execute(jobID string, command string, args []string, timeout time.Duration) {
	r.run(jobID, command, args, timeout)
}

func (r *Runner) run(jobID string, command string, args []string, timeout time.Duration) {
	// A worker that dies without writing a terminal status would leave the
	// job stuck in "running" forever.
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("job worker panicked",
				zap.String("job_id", jobID),
				zap.Any("panic", rec))
			r.finish(jobID, Update{
				Status: statusPtr(StatusError),
				Error:  strPtr(fmt.Sprintf("internal: worker panic: %v", rec)),
			})
		}
	}()

	now := time.Now().UTC()
	if ok := r.registry.Apply(jobID, Update{
		Status:    statusPtr(StatusRunning),
		StartedAt: &now,
	}); !ok {
		// Record pruned before the worker started; nothing to report into.
		r.log.Warn("job record gone before start", zap.String("job_id", jobID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.WaitDelay = r.waitDelay
	raw, err := cmd.CombinedOutput()
	output := Sanitize(string(raw))

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		// Partial output is preserved best-effort; exit code stays unset.
		r.log.Warn("job timed out",
			zap.String("job_id", jobID),
			zap.String("command", command),
			zap.Duration("timeout", timeout))
		r.finish(jobID, Update{
			Status: statusPtr(StatusTimeout),
			Output: &output,
			Error:  strPtr(fmt.Sprintf("command timed out after %s", timeout)),
		})

	case err == nil, errors.Is(err, exec.ErrWaitDelay):
		// ErrWaitDelay means the command itself exited zero but an
		// orphaned child still held the output pipe past WaitDelay.
		code := 0
		r.finish(jobID, Update{
			Status:   statusPtr(StatusSuccess),
			Output:   &output,
			ExitCode: &code,
		})

	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			r.log.Info("job command failed",
				zap.String("job_id", jobID),
				zap.Int("exit_code", code))
			r.finish(jobID, Update{
				Status:   statusPtr(StatusError),
				Output:   &output,
				ExitCode: &code,
			})
			return
		}
		// Invocation failure: command missing, permission denied, etc.
		r.log.Error("job command could not run",
			zap.String("job_id", jobID),
			zap.String("command", command),
			zap.Error(err))
		r.finish(jobID, Update{
			Status: statusPtr(StatusError),
			Output: &output,
			Error:  strPtr(err.Error()),
		})
	}
}

func (r *Runner) finish(jobID string, u Update) {
	now := time.Now().UTC()
	u.FinishedAt = &now
	if ok := r.registry.Apply(jobID, u); !ok {
		// Pruned mid-flight. Accepted trade-off; must not crash the worker.
		r.log.Warn("job record gone before completion", zap.String("job_id", jobID))
	}
}

// Sanitize strips terminal escape sequences from command output and
// truncates it to MaxOutputLen, appending a marker when cut.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	if len(s) > MaxOutputLen {
		s = s[:MaxOutputLen] + truncationMarker
	}
	return s
}

func statusPtr(s Status) *Status { return &s }
func strPtr(s string) *string    { return &s }
