package jobs

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*Runner, *Registry) {
	t.Helper()
	registry := NewRegistry(10)
	return NewRunner(registry, nil), registry
}

func createJob(t *testing.T, registry *Registry) Job {
	t.Helper()
	return registry.Create(ActionHealthCheck, Params{Scope: ScopeAll})
}

func TestRunner_Success(t *testing.T) {
	runner, registry := newTestRunner(t)
	job := createJob(t, registry)

	runner.Execute(job.ID, "/bin/sh", []string{"-c", "echo ok"}, 10*time.Second)

	got, ok := registry.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, got.Status)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 0, *got.ExitCode)
	assert.Equal(t, "ok\n", got.Output)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.False(t, got.FinishedAt.Before(*got.StartedAt))
}

func TestRunner_NonZeroExit(t *testing.T) {
	runner, registry := newTestRunner(t)
	job := createJob(t, registry)

	runner.Execute(job.ID, "/bin/sh", []string{"-c", "echo failing >&2; exit 3"}, 10*time.Second)

	got, ok := registry.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusError, got.Status)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 3, *got.ExitCode)
	assert.Contains(t, got.Output, "failing")
}

func TestRunner_CapturesStdoutAndStderr(t *testing.T) {
	runner, registry := newTestRunner(t)
	job := createJob(t, registry)

	runner.Execute(job.ID, "/bin/sh", []string{"-c", "echo out; echo err >&2"}, 10*time.Second)

	got, _ := registry.Get(job.ID)
	assert.Contains(t, got.Output, "out")
	assert.Contains(t, got.Output, "err")
}

func TestRunner_Timeout(t *testing.T) {
	runner, registry := newTestRunner(t)
	job := createJob(t, registry)

	runner.Execute(job.ID, "/bin/sh", []string{"-c", "echo partial; sleep 5"}, 200*time.Millisecond)

	got, ok := registry.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusTimeout, got.Status)
	assert.Nil(t, got.ExitCode)
	assert.Contains(t, got.Error, "timed out")
	assert.Contains(t, got.Output, "partial")
}

func TestRunner_TimeoutNotHeldOpenByBackgroundChild(t *testing.T) {
	runner, registry := newTestRunner(t)
	runner.waitDelay = 300 * time.Millisecond
	job := createJob(t, registry)

	// The backgrounded sleep inherits the output pipe; the deadline kill
	// reaches only the shell. The terminal status must still land within
	// timeout plus the pipe wait, not when the orphan finally exits.
	start := time.Now()
	runner.Execute(job.ID, "/bin/sh", []string{"-c", "sleep 30 & echo started; sleep 30"}, 200*time.Millisecond)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 3*time.Second)

	got, ok := registry.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusTimeout, got.Status)
	assert.Contains(t, got.Output, "started")
}

func TestRunner_SuccessWithLingeringChild(t *testing.T) {
	runner, registry := newTestRunner(t)
	runner.waitDelay = 300 * time.Millisecond
	job := createJob(t, registry)

	// The shell exits zero immediately but its orphan keeps the pipe open.
	start := time.Now()
	runner.Execute(job.ID, "/bin/sh", []string{"-c", "sleep 30 & echo done"}, 10*time.Second)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 3*time.Second)

	got, ok := registry.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, got.Status)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 0, *got.ExitCode)
	assert.Contains(t, got.Output, "done")
}

func TestRunner_CommandNotFound(t *testing.T) {
	runner, registry := newTestRunner(t)
	job := createJob(t, registry)

	runner.Execute(job.ID, "/no/such/binary", nil, 10*time.Second)

	got, ok := registry.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusError, got.Status)
	assert.Nil(t, got.ExitCode)
	assert.NotEmpty(t, got.Error)
}

func TestRunner_Dispatch(t *testing.T) {
	runner, registry := newTestRunner(t)
	job := createJob(t, registry)

	runner.Dispatch(job.ID, "/bin/sh", []string{"-c", "echo async"}, 10*time.Second)

	require.Eventually(t, func() bool {
		got, ok := registry.Get(job.ID)
		return ok && got.Status.IsTerminal()
	}, 5*time.Second, 20*time.Millisecond)

	got, _ := registry.Get(job.ID)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, "async\n", got.Output)
}

func TestRunner_PrunedJobDoesNotPanic(t *testing.T) {
	registry := NewRegistry(10)
	runner := NewRunner(registry, nil)

	// The record never existed; the worker must just walk away.
	runner.Execute("gone", "/bin/sh", []string{"-c", "echo hi"}, 10*time.Second)
}

func TestSanitize_StripsEscapeSequences(t *testing.T) {
	in := "\x1b[31mred\x1b[0m plain \x1b[1;32mbold\x1b[0m"
	assert.Equal(t, "red plain bold", Sanitize(in))
}

func TestSanitize_Truncates(t *testing.T) {
	in := strings.Repeat("a", MaxOutputLen+500)

	out := Sanitize(in)

	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.Len(t, out, MaxOutputLen+len(truncationMarker))
}

func TestSanitize_ShortOutputUntouched(t *testing.T) {
	assert.Equal(t, "hello\n", Sanitize("hello\n"))
}

func TestRunner_SanitizesCommandOutput(t *testing.T) {
	runner, registry := newTestRunner(t)
	job := createJob(t, registry)

	runner.Execute(job.ID, "/bin/sh", []string{"-c", `printf '\033[32mgreen\033[0m\n'`}, 10*time.Second)

	got, _ := registry.Get(job.ID)
	assert.Equal(t, "green\n", got.Output)
}
