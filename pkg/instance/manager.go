package instance

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jabez4jc/openalgo-control/pkg/instancedb"
)

// Live-status and lifecycle subprocess bounds. Status probes must stay
// cheap since /api/status runs one per instance on the request path.
const (
	statusProbeTimeout = 2 * time.Second
	startStopTimeout   = 30 * time.Second
	restartTimeout     = 60 * time.Second
)

// CommandRunner executes a process and returns its combined output. Tests
// inject fakes; production uses exec.CommandContext.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Manager discovers instances under a root directory and drives their
// systemd units. It holds one advisory lock per instance so lifecycle
// commands for the same instance never interleave; commands for different
// instances run concurrently.
type Manager struct {
	root   string
	runner CommandRunner
	log    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager returns a manager rooted at the instances directory.
func NewManager(root string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		root:   root,
		runner: defaultRunner,
		log:    log,
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetCommandRunner replaces the subprocess runner. Intended for tests.
func (m *Manager) SetCommandRunner(r CommandRunner) {
	if r != nil {
		m.runner = r
	}
}

// Root returns the instances root directory.
func (m *Manager) Root() string { return m.root }

// Dir returns the directory of a validated instance id.
func (m *Manager) Dir(id string) string { return filepath.Join(m.root, id) }

// List returns all instance ids under the root, sorted. Entries that fail
// the naming convention are ignored rather than reported: the root also
// holds backups and scratch directories.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read instances root: %w", err)
	}

	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if ValidID(entry.Name()) {
			out = append(out, entry.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Exists reports whether a validated id has a directory under the root.
func (m *Manager) Exists(id string) bool {
	if !ValidID(id) {
		return false
	}
	info, err := os.Stat(m.Dir(id))
	return err == nil && info.IsDir()
}

// Status returns the systemd active-state of an instance's unit
// ("active", "inactive", "failed", ...) or "unknown" when the probe fails.
func (m *Manager) Status(ctx context.Context, id string) string {
	if !ValidID(id) {
		return "unknown"
	}
	ctx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()

	// systemctl is-active exits non-zero for inactive units but still
	// prints the state; the printed state wins over the exit code.
	out, _ := m.runner(ctx, "systemctl", "is-active", UnitName(m.root, id))
	state := strings.TrimSpace(string(out))
	if state == "" {
		return "unknown"
	}
	return state
}

// StatusAll probes every instance. A failing instance degrades to
// "unknown" instead of failing the whole fleet report.
func (m *Manager) StatusAll(ctx context.Context) (map[string]string, error) {
	ids, err := m.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = m.Status(ctx, id)
	}
	return out, nil
}

// Start brings an instance's unit up.
func (m *Manager) Start(ctx context.Context, id string) error {
	return m.lifecycle(ctx, id, "start", startStopTimeout)
}

// Stop takes an instance's unit down.
func (m *Manager) Stop(ctx context.Context, id string) error {
	return m.lifecycle(ctx, id, "stop", startStopTimeout)
}

// Restart bounces an instance's unit.
func (m *Manager) Restart(ctx context.Context, id string) error {
	return m.lifecycle(ctx, id, "restart", restartTimeout)
}

func (m *Manager) lifecycle(ctx context.Context, id, verb string, timeout time.Duration) error {
	if !ValidID(id) {
		return fmt.Errorf("invalid instance id %q", id)
	}
	if !m.Exists(id) {
		return fmt.Errorf("instance %s not found", id)
	}

	lock := m.instanceLock(id)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	unit := UnitName(m.root, id)
	m.log.Info("systemctl "+verb,
		zap.String("instance", id),
		zap.String("unit", unit))

	out, err := m.runner(ctx, "sudo", "systemctl", verb, unit)
	if err != nil {
		return fmt.Errorf("systemctl %s %s: %w: %s", verb, unit, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (m *Manager) instanceLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// DatabasePresent reports whether the instance has an embedded database
// file on disk, at either known location or renamed under db/. Shares the
// search order with the readers so health reporting cannot disagree with
// what auth and readiness actually find.
func (m *Manager) DatabasePresent(id string) bool {
	if !ValidID(id) {
		return false
	}
	_, ok := instancedb.DatabaseFile(m.Dir(id))
	return ok
}
