package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity bounds how many job records the registry retains.
const DefaultCapacity = 50

// Registry is an in-memory, concurrency-safe store of job records with
// bounded retention. A single mutex guards every read, insert, update and
// prune so pollers never observe a partially-updated record.
//
// Records are never deleted explicitly; once the registry exceeds its
// capacity the oldest records by creation time are evicted. Clients are
// expected to poll promptly after creating a job.
type Registry struct {
	mu       sync.Mutex
	capacity int
	records  map[string]*Job
	now      func() time.Time
}

// NewRegistry returns an empty registry. A capacity <= 0 falls back to
// DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		records:  make(map[string]*Job),
		now:      time.Now,
	}
}

// Create inserts a new queued job and returns a copy of it.
func (r *Registry) Create(action Action, params Params) Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		Action:    action,
		Params:    params,
		Status:    StatusQueued,
		CreatedAt: r.now().UTC(),
	}
	r.records[job.ID] = job
	r.pruneLocked()

	return *job
}

// Update carries a partial update for a job record. Nil fields are left
// untouched; set fields replace the record's values atomically.
type Update struct {
	Status     *Status
	StartedAt  *time.Time
	FinishedAt *time.Time
	ExitCode   *int
	Output     *string
	Error      *string
}

// Apply applies a partial update to the record matching id.
//
// It returns false when the id is unknown (the record may have been pruned
// between creation and update, which workers must tolerate) or when the
// record is already in a terminal state: terminal jobs are immutable.
func (r *Registry) Apply(id string, u Update) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.records[id]
	if !ok {
		return false
	}
	if job.Status.IsTerminal() {
		return false
	}

	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.StartedAt != nil {
		t := u.StartedAt.UTC()
		job.StartedAt = &t
	}
	if u.FinishedAt != nil {
		t := u.FinishedAt.UTC()
		job.FinishedAt = &t
	}
	if u.ExitCode != nil {
		code := *u.ExitCode
		job.ExitCode = &code
	}
	if u.Output != nil {
		job.Output = *u.Output
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
	return true
}

// Get returns a snapshot of the record matching id.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.records[id]
	if !ok {
		return Job{}, false
	}
	return cloneJob(job), true
}

// List returns snapshots of all records, newest first.
func (r *Registry) List() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Job, 0, len(r.records))
	for _, job := range r.records {
		out = append(out, cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len reports the current number of retained records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// pruneLocked evicts oldest-by-creation records until capacity is respected.
// Caller must hold r.mu.
func (r *Registry) pruneLocked() {
	for len(r.records) > r.capacity {
		oldestID := ""
		var oldestAt time.Time
		for id, job := range r.records {
			if oldestID == "" || job.CreatedAt.Before(oldestAt) {
				oldestID = id
				oldestAt = job.CreatedAt
			}
		}
		delete(r.records, oldestID)
	}
}

func cloneJob(job *Job) Job {
	out := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		out.StartedAt = &t
	}
	if job.FinishedAt != nil {
		t := *job.FinishedAt
		out.FinishedAt = &t
	}
	if job.ExitCode != nil {
		code := *job.ExitCode
		out.ExitCode = &code
	}
	return out
}
