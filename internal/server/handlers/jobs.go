package handlers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/jabez4jc/openalgo-control/internal/errors"
	"github.com/jabez4jc/openalgo-control/pkg/jobs"
)

// JobRequest is the body accepted by the job-creating endpoints. Both
// fields are optional: scope defaults to "all" and the instance may also
// arrive through the usual header/query/vhost resolution.
type JobRequest struct {
	Scope    string `json:"scope"`
	Instance string `json:"instance"`
}

// JobAccepted is returned when a job has been queued.
type JobAccepted struct {
	Job       jobs.Job `json:"job"`
	Timestamp string   `json:"timestamp"`
}

// CreateHealthCheck handles POST /api/health-check.
func (a *API) CreateHealthCheck(w http.ResponseWriter, r *http.Request) {
	a.createJob(w, r, jobs.ActionHealthCheck, a.cfg.Paths.HealthCheckScript, a.cfg.Jobs.HealthCheckTimeout)
}

// CreateUpdate handles POST /api/update.
func (a *API) CreateUpdate(w http.ResponseWriter, r *http.Request) {
	a.createJob(w, r, jobs.ActionUpdate, a.cfg.Paths.UpdateScript, a.cfg.Jobs.UpdateTimeout)
}

// RestartAll handles POST /api/restart-all. The daily-restart script runs
// as a tracked job so its outcome is inspectable afterwards.
func (a *API) RestartAll(w http.ResponseWriter, r *http.Request) {
	script := a.cfg.Paths.DailyRestartScript
	if !scriptUsable(script) {
		apperrors.Write(w, http.StatusServiceUnavailable, apperrors.CodeUnavailable,
			fmt.Sprintf("restart script not available: %s", script))
		return
	}
	job := a.registry.Create(jobs.ActionRestart, jobs.Params{Scope: jobs.ScopeAll})
	a.runner.Dispatch(job.ID, script, nil, a.cfg.Jobs.UpdateTimeout)
	a.log.Info("restart-all queued", zap.String("job_id", job.ID))
	writeJSON(w, http.StatusAccepted, JobAccepted{Job: job, Timestamp: timestamp()})
}

func (a *API) createJob(w http.ResponseWriter, r *http.Request, action jobs.Action, script string, timeout time.Duration) {
	var req JobRequest
	if err := decodeBody(r, &req); err != nil {
		apperrors.BadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Scope == "" {
		req.Scope = string(jobs.ScopeAll)
	}

	scope := jobs.Scope(req.Scope)
	switch scope {
	case jobs.ScopeAll, jobs.ScopeSystem, jobs.ScopeInstance:
	default:
		apperrors.BadRequest(w, fmt.Sprintf("invalid scope %q: must be all, system or instance", req.Scope))
		return
	}

	params := jobs.Params{Scope: scope}
	if scope == jobs.ScopeInstance {
		id := req.Instance
		if id == "" {
			id = a.resolveInstance(r)
		}
		if id == "" {
			apperrors.BadRequest(w, "scope \"instance\" requires an instance id")
			return
		}
		if !a.manager.Exists(id) {
			apperrors.NotFound(w, "unknown instance: "+id)
			return
		}
		params.Instance = id
	}

	if !scriptUsable(script) {
		apperrors.Write(w, http.StatusServiceUnavailable, apperrors.CodeUnavailable,
			fmt.Sprintf("%s script not available: %s", action, script))
		return
	}

	job := a.registry.Create(action, params)
	a.runner.Dispatch(job.ID, script, scriptArgs(params), timeout)
	a.log.Info("job queued",
		zap.String("job_id", job.ID),
		zap.String("action", string(action)),
		zap.String("scope", string(scope)),
		zap.String("instance", params.Instance))
	writeJSON(w, http.StatusAccepted, JobAccepted{Job: job, Timestamp: timestamp()})
}

// scriptArgs maps job parameters onto the maintenance scripts' CLI: the
// scope keyword, followed by the instance id when one is targeted.
func scriptArgs(p jobs.Params) []string {
	args := []string{string(p.Scope)}
	if p.Scope == jobs.ScopeInstance {
		args = append(args, p.Instance)
	}
	return args
}

func scriptUsable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// GetJob handles GET /api/jobs/{id}.
func (a *API) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := a.registry.Get(id)
	if !ok {
		apperrors.NotFound(w, "unknown job: "+id)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (a *API) ListJobs(w http.ResponseWriter, r *http.Request) {
	list := a.registry.List()
	if list == nil {
		list = []jobs.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
