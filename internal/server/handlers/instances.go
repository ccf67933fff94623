package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/jabez4jc/openalgo-control/internal/errors"
	"github.com/jabez4jc/openalgo-control/pkg/authstate"
	"github.com/jabez4jc/openalgo-control/pkg/instance"
	"github.com/jabez4jc/openalgo-control/pkg/readiness"
)

// InstanceListResponse is the payload for GET /api/instances.
type InstanceListResponse struct {
	Instances []string `json:"instances"`
	Count     int      `json:"count"`
}

// InstanceHealth is the per-instance detail returned by GET /api/health.
type InstanceHealth struct {
	Instance        string            `json:"instance"`
	ServiceStatus   string            `json:"service_status"`
	Port            string            `json:"port,omitempty"`
	DatabasePresent bool              `json:"database_present"`
	Auth            authstate.Result  `json:"auth"`
	Readiness       *readiness.Report `json:"readiness,omitempty"`
	Timestamp       string            `json:"timestamp"`
}

// LifecycleResponse reports the outcome of a start/stop/restart call.
type LifecycleResponse struct {
	Instance  string `json:"instance"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// lifecycleFunc matches Manager.Start, Stop and Restart.
type lifecycleFunc func(ctx context.Context, id string) error

// Instances handles GET /api/instances.
func (a *API) Instances(w http.ResponseWriter, r *http.Request) {
	ids, err := a.manager.List()
	if err != nil {
		a.log.Error("instance scan failed", zap.Error(err))
		respondWithError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, InstanceListResponse{Instances: ids, Count: len(ids)})
}

// StatusAll handles GET /api/status.
func (a *API) StatusAll(w http.ResponseWriter, r *http.Request) {
	statuses, err := a.manager.StatusAll(r.Context())
	if err != nil {
		a.log.Error("status scan failed", zap.Error(err))
		respondWithError(w, r, err)
		return
	}
	if statuses == nil {
		statuses = map[string]string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"statuses":  statuses,
		"timestamp": timestamp(),
	})
}

// Health handles GET /api/health: the full state picture for one instance.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireInstance(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	dir := a.manager.Dir(id)

	env := instance.ReadEnv(dir)

	detail := InstanceHealth{
		Instance:        id,
		ServiceStatus:   a.manager.Status(ctx, id),
		Port:            env.Port,
		DatabasePresent: a.manager.DatabasePresent(id),
		Auth:            authstate.Read(ctx, dir),
		Timestamp:       timestamp(),
	}
	report := a.evaluator.Evaluate(ctx, dir)
	detail.Readiness = &report

	writeJSON(w, http.StatusOK, detail)
}

// Start handles POST /api/start-instance.
func (a *API) Start(w http.ResponseWriter, r *http.Request) {
	a.lifecycle(w, r, "start", a.manager.Start)
}

// Stop handles POST /api/stop-instance.
func (a *API) Stop(w http.ResponseWriter, r *http.Request) {
	a.lifecycle(w, r, "stop", a.manager.Stop)
}

// Restart handles POST /api/restart-instance.
func (a *API) Restart(w http.ResponseWriter, r *http.Request) {
	a.lifecycle(w, r, "restart", a.manager.Restart)
}

func (a *API) lifecycle(w http.ResponseWriter, r *http.Request, action string, fn lifecycleFunc) {
	id, ok := a.requireInstance(w, r)
	if !ok {
		return
	}
	resp := LifecycleResponse{
		Instance:  id,
		Action:    action,
		Timestamp: timestamp(),
	}
	if err := fn(r.Context(), id); err != nil {
		a.log.Error("lifecycle command failed",
			zap.String("instance", id),
			zap.String("action", action),
			zap.Error(err))
		resp.Status = "error"
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	resp.Status = "ok"
	writeJSON(w, http.StatusOK, resp)
}

// requireInstance resolves and validates the target instance, writing the
// error response itself when resolution fails.
func (a *API) requireInstance(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := a.resolveInstance(r)
	if id == "" {
		apperrors.BadRequest(w, "no instance specified: set the X-OpenAlgo-Instance header or the instance query parameter")
		return "", false
	}
	if !a.manager.Exists(id) {
		apperrors.NotFound(w, "unknown instance: "+id)
		return "", false
	}
	return id, true
}
