package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jabez4jc/openalgo-control/internal/config"
	"github.com/jabez4jc/openalgo-control/pkg/instance"
	"github.com/jabez4jc/openalgo-control/pkg/jobs"
	"github.com/jabez4jc/openalgo-control/pkg/readiness"
)

// InstanceHeader carries an explicit instance id on any request.
const InstanceHeader = "X-OpenAlgo-Instance"

// API binds the HTTP surface to the core packages. It owns no state of its
// own; every dependency is constructed once at startup and passed in.
type API struct {
	cfg       *config.Config
	manager   *instance.Manager
	resolver  instance.Resolver
	registry  *jobs.Registry
	runner    *jobs.Runner
	evaluator *readiness.Evaluator
	log       *zap.Logger
}

// NewAPI wires the handler set.
func NewAPI(cfg *config.Config, manager *instance.Manager, registry *jobs.Registry, runner *jobs.Runner, evaluator *readiness.Evaluator, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		cfg:       cfg,
		manager:   manager,
		resolver:  instance.Resolver{VhostDir: cfg.Paths.VhostDir},
		registry:  registry,
		runner:    runner,
		evaluator: evaluator,
		log:       log,
	}
}

// resolveInstance extracts a validated instance id from the request's
// header, query parameter or virtual host, in that order. It returns ""
// when no source yields one; callers reject the request then.
func (a *API) resolveInstance(r *http.Request) string {
	return a.resolver.Resolve(
		r.Header.Get(InstanceHeader),
		r.URL.Query().Get("instance"),
		r.Host,
	)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads a small JSON body; an empty body decodes to the zero
// value so POSTs without payloads keep working.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
