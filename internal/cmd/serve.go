package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jabez4jc/openalgo-control/internal/observability"
	"github.com/jabez4jc/openalgo-control/internal/server"
	"github.com/jabez4jc/openalgo-control/internal/server/handlers"
	"github.com/jabez4jc/openalgo-control/pkg/instance"
	"github.com/jabez4jc/openalgo-control/pkg/jobs"
	"github.com/jabez4jc/openalgo-control/pkg/readiness"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fleet operations HTTP API",
	Long: `Start the HTTP server exposing instance lifecycle control, state
inspection and the asynchronous job API.

Example:
  openalgoctl serve
  openalgoctl serve --host 127.0.0.1 --port 9000`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	defer observability.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	log := observability.ServerLogger

	manager := instance.NewManager(cfg.Paths.InstancesRoot, log)
	registry := jobs.NewRegistry(cfg.Jobs.Capacity)
	runner := jobs.NewRunner(registry, log)
	evaluator := readiness.NewEvaluator(cfg.Readiness.Timezone, cfg.Readiness.CutoverHour, nil)

	api := handlers.NewAPI(cfg, manager, registry, runner, evaluator, log)

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	hm.RegisterChecker("instances_root", instancesRootChecker{root: cfg.Paths.InstancesRoot})
	hm.RegisterChecker("systemctl", systemctlChecker{})

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithAPI(api),
		server.WithVersionInfo(handlers.VersionInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		}),
		server.WithJobRateLimit(cfg.Jobs.RatePerMinute),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info("control plane started",
		zap.String("addr", srv.Addr()),
		zap.String("instances_root", cfg.Paths.InstancesRoot),
		zap.String("version", versionInfo.Version))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
		}
		return nil
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// instancesRootChecker reports unhealthy when the instances root is not a
// readable directory; the whole API is inert without it.
type instancesRootChecker struct {
	root string
}

func (c instancesRootChecker) CheckHealth(ctx context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("instances root %s: %w", c.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("instances root %s is not a directory", c.root)
	}
	return nil
}

// systemctlChecker verifies the systemctl binary is resolvable. Lifecycle
// and status endpoints shell out to it on every call.
type systemctlChecker struct{}

func (systemctlChecker) CheckHealth(ctx context.Context) error {
	if _, err := exec.LookPath("systemctl"); err != nil {
		return fmt.Errorf("systemctl not found: %w", err)
	}
	return nil
}
