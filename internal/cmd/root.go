package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jabez4jc/openalgo-control/internal/config"
	"github.com/jabez4jc/openalgo-control/internal/observability"
)

const envPrefix = "OPENALGO"

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected through ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile    string
	logLevel   string
	logProfile string
)

var rootCmd = &cobra.Command{
	Use:   "openalgoctl",
	Short: "Fleet operations for OpenAlgo instances",
	Long: `openalgoctl manages a fleet of OpenAlgo trading instances on a single
host: systemd lifecycle control, authentication and market-data readiness
inspection, and asynchronous maintenance jobs (health checks, updates,
restarts) exposed over an HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the CLI. It is the only entry point main calls.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)",
		versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

	if err := rootCmd.Execute(); err != nil {
		code := 1
		var cerr *commandError
		if errors.As(err, &cerr) {
			code = cerr.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(code)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./openalgoctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logProfile, "log-profile", "", "Log profile (structured, console)")
}

func initConfig() error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("openalgoctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/openalgo")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; anything else is a real problem.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	if logLevel != "" {
		viper.Set("logging.level", logLevel)
	}
	if logProfile != "" {
		viper.Set("logging.profile", logProfile)
	}

	if err := observability.Init(viper.GetString("logging.level"), viper.GetString("logging.profile")); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	if viper.ConfigFileUsed() != "" {
		observability.CLILogger.Debug("Loaded config file",
			zap.String("path", viper.ConfigFileUsed()))
	}
	return nil
}

func setDefaults() {
	config.SetDefaults(viper.GetViper())
}

// loadConfig materializes the typed config after flags and env are bound.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
