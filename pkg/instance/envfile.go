package instance

import (
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Recognized .env keys.
const (
	envKeyPort   = "FLASK_PORT"
	envKeyDomain = "DOMAIN"
)

// EnvConfig is the subset of an instance's .env file this control plane
// consumes.
type EnvConfig struct {
	// Port is the instance's HTTP port, empty when not configured.
	Port string
	// Domain is the public domain the instance serves, empty when not set.
	Domain string
}

// ReadEnv parses <instanceDir>/.env. A missing or unreadable file is not an
// error: callers fall back to defaults, since instances are reconfigured
// out-of-band and the file can appear or vanish between calls.
func ReadEnv(instanceDir string) EnvConfig {
	values, err := godotenv.Read(filepath.Join(instanceDir, ".env"))
	if err != nil {
		return EnvConfig{}
	}
	return EnvConfig{
		Port:   strings.TrimSpace(values[envKeyPort]),
		Domain: strings.TrimSpace(values[envKeyDomain]),
	}
}
