package instance

import (
	"path/filepath"
	"strings"
)

// unitNamespace prefixes every domain-derived systemd unit name.
const unitNamespace = "openalgo-"

// UnitName derives the systemd unit used for process control of an
// instance. When the instance's .env carries a domain, the unit is the
// namespace token plus the domain with dots replaced by dashes; otherwise
// the instance id doubles as the unit name.
//
// The mapping is recomputed on every call: the .env can change after a
// reconfiguration and a stale cached unit name would control the wrong
// service.
func UnitName(root, id string) string {
	if !ValidID(id) {
		return ""
	}
	env := ReadEnv(filepath.Join(root, id))
	if env.Domain == "" {
		return id
	}
	return unitNamespace + strings.ReplaceAll(env.Domain, ".", "-")
}
