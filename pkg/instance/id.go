package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IDPrefix is the fixed prefix every managed instance name carries.
const IDPrefix = "openalgo"

// idPattern enforces the naming convention: fixed prefix plus a non-empty
// numeric suffix. This check is the injection-prevention boundary; no
// string that fails it may reach a filesystem, process or database
// operation.
var idPattern = regexp.MustCompile(`^openalgo[0-9]+$`)

// ValidID reports whether id names a managed instance.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ParseID trims and validates a candidate identifier.
func ParseID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if !ValidID(id) {
		return "", fmt.Errorf("invalid instance id %q: want %s<number>", raw, IDPrefix)
	}
	return id, nil
}

// Resolver produces at most one validated instance identifier from the
// untrusted inputs of a request: an explicit header, a query parameter and
// the request's virtual host mapped through a directory of symlinks.
//
// Candidates that fail validation are skipped, not fatal; resolution moves
// on to the next source.
type Resolver struct {
	// VhostDir holds one symlink per served hostname, each pointing at the
	// instance's directory. Empty disables host-based resolution.
	VhostDir string
}

// Resolve returns the first valid identifier among header, query and host,
// in that priority order, or "" when no source yields one.
func (r Resolver) Resolve(header, query, host string) string {
	if id, err := ParseID(header); err == nil {
		return id
	}
	if id, err := ParseID(query); err == nil {
		return id
	}
	if id, err := ParseID(r.fromHost(host)); err == nil {
		return id
	}
	return ""
}

// fromHost maps a request hostname to an instance id via the vhost symlink
// directory. The symlink's target basename is the candidate identifier.
func (r Resolver) fromHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if r.VhostDir == "" || host == "" {
		return ""
	}
	// Strip a port if the Host header carried one.
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host[i+1:], "]") {
		host = host[:i]
	}
	// Hostnames are never path segments.
	if strings.ContainsAny(host, "/\\") || host == "." || host == ".." {
		return ""
	}
	target, err := os.Readlink(filepath.Join(r.VhostDir, host))
	if err != nil {
		return ""
	}
	return filepath.Base(target)
}
