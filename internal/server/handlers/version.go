package handlers

import "net/http"

// VersionInfo is the build identity reported by GET /version.
type VersionInfo struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// NewVersionHandler returns a handler that reports the build info it was
// given at startup.
func NewVersionHandler(info VersionInfo) http.HandlerFunc {
	if info.Service == "" {
		info.Service = serviceName
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, info)
	}
}
