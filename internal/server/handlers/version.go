package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
)

// Build metadata, injected from main via SetVersionInfo.
var (
	AppVersion   = "dev"
	AppCommit    = "unknown"
	AppBuildDate = "unknown"
)

var (
	gatewayMu   sync.RWMutex
	gatewayInfo GatewayInfo
)

// SetVersionInfo records the build metadata reported by /version.
func SetVersionInfo(version, commit, buildDate string) {
	AppVersion = version
	AppCommit = commit
	AppBuildDate = buildDate
}

// SetGatewayInfo records the registry and admission settings reported by
// /version. Set once at startup.
func SetGatewayInfo(info GatewayInfo) {
	gatewayMu.Lock()
	defer gatewayMu.Unlock()
	gatewayInfo = info
}

// GatewayInfo describes where documents go and how fast.
type GatewayInfo struct {
	RegistryHost string `json:"registry_host,omitempty"`
	CreatePath   string `json:"create_path,omitempty"`
	RateLimit    int    `json:"rate_limit,omitempty"`
	RateWindow   string `json:"rate_window,omitempty"`
	Journal      bool   `json:"journal"`
}

// NewGatewayInfo builds a GatewayInfo from runtime settings.
func NewGatewayInfo(registryHost, createPath string, limit int, window time.Duration, journal bool) GatewayInfo {
	info := GatewayInfo{
		RegistryHost: registryHost,
		CreatePath:   createPath,
		RateLimit:    limit,
		Journal:      journal,
	}
	if window > 0 {
		info.RateWindow = window.String()
	}
	return info
}

// VersionResponse is the /version body.
type VersionResponse struct {
	App          AppInfo     `json:"app"`
	Gateway      GatewayInfo `json:"gateway"`
	Dependencies DepInfo     `json:"dependencies"`
	Runtime      RuntimeInfo `json:"runtime"`
}

// AppInfo contains application version details
type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// DepInfo contains dependency version information
type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

// RuntimeInfo contains runtime environment information
type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler serves GET /version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	deps := crucible.GetVersion()

	gatewayMu.RLock()
	gateway := gatewayInfo
	gatewayMu.RUnlock()

	response := VersionResponse{
		App: AppInfo{
			Name:      "docgate",
			Version:   AppVersion,
			Commit:    AppCommit,
			BuildDate: AppBuildDate,
			GoVersion: runtime.Version(),
		},
		Gateway: gateway,
		Dependencies: DepInfo{
			Gofulmen: deps.Gofulmen,
			Crucible: deps.Crucible,
		},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	}

	writeHealthJSON(w, response)
}
