package api

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/MJE43/rps-gauntlet/internal/api.Version=v1.2.0 \
//	  -X github.com/MJE43/rps-gauntlet/internal/api.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// GetVersionInfo reports the running build.
func GetVersionInfo() VersionInfo {
	return VersionInfo{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
}
