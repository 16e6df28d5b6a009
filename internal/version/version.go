// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/piyush4299/chat-app/internal/version.Version=0.3.0 \
//	                   -X github.com/piyush4299/chat-app/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/piyush4299/chat-app/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

// Build-time variables (set via ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns a formatted version string, e.g. "chatcli 0.3.0 (abc1234) built 2024-05-01T10:00:00Z".
func String() string {
	s := "chatcli " + Version
	if Commit != "unknown" {
		s += " (" + Commit + ")"
	}
	if BuildTime != "unknown" {
		s += " built " + BuildTime
	}
	return s
}
