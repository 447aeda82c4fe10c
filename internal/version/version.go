// Package version carries build metadata injected with -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/doeshing/dexter/internal/version.Version=v0.3.0"
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)
