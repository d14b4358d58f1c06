// Package version carries the build label stamped in at link time:
//
//	go build -ldflags "-X daytrader/src/version.Version=$(git describe --tags)"
package version

var (
	Version = "dev"
	Commit  = "unknown"
)
