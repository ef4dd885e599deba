// Package version reports the pmidfetch build.
//
// Version, commit and build time are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/pmidfetch/version.Version=1.2.0" ./cmd/pmidfetch
//
// Unstamped builds fall back to the VCS settings recorded by the Go
// toolchain.
package version
