// Package version reports the build identity of a kernel binary.
//
// Version, commit and build time are injected at link time:
//
//	go build -ldflags "-X github.com/kbukum/gokernel/version.Version=1.4.0"
//
// Missing values are filled from the module's embedded VCS stamp.
package version
