// Package version reports build information for the ssehub binary.
//
//	go build -ldflags "-X github.com/kbukum/ssehub/version.Version=1.4.0" ./cmd/ssehub
package version
