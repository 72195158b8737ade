// Package version carries build information for the apikit module and the
// apikit-gen binary.
//
// Values are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/apikit/version.Version=1.0.0"
//
// Generated clients send UserAgent() unless a contract declares its own.
package version
