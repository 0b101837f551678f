// Package buildinfo holds the version string stamped into binaries by the
// release build, mirroring the teacher's own ldflags-injected version
// package.
package buildinfo

import "strings"

// Version is set at build time via
// -ldflags "-X go.beaconmc.dev/beacon/internal/buildinfo.Version=v1.2.3"
var Version = "unknown"

func String() string {
	return Version
}

// UserAgent is sent as the User-Agent header on the authenticator's
// outbound requests to Mojang.
func UserAgent() string {
	var s strings.Builder
	s.WriteString("Beacon/")
	if v := String(); v != "" {
		s.WriteString(v)
	} else {
		s.WriteString("dirty")
	}
	return s.String()
}
