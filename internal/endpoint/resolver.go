// Package endpoint derives the base URL of the property search service from the
// platform the client runs on.
package endpoint

import (
	"fmt"
	"strings"
)

// DefaultPort is the port the search service listens on in development.
const DefaultPort = 8000

const (
	// AndroidEmulatorHost is the address under which the Android emulator guest
	// reaches the host machine's loopback interface.
	AndroidEmulatorHost = "10.0.2.2"
	// LoopbackHost is used by iOS simulators and web clients.
	LoopbackHost = "127.0.0.1"
)

// OS identifies the client platform.
type OS string

const (
	OSAndroid OS = "android"
	OSIOS     OS = "ios"
	OSWeb     OS = "web"
)

// ParseOS maps a configuration value to an OS. Unknown values resolve to OSWeb,
// which shares the loopback policy with every non-mobile platform.
func ParseOS(s string) OS {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "android":
		return OSAndroid
	case "ios", "iphoneos", "ipados":
		return OSIOS
	default:
		return OSWeb
	}
}

// PlatformInfo holds the environment facts the resolver needs.
// It is built once from configuration at startup.
type PlatformInfo struct {
	OS         OS
	IsEmulator bool
	// DevHost is the LAN address of the developer machine, used by physical
	// Android devices.
	DevHost string
	// Port defaults to DefaultPort when zero.
	Port int
}

// Resolve maps platform facts to the base URL of the search service.
// Rules are evaluated in order and the first match wins:
//
//	android + emulator -> 10.0.2.2
//	android + device   -> DevHost
//	ios                -> loopback
//	anything else      -> loopback
func Resolve(p PlatformInfo) string {
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}

	host := LoopbackHost
	switch {
	case p.OS == OSAndroid && p.IsEmulator:
		host = AndroidEmulatorHost
	case p.OS == OSAndroid:
		host = strings.TrimSpace(p.DevHost)
	case p.OS == OSIOS:
		host = LoopbackHost
	}

	return fmt.Sprintf("http://%s:%d", host, port)
}

// RequiresDevHost reports whether Resolve needs a configured DevHost for p.
func RequiresDevHost(p PlatformInfo) bool {
	return p.OS == OSAndroid && !p.IsEmulator
}
