package provision

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform is returned for platforms without an engine build.
var ErrUnsupportedPlatform = errors.New("provision: unsupported platform")

// Platform names an engine build target.
type Platform uint8

const (
	PlatformUnknown Platform = iota
	PlatformWindowsX64
	PlatformDarwinX64
	PlatformLinuxX64
)

var platformNames = [...]string{
	PlatformUnknown:    "",
	PlatformWindowsX64: "windows-x64",
	PlatformDarwinX64:  "darwin-x64",
	PlatformLinuxX64:   "linux-x64",
}

// String returns the archive name of the platform, e.g. "linux-x64".
func (p Platform) String() string {
	if int(p) < len(platformNames) {
		return platformNames[p]
	}
	return fmt.Sprintf("Platform(%d)", p)
}

// ParsePlatform parses an archive platform name.
func ParsePlatform(s string) (Platform, error) {
	for p, name := range platformNames {
		if name != "" && name == s {
			return Platform(p), nil //nolint:gosec // index of a four element array
		}
	}
	return PlatformUnknown, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
}

// HostPlatform maps a GOOS/GOARCH pair to its platform. Callers pass
// runtime.GOOS and runtime.GOARCH.
func HostPlatform(goos, goarch string) (Platform, error) {
	if goarch == "amd64" {
		switch goos {
		case "windows":
			return PlatformWindowsX64, nil
		case "darwin":
			return PlatformDarwinX64, nil
		case "linux":
			return PlatformLinuxX64, nil
		}
	}
	return PlatformUnknown, fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
}
