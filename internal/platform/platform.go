package platform

import (
	"os"
	"runtime"
	"strings"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWSL     Platform = "wsl"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// cached detection result
var detectedPlatform Platform
var detectionDone bool

// Detect returns the current platform, caching the result
func Detect() Platform {
	if detectionDone {
		return detectedPlatform
	}

	detectedPlatform = detectPlatform()
	detectionDone = true
	return detectedPlatform
}

func detectPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "linux":
		if isWSLKernel() {
			return PlatformWSL
		}
		return PlatformLinux
	default:
		return PlatformUnknown
	}
}

// isWSLKernel checks for WSL signatures (env var first, /proc/version fallback)
func isWSLKernel() bool {
	if os.Getenv("WSL_DISTRO_NAME") != "" {
		return true
	}
	procVersion, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	v := string(procVersion)
	return strings.Contains(v, "microsoft") || strings.Contains(v, "Microsoft")
}

// IsWSL returns true if running in a WSL environment
func IsWSL() bool {
	return Detect() == PlatformWSL
}

// DefaultOpener returns the command used to open a directory in the
// platform's file manager.
func DefaultOpener() []string {
	switch Detect() {
	case PlatformMacOS:
		return []string{"open"}
	case PlatformWSL:
		return []string{"explorer.exe"}
	default:
		return []string{"xdg-open"}
	}
}

// DefaultNotifier returns the command template used to post a desktop
// notification. {title} and {body} are substituted by the caller.
func DefaultNotifier() []string {
	switch Detect() {
	case PlatformMacOS:
		return []string{"osascript", "-e", `display notification "{body}" with title "{title}"`}
	case PlatformWSL:
		// WSL has no native notification daemon; powershell toast is the
		// closest equivalent and degrades to a no-op when unavailable.
		return []string{"powershell.exe", "-NoProfile", "-Command",
			`New-BurntToastNotification -Text "{title}","{body}"`}
	default:
		return []string{"notify-send", "{title}", "{body}"}
	}
}

// String returns a human-readable platform name
func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	case PlatformWSL:
		return "WSL"
	case PlatformWindows:
		return "Windows"
	default:
		return "Unknown"
	}
}
