package platform

import (
	"runtime"
	"strings"
	"testing"
)

func TestDetectIsCached(t *testing.T) {
	first := Detect()
	second := Detect()
	if first != second {
		t.Errorf("Detect not stable: %v then %v", first, second)
	}
}

func TestDetectMatchesGOOS(t *testing.T) {
	p := Detect()
	switch runtime.GOOS {
	case "darwin":
		if p != PlatformMacOS {
			t.Errorf("darwin detected as %v", p)
		}
	case "linux":
		if p != PlatformLinux && p != PlatformWSL {
			t.Errorf("linux detected as %v", p)
		}
	}
}

func TestDefaultOpenerNonEmpty(t *testing.T) {
	if len(DefaultOpener()) == 0 {
		t.Fatal("DefaultOpener returned empty command")
	}
}

func TestDefaultNotifierHasPlaceholders(t *testing.T) {
	joined := strings.Join(DefaultNotifier(), " ")
	if !strings.Contains(joined, "{title}") || !strings.Contains(joined, "{body}") {
		t.Errorf("notifier template missing placeholders: %q", joined)
	}
}
