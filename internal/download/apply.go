package download

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/abelbrown/wallfeed/internal/logging"
)

// Applier sets a local image file as the desktop wallpaper. The stream
// UI only depends on this interface; how the desktop is driven is a
// platform detail.
type Applier interface {
	Apply(ctx context.Context, path string) error
}

// NewApplier returns the best Applier for the current platform, falling
// back to a log-only no-op where no desktop integration exists.
func NewApplier() Applier {
	switch runtime.GOOS {
	case "darwin":
		return osascriptApplier{}
	case "linux":
		return gsettingsApplier{}
	default:
		return noopApplier{}
	}
}

// noopApplier records the request and does nothing. Used on platforms
// without an integration and in tests.
type noopApplier struct{}

func (noopApplier) Apply(ctx context.Context, path string) error {
	logging.Info("wallpaper apply skipped: no desktop integration", "path", path)
	return nil
}

// osascriptApplier drives the macOS Finder through osascript.
type osascriptApplier struct{}

func (osascriptApplier) Apply(ctx context.Context, path string) error {
	script := fmt.Sprintf(`tell application "System Events" to set picture of every desktop to %q`, path)
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, out)
	}
	return nil
}

// gsettingsApplier targets GNOME-family desktops.
type gsettingsApplier struct{}

func (gsettingsApplier) Apply(ctx context.Context, path string) error {
	uri := "file://" + path
	for _, key := range []string{"picture-uri", "picture-uri-dark"} {
		cmd := exec.CommandContext(ctx, "gsettings", "set", "org.gnome.desktop.background", key, uri)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("gsettings %s: %w: %s", key, err, out)
		}
	}
	return nil
}
