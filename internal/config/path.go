package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/system fallback rules for config.conf location.
//
// The daemon typically runs as root, so the system-wide /etc path is the
// final fallback rather than a home directory.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "stt", "config.conf"), nil
	}

	return filepath.Join("/etc", "stt", "config.conf"), nil
}
