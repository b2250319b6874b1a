// Package userenv resolves the target user's identity and the environment
// block under which user-context subprocesses run.
package userenv

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Session is the resolved execution context for subprocesses spawned on
// behalf of the target desktop user.
type Session struct {
	Username       string
	UID            int
	Home           string
	RuntimeDir     string
	Display        string
	WaylandDisplay string
	// Warning is set when display discovery fell back to the conventional
	// name instead of finding a live socket.
	Warning string
}

// Builder resolves target-user sessions. The lookup seam exists so tests can
// run without real passwd entries.
type Builder struct {
	lookup func(username string) (*user.User, error)
}

// NewBuilder returns a Builder backed by the system user database.
func NewBuilder() *Builder {
	return &Builder{lookup: user.Lookup}
}

// Build resolves the target user and derives the session environment.
//
// An unresolvable Wayland display is never fatal; it degrades to the
// conventional socket name with a warning.
func (b *Builder) Build(username string, display string, waylandDisplay string) (Session, error) {
	if strings.TrimSpace(username) == "" {
		return Session{}, errors.New("target user must be configured")
	}

	info, err := b.lookup(username)
	if err != nil {
		return Session{}, fmt.Errorf("unknown user %q: %w", username, err)
	}

	uid, err := strconv.Atoi(info.Uid)
	if err != nil {
		return Session{}, fmt.Errorf("non-numeric uid %q for user %q: %w", info.Uid, username, err)
	}

	s := Session{
		Username:   username,
		UID:        uid,
		Home:       info.HomeDir,
		RuntimeDir: fmt.Sprintf("/run/user/%d", uid),
		Display:    display,
	}
	s.WaylandDisplay, s.Warning = DiscoverWaylandDisplay(waylandDisplay, s.RuntimeDir)
	return s, nil
}

// DiscoverWaylandDisplay resolves the Wayland display name by trying an
// explicit ordered list of strategies: the configured value, a scan of the
// runtime directory for display sockets, then the conventional default.
//
// The second return value is a warning message when the fallback default was
// used; it is empty otherwise.
func DiscoverWaylandDisplay(configured string, runtimeDir string) (string, string) {
	strategies := []func() (string, bool){
		func() (string, bool) {
			name := strings.TrimSpace(configured)
			return name, name != ""
		},
		func() (string, bool) {
			return scanRuntimeDir(runtimeDir)
		},
	}

	for _, strategy := range strategies {
		if name, ok := strategy(); ok {
			return name, ""
		}
	}

	return "wayland-0", fmt.Sprintf("no Wayland display found under %s; falling back to wayland-0", runtimeDir)
}

// scanRuntimeDir returns the first wayland display socket entry, by name.
func scanRuntimeDir(runtimeDir string) (string, bool) {
	entries, err := os.ReadDir(runtimeDir)
	if err != nil {
		return "", false
	}

	candidates := make([]string, 0, 2)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "wayland-") || strings.HasSuffix(name, ".lock") {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.Strings(candidates)
	return candidates[0], true
}

// Environ returns the current process environment overridden with the
// session's home, cache, runtime, and display variables.
func (s Session) Environ() []string {
	overrides := map[string]string{
		"HOME":            s.Home,
		"XDG_CACHE_HOME":  filepath.Join(s.Home, ".cache"),
		"XDG_RUNTIME_DIR": s.RuntimeDir,
		"DISPLAY":         s.Display,
		"WAYLAND_DISPLAY": s.WaylandDisplay,
	}

	env := make([]string, 0, len(os.Environ())+len(overrides))
	for _, kv := range os.Environ() {
		key, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, overridden := overrides[key]; overridden {
				continue
			}
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+overrides[key])
	}
	return env
}

// DefaultTypingSocket is the conventional ydotool socket path inside the
// session runtime directory.
func (s Session) DefaultTypingSocket() string {
	return filepath.Join(s.RuntimeDir, ".ydotool_socket")
}
