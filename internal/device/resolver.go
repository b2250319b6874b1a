// Package device locates the raw keyboard input device and exposes its key
// events as a filtered stream.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// ErrNoDevice indicates that no resolution strategy produced a usable device.
var ErrNoDevice = errors.New("no suitable input device found")

// Resolution is the outcome of device resolution: the chosen path plus which
// strategy matched, for logging and diagnostics.
type Resolution struct {
	Path     string
	Name     string
	Strategy string
}

const (
	StrategyCapability = "capability"
	StrategyName       = "name"
	StrategyConfigured = "configured"
)

// nameHeuristics are the case-insensitive substrings that mark a device as
// keyboard-like when no capability match exists.
var nameHeuristics = []string{"keyboard", "key", "kbd"}

// probe is the subset of device behavior needed during resolution.
type probe interface {
	Name() (string, error)
	CapableTypes() []evdev.EvType
	CapableEvents(t evdev.EvType) []evdev.EvCode
	Close() error
}

// Resolver finds the input device carrying the configured trigger key.
//
// Enumeration order and device naming are not stable across reboots or USB
// re-plugs, hence the ordered strategy list: capability match, then name
// heuristic, then the configured static path.
type Resolver struct {
	logger *slog.Logger
	list   func() ([]string, error)
	open   func(path string) (probe, error)
	exists func(path string) bool
}

// NewResolver returns a Resolver backed by /dev/input.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{
		logger: logger,
		list:   listEventDevices,
		open: func(path string) (probe, error) {
			return evdev.Open(path)
		},
		exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// CodeForKey maps an evdev key name such as KEY_RIGHTCTRL to its event code.
func CodeForKey(name string) (evdev.EvCode, bool) {
	code, ok := evdev.KEYFromString[name]
	return code, ok
}

// Resolve locates a device for the trigger key, trying each strategy in order.
func (r *Resolver) Resolve(triggerKey string, preferredPath string) (Resolution, error) {
	code, ok := CodeForKey(triggerKey)
	if !ok {
		return Resolution{}, fmt.Errorf("unknown trigger keycode %q", triggerKey)
	}

	paths, err := r.list()
	if err != nil {
		return Resolution{}, fmt.Errorf("enumerate input devices: %w", err)
	}

	strategies := []func() (Resolution, bool){
		func() (Resolution, bool) { return r.byCapability(paths, code) },
		func() (Resolution, bool) { return r.byNameHeuristic(paths) },
		func() (Resolution, bool) { return r.byConfiguredPath(preferredPath) },
	}

	for _, strategy := range strategies {
		if resolution, found := strategy(); found {
			return resolution, nil
		}
	}

	return Resolution{}, fmt.Errorf("%w for trigger key %s", ErrNoDevice, triggerKey)
}

// byCapability selects the first device whose key capabilities include the
// trigger code.
func (r *Resolver) byCapability(paths []string, code evdev.EvCode) (Resolution, bool) {
	for _, path := range paths {
		dev, err := r.open(path)
		if err != nil {
			r.logger.Debug("skipping unreadable input device", "path", path, "error", err.Error())
			continue
		}

		name, _ := dev.Name()
		if supportsKey(dev, code) {
			_ = dev.Close()
			return Resolution{Path: path, Name: name, Strategy: StrategyCapability}, true
		}
		_ = dev.Close()
	}
	return Resolution{}, false
}

// byNameHeuristic selects the first device whose name looks keyboard-like.
func (r *Resolver) byNameHeuristic(paths []string) (Resolution, bool) {
	for _, path := range paths {
		dev, err := r.open(path)
		if err != nil {
			r.logger.Debug("skipping unreadable input device", "path", path, "error", err.Error())
			continue
		}

		name, err := dev.Name()
		_ = dev.Close()
		if err != nil {
			continue
		}

		lowered := strings.ToLower(name)
		for _, heuristic := range nameHeuristics {
			if strings.Contains(lowered, heuristic) {
				r.logger.Info("no capability match; using keyboard-like device by name",
					"path", path, "name", name)
				return Resolution{Path: path, Name: name, Strategy: StrategyName}, true
			}
		}
	}
	return Resolution{}, false
}

// byConfiguredPath falls back to the static configured device, if it exists.
func (r *Resolver) byConfiguredPath(preferredPath string) (Resolution, bool) {
	if strings.TrimSpace(preferredPath) == "" {
		return Resolution{}, false
	}
	if !r.exists(preferredPath) {
		r.logger.Warn("configured input device does not exist", "path", preferredPath)
		return Resolution{}, false
	}
	r.logger.Info("falling back to configured input device", "path", preferredPath)
	return Resolution{Path: preferredPath, Strategy: StrategyConfigured}, true
}

func supportsKey(dev probe, code evdev.EvCode) bool {
	hasKeyEvents := false
	for _, t := range dev.CapableTypes() {
		if t == evdev.EV_KEY {
			hasKeyEvents = true
			break
		}
	}
	if !hasKeyEvents {
		return false
	}
	for _, capable := range dev.CapableEvents(evdev.EV_KEY) {
		if capable == code {
			return true
		}
	}
	return false
}

// Input describes one enumerable input device for the inputs command.
type Input struct {
	Path       string
	Name       string
	HasTrigger bool
}

// Inputs lists readable input devices and marks those carrying the trigger key.
func (r *Resolver) Inputs(triggerKey string) ([]Input, error) {
	code, ok := CodeForKey(triggerKey)
	if !ok {
		return nil, fmt.Errorf("unknown trigger keycode %q", triggerKey)
	}

	paths, err := r.list()
	if err != nil {
		return nil, fmt.Errorf("enumerate input devices: %w", err)
	}

	inputs := make([]Input, 0, len(paths))
	for _, path := range paths {
		dev, err := r.open(path)
		if err != nil {
			continue
		}
		name, _ := dev.Name()
		inputs = append(inputs, Input{
			Path:       path,
			Name:       name,
			HasTrigger: supportsKey(dev, code),
		})
		_ = dev.Close()
	}
	return inputs, nil
}

// listEventDevices returns /dev/input/event* paths in ascending numeric order.
func listEventDevices() ([]string, error) {
	matches, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return eventNumber(matches[i]) < eventNumber(matches[j])
	})
	return matches, nil
}

func eventNumber(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "event"))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
