// Package doctor runs readiness diagnostics for the dictation environment:
// privileges, target user, input device, external tools, model artifact, and
// the audio server.
package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"strings"

	"github.com/guidov/intel-speech-to-text/internal/audio"
	"github.com/guidov/intel-speech-to-text/internal/config"
	"github.com/guidov/intel-speech-to-text/internal/device"
	"github.com/guidov/intel-speech-to-text/internal/userenv"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes privilege/config/tool/runtime checks for a loaded config.
func Run(ctx context.Context, logger *slog.Logger, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkRoot(os.Geteuid()))
	checks = append(checks, checkUser(user.Lookup, cfg.Config.User))
	checks = append(checks, checkInputDevice(logger, cfg.Config))
	checks = append(checks, checkBinary(cfg.Config.Audio.Binary, "audio recorder"))
	if cfg.Config.User != "" {
		checks = append(checks, checkBinary("sudo", "per-user capture"))
	}
	checks = append(checks, checkBinary(cfg.Config.Typing.Binary, "keystroke injection client"))
	checks = append(checks, checkTypingSocket(typingSocketPath(cfg.Config)))
	checks = append(checks, checkModelArtifact(cfg.Config.Model))
	checks = append(checks, checkPulse(ctx))

	return Report{Checks: checks}
}

// checkRoot validates the process can read raw input devices.
func checkRoot(euid int) Check {
	if euid == 0 {
		return Check{Name: "privileges", Pass: true, Message: "running as root"}
	}
	return Check{
		Name:    "privileges",
		Pass:    false,
		Message: fmt.Sprintf("euid %d cannot read /dev/input; run as root", euid),
	}
}

// checkUser validates the configured capture/injection user exists.
func checkUser(lookup func(string) (*user.User, error), username string) Check {
	if strings.TrimSpace(username) == "" {
		return Check{Name: "user", Pass: false, Message: "user is empty; set the target session user"}
	}
	u, err := lookup(username)
	if err != nil {
		return Check{Name: "user", Pass: false, Message: fmt.Sprintf("lookup %q: %v", username, err)}
	}
	return Check{Name: "user", Pass: true, Message: fmt.Sprintf("%s (uid %s)", u.Username, u.Uid)}
}

// checkInputDevice runs live device resolution to surface enumeration issues.
func checkInputDevice(logger *slog.Logger, cfg config.Config) Check {
	resolution, err := device.NewResolver(logger).Resolve(cfg.Input.TriggerKey, cfg.Input.DevicePath)
	if err != nil {
		return Check{Name: "input.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("%s via %s strategy", resolution.Path, resolution.Strategy)
	if resolution.Name != "" {
		message = fmt.Sprintf("%s (%s) via %s strategy", resolution.Path, resolution.Name, resolution.Strategy)
	}
	return Check{Name: "input.device", Pass: true, Message: message}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, role string) Check {
	if bin == "" {
		return Check{Name: role, Pass: false, Message: "binary is not configured"}
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s (%s)", bin, role)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, role)}
}

// checkTypingSocket validates the injection daemon socket exists.
func checkTypingSocket(path string) Check {
	if path == "" {
		return Check{Name: "typing.socket", Pass: false, Message: "socket path unknown; set typing.socket or a valid user"}
	}
	if _, err := os.Stat(path); err != nil {
		return Check{Name: "typing.socket", Pass: false, Message: fmt.Sprintf("%s missing; is ydotoold running?", path)}
	}
	return Check{Name: "typing.socket", Pass: true, Message: path}
}

// checkModelArtifact validates the speech model file is present on disk.
func checkModelArtifact(cfg config.ModelConfig) Check {
	path := cfg.ArtifactPath()
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "model.artifact", Pass: false, Message: fmt.Sprintf("%s missing; download the ggml model first", path)}
	}
	return Check{Name: "model.artifact", Pass: true, Message: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

// checkPulse probes the audio server the recorder will capture from.
func checkPulse(ctx context.Context) Check {
	if err := audio.Ping(ctx); err != nil {
		return Check{Name: "audio.server", Pass: false, Message: err.Error()}
	}
	return Check{Name: "audio.server", Pass: true, Message: "pulse server reachable"}
}

// typingSocketPath resolves the socket to probe: explicit config first, then
// the target user's runtime directory default.
func typingSocketPath(cfg config.Config) string {
	if cfg.Typing.Socket != "" {
		return cfg.Typing.Socket
	}
	session, err := userenv.NewBuilder().Build(cfg.User, cfg.Session.Display, cfg.Session.WaylandDisplay)
	if err != nil {
		return ""
	}
	return session.DefaultTypingSocket()
}
