// Package app wires parsed commands to runtime components.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/guidov/intel-speech-to-text/internal/audio"
	"github.com/guidov/intel-speech-to-text/internal/capture"
	"github.com/guidov/intel-speech-to-text/internal/cli"
	"github.com/guidov/intel-speech-to-text/internal/config"
	"github.com/guidov/intel-speech-to-text/internal/device"
	"github.com/guidov/intel-speech-to-text/internal/doctor"
	"github.com/guidov/intel-speech-to-text/internal/listener"
	"github.com/guidov/intel-speech-to-text/internal/logging"
	"github.com/guidov/intel-speech-to-text/internal/transcribe"
	"github.com/guidov/intel-speech-to-text/internal/typing"
	"github.com/guidov/intel-speech-to-text/internal/userenv"
	"github.com/guidov/intel-speech-to-text/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("stt"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("stt"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime := logging.New(cfgLoaded.Config.Log)
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	if logRuntime.Warning != "" {
		fmt.Fprintf(r.Stderr, "warning: %s\n", logRuntime.Warning)
		logger.Warn("logging degraded", "message", logRuntime.Warning)
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, logger, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandInputs:
		return r.commandInputs(logger, cfgLoaded.Config)
	case cli.CommandListen:
		return r.commandListen(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, dev := range devices {
		defaultMark := " "
		if dev.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !dev.Available {
			availability = "no"
		}
		muted := "no"
		if dev.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark, dev.ID, dev.Description, dev.State, availability, muted,
		)
	}

	return 0
}

func (r Runner) commandInputs(logger *slog.Logger, cfg config.Config) int {
	inputs, err := device.NewResolver(logger).Inputs(cfg.Input.TriggerKey)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(inputs) == 0 {
		fmt.Fprintln(r.Stdout, "no readable input devices found (are you root?)")
		return 1
	}

	for _, input := range inputs {
		triggerMark := " "
		if input.HasTrigger {
			triggerMark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s %s | name=%q\n", triggerMark, input.Path, input.Name)
	}

	return 0
}

func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	if cfg.User == "" {
		fmt.Fprintln(r.Stderr, "error: user must be set for dictation; add \"user\" to the config")
		return 1
	}
	if os.Geteuid() != 0 {
		logger.Warn("not running as root; reading /dev/input will likely fail")
	}

	session, err := userenv.NewBuilder().Build(cfg.User, cfg.Session.Display, cfg.Session.WaylandDisplay)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("resolve target user session failed", "error", err.Error())
		return 1
	}
	if session.Warning != "" {
		logger.Warn("session discovery", "message", session.Warning)
	}
	logger.Info("target session resolved",
		"user", session.Username,
		"uid", session.UID,
		"wayland_display", session.WaylandDisplay,
	)

	resolution, err := device.NewResolver(logger).Resolve(cfg.Input.TriggerKey, cfg.Input.DevicePath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("input device resolution failed", "error", err.Error())
		return 1
	}
	if cfg.Input.DevicePath != "" && resolution.Path != cfg.Input.DevicePath {
		logger.Warn("resolved input device differs from configured path",
			"configured", cfg.Input.DevicePath,
			"resolved", resolution.Path,
		)
	}
	logger.Info("input device resolved",
		"path", resolution.Path,
		"name", resolution.Name,
		"strategy", resolution.Strategy,
	)

	code, ok := device.CodeForKey(cfg.Input.TriggerKey)
	if !ok {
		fmt.Fprintf(r.Stderr, "error: unknown trigger key %q\n", cfg.Input.TriggerKey)
		return 1
	}

	stream, err := device.Open(resolution.Path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	engine, err := transcribe.NewWhisperEngine(cfg.Model)
	if err != nil {
		_ = stream.Close()
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load speech model failed", "error", err.Error())
		return 1
	}
	transcriber := transcribe.New(logger, engine)
	defer func() { _ = transcriber.Close() }()
	logger.Info("speech model loaded", "path", cfg.Model.ArtifactPath())

	socket := cfg.Typing.Socket
	if socket == "" {
		socket = session.DefaultTypingSocket()
	}
	logger.Info("typing socket selected", "path", socket)

	env := session.Environ()

	recorder := capture.New(logger, capture.Options{
		Binary:       cfg.Audio.Binary,
		User:         cfg.User,
		Device:       cfg.Audio.Device,
		ArtifactPath: cfg.Audio.File,
		Format: capture.Format{
			SampleRate:   cfg.Audio.SampleRate,
			Channels:     cfg.Audio.Channels,
			SampleFormat: cfg.Audio.Format,
		},
		Env: env,
	})

	typist := typing.New(logger, typing.Options{
		Binary:     cfg.Typing.Binary,
		Socket:     socket,
		KeyDelayMS: cfg.Typing.KeyDelayMS,
		Env:        env,
	})
	if err := typist.CheckClient(); err != nil {
		_ = stream.Close()
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	orchestrator := listener.New(logger, listener.Options{
		Source:      stream,
		Trigger:     code,
		TriggerName: cfg.Input.TriggerKey,
		Recorder:    recorder,
		Transcriber: transcriber,
		Typist:      typist,
	})

	if err := orchestrator.Run(ctx); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("listener failed", "error", err.Error())
		return 1
	}
	return 0
}
