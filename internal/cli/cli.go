// Package cli parses the stt command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandListen  Command = "listen"
	CommandDevices Command = "devices"
	CommandInputs  Command = "inputs"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandListen:  {},
	CommandDevices: {},
	CommandInputs:  {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

// Parse interprets args. With no command, stt runs the listener daemon.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandListen}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [command]

Commands:
  listen    Hold-to-dictate daemon (default; requires root)
  devices   List audio input sources
  inputs    List raw input devices and mark those with the trigger key
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/stt/config.conf)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
