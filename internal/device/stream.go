package device

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"
)

// KeyState mirrors the raw evdev key event value.
type KeyState int32

const (
	KeyUp   KeyState = 0
	KeyDown KeyState = 1

	keyRepeat KeyState = 2
)

// KeyEvent is one key transition delivered to the orchestrator. Repeat
// events and non-key events never reach this type.
type KeyEvent struct {
	Code  evdev.EvCode
	State KeyState
}

// Source is a blocking stream of key transitions.
type Source interface {
	Next() (KeyEvent, error)
	Close() error
}

// Stream reads key transitions from one opened evdev device.
type Stream struct {
	dev  *evdev.InputDevice
	path string
}

// Open opens the device read-only and wraps it as a key-event stream.
func Open(path string) (*Stream, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input device %q: %w", path, err)
	}
	return &Stream{dev: dev, path: path}, nil
}

// Next blocks until the next key up/down transition arrives.
//
// Non-key events and key-repeat events are discarded here so the caller only
// ever sees clean up/down transitions.
func (s *Stream) Next() (KeyEvent, error) {
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			return KeyEvent{}, fmt.Errorf("read input event from %q: %w", s.path, err)
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		if KeyState(ev.Value) == keyRepeat {
			continue
		}
		return KeyEvent{Code: ev.Code, State: KeyState(ev.Value)}, nil
	}
}

// Close closes the underlying device, unblocking any in-flight Next call.
func (s *Stream) Close() error {
	return s.dev.Close()
}

// Path returns the opened device path.
func (s *Stream) Path() string {
	return s.path
}
