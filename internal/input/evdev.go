package input

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"
)

// evdevSubsystem is the real /dev/input implementation of Subsystem.
type evdevSubsystem struct{}

// NewEvdev returns the evdev-backed Subsystem.
func NewEvdev() Subsystem {
	return evdevSubsystem{}
}

func (evdevSubsystem) ListPaths() ([]string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.Path)
	}
	return out, nil
}

func (evdevSubsystem) Open(path string) (Device, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, err
	}

	name, err := dev.Name()
	if err != nil {
		name = path
	}

	return &evdevDevice{dev: dev, path: path, name: name}, nil
}

// KeyHeld opens the device node fresh and reads its current key state via
// EVIOCGKEY. A fresh open is deliberate: the event-stream fd may already be
// dead while the node itself is still queryable, and vice versa.
func (evdevSubsystem) KeyHeld(path string, code uint16) (bool, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return false, err
	}
	defer dev.Close()

	state, err := dev.State(evdev.EV_KEY)
	if err != nil {
		return false, err
	}
	return state[evdev.EvCode(code)], nil
}

type evdevDevice struct {
	dev  *evdev.InputDevice
	path string
	name string
}

func (d *evdevDevice) Path() string { return d.path }
func (d *evdevDevice) Name() string { return d.name }

func (d *evdevDevice) SupportsKey(code uint16) bool {
	for _, c := range d.dev.CapableEvents(evdev.EV_KEY) {
		if c == evdev.EvCode(code) {
			return true
		}
	}
	return false
}

func (d *evdevDevice) ReadEvent() (Event, error) {
	ev, err := d.dev.ReadOne()
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:  uint16(ev.Type),
		Code:  uint16(ev.Code),
		Value: ev.Value,
	}, nil
}

func (d *evdevDevice) Close() error {
	return d.dev.Close()
}
