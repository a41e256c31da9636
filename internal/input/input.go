// Package input adapts the Linux evdev input subsystem behind small
// interfaces so the controller can be tested against fakes.
package input

// Linux input event types and values (from <linux/input-event-codes.h>).
const (
	EvKey = 0x01

	ValueKeyUp   = 0
	ValueKeyDown = 1
	ValueRepeat  = 2
)

// Event is one raw input event as delivered by the kernel.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Device is one opened input device node. ReadEvent blocks until the next
// hardware event and returns an error when the device disappears or access
// is revoked; the stream is not restartable, re-open to resume.
type Device interface {
	Path() string
	Name() string

	// SupportsKey reports whether the device advertises the given key code
	// in its EV_KEY capability set.
	SupportsKey(code uint16) bool

	ReadEvent() (Event, error)
	Close() error
}

// Subsystem enumerates and opens devices. KeyHeld samples the live key state
// of a device by path, independent of any open event stream; this is the
// re-check the long-press timer relies on.
type Subsystem interface {
	ListPaths() ([]string, error)
	Open(path string) (Device, error)
	KeyHeld(path string, code uint16) (bool, error)
}
