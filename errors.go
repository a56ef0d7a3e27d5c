package bridge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUseAfterFree is returned for access to a handle whose native value
	// has been destroyed.
	ErrUseAfterFree = errors.New("use after free")
	// ErrTypeMismatch is returned when a handle's type is not the requested
	// type or one of its derived types.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrNotAHandle is returned when a value holds no boxed handle, directly
	// or through a wrapper table.
	ErrNotAHandle = errors.New("not a handle")
	// ErrOutOfMemory is returned when the runtime's handle quota is exhausted.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrNilRejected is returned for a nil value where a non-pointer type
	// was required.
	ErrNilRejected = errors.New("nil rejected")
	// ErrClosed is returned by operations on a closed bridge.
	ErrClosed = errors.New("bridge closed")
	// ErrTypeConflict is returned for inconsistent type registrations.
	ErrTypeConflict = errors.New("type conflict")
)

// Error describes a failed bridge call. It unwraps to one of the Err
// sentinels.
type Error struct {
	Kind error
	Pos  int    // 1-based argument position, 0 if not positional
	Want string // requested type
	Got  string // type found
	Addr Addr
	Msg  string
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Pos > 0 {
		fmt.Fprintf(&sb, "arg %d: ", e.Pos)
	}
	sb.WriteString(e.Kind.Error())
	switch {
	case e.Msg != "":
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	case e.Kind == ErrUseAfterFree:
		fmt.Fprintf(&sb, ": %s had been freed (%s), can't be used", e.Got, e.Addr)
	case e.Kind == ErrTypeMismatch:
		fmt.Fprintf(&sb, ": expect userdata %s, but got %s", e.Want, e.Got)
	case e.Kind == ErrNotAHandle:
		fmt.Fprintf(&sb, ": expect userdata, got %s", e.Got)
	case e.Kind == ErrNilRejected:
		fmt.Fprintf(&sb, ": expect %s, got nil", e.Want)
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// at returns a copy of err tagged with an argument position.
func at(err error, pos int) error {
	var be *Error
	if errors.As(err, &be) {
		c := *be
		c.Pos = pos
		return &c
	}
	return fmt.Errorf("arg %d: %w", pos, err)
}
