package history

import (
	"errors"
	"fmt"
)

var (
	// ErrNilEntry is returned when a nil entry is stored.
	ErrNilEntry = errors.New("cannot store nil entry")

	// ErrWrongApp is returned when importing a package another app exported.
	ErrWrongApp = errors.New("not a designlog export")

	// ErrEmptyPackage is returned when an import package carries no data.
	ErrEmptyPackage = errors.New("export package has no data")
)

// InvalidModeError is returned for an unknown import mode.
type InvalidModeError struct {
	Mode string
}

func (e InvalidModeError) Error() string {
	return "invalid import mode: " + e.Mode
}

// InvalidEntryError reports an entry in an import package that cannot be
// stored. Err is ErrNilEntry for null entries; Index is -1 when the week id
// itself is bad.
type InvalidEntryError struct {
	WeekID string
	Index  int
	Reason string
	Err    error
}

func (e *InvalidEntryError) Error() string {
	reason := e.Reason
	if e.Err != nil {
		reason = e.Err.Error()
	}
	if e.Index < 0 {
		return fmt.Sprintf("week %q: %s", e.WeekID, reason)
	}
	return fmt.Sprintf("week %s entry %d: %s", e.WeekID, e.Index, reason)
}

func (e *InvalidEntryError) Unwrap() error {
	return e.Err
}
