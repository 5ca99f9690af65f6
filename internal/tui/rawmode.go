package tui

import (
	"fmt"

	"golang.org/x/term"
)

// RawMode puts stdin into raw mode for single-keypress reads and returns a
// restore function the caller must defer.
func RawMode() (restore func(), err error) {
	fd := int(0)
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("tui: enter raw mode: %w", err)
	}
	return func() {
		_ = term.Restore(fd, old)
	}, nil
}
