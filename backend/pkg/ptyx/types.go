package ptyx

import (
	"io"
)

// Pty is a cross-platform abstraction for a pseudo-terminal that hosts one command.
type Pty interface {
	// Resize changes the terminal size seen by the command.
	Resize(rows, cols uint16) error

	// In is the terminal input; writes reach the command's stdin.
	In() io.WriteCloser

	// Out yields everything the command writes to stdout and stderr.
	Out() io.Reader

	Close() error
}

// Winsize is a cross-platform terminal size definition.
type Winsize struct {
	Rows uint16
	Cols uint16
}
