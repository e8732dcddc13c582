//go:build windows

package ptyx

import (
	"io"
	"os"
	"os/exec"

	gopty "github.com/aymanbagabas/go-pty"
)

type winPty struct {
	p   gopty.Pty
	in  io.WriteCloser
	out io.Reader
}

func (p *winPty) In() io.WriteCloser { return p.in }

func (p *winPty) Out() io.Reader { return p.out }

func (p *winPty) Close() error { return p.p.Close() }

func (p *winPty) Resize(rows, cols uint16) error {
	return p.p.Resize(int(cols), int(rows))
}

// StartWithSize starts cmd inside a ConPTY. Only cmd.Process is filled in;
// wait on the process directly, cmd.Wait is not usable.
func StartWithSize(cmd *exec.Cmd, ws *Winsize) (Pty, error) {
	if cmd.Err != nil {
		return nil, cmd.Err
	}
	p, err := gopty.New()
	if err != nil {
		return nil, err
	}
	if ws != nil {
		_ = p.Resize(int(ws.Cols), int(ws.Rows))
	}

	c := p.Command(cmd.Path, cmd.Args[1:]...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	if err := c.Start(); err != nil {
		p.Close()
		return nil, err
	}
	cmd.Process = c.Process

	var in io.WriteCloser
	var out io.Reader

	if cp, ok := any(p).(interface {
		InputPipe() *os.File
		OutputPipe() *os.File
	}); ok {
		in = cp.InputPipe()
		out = cp.OutputPipe()
	} else {
		in = struct {
			io.Writer
			io.Closer
		}{
			Writer: p,
			Closer: p,
		}
		out = p
	}

	return &winPty{in: in, out: out, p: p}, nil
}
