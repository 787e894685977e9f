// Package process spawns shell subprocesses with piped standard I/O.
package process

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Proc is one spawned subprocess with its piped ends.
type Proc struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// Spawn starts argv with stdout piped, and stdin piped as well when
// pipeStdin is set. Standard error is left attached to the parent.
func Spawn(argv []string, pipeStdin bool) (*Proc, error) {
	if len(argv) == 0 {
		return nil, errors.New("spawn: empty argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	p := &Proc{cmd: cmd}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stdout: %w", err)
	}
	p.stdout = stdout

	if pipeStdin {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("pipe stdin: %w", err)
		}
		p.stdin = stdin
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %q: %w", argv[0], err)
	}
	return p, nil
}

// Stdin returns the piped stdin end, nil when not requested at spawn.
func (p *Proc) Stdin() io.WriteCloser { return p.stdin }

// Stdout returns the piped stdout end.
func (p *Proc) Stdout() io.ReadCloser { return p.stdout }

// Release closes any still-open pipe ends and reaps the process. The
// process's own exit status is not part of the wire protocol, so a nonzero
// exit is not an error here.
func (p *Proc) Release() error {
	if p.stdin != nil {
		_ = p.stdin.Close()
	}
	_ = p.stdout.Close()

	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("reap %q: %w", p.cmd.Path, err)
	}
	return nil
}
