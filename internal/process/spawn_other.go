//go:build !unix

package process

import "errors"

type running struct {
	pid int
}

func start(cmd Command, _ bool) (*running, error) {
	return nil, &SpawnError{Command: cmd, Err: errors.ErrUnsupported}
}

func (r *running) drain(func(Stream, []byte)) error { return errors.ErrUnsupported }

func (r *running) close() {}

func (r *running) wait() (Outcome, error) { return Outcome{}, errors.ErrUnsupported }
