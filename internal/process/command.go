package process

import (
	"errors"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
)

// DefaultShell interprets Command.Shell.
const DefaultShell = "/bin/sh"

// Stream identifies one of the child's output streams.
type Stream int

// Output streams.
const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "stream(" + strconv.Itoa(int(s)) + ")"
	}
}

// Command describes what to execute. Exactly one of Shell or Args must be
// set: Shell is handed to DefaultShell with -c, Args is executed directly
// with Args[0] resolved through PATH.
type Command struct {
	Shell string
	Args  []string

	// Env is merged over the inherited environment. Nil inherits unchanged.
	Env map[string]string

	// Dir is the working directory. Empty means the caller's.
	Dir string
}

var errEmptyCommand = errors.New("empty command")

// argv returns the argument vector handed to exec.
func (c Command) argv() ([]string, error) {
	switch {
	case c.Shell != "" && len(c.Args) > 0:
		return nil, errors.New("both shell and args set")
	case c.Shell != "":
		return []string{DefaultShell, "-c", c.Shell}, nil
	case len(c.Args) > 0 && c.Args[0] != "":
		return slices.Clone(c.Args), nil
	default:
		return nil, errEmptyCommand
	}
}

// environ merges c.Env over os.Environ. An overridden variable keeps its
// original position so the child sees exactly one definition of it.
func (c Command) environ() []string {
	env := os.Environ()
	if len(c.Env) == 0 {
		return env
	}

	index := make(map[string]int, len(env))
	for i, kv := range env {
		if k, _, ok := strings.Cut(kv, "="); ok {
			index[k] = i
		}
	}

	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		kv := k + "=" + c.Env[k]
		if i, ok := index[k]; ok {
			env[i] = kv
			continue
		}
		index[k] = len(env)
		env = append(env, kv)
	}
	return env
}

func (c Command) clone() Command {
	c.Args = slices.Clone(c.Args)
	c.Env = maps.Clone(c.Env)
	return c
}

// String renders the command for messages and logs.
func (c Command) String() string {
	if c.Shell != "" {
		return c.Shell
	}
	quoted := make([]string, len(c.Args))
	for i, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\") {
			a = strconv.Quote(a)
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
