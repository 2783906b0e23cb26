// Package jobs loads named command definitions from a TOML file.
//
//	[jobs.build]
//	shell = "make -j8"
//	dir = "/src/project"
//	stderr_level = "warn"
//	stderr_prefix = "make: "
//
//	[jobs.backup]
//	command = ["rsync", "-a", "/data/", "backup:/data/"]
//	env = { RSYNC_RSH = "ssh -i /etc/backup.key" }
package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/smazurov/cmdutils/internal/logging"
	"github.com/smazurov/cmdutils/internal/process"
)

// Default levels for job output when none are configured.
const (
	DefaultStdoutLevel = "info"
	DefaultStderrLevel = "warn"
)

// Job is one named command definition.
type Job struct {
	Name string `toml:"-" json:"name"`

	// Exactly one of Command and Shell is set.
	Command []string          `toml:"command,omitempty" json:"command,omitempty"`
	Shell   string            `toml:"shell,omitempty" json:"shell,omitempty"`
	Env     map[string]string `toml:"env,omitempty" json:"env,omitempty"`
	Dir     string            `toml:"dir,omitempty" json:"dir,omitempty"`

	StdoutLevel  string `toml:"stdout_level,omitempty" json:"stdout_level,omitempty"`
	StderrLevel  string `toml:"stderr_level,omitempty" json:"stderr_level,omitempty"`
	StdoutPrefix string `toml:"stdout_prefix,omitempty" json:"stdout_prefix,omitempty"`
	StderrPrefix string `toml:"stderr_prefix,omitempty" json:"stderr_prefix,omitempty"`
}

// ErrNotFound is returned when a job name is not defined.
var ErrNotFound = errors.New("job not found")

// Validate reports the first problem with j's definition.
func (j Job) Validate() error {
	switch {
	case j.Shell != "" && len(j.Command) > 0:
		return fmt.Errorf("job %q: command and shell are mutually exclusive", j.Name)
	case j.Shell == "" && len(j.Command) == 0:
		return fmt.Errorf("job %q: one of command or shell is required", j.Name)
	case len(j.Command) > 0 && strings.TrimSpace(j.Command[0]) == "":
		return fmt.Errorf("job %q: empty program name", j.Name)
	}
	if _, err := levelOrDefault(j.StdoutLevel, DefaultStdoutLevel); err != nil {
		return fmt.Errorf("job %q: stdout_level: %w", j.Name, err)
	}
	if _, err := levelOrDefault(j.StderrLevel, DefaultStderrLevel); err != nil {
		return fmt.Errorf("job %q: stderr_level: %w", j.Name, err)
	}
	return nil
}

// ProcessCommand converts j into the command the runner executes.
func (j Job) ProcessCommand() process.Command {
	return process.Command{
		Shell: j.Shell,
		Args:  j.Command,
		Env:   j.Env,
		Dir:   j.Dir,
	}
}

// LogOptions returns the options for running j through LoggerExec with
// its output going to sink.
func (j Job) LogOptions(sink process.Sink) (process.LogOptions, error) {
	stdoutLevel, err := levelOrDefault(j.StdoutLevel, DefaultStdoutLevel)
	if err != nil {
		return process.LogOptions{}, fmt.Errorf("job %q: stdout_level: %w", j.Name, err)
	}
	stderrLevel, err := levelOrDefault(j.StderrLevel, DefaultStderrLevel)
	if err != nil {
		return process.LogOptions{}, fmt.Errorf("job %q: stderr_level: %w", j.Name, err)
	}
	return process.LogOptions{
		Logger:       sink,
		StdoutLevel:  stdoutLevel,
		StderrLevel:  stderrLevel,
		StdoutPrefix: j.StdoutPrefix,
		StderrPrefix: j.StderrPrefix,
	}, nil
}

func levelOrDefault(name, fallback string) (slog.Level, error) {
	if name == "" {
		name = fallback
	}
	level := logging.ParseLevel(name)
	if level == nil {
		return 0, fmt.Errorf("unknown level %q", name)
	}
	return *level, nil
}
