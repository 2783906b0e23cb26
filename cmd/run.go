package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smazurov/cmdutils/internal/logging"
	"github.com/smazurov/cmdutils/internal/process"
)

// Output modes for the run command.
const (
	modeRaw   = "raw"
	modeLines = "lines"
	modeLog   = "log"
)

type runFlags struct {
	shell        string
	env          []string
	dir          string
	mode         string
	stdoutPrefix string
	stderrPrefix string
	stdoutLevel  string
	stderrLevel  string
}

// CreateRunCmd creates the run command.
func CreateRunCmd(opts *Options) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [flags] (--shell STRING | -- PROGRAM [ARGS...])",
		Short: "Run one command and relay its output",
		Long: `Runs a single command with stdin closed, relaying stdout and stderr as they are produced. ` +
			`In raw mode output is copied through unchanged; lines mode prints each complete line with ` +
			`an optional per-stream prefix; log mode sends each line to the structured log at a per-stream level. ` +
			`The exit status mirrors the child's: its exit code, or 128+signal if it was killed.`,
		Example: `  cmdutils run -- make -j8
  cmdutils run --shell 'make 2>&1 | tee build.log' --mode lines --stdout-prefix '[make] '
  cmdutils run --mode log --stderr-level error --env GOFLAGS=-mod=mod -- go test ./...`,
		Args: usageArgs(cobra.ArbitraryArgs),
		RunE: func(c *cobra.Command, args []string) error {
			command, err := flags.command(args)
			if err != nil {
				return err
			}
			if flags.mode == modeRaw && changed(c.Flags(), "stdout-prefix", "stderr-prefix", "stdout-level", "stderr-level") {
				return usagef("prefixes and levels apply to --mode %s or %s only", modeLines, modeLog)
			}

			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.close()

			switch flags.mode {
			case modeRaw:
				return s.execute(command, func(r *process.Runner) error {
					return r.EachOutput(copyChunks(c.OutOrStdout(), c.ErrOrStderr()))
				})
			case modeLines:
				return s.execute(command, func(r *process.Runner) error {
					return r.EachLine(printLines(c.OutOrStdout(), c.ErrOrStderr(), flags.stdoutPrefix, flags.stderrPrefix))
				})
			case modeLog:
				logOpts, err := flags.logOptions(logging.GetLogger("output"))
				if err != nil {
					return err
				}
				return s.execute(command, func(r *process.Runner) error {
					return r.LoggerExec(logOpts)
				})
			default:
				return usagef("unknown --mode %q (want %s, %s or %s)", flags.mode, modeRaw, modeLines, modeLog)
			}
		},
	}

	cmd.Flags().StringVar(&flags.shell, "shell", "", "Run STRING with "+process.DefaultShell+" -c instead of PROGRAM ARGS")
	cmd.Flags().StringArrayVarP(&flags.env, "env", "e", nil, "Set KEY=VALUE in the child's environment (repeatable)")
	cmd.Flags().StringVarP(&flags.dir, "dir", "C", "", "Working directory for the child")
	cmd.Flags().StringVarP(&flags.mode, "mode", "m", modeRaw, "Output mode: raw, lines or log")
	cmd.Flags().StringVar(&flags.stdoutPrefix, "stdout-prefix", "", "Prefix for stdout lines")
	cmd.Flags().StringVar(&flags.stderrPrefix, "stderr-prefix", "", "Prefix for stderr lines")
	cmd.Flags().StringVar(&flags.stdoutLevel, "stdout-level", "info", "Log level for stdout lines in log mode")
	cmd.Flags().StringVar(&flags.stderrLevel, "stderr-level", "warn", "Log level for stderr lines in log mode")

	return cmd
}

// command builds the process command from flags and positional arguments.
func (f *runFlags) command(args []string) (process.Command, error) {
	switch {
	case f.shell != "" && len(args) > 0:
		return process.Command{}, usagef("--shell and a program are mutually exclusive")
	case f.shell == "" && len(args) == 0:
		return process.Command{}, usagef("nothing to run: pass --shell STRING or -- PROGRAM [ARGS...]")
	}

	env, err := parseEnv(f.env)
	if err != nil {
		return process.Command{}, err
	}
	return process.Command{
		Shell: f.shell,
		Args:  args,
		Env:   env,
		Dir:   f.dir,
	}, nil
}

func (f *runFlags) logOptions(sink process.Sink) (process.LogOptions, error) {
	stdoutLevel := logging.ParseLevel(f.stdoutLevel)
	if stdoutLevel == nil {
		return process.LogOptions{}, usagef("invalid --stdout-level %q", f.stdoutLevel)
	}
	stderrLevel := logging.ParseLevel(f.stderrLevel)
	if stderrLevel == nil {
		return process.LogOptions{}, usagef("invalid --stderr-level %q", f.stderrLevel)
	}
	return process.LogOptions{
		Logger:       sink,
		StdoutLevel:  *stdoutLevel,
		StderrLevel:  *stderrLevel,
		StdoutPrefix: f.stdoutPrefix,
		StderrPrefix: f.stderrPrefix,
	}, nil
}

// parseEnv turns KEY=VALUE pairs into a map. Later pairs win.
func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, usagef("invalid --env %q, want KEY=VALUE", kv)
		}
		env[k] = v
	}
	return env, nil
}

// copyChunks relays raw output to stdout and stderr.
func copyChunks(stdout, stderr io.Writer) process.ChunkFunc {
	writers := [2]io.Writer{process.Stdout: stdout, process.Stderr: stderr}
	return func(s process.Stream, data []byte) error {
		if _, err := writers[s].Write(data); err != nil {
			return fmt.Errorf("relay %s: %w", s, err)
		}
		return nil
	}
}

// printLines writes each line with its stream's prefix.
func printLines(stdout, stderr io.Writer, stdoutPrefix, stderrPrefix string) process.LineFunc {
	writers := [2]io.Writer{process.Stdout: stdout, process.Stderr: stderr}
	prefixes := [2]string{process.Stdout: stdoutPrefix, process.Stderr: stderrPrefix}
	return func(s process.Stream, line string) error {
		if _, err := fmt.Fprintln(writers[s], prefixes[s]+line); err != nil {
			return fmt.Errorf("relay %s: %w", s, err)
		}
		return nil
	}
}
