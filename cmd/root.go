// Package cmd implements the cmdutils command line.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/cmdutils/internal/config"
	"github.com/smazurov/cmdutils/internal/jobs"
	"github.com/smazurov/cmdutils/internal/logging"
	natsbus "github.com/smazurov/cmdutils/internal/nats"
	"github.com/smazurov/cmdutils/internal/process"
)

const defaultKillTimeout = 10 * time.Second

// Options are the global settings shared by every command. Precedence is
// CLI flag > CMDUTILS_* environment variable > config file.
type Options struct {
	Config string

	JobsFile string `toml:"jobs.file" env:"JOBS_FILE"`

	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT"`

	MetricsFile   string `toml:"metrics.textfile" env:"METRICS_FILE"`
	MetricsListen string `toml:"metrics.listen" env:"METRICS_LISTEN"`

	WatchDebounce time.Duration `toml:"watch.debounce" env:"WATCH_DEBOUNCE"`

	KillTimeout time.Duration `toml:"kill.timeout" env:"KILL_TIMEOUT"`

	NatsURL     string `toml:"nats.url" env:"NATS_URL"`
	NatsSubject string `toml:"nats.subject" env:"NATS_SUBJECT"`

	TracingEndpoint string `toml:"tracing.endpoint" env:"TRACING_ENDPOINT"`
	TracingInsecure bool   `toml:"tracing.insecure" env:"TRACING_INSECURE"`
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "cmdutils",
		Short: "Run commands and observe their output",
		Long: `cmdutils runs external commands, streams their stdout and stderr as it is ` +
			`produced, and reports precisely how they terminated. Named jobs are read from a TOML file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadConfig(opts, cmd); err != nil {
				return &usageError{err: err}
			}
			if logging.ParseLevel(opts.LoggingLevel) == nil {
				return usagef("invalid --logging-level %q", opts.LoggingLevel)
			}

			loggingConfig := config.LoadLoggingConfig(opts.Config)
			loggingConfig.Level = opts.LoggingLevel
			loggingConfig.Format = opts.LoggingFormat
			logging.Initialize(loggingConfig)
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.Config, "config", "c", "cmdutils.toml", "Path to configuration file")
	flags.StringVar(&opts.JobsFile, "jobs-file", jobs.DefaultPath, "Path to jobs file")
	flags.StringVar(&opts.LoggingLevel, "logging-level", "info", "Global logging level (debug, info, warn, error)")
	flags.StringVar(&opts.LoggingFormat, "logging-format", "text", "Logging format (text, json)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after each run")
	flags.StringVar(&opts.MetricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address (e.g. :9101)")
	flags.DurationVar(&opts.WatchDebounce, "watch-debounce", config.DefaultDebounce, "Delay between a jobs file change and the rerun")
	flags.StringVar(&opts.NatsURL, "nats-url", "", "Publish run events to this NATS server")
	flags.StringVar(&opts.NatsSubject, "nats-subject", natsbus.DefaultSubjectPrefix, "Subject prefix for published run events")
	flags.StringVar(&opts.TracingEndpoint, "tracing-endpoint", "", "Export a span per run to this OTLP/HTTP collector (host:port)")
	flags.BoolVar(&opts.TracingInsecure, "tracing-insecure", false, "Use plain HTTP for the OTLP collector")
	flags.DurationVar(&opts.KillTimeout, "kill-timeout", defaultKillTimeout, "SIGKILL the child this long after forwarding a signal (0 disables)")

	root.AddCommand(
		CreateRunCmd(opts),
		CreateJobCmd(opts),
		CreateWatchCmd(opts),
		CreateVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return execute(NewRootCmd(), os.Args[1:])
}

func execute(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.Execute()

	if msg := reportable(err); msg != nil {
		fmt.Fprintf(root.ErrOrStderr(), "cmdutils: %v\n", msg)
		var usage *usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(root.ErrOrStderr(), "Run '%s --help' for usage.\n", root.CommandPath())
		}
	}
	return ExitCode(err)
}

// reportable strips child status errors from err. A failing child has
// already spoken for itself on its own streams and in the runner's log;
// whatever else was joined alongside it still needs reporting.
func reportable(err error) error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var rest []error
		for _, e := range joined.Unwrap() {
			if e = reportable(e); e != nil {
				rest = append(rest, e)
			}
		}
		return errors.Join(rest...)
	}
	var statusErr *process.StatusError
	if errors.As(err, &statusErr) {
		return nil
	}
	return err
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// changed reports whether any of the named flags was set on the command line.
func changed(flags *pflag.FlagSet, names ...string) bool {
	for _, name := range names {
		if f := flags.Lookup(name); f != nil && f.Changed {
			return true
		}
	}
	return false
}
