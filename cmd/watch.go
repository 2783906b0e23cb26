package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/smazurov/cmdutils/internal/config"
	"github.com/smazurov/cmdutils/internal/jobs"
)

// CreateWatchCmd creates the watch command.
func CreateWatchCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch name",
		Short: "Run a job and rerun it whenever the jobs file changes",
		Long: `Runs the named job, then watches the jobs file and runs the job again, with its ` +
			`fresh definition, after every change. Runs never overlap: changes made while the job ` +
			`runs trigger a single rerun once it finishes. A failed run is reported, not retried. ` +
			`SIGINT, SIGTERM and SIGHUP are forwarded to a running job and end the watch.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(_ *cobra.Command, args []string) error {
			name := args[0]

			store := jobs.NewTOML(opts.JobsFile)
			if err := store.Load(); err != nil {
				return &usageError{err: err}
			}
			job, err := store.Get(name)
			if err != nil {
				return &usageError{err: err}
			}

			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.close()

			logger := s.logger.With("job", name)

			// Holds at most the latest definition; older pending ones are replaced.
			pending := make(chan jobs.Job, 1)
			watcher := config.NewConfigWatcher(
				opts.JobsFile,
				jobs.LoadFile,
				logger,
				config.WithDebounce[map[string]jobs.Job](opts.WatchDebounce),
			)
			watcher.OnReload(func(all map[string]jobs.Job) {
				updated, ok := all[name]
				if !ok {
					logger.Warn("Job removed from jobs file, keeping the last definition")
					return
				}
				select {
				case <-pending:
				default:
				}
				pending <- updated
			})
			if err := watcher.Start(); err != nil {
				return err
			}
			defer func() { _ = watcher.Stop() }()

			var lastErr error
			for {
				lastErr = runJob(s, job)
				if lastErr != nil {
					var usage *usageError
					if errors.As(lastErr, &usage) {
						logger.Error("Job definition is invalid, waiting for a fix", "error", lastErr)
					} else {
						logger.Warn("Job failed", "error", lastErr, "exit_code", ExitCode(lastErr))
					}
				}

				select {
				case <-s.signals.Received():
					logger.Info("Stopping watch")
					return lastErr
				default:
				}

				select {
				case job = <-pending:
					logger.Info("Jobs file changed, rerunning")
				case <-s.signals.Received():
					logger.Info("Stopping watch")
					return lastErr
				}
			}
		},
	}
	return cmd
}
