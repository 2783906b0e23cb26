package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/cmdutils/internal/jobs"
	"github.com/smazurov/cmdutils/internal/logging"
	"github.com/smazurov/cmdutils/internal/process"
)

// CreateJobCmd creates the job command.
func CreateJobCmd(opts *Options) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "job [name]",
		Short: "Run a named job from the jobs file",
		Long: `Runs a job defined in the jobs file, logging each line of its output at the ` +
			`job's configured level. With --list, prints the defined job names instead.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(c *cobra.Command, args []string) error {
			store := jobs.NewTOML(opts.JobsFile)
			if err := store.Load(); err != nil {
				return &usageError{err: err}
			}

			if list {
				for _, name := range store.Names() {
					fmt.Fprintln(c.OutOrStdout(), name)
				}
				return nil
			}
			if len(args) == 0 {
				return usagef("job name required (see --list)")
			}

			job, err := store.Get(args[0])
			if err != nil {
				return &usageError{err: err}
			}

			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.close()

			return runJob(s, job)
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List job names and exit")
	return cmd
}

// runJob runs job once, logging its output under the "job" module.
func runJob(s *session, job jobs.Job) error {
	logOpts, err := job.LogOptions(logging.GetLogger("job").With("job", job.Name))
	if err != nil {
		return &usageError{err: err}
	}
	s.logger.Info("Running job", "job", job.Name, "command", job.ProcessCommand().String())
	return s.execute(job.ProcessCommand(), func(r *process.Runner) error {
		return r.LoggerExec(logOpts)
	})
}
