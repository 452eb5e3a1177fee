// Package app wires the slimsweep command tree: seed generation, local
// sweeps, cluster script synthesis and their reports.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	config "slimsweep/internal/config"
	ilogger "slimsweep/internal/logger"
)

var (
	version = "dev"
	exitFn  = os.Exit
)

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit %d", e.code)
}

type rootOptions struct {
	ConfigFile string
	Verbose    bool
}

// Run is the program entrypoint for cmd/slimsweep/main.go.
func Run() {
	exitFn(run(os.Args[1:]))
}

func run(args []string) int {
	return runWithIO(args, os.Stdout, os.Stderr)
}

func runWithIO(args []string, out, errOut io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if err := cmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           ilogger.ToolName,
		Short:         "Parameter sweeps for the SLiM simulator",
		Long:          "Generate seed tables, run every (seed, combination) pairing locally, or write the PBS and R scripts that run the same sweep on a cluster.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "Config file path (default: $HOME/.slimsweep/config.*)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "Mirror info-level log lines to stderr")

	cmd.AddCommand(
		newSeedsCommand(opts),
		newRunCommand(opts),
		newScriptsCommand(opts),
		newPlanCommand(opts),
		newSummaryCommand(opts),
		newCleanupCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version and exit",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", ilogger.ToolName, version)
			return nil
		},
	}
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "cleanup",
		Short:         "Remove log files left behind by earlier runs",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := runCleanupMode(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code == 0 {
				return nil
			}
			return exitError{code: code}
		},
	}
}

// session is what a subcommand body sees once logging and configuration are
// set up.
type session struct {
	cmd    *cobra.Command
	v      *viper.Viper
	cfg    config.Config
	out    io.Writer
	errOut io.Writer
}

// changed reports whether the user set the named flag on the command line.
func (s *session) changed(name string) bool {
	return s.cmd.Flags().Changed(name)
}

// stringSetting returns the flag value when the flag was given, otherwise
// the configured value, otherwise the flag default.
func (s *session) stringSetting(name, flagValue, configured string) string {
	if s.changed(name) {
		return strings.TrimSpace(flagValue)
	}
	if configured != "" {
		return configured
	}
	return strings.TrimSpace(flagValue)
}

// execute runs body inside a logger session and maps its error to an exit
// status. exitError passes its code through; anything else prints ERROR and
// exits 1.
func (r *rootOptions) execute(cmd *cobra.Command, body func(s *session) error) error {
	errOut := cmd.ErrOrStderr()
	code := runWithLoggerAndCleanup(errOut, func() int {
		v, err := config.NewViper(r.ConfigFile)
		if err != nil {
			logError(err.Error())
			fmt.Fprintf(errOut, "ERROR: %v\n", err)
			return 1
		}
		s := &session{cmd: cmd, v: v, cfg: config.FromViper(v), out: cmd.OutOrStdout(), errOut: errOut}

		verbose := s.cfg.Verbose
		if cmd.Flags().Changed("verbose") {
			verbose = r.Verbose
		}
		if verbose {
			ilogger.Active().MirrorTo(errOut, zerolog.InfoLevel)
		}
		logDebug(fmt.Sprintf("%s %s started", ilogger.ToolName, cmd.Name()))

		if err := body(s); err != nil {
			var ee exitError
			if errors.As(err, &ee) {
				return ee.code
			}
			logError(err.Error())
			fmt.Fprintf(errOut, "ERROR: %v\n", err)
			return 1
		}
		return 0
	})
	if code == 0 {
		return nil
	}
	return exitError{code: code}
}

func runWithLoggerAndCleanup(errOut io.Writer, fn func() int) (exitCode int) {
	logger, err := ilogger.NewLogger()
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: failed to initialize logger: %v\n", err)
		return 1
	}
	ilogger.Install(logger)

	defer func() {
		logger := ilogger.Active()
		logger.Flush()
		if err := ilogger.Uninstall(); err != nil {
			fmt.Fprintf(errOut, "ERROR: failed to close logger: %v\n", err)
		}
		if logger == nil {
			return
		}

		if exitCode != 0 {
			if entries := logger.ExtractRecentErrors(10); len(entries) > 0 {
				fmt.Fprintln(errOut, "\n=== Recent Errors ===")
				for _, entry := range entries {
					fmt.Fprintln(errOut, entry)
				}
				fmt.Fprintf(errOut, "Log file: %s (kept)\n", logger.Path())
				return
			}
		}
		_ = logger.RemoveLogFile()
	}()

	// Stale logs from previous runs are removed in the background; the
	// session waits for that before it closes its own log.
	wait := scheduleStartupCleanup()
	defer wait()

	return fn()
}
