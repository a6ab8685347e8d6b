package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/output"
	"github.com/sofmeright/steiger/src/progress"
)

var (
	cfgFile string
	workDir string
	verbose bool
	debug   bool
	quiet   bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "steiger",
	Short: "Build and publish container images",
	Long:  "steiger builds OCI images with docker, ko, bazel or nix, publishes them to a registry and hands the result to deployment.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if workDir != "" {
			if err := os.Chdir(workDir); err != nil {
				return fmt.Errorf("changing directory: %w", err)
			}
		}

		logger := progress.NewLogger(os.Stderr, logLevel(), output.UseColor())
		if debug {
			logger = logger.With().Caller().Logger()
		}
		cmd.SetContext(logger.WithContext(cmd.Context()))

		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultFile+")")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "d", "", "run as if started in this directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show build tool output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.MarkFlagsMutuallyExclusive("quiet", "debug")
}

func logLevel() zerolog.Level {
	switch {
	case debug:
		return zerolog.TraceLevel
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
