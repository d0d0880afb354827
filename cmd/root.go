// Package cmd implements the CLI commands for mailmd using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var verbose, quiet bool

	root := &cobra.Command{
		Use:   "mailmd",
		Short: "mailmd converts HTML and email HTML into Markdown",
		Long: `mailmd converts HTML documents, with special care for email HTML from
Outlook, Gmail, Yahoo and friends, into Markdown, JSON or PDF.

Usage:
  mailmd convert <file|dir|url|-> [flags]`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			logrus.SetOutput(cmd.ErrOrStderr())
			logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			switch {
			case verbose:
				logrus.SetLevel(logrus.DebugLevel)
			case quiet:
				logrus.SetLevel(logrus.ErrorLevel)
			default:
				logrus.SetLevel(logrus.InfoLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log detection and rule details")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")

	root.AddCommand(newConvertCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
