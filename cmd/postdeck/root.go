package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// run executes one CLI invocation and releases every backend it opened,
// whether or not the command succeeded.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	cmd, cc := newRootCommand(in, errOut)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.ExecuteContext(ctx)
	if cerr := cc.close(context.WithoutCancel(ctx)); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func newRootCommand(in io.Reader, errOut io.Writer) (*cobra.Command, *commandContext) {
	var configFlag string
	var logLevel string
	var force bool

	cc := newCommandContext(&configFlag, &logLevel, &force, in, errOut)

	rootCmd := &cobra.Command{
		Use:           "postdeck",
		Short:         "Draft post editing engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cc.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	rootCmd.PersistentFlags().BoolVarP(&force, "force", "f", false, "Discard unsaved draft changes without asking")

	rootCmd.AddCommand(newSessionCommand(cc))
	rootCmd.AddCommand(newRenderCommand(cc))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newDBCommand(cc))

	return rootCmd, cc
}
