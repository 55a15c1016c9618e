// Command fractalc builds, inspects, benchmarks and explores WebAssembly
// modules of escape-time fractals.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel  zapcore.Level
	logFormat string
	verbose   bool

	log *zap.Logger
}

func newRootCommand() *cobra.Command {
	v := newViper()
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "fractalc",
		Short:         "Compile escape-time fractals to WebAssembly",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(opts)
			if err != nil {
				return err
			}
			opts.log = log
			installLogger(log)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	BindOptions(v, cmd.PersistentFlags(), []Opt{
		{DestP: &opts.logLevel, Flag: "log-level", Default: zapcore.WarnLevel, Desc: "log level: debug, info, warn, error"},
		{DestP: &opts.logFormat, Flag: "log-format", Default: "console", Desc: "log encoding: console or json"},
		{DestP: &opts.verbose, Flag: "verbose", Short: "v", Desc: "shorthand for --log-level=debug"},
	})

	cmd.AddCommand(
		newBuildCommand(v, opts),
		newInspectCommand(v, opts),
		newBenchCommand(v, opts),
		newVariantsCommand(),
		newExploreCommand(v, opts),
	)
	return cmd
}
