package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	flagFormat  string
	flagVerbose int
	flagQuiet   bool
	flagLogFile string
)

// errorHandled is set once a command has reported its own failure so main()
// doesn't double-print.
var errorHandled bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "%s %s\n", errorLabel(os.Stderr), err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "vex",
	Short:         "Structural lint rules written as scripts",
	Long:          "vex runs Risor rule modules from ./vexes/ over a project, matching tree-sitter queries and reporting what they warn about.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(cfg.GetString(formatKey)); err != nil {
			return err
		}
		configureLogger(cmd.ErrOrStderr())
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "log more (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "log errors only")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, logFileKey, "", "also write logs to this file, rotated")
	rootCmd.PersistentFlags().StringVar(&flagFormat, formatKey, "text", "output format: text|json|yaml")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	bindFlagToConfig(rootCmd.PersistentFlags().Lookup(logFileKey), logFileKey)
	bindFlagToConfig(rootCmd.PersistentFlags().Lookup(formatKey), formatKey)

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(historyCmd)
}
