package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/vex"
	"github.com/jward/vex/internal/source"
)

var dumpCmd = &cobra.Command{
	Use:   "dump PATH",
	Short: "Print a file's syntax tree",
	Long:  "Parses one file and prints its tree-sitter syntax tree as an s-expression, for writing queries.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	abs := args[0]
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(wd, abs)
	}

	tree, err := vex.Dump(cmd.Context(), source.NewPath(abs, wd), source.NewRegistry())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tree)
	return nil
}
