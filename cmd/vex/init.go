package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/vex/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create vex.toml and the rules directory here",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	pc, err := project.Init(wd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s vex initialised, now add style rules in ./%s/\n",
		successLabel(cmd.ErrOrStderr()), pc.Manifest.RulesDir)
	return nil
}
