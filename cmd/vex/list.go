package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jward/vex"
	"github.com/jward/vex/internal/source"
)

var listCmd = &cobra.Command{
	Use:       "list checks|languages",
	Short:     "List the project's checks or the supported languages",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"checks", "languages"},
	RunE:      runList,
}

func runList(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if args[0] == "languages" {
		formatLanguagesText(w, source.NewRegistry())
		return nil
	}

	pc, err := acquireProject()
	if err != nil {
		return err
	}
	engine, err := vex.New(cmd.Context(), pc, vex.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	for _, m := range engine.Rules().Modules() {
		fmt.Fprintln(w, m.ID)
	}
	return nil
}

// formatLanguagesText writes a table of languages and their extensions.
func formatLanguagesText(w io.Writer, reg *source.Registry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Language", "Extensions"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})
	for _, lang := range reg.Languages() {
		table.Append([]string{lang, strings.Join(reg.Extensions(lang), " ")})
	}
	table.Render()
}
