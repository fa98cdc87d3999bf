package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jward/vex/internal/store"
)

var (
	flagLimit int
	flagKeep  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded check runs",
	Long:  "Lists the runs recorded in the history database, newest first. With --keep, older runs are deleted first.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "show at most this many runs (0 for all)")
	historyCmd.Flags().IntVar(&flagKeep, "keep", 0, "delete all but the N most recent runs")
	historyCmd.Flags().StringVar(&flagDB, dbKey, "", "history database (default from vex.toml)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	pc, err := acquireProject()
	if err != nil {
		return err
	}
	bindFlagToConfig(cmd.Flags().Lookup(dbKey), dbKey)
	applyManifest(pc)
	dbPath := resolveDBPath(pc, cfg.GetString(dbKey))
	if dbPath == "" {
		return errors.New("history is disabled: set db under [history] in vex.toml or pass --db")
	}
	s, err := openHistory(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if flagKeep > 0 {
		removed, err := s.PruneRuns(pc.Root, flagKeep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "pruned %s\n", plural(int(removed), "run"))
	}

	runs, err := s.Runs(pc.Root, flagLimit)
	if err != nil {
		return err
	}
	formatRunsText(cmd.OutOrStdout(), runs)
	return nil
}

// formatRunsText writes runs as a table.
func formatRunsText(w io.Writer, runs []*store.Run) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Started", "Duration", "Files", "Parsed", "Problems", "Max", "Rules"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for _, r := range runs {
		hash := r.RulesHash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		table.Append([]string{
			fmt.Sprintf("%d", r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration.Round(time.Millisecond).String(),
			fmt.Sprintf("%d", r.FilesScanned),
			fmt.Sprintf("%d", r.FilesParsed),
			fmt.Sprintf("%d", r.Problems),
			r.MaxProblems,
			hash,
		})
	}
	table.Render()
}
