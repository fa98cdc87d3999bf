package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/vex"
	"github.com/jward/vex/internal/irritation"
	"github.com/jward/vex/internal/project"
	"github.com/jward/vex/internal/store"
)

// errProblemsFound makes check exit non-zero after a run that found
// problems. The summary has already been printed.
var errProblemsFound = errors.New("problems found")

var (
	flagMaxProblems string
	flagDB          string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the project's rules",
	Long:  "Loads every rule module in the rules directory, scans the project and prints what the rules warn about. Exits 1 if anything was found.",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagMaxProblems, maxProblemsKey, "", `report at most this many problems, or "unlimited" (default from vex.toml)`)
	checkCmd.Flags().StringVar(&flagDB, dbKey, "", "record the run in this history database (default from vex.toml)")
	bindFlagToConfig(checkCmd.Flags().Lookup(maxProblemsKey), maxProblemsKey)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pc, err := acquireProject()
	if err != nil {
		return err
	}
	bindFlagToConfig(cmd.Flags().Lookup(dbKey), dbKey)
	applyManifest(pc)

	maxProblems, err := irritation.ParseMaxProblems(cfg.GetString(maxProblemsKey))
	if err != nil {
		return err
	}

	opts := []vex.Option{vex.WithLogger(slog.Default())}
	if dbPath := resolveDBPath(pc, cfg.GetString(dbKey)); dbPath != "" {
		s, err := openHistory(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		opts = append(opts, vex.WithHistory(s))
	}

	engine, err := vex.New(ctx, pc, opts...)
	if err != nil {
		return err
	}
	res, err := engine.Run(ctx, maxProblems)
	if err != nil {
		return err
	}

	if err := outputIrritations(cmd.OutOrStdout(), cfg.GetString(formatKey), res.Irritations); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	formatSummaryText(cmd.ErrOrStderr(), len(res.Irritations))
	if len(res.Irritations) > 0 {
		errorHandled = true
		return errProblemsFound
	}
	return nil
}

// acquireProject finds the project containing the working directory.
func acquireProject() (*project.Context, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return project.Acquire(wd)
}

// resolveDBPath makes a --db value relative to the project root.
func resolveDBPath(pc *project.Context, dbPath string) string {
	if dbPath == "" || filepath.IsAbs(dbPath) {
		return dbPath
	}
	return filepath.Join(pc.Root, dbPath)
}

// openHistory opens the history database, creating its directory.
func openHistory(dbPath string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", dbPath, err)
	}
	return s, nil
}
