package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jward/vex/internal/project"
)

const (
	envPrefix = "VEX"

	formatKey      = "format"
	logFileKey     = "log-file"
	maxProblemsKey = "max-problems"
	dbKey          = "db"

	logMaxSizeMB  = 10
	logMaxBackups = 3
)

// cfg layers flags over VEX_* environment variables over the manifest.
var cfg = newConfig()

func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(formatKey, "text")
	v.SetDefault(maxProblemsKey, "unlimited")
	return v
}

// bindFlagToConfig wires a Cobra flag to a Viper key so env and manifest
// values feed the flag. A key shared by several commands, such as db, is
// bound when the command runs since Viper keeps one flag per key.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(cfg.BindPFlag(key, flag))
}

// applyManifest makes the manifest's settings the fallback for flags the
// user did not set.
func applyManifest(pc *project.Context) {
	if pc.Manifest.MaxProblems != "" {
		cfg.SetDefault(maxProblemsKey, pc.Manifest.MaxProblems)
	}
	cfg.SetDefault(dbKey, pc.HistoryDB())
}

// logLevel maps -v/-q to a slog level. Warnings show by default, -v adds
// info such as skipped and parsed files, -vv adds debug.
func logLevel(verbose int, quiet bool) slog.Level {
	switch {
	case quiet:
		return slog.LevelError
	case verbose >= 2:
		return slog.LevelDebug
	case verbose == 1:
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

// configureLogger installs the global slog logger writing to stderr and,
// with --log-file, to a rotated file.
func configureLogger(stderr io.Writer) {
	w := stderr
	if path := strings.TrimSpace(cfg.GetString(logFileKey)); path != "" {
		w = io.MultiWriter(stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
		})
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel(flagVerbose, flagQuiet),
	})
	slog.SetDefault(slog.New(handler))
}
