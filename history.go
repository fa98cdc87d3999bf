package vex

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/jward/vex/internal/irritation"
	"github.com/jward/vex/internal/scriptlets"
	"github.com/jward/vex/internal/store"
)

// RulesHash returns a SHA-256 over the names and contents of the rule
// modules, so runs made with different rules can be told apart.
func (e *Engine) RulesHash() string {
	entries, err := fs.ReadDir(e.rulesFS, ".")
	if err != nil {
		return ""
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == scriptlets.ScriptExt {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		src, err := fs.ReadFile(e.rulesFS, name)
		if err != nil {
			continue
		}
		h.Write([]byte(name))
		h.Write(src)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (e *Engine) record(res *Result, maxProblems irritation.MaxProblems) (int64, error) {
	run := &store.Run{
		Root:         e.project.Root,
		RulesHash:    e.RulesHash(),
		StartedAt:    res.StartedAt,
		Duration:     res.Duration,
		FilesScanned: res.FilesScanned,
		FilesParsed:  res.FilesParsed,
		MaxProblems:  maxProblems.String(),
	}
	id, err := e.history.RecordRun(run, res.Irritations)
	if err != nil {
		return 0, fmt.Errorf("vex: record run: %w", err)
	}
	return id, nil
}
