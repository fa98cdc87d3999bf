// Package project locates a vex project, reads its manifest and discovers
// the files to check.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/jward/vex/internal/source"
)

const (
	// ManifestName is the file that marks a project root.
	ManifestName = "vex.toml"

	currentVersion = 1
	envPrefix      = "VEX"

	versionKey     = "version"
	rulesDirKey    = "rules_dir"
	ignoreKey      = "ignore"
	allowKey       = "allow"
	maxProblemsKey = "max_problems"
	historyDBKey   = "history.db"

	defaultRulesDir    = "vexes"
	defaultMaxProblems = "unlimited"
)

var defaultIgnores = []string{"/target/", "node_modules/", "vendor/", "__pycache__/"}

// ManifestError reports a malformed or missing manifest.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid manifest: %v", e.Err)
	}
	return fmt.Sprintf("invalid manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// ErrNoManifest is returned by Acquire when no vex.toml is found.
var ErrNoManifest = errors.New("cannot find " + ManifestName + " in this directory or any parent; run `vex init`")

// Manifest is the decoded contents of vex.toml.
type Manifest struct {
	Version     int
	RulesDir    string
	Ignore      []string
	Allow       []string
	MaxProblems string
	HistoryDB   string
}

// Context is everything a run needs to know about the project.
type Context struct {
	Root     string
	Manifest Manifest
}

// RulesDir returns the absolute path of the rule module directory.
func (c *Context) RulesDir() string {
	if filepath.IsAbs(c.Manifest.RulesDir) {
		return c.Manifest.RulesDir
	}
	return filepath.Join(c.Root, filepath.FromSlash(c.Manifest.RulesDir))
}

// HistoryDB returns the absolute path of the results database, or "" when
// history is disabled.
func (c *Context) HistoryDB() string {
	db := c.Manifest.HistoryDB
	if db == "" || filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(c.Root, filepath.FromSlash(db))
}

// Filter compiles the manifest's ignore and allow lists.
func (c *Context) Filter() (Filter, error) {
	f, err := NewFilter(c.Root, c.Manifest.Ignore, c.Manifest.Allow)
	if err != nil {
		var me *ManifestError
		if errors.As(err, &me) && me.Path == "" {
			me.Path = filepath.Join(c.Root, ManifestName)
		}
		return Filter{}, err
	}
	return f, nil
}

// Acquire finds the nearest vex.toml at or above dir and loads it.
func Acquire(dir string) (*Context, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &source.IOError{Path: dir, Action: source.ActionRead, Err: err}
	}
	root, err := findRoot(abs)
	if err != nil {
		return nil, err
	}

	v := newViper(root)
	manifestPath := filepath.Join(root, ManifestName)
	if err := v.ReadInConfig(); err != nil {
		return nil, &ManifestError{Path: manifestPath, Err: err}
	}

	m := Manifest{
		Version:     v.GetInt(versionKey),
		RulesDir:    v.GetString(rulesDirKey),
		Ignore:      v.GetStringSlice(ignoreKey),
		Allow:       v.GetStringSlice(allowKey),
		MaxProblems: v.GetString(maxProblemsKey),
		HistoryDB:   v.GetString(historyDBKey),
	}
	if m.Version != currentVersion {
		return nil, &ManifestError{Path: manifestPath, Err: fmt.Errorf("unsupported version %d (want %d)", m.Version, currentVersion)}
	}
	if strings.TrimSpace(m.RulesDir) == "" {
		return nil, &ManifestError{Path: manifestPath, Err: fmt.Errorf("%s must not be empty", rulesDirKey)}
	}

	return &Context{Root: root, Manifest: m}, nil
}

// Init writes a default vex.toml in dir and creates the rules directory.
// It refuses to overwrite an existing manifest.
func Init(dir string) (*Context, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &source.IOError{Path: dir, Action: source.ActionRead, Err: err}
	}
	manifestPath := filepath.Join(abs, ManifestName)

	v := newViper(abs)
	v.Set(versionKey, currentVersion)
	v.Set(rulesDirKey, defaultRulesDir)
	v.Set(ignoreKey, defaultIgnores)
	v.Set(allowKey, []string{})
	if err := v.SafeWriteConfigAs(manifestPath); err != nil {
		return nil, &source.IOError{Path: ManifestName, Action: source.ActionWrite, Err: err}
	}

	rulesDir := filepath.Join(abs, defaultRulesDir)
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		return nil, &source.IOError{Path: defaultRulesDir, Action: source.ActionWrite, Err: err}
	}
	return Acquire(abs)
}

func newViper(root string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(filepath.Join(root, ManifestName))
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(versionKey, currentVersion)
	v.SetDefault(rulesDirKey, defaultRulesDir)
	v.SetDefault(ignoreKey, []string{})
	v.SetDefault(allowKey, []string{})
	v.SetDefault(maxProblemsKey, defaultMaxProblems)
	v.SetDefault(historyDBKey, "")
	return v
}

func findRoot(dir string) (string, error) {
	for {
		info, err := os.Stat(filepath.Join(dir, ManifestName))
		if err == nil && !info.IsDir() {
			return dir, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", &source.IOError{Path: filepath.Join(dir, ManifestName), Action: source.ActionRead, Err: err}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoManifest
		}
		dir = parent
	}
}
