// Package config loads per-repository settings for the documentation
// engine from a .docsurgeon.yaml file at the repository root.
//
// The file is optional: a missing file yields the defaults, and any
// field left out of the file keeps its default value. Settings here
// tune behavior (trunk override, protected branches, thresholds,
// timeouts); they never hold state.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the well-known config file name at the repository root.
const FileName = ".docsurgeon.yaml"

// ErrInvalidConfig marks a present but unusable config file, so
// callers can tell a fixable file problem from an IO failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the per-repository settings.
type Config struct {
	// TrunkBranch overrides trunk detection. Empty means auto-detect.
	TrunkBranch string `yaml:"trunk_branch"`

	// ProtectedBranches are never written to, in addition to the trunk.
	ProtectedBranches []string `yaml:"protected_branches"`

	// BranchPrefix is prepended to derived documentation branch names.
	BranchPrefix string `yaml:"branch_prefix"`

	// ImpactThreshold is the minimum token overlap ratio for a
	// probable impact match, in (0, 1].
	ImpactThreshold float64 `yaml:"impact_threshold"`

	// SessionIdleMinutes is how long a session may sit untouched
	// before it expires.
	SessionIdleMinutes int `yaml:"session_idle_minutes"`

	// VCSTimeoutSeconds bounds every git and review-platform call.
	VCSTimeoutSeconds int `yaml:"vcs_timeout_seconds"`

	// CommitAuthorName and CommitAuthorEmail identify documentation
	// commits made on the caller's behalf.
	CommitAuthorName  string `yaml:"commit_author_name"`
	CommitAuthorEmail string `yaml:"commit_author_email"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ProtectedBranches:  []string{"main", "master"},
		BranchPrefix:       "docs/",
		ImpactThreshold:    0.5,
		SessionIdleMinutes: 30,
		VCSTimeoutSeconds:  30,
		CommitAuthorName:   "docsurgeon",
		CommitAuthorEmail:  "docsurgeon@localhost",
	}
}

// FilePath returns the config file location under the given repository root.
func FilePath(root string) string {
	return filepath.Join(root, FileName)
}

// Load reads the config file under root, overlaying it on the defaults.
// A missing file is not an error; a malformed or invalid one is.
func Load(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(FilePath(root))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, FileName, err)
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.ImpactThreshold <= 0 || c.ImpactThreshold > 1 {
		return fmt.Errorf("impact_threshold must be in (0, 1], got %g", c.ImpactThreshold)
	}
	if c.SessionIdleMinutes <= 0 {
		return fmt.Errorf("session_idle_minutes must be positive, got %d", c.SessionIdleMinutes)
	}
	if c.VCSTimeoutSeconds <= 0 {
		return fmt.Errorf("vcs_timeout_seconds must be positive, got %d", c.VCSTimeoutSeconds)
	}
	if c.BranchPrefix == "" {
		return fmt.Errorf("branch_prefix must not be empty")
	}
	if c.CommitAuthorName == "" || c.CommitAuthorEmail == "" {
		return fmt.Errorf("commit author name and email must not be empty")
	}
	return nil
}

// IsProtected reports whether branch must never receive documentation
// writes. The resolved trunk is always protected, whatever its name.
func (c *Config) IsProtected(branch, trunk string) bool {
	if branch == trunk {
		return true
	}
	for _, p := range c.ProtectedBranches {
		if branch == p {
			return true
		}
	}
	return false
}

// IdleTimeout returns the session idle expiry as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// VCSTimeout returns the per-call VCS deadline as a duration.
func (c *Config) VCSTimeout() time.Duration {
	return time.Duration(c.VCSTimeoutSeconds) * time.Second
}
