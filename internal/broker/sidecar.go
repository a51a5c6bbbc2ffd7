package broker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SidecarConfig is the broker's optional VCS-audit sidecar: on
// a cadence, it commits the durable journal file into a git repository so
// operators have an auditable, versioned copy independent of the broker
// process's own disk.
type SidecarConfig struct {
	Enabled     bool          `yaml:"enabled"`
	CommitEvery time.Duration `yaml:"commit_every"`
	RepoDir     string        `yaml:"repo_dir"`
}

// LoadSidecarConfig reads a sidecar.yaml file. A missing file is not an
// error: it is equivalent to SidecarConfig{Enabled: false}.
func LoadSidecarConfig(path string) (SidecarConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return SidecarConfig{}, nil
	}
	if err != nil {
		return SidecarConfig{}, fmt.Errorf("read sidecar config %s: %w", path, err)
	}
	var cfg SidecarConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SidecarConfig{}, fmt.Errorf("parse sidecar config %s: %w", path, err)
	}
	return cfg, nil
}

// RunSidecar commits the broker's journal file into cfg.RepoDir every
// cfg.CommitEvery until ctx is canceled. It is a no-op loop if the config
// is disabled, so callers can start it unconditionally.
func RunSidecar(ctx context.Context, cfg SidecarConfig, journalPath string) error {
	if !cfg.Enabled || cfg.CommitEvery <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(cfg.CommitEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := commitJournal(ctx, cfg.RepoDir, journalPath); err != nil {
				return fmt.Errorf("sidecar commit: %w", err)
			}
		}
	}
}

func commitJournal(ctx context.Context, repoDir, journalPath string) error {
	if out, err := exec.CommandContext(ctx, "git", "-C", repoDir, "add", journalPath).CombinedOutput(); err != nil {
		return fmt.Errorf("git add: %w: %s", err, out)
	}
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "commit", "--allow-empty-message", "-m", "broker journal snapshot")
	if out, err := cmd.CombinedOutput(); err != nil {
		// "nothing to commit" is not an error: the journal hasn't grown
		// since the last cadence tick.
		if isNothingToCommit(out) {
			return nil
		}
		return fmt.Errorf("git commit: %w: %s", err, out)
	}
	return nil
}

func isNothingToCommit(out []byte) bool {
	s := string(out)
	return strings.Contains(s, "nothing to commit") || strings.Contains(s, "nothing added to commit")
}
