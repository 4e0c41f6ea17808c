package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	c := NewConfig()
	c.Seeds = []string{"https://www.ics.uci.edu/"}
	return c
}

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	c := NewConfig()

	if c.PolitenessDelay != DefaultPolitenessDelay {
		t.Errorf("PolitenessDelay = %v, want %v", c.PolitenessDelay, DefaultPolitenessDelay)
	}
	if c.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", c.Workers, DefaultWorkers)
	}
	if c.SimhashBits != DefaultSimhashBits {
		t.Errorf("SimhashBits = %d, want %d", c.SimhashBits, DefaultSimhashBits)
	}
	if c.NearThreshold != DefaultNearThreshold {
		t.Errorf("NearThreshold = %v, want %v", c.NearThreshold, DefaultNearThreshold)
	}
	if !c.RespectRobots {
		t.Error("RespectRobots = false, want true by default")
	}
	if !c.SharedTracker {
		t.Error("SharedTracker = false, want true by default")
	}
	if c.DataDir == "" {
		t.Error("DataDir is empty")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"no seeds", func(c *Config) { c.Seeds = nil }, ErrNoSeeds},
		{"negative delay", func(c *Config) { c.PolitenessDelay = -time.Second }, ErrInvalidDelay},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"zero hash bits", func(c *Config) { c.SimhashBits = 0 }, ErrInvalidHashBits},
		{"oversized hash bits", func(c *Config) { c.SimhashBits = 65 }, ErrInvalidHashBits},
		{"near threshold too high", func(c *Config) { c.NearThreshold = 1.5 }, ErrInvalidThreshold},
		{"exact threshold zero", func(c *Config) { c.ExactThreshold = 0 }, ErrInvalidThreshold},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }, ErrInvalidTimeout},
		{"negative domain rate", func(c *Config) { c.DomainRateRequests = -1 }, ErrInvalidDomainRate},
		{"rate without window", func(c *Config) { c.DomainRateRequests = 5; c.DomainRateWindow = 0 }, ErrInvalidDomainRate},
		{"conflicting formats", func(c *Config) { c.JSONReport = true; c.MarkdownReport = true }, ErrConflictingReportFormats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCrawlFile(t *testing.T) {
	t.Parallel()

	t.Run("full file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "crawl.yml")
		content := `seeds:
  - https://www.ics.uci.edu/
  - https://www.cs.uci.edu/
politeness_delay: 2s
workers: 8
allowed_domains: '.*\.uci\.edu$'
respect_robots: false
user_agent: deptbot/0.3
domain_rate:
  requests: 30
  window: 1m
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write crawl file: %v", err)
		}

		cf, err := LoadCrawlFile(path)
		if err != nil {
			t.Fatalf("LoadCrawlFile() error = %v", err)
		}

		if len(cf.Seeds) != 2 {
			t.Errorf("Seeds = %v, want 2 entries", cf.Seeds)
		}
		if cf.PolitenessDelay == nil || cf.PolitenessDelay.Duration != 2*time.Second {
			t.Errorf("PolitenessDelay = %v, want 2s", cf.PolitenessDelay)
		}
		if cf.Workers != 8 {
			t.Errorf("Workers = %d, want 8", cf.Workers)
		}
		if cf.RespectRobots == nil || *cf.RespectRobots {
			t.Error("RespectRobots not parsed as false")
		}
		if cf.DomainRate == nil || cf.DomainRate.Requests != 30 || cf.DomainRate.Window.Duration != time.Minute {
			t.Errorf("DomainRate = %+v, want 30/1m", cf.DomainRate)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		if _, err := LoadCrawlFile(filepath.Join(t.TempDir(), "absent.yml")); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadCrawlFile() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "crawl.yml")
		if err := os.WriteFile(path, []byte("politeness_delay: soon\n"), 0o600); err != nil {
			t.Fatalf("failed to write crawl file: %v", err)
		}
		if _, err := LoadCrawlFile(path); err == nil {
			t.Error("LoadCrawlFile() with bad duration expected error, got nil")
		}
	})
}

func TestFileApply(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	delay := &Duration{3 * time.Second}
	respect := false
	cf := &File{
		Seeds:           []string{"https://www.stat.uci.edu/"},
		PolitenessDelay: delay,
		Workers:         12,
		UserAgent:       "deptbot/0.3",
		RespectRobots:   &respect,
	}

	cf.Apply(c)

	if len(c.Seeds) != 1 || c.Seeds[0] != "https://www.stat.uci.edu/" {
		t.Errorf("Seeds = %v", c.Seeds)
	}
	if c.PolitenessDelay != 3*time.Second {
		t.Errorf("PolitenessDelay = %v, want 3s", c.PolitenessDelay)
	}
	if c.Workers != 12 {
		t.Errorf("Workers = %d, want 12", c.Workers)
	}
	if c.RespectRobots {
		t.Error("RespectRobots not overridden to false")
	}
	if c.UserAgent != "deptbot/0.3" {
		t.Errorf("UserAgent = %q", c.UserAgent)
	}

	// Empty file leaves the config untouched.
	before := *c
	(&File{}).Apply(c)
	if c.Workers != before.Workers || c.PolitenessDelay != before.PolitenessDelay {
		t.Error("empty file changed config values")
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "crawl.yml")
		if err := os.WriteFile(path, []byte("seeds: []\n"), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile(%q) = %q", path, got)
		}
	})

	t.Run("explicit path missing", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(filepath.Join(t.TempDir(), "absent.yml")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}
