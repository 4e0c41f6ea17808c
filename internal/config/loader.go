package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default crawl file name.
const DefaultConfigFile = ".webharvest.yml"

// ErrConfigNotFound is returned when the crawl file does not exist.
var ErrConfigNotFound = errors.New("crawl file not found")

// Duration wraps time.Duration so YAML values can be written as "2s" or
// "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// File is the YAML crawl file: the seed list plus optional overrides
// for the settings operators most often change per site.
type File struct {
	// Seeds are the starting URLs.
	Seeds []string `yaml:"seeds,omitempty"`

	// PolitenessDelay overrides the same-domain request gap.
	PolitenessDelay *Duration `yaml:"politeness_delay,omitempty"`

	// Workers overrides the worker pool size.
	Workers int `yaml:"workers,omitempty"`

	// AllowedDomains overrides the host allowlist pattern.
	AllowedDomains string `yaml:"allowed_domains,omitempty"`

	// RespectRobots overrides robots.txt checking. Pointer so the file
	// can distinguish "unset" from "false".
	RespectRobots *bool `yaml:"respect_robots,omitempty"`

	// UserAgent overrides the request User-Agent.
	UserAgent string `yaml:"user_agent,omitempty"`

	// DomainRate caps requests per domain on top of the politeness
	// delay.
	DomainRate *DomainRate `yaml:"domain_rate,omitempty"`
}

// DomainRate is a token-bucket cap: Requests per Window.
type DomainRate struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// LoadCrawlFile loads a crawl file from path.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the path was explicitly specified by the user.
func LoadCrawlFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply copies the file's set values into the config. Flag handling in
// the command layer runs after this, so explicit flags win over the
// file.
func (cf *File) Apply(c *Config) {
	if len(cf.Seeds) > 0 {
		c.Seeds = append(c.Seeds, cf.Seeds...)
	}
	if cf.PolitenessDelay != nil {
		c.PolitenessDelay = cf.PolitenessDelay.Duration
	}
	if cf.Workers > 0 {
		c.Workers = cf.Workers
	}
	if cf.AllowedDomains != "" {
		c.AllowedDomains = cf.AllowedDomains
	}
	if cf.RespectRobots != nil {
		c.RespectRobots = *cf.RespectRobots
	}
	if cf.UserAgent != "" {
		c.UserAgent = cf.UserAgent
	}
	if cf.DomainRate != nil {
		c.DomainRateRequests = cf.DomainRate.Requests
		c.DomainRateWindow = cf.DomainRate.Window.Duration
	}
}

// FindConfigFile searches for the crawl file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .webharvest.yml in the current directory
// 3. Look for .webharvest.yml in the user's home directory
//
// Returns the path to the crawl file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	// If explicit path is provided, use it
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
