// Package config defines the crawler's configuration: documented
// defaults, a flat Config struct populated from CLI flags and an
// optional YAML crawl file, validation, and XDG directory helpers.
package config
