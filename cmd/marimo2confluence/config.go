package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alnah/go-marimo2confluence/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrMissingSite    = errors.New("confluence base URL, email, and API token are required")
)

// SiteConfig holds Confluence site settings.
type SiteConfig struct {
	BaseURL  string `yaml:"baseUrl"`  // e.g. https://example.atlassian.net
	Email    string `yaml:"email"`    // account email for basic auth
	APIToken string `yaml:"apiToken"` // API token for basic auth
}

// Environment variable names. Env values override config file values so
// tokens can stay out of files in CI.
const (
	envBaseURL  = "CONFLUENCE_BASE_URL"
	envEmail    = "CONFLUENCE_EMAIL"
	envAPIToken = "CONFLUENCE_API_TOKEN"
)

// loadSiteConfig resolves site settings from an optional YAML file plus
// environment overrides.
func loadSiteConfig(path string) (*SiteConfig, error) {
	cfg := &SiteConfig{}

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	}

	if v := os.Getenv(envBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(envEmail); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv(envAPIToken); v != "" {
		cfg.APIToken = v
	}

	return cfg, nil
}

// validateSite checks that everything a network call needs is present.
func (c *SiteConfig) validateSite() error {
	if c.BaseURL == "" || c.Email == "" || c.APIToken == "" {
		return ErrMissingSite
	}
	return nil
}
