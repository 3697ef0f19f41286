package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxConcurrency is the most jobs a run may have in flight.
const MaxConcurrency = 20

// Config is the project configuration read from .hitcase.json.
type Config struct {
	WorkspacesDir      string            `json:"workspacesDir,omitempty"`
	DefaultEnvironment string            `json:"defaultEnvironment,omitempty"`
	Timeout            int               `json:"timeout,omitempty"` // milliseconds
	Concurrency        int               `json:"concurrency,omitempty"`
	RateLimit          float64           `json:"rateLimit,omitempty"` // requests per second, 0 = unlimited
	Fast               *bool             `json:"fast,omitempty"`
	Output             string            `json:"output,omitempty"`
	OutputFile         string            `json:"outputFile,omitempty"`
	History            string            `json:"history,omitempty"` // sqlite connection string
	Notify             *Notify           `json:"notify,omitempty"`
	Metrics            *Metrics          `json:"metrics,omitempty"`
	FollowRedirects    *bool             `json:"followRedirects,omitempty"`
	ValidateSSL        *bool             `json:"validateSSL,omitempty"`
	Proxy              string            `json:"proxy,omitempty"`
	Headers            map[string]string `json:"headers,omitempty"`
}

// Notify configures webhook notifications.
type Notify struct {
	Slack        string `json:"slack,omitempty"`
	SlackChannel string `json:"slackChannel,omitempty"`
	Teams        string `json:"teams,omitempty"`
	On           string `json:"on,omitempty"`
}

// Metrics configures exporting run metrics after each run.
type Metrics struct {
	Format      string   `json:"format,omitempty"` // json or prometheus
	File        string   `json:"file,omitempty"`
	DatadogSite string   `json:"datadogSite,omitempty"`
	DatadogTags []string `json:"datadogTags,omitempty"`

	// DatadogAPIKey only comes from the flag or DD_API_KEY.
	DatadogAPIKey string `json:"-"`
}

func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects defaults to true.
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL defaults to true.
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

func (c *Config) GetFast() bool {
	return getBool(c.Fast, false)
}

// ConfigFilenames are searched in order in each directory.
var ConfigFilenames = []string{
	".hitcase.json",
	"hitcase.json",
}

// LoadConfig loads path, or searches upward from the working directory when
// path is empty.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return DefaultConfig(), nil
	}
	return FindAndLoadConfig(wd)
}

// FindAndLoadConfig looks for a config file in dir and its parents. With no
// file found the defaults are returned.
func FindAndLoadConfig(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		for _, filename := range ConfigFilenames {
			configPath := filepath.Join(dir, filename)
			if _, err := os.Stat(configPath); err == nil {
				return loadConfigFromFile(configPath)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return DefaultConfig(), nil
		}
		dir = parent
	}
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return config, nil
}

// Validate rejects values the runner cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if c.Concurrency < 0 || c.Concurrency > MaxConcurrency {
		errs = append(errs, fmt.Errorf("concurrency must be between 1 and %d", MaxConcurrency))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rateLimit must not be negative"))
	}
	if c.Notify != nil {
		switch strings.ToLower(c.Notify.On) {
		case "", "always", "failure", "success", "recovery":
		default:
			errs = append(errs, fmt.Errorf("notify.on %q is not one of always, failure, success, recovery", c.Notify.On))
		}
	}
	if c.Metrics != nil {
		switch strings.ToLower(c.Metrics.Format) {
		case "":
		case "json", "prometheus":
			if c.Metrics.File == "" {
				errs = append(errs, errors.New("metrics.file is required when metrics.format is set"))
			}
		default:
			errs = append(errs, fmt.Errorf("metrics.format %q is not one of json, prometheus", c.Metrics.Format))
		}
	}
	return errors.Join(errs...)
}

// Merge overlays other on c; set fields of other win.
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.WorkspacesDir != "" {
		result.WorkspacesDir = other.WorkspacesDir
	}
	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Notify != nil {
		n := *other.Notify
		result.Notify = &n
	}
	if other.Metrics != nil {
		m := *other.Metrics
		result.Metrics = &m
	}

	if other.Fast != nil {
		result.Fast = other.Fast
	}
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig writes c as indented JSON.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
