package config

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		WorkspacesDir:   "workspaces",
		Timeout:         60000,
		Concurrency:     MaxConcurrency,
		Fast:            BoolPtr(false),
		Output:          "yaml",
		FollowRedirects: BoolPtr(true),
		ValidateSSL:     BoolPtr(true),
	}
}
