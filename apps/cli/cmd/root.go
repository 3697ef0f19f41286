package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
)

var (
	version   = "dev"
	buildTime = "unknown"

	configFlag        string
	workspacesDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "hitcase",
	Short: "Scripted HTTP collections, run as test cases.",
	Long: `hitcase runs collections of HTTP requests stored in a YAML workspace.

Folders and requests carry JavaScript pre-request and test scripts and
named testcases; every request runs once per testcase combination and
the results roll up into a pass/fail tree.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("HITCASE_CONFIG", ""), "Path to config file (env: HITCASE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&workspacesDirFlag, "workspaces-dir", getEnvString("HITCASE_WORKSPACES_DIR", "workspaces"), "Directory holding named workspaces (env: HITCASE_WORKSPACES_DIR)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return withExitCode(ExitUsageError, err)
	})
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// explicit reports whether a flag was given on the command line or through
// its environment variable, so it should override the config file.
func explicit(cmd *cobra.Command, flag, envKey string) bool {
	if cmd.Flags().Changed(flag) {
		return true
	}
	return envKey != "" && os.Getenv(envKey) != ""
}

// loadFileConfig reads --config, or the nearest .hitcase.json.
func loadFileConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return cfg, nil
}

// baseConfig is the file config with --workspaces-dir applied, for the
// commands that only need to find workspaces.
func baseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadFileConfig()
	if err != nil {
		return nil, err
	}
	if explicit(cmd, "workspaces-dir", "HITCASE_WORKSPACES_DIR") {
		cfg = cfg.Merge(&config.Config{WorkspacesDir: workspacesDirFlag})
	}
	return cfg, nil
}
