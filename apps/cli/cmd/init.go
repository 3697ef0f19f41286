package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/collection"
	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
)

var noConfigInit bool

var initCmd = &cobra.Command{
	Use:   "init [workspace]",
	Short: "Create an example workspace",
	Long: `Create an example workspace under workspacesDir (default: "default").

This creates:
  - <workspacesDir>/<workspace>/workspace.yaml           - globals and environments
  - <workspacesDir>/<workspace>/collections/example.yaml - example collection
  - .hitcase.json                                        - project config, unless one exists

Examples:
  hitcase init
  hitcase init shop --workspaces-dir api-tests`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVar(&noConfigInit, "no-config", false, "Do not write .hitcase.json")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return err
	}
	name := "default"
	if len(args) == 1 {
		name = args[0]
	}

	files, err := collection.Init(filepath.Join(cfg.WorkspacesDir, name))
	for _, f := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", f)
	}
	if err != nil {
		return fmt.Errorf("%w (remove it or pick another workspace name)", err)
	}

	if !noConfigInit {
		configFile := config.ConfigFilenames[0]
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			c := config.DefaultConfig()
			c.WorkspacesDir = cfg.WorkspacesDir
			if err := c.SaveConfig(configFile); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitcase workspace initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hitcase run %s Example' to execute the example collection.\n", name)
	return nil
}
