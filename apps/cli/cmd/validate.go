package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/collection"
	"github.com/abdul-hamid-achik/hitcase/packages/script"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workspace>",
	Short: "Check workspace files and scripts for errors",
	Long: `Load every collection of a workspace and compile each pre-request and
test script without running anything.

Examples:
  hitcase validate ./workspaces/shop
  hitcase validate shop`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: validateCommand,
}

// scriptSource is one script to compile, named by where it lives.
type scriptSource struct {
	where  string
	source string
}

func validateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return err
	}
	ws, err := openWorkspace(args[0], cfg, "", "")
	if err != nil {
		if errors.Is(err, collection.ErrWorkspaceNotFound) {
			return withExitCode(ExitConfigError, err)
		}
		return withExitCode(ExitParseError, err)
	}

	var sources []scriptSource
	for _, path := range ws.Tree().Paths() {
		f, _ := ws.Tree().Folder(path)
		sources = append(sources,
			scriptSource{path + " (pre_request_script)", f.PreRequestScript},
			scriptSource{path + " (test_script)", f.TestScript},
		)
		for _, rec := range f.Requests {
			sources = append(sources,
				scriptSource{path + "/" + rec.Name + " (pre_request_script)", rec.PreRequestScript},
				scriptSource{path + "/" + rec.Name + " (test_script)", rec.TestScript},
			)
		}
	}

	checked, failed := 0, 0
	for _, s := range sources {
		if strings.TrimSpace(s.source) == "" {
			continue
		}
		checked++
		if err := script.Compile(s.source); err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", s.where, err)
			failed++
		}
	}

	if failed > 0 {
		return withExitCode(ExitParseError, errors.New("validation failed"))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d collections, %d scripts)\n", ws.Name, len(ws.CollectionNames()), checked)
	return nil
}
