package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/collection"
)

var listCmd = &cobra.Command{
	Use:   "list <workspace> [collection]",
	Short: "List folders, requests and testcases of a workspace",
	Long: `List the collections of a workspace as a tree of folders and
requests, with the testcases declared at each level.

Examples:
  hitcase list ./workspaces/shop
  hitcase list shop Orders`,
	Args: usageArgs(cobra.RangeArgs(1, 2)),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return err
	}
	ws, err := openWorkspace(args[0], cfg, "", "")
	if err != nil {
		return err
	}

	names := ws.CollectionNames()
	if len(args) == 2 {
		names = []string{args[1]}
	}

	w := cmd.OutOrStdout()
	for _, name := range names {
		_, root, err := ws.Collection(name)
		if err != nil {
			return err
		}
		printFolder(w, root, 0)
	}
	return nil
}

func printFolder(w io.Writer, f *collection.Folder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s/ %s\n", indent, f.Name, caseList(f.Testcases))
	for _, child := range f.Children() {
		printFolder(w, child, depth+1)
	}
	for _, rec := range f.Requests {
		fmt.Fprintf(w, "%s  - %s %s %s %s\n", indent, rec.Name, rec.Request.Method, rec.Request.URL(), caseList(rec.Testcases))
	}
}

func caseList(cases map[string]collection.Testcase) string {
	sorted := collection.SortedTestcases(cases)
	names := make([]string, len(sorted))
	for i, tc := range sorted {
		names[i] = tc.Name
	}
	return "[" + strings.Join(names, ", ") + "]"
}
