package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/db"
)

var (
	historyDBFlag    string
	historyLimitFlag int
)

var historyCmd = &cobra.Command{
	Use:   "history [workspace] [collection]",
	Short: "Show recorded collection runs",
	Long: `Show the runs recorded with "run --history", newest first.

Examples:
  hitcase history --history sqlite://hitcase.db
  hitcase history shop Orders --limit 5`,
	Args: usageArgs(cobra.MaximumNArgs(2)),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "history", getEnvString("HITCASE_HISTORY", ""), "History database, e.g. sqlite://hitcase.db (env: HITCASE_HISTORY)")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of runs to show, 0 for all")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	conn := cfg.History
	if historyDBFlag != "" {
		conn = historyDBFlag
	}
	if conn == "" {
		return withExitCode(ExitConfigError, errors.New(`no history database configured (use --history or "history" in .hitcase.json)`))
	}

	var workspace, collection string
	if len(args) > 0 {
		workspace = args[0]
	}
	if len(args) > 1 {
		collection = args[1]
	}

	client, err := db.NewClient(conn)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer client.Close()

	runs, err := client.ListRuns(context.Background(), workspace, collection, historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tWORKSPACE\tCOLLECTION\tENV\tSTATUS\tPASSED\tFAILED\tSKIPPED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Workspace, r.Collection, r.Environment, r.Status,
			r.Passed, r.Total, r.Failed+r.Errors, r.Skipped,
			r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}
