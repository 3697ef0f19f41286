package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/collection"
	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	"github.com/abdul-hamid-achik/hitcase/packages/logging"
	"github.com/abdul-hamid-achik/hitcase/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run <workspace> <collection>",
	Short: "Run a collection and print its result tree",
	Long: `Run every request of a collection under every testcase combination.

The workspace is a directory (or a name under workspacesDir) holding
workspace.yaml and collections/*.yaml. The result tree is printed, then
"Test Success" when the collection passed or "Test Error" otherwise.

Examples:
  hitcase run ./workspaces/shop Orders
  hitcase run shop Orders --env staging
  hitcase run shop Orders --request users/Get
  hitcase run shop Orders --fast -o junit --output-file report.xml
  hitcase run shop Orders --wait-for http://localhost:8080/health --watch`,
	Args: usageArgs(cobra.ExactArgs(2)),
	RunE: runCommand,
}

var (
	envFlag         string
	envFileFlag     string
	requestFlag     string
	verboseFlag     int // 0=warn, 1=-v info, 2=-vv debug
	quietFlag       bool
	noColorFlag     bool
	outputFlag      string
	outputFileFlag  string
	fastFlag        bool
	concurrencyFlag int
	rateLimitFlag   float64
	timeoutFlag     string
	watchFlag       bool
	updateSnapsFlag bool
	proxyFlag       string
	insecureFlag    bool
	headerFlags     []string

	// History and notification flags
	historyFlag      string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	teamsWebhookFlag string

	// Metrics flags
	metricsFlag     string
	metricsFileFlag string
	ddAPIKeyFlag    string
	ddSiteFlag      string

	// Readiness flags
	waitForFlag        string
	waitForStatusFlag  int
	waitForTimeoutFlag time.Duration
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("HITCASE_ENV", ""), "Environment to select (default: workspace selection) (env: HITCASE_ENV)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("HITCASE_ENV_FILE", ""), "Extra .env file layered over the globals (env: HITCASE_ENV_FILE)")
	runCmd.Flags().StringVarP(&requestFlag, "request", "r", "", "Run a single request, e.g. \"folder/Request\"")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for more detail)")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("HITCASE_QUIET", false), "Only print the verdict (env: HITCASE_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITCASE_NO_COLOR", false), "Disable colored output (env: HITCASE_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITCASE_OUTPUT", "yaml"), "Output format: "+strings.Join(output.Formats, ", ")+" (env: HITCASE_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("HITCASE_OUTPUT_FILE", ""), "Write the report to a file (default: stdout) (env: HITCASE_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&fastFlag, "fast", getEnvBool("HITCASE_FAST", false), "Run all jobs in one batch instead of per parent testcase (env: HITCASE_FAST)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("HITCASE_CONCURRENCY", config.MaxConcurrency), "Jobs in flight at once, at most 20 (env: HITCASE_CONCURRENCY)")
	runCmd.Flags().Float64Var(&rateLimitFlag, "rate-limit", getEnvFloat("HITCASE_RATE_LIMIT", 0), "Requests per second, 0 for unlimited (env: HITCASE_RATE_LIMIT)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITCASE_TIMEOUT", "60s"), "Request timeout (e.g., 30s, 1m) (env: HITCASE_TIMEOUT)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the workspace and re-run on changes")
	runCmd.Flags().BoolVar(&updateSnapsFlag, "update-snapshots", false, "Create or rewrite snapshots checked by hitcase.snapshot()")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITCASE_PROXY", ""), "Proxy URL for HTTP requests (env: HITCASE_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITCASE_INSECURE", false), "Disable SSL certificate validation (env: HITCASE_INSECURE)")
	runCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Default header \"Name: value\" (repeatable)")

	// History and notification flags
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("HITCASE_HISTORY", ""), "Record the run in a history database, e.g. sqlite://hitcase.db (env: HITCASE_HISTORY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("HITCASE_NOTIFY_ON", "failure"), "When to notify: always, failure, success, recovery (env: HITCASE_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	runCmd.Flags().StringVar(&teamsWebhookFlag, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")

	// Metrics flags
	runCmd.Flags().StringVar(&metricsFlag, "metrics", getEnvString("HITCASE_METRICS", ""), "Export run metrics: json, prometheus (env: HITCASE_METRICS)")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("HITCASE_METRICS_FILE", ""), "File the metrics are written to (env: HITCASE_METRICS_FILE)")
	runCmd.Flags().StringVar(&ddAPIKeyFlag, "datadog-api-key", getEnvString("DD_API_KEY", ""), "Send run metrics to DataDog (env: DD_API_KEY)")
	runCmd.Flags().StringVar(&ddSiteFlag, "datadog-site", getEnvString("DD_SITE", ""), "DataDog site, e.g. datadoghq.eu (env: DD_SITE)")

	// Readiness flags
	runCmd.Flags().StringVar(&waitForFlag, "wait-for", getEnvString("HITCASE_WAIT_FOR", ""), "Poll this URL until it answers before running (env: HITCASE_WAIT_FOR)")
	runCmd.Flags().IntVar(&waitForStatusFlag, "wait-for-status", 200, "Status code --wait-for expects")
	runCmd.Flags().DurationVar(&waitForTimeoutFlag, "wait-for-timeout", 30*time.Second, "How long --wait-for polls")
}

// flagConfig collects the settings given on the command line or through
// HITCASE_* variables. base supplies the notify block flags extend.
func flagConfig(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	fc := &config.Config{}

	if explicit(cmd, "workspaces-dir", "HITCASE_WORKSPACES_DIR") {
		fc.WorkspacesDir = workspacesDirFlag
	}
	if explicit(cmd, "env", "HITCASE_ENV") {
		fc.DefaultEnvironment = envFlag
	}
	if explicit(cmd, "timeout", "HITCASE_TIMEOUT") {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		fc.Timeout = int(d.Milliseconds())
	}
	if explicit(cmd, "concurrency", "HITCASE_CONCURRENCY") {
		if concurrencyFlag < 1 || concurrencyFlag > config.MaxConcurrency {
			return nil, fmt.Errorf("--concurrency must be between 1 and %d", config.MaxConcurrency)
		}
		fc.Concurrency = concurrencyFlag
	}
	if explicit(cmd, "rate-limit", "HITCASE_RATE_LIMIT") {
		fc.RateLimit = rateLimitFlag
	}
	if explicit(cmd, "fast", "HITCASE_FAST") {
		fc.Fast = config.BoolPtr(fastFlag)
	}
	if explicit(cmd, "output", "HITCASE_OUTPUT") {
		fc.Output = outputFlag
	}
	if explicit(cmd, "output-file", "HITCASE_OUTPUT_FILE") {
		fc.OutputFile = outputFileFlag
	}
	if explicit(cmd, "history", "HITCASE_HISTORY") {
		fc.History = historyFlag
	}
	if explicit(cmd, "proxy", "HITCASE_PROXY") {
		fc.Proxy = proxyFlag
	}
	if explicit(cmd, "insecure", "HITCASE_INSECURE") {
		fc.ValidateSSL = config.BoolPtr(!insecureFlag)
	}

	if len(headerFlags) > 0 {
		fc.Headers = make(map[string]string, len(headerFlags))
		for _, h := range headerFlags {
			name, value, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid header %q (want \"Name: value\")", h)
			}
			fc.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}

	notifyFlags := explicit(cmd, "notify-on", "HITCASE_NOTIFY_ON") ||
		explicit(cmd, "slack-webhook", "SLACK_WEBHOOK") ||
		explicit(cmd, "slack-channel", "SLACK_CHANNEL") ||
		explicit(cmd, "teams-webhook", "TEAMS_WEBHOOK")
	if notifyFlags {
		n := config.Notify{}
		if base != nil && base.Notify != nil {
			n = *base.Notify
		}
		if explicit(cmd, "notify-on", "HITCASE_NOTIFY_ON") {
			n.On = notifyOnFlag
		}
		if slackWebhookFlag != "" {
			n.Slack = slackWebhookFlag
		}
		if slackChannelFlag != "" {
			n.SlackChannel = slackChannelFlag
		}
		if teamsWebhookFlag != "" {
			n.Teams = teamsWebhookFlag
		}
		fc.Notify = &n
	}

	metricsFlags := explicit(cmd, "metrics", "HITCASE_METRICS") ||
		explicit(cmd, "metrics-file", "HITCASE_METRICS_FILE") ||
		explicit(cmd, "datadog-api-key", "DD_API_KEY") ||
		explicit(cmd, "datadog-site", "DD_SITE")
	if metricsFlags {
		m := config.Metrics{}
		if base != nil && base.Metrics != nil {
			m = *base.Metrics
		}
		if metricsFlag != "" {
			m.Format = metricsFlag
		}
		if metricsFileFlag != "" {
			m.File = metricsFileFlag
		}
		if ddAPIKeyFlag != "" {
			m.DatadogAPIKey = ddAPIKeyFlag
		}
		if ddSiteFlag != "" {
			m.DatadogSite = ddSiteFlag
		}
		fc.Metrics = &m
	}

	return fc, nil
}

// loadRunConfig merges defaults, the config file and the flags.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	fileConfig, err := loadFileConfig()
	if err != nil {
		return nil, err
	}
	fc, err := flagConfig(cmd, fileConfig)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	cfg := fileConfig.Merge(fc)
	if err := cfg.Validate(); err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	if _, err := output.New(cfg.Output, io.Discard, false, true); err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	if strings.EqualFold(cfg.Output, "xlsx") && cfg.OutputFile == "" {
		return nil, withExitCode(ExitUsageError, errors.New("--output xlsx needs --output-file"))
	}
	return cfg, nil
}

func initLogging(w io.Writer) {
	level := logging.LevelWarn
	switch {
	case quietFlag:
		level = logging.LevelError
	case verboseFlag >= 2:
		level = logging.LevelDebug
	case verboseFlag == 1:
		level = logging.LevelInfo
	}
	logging.InitForCLI(level, w)
}

// runOptions is one invocation of the run command, after flag parsing.
type runOptions struct {
	workspace  string
	collection string
	request    string
	envFile    string
	config     *config.Config
	verbose    bool
	quiet      bool
	noColor    bool
	updateSnap bool
}

func runCommand(cmd *cobra.Command, args []string) error {
	initLogging(cmd.ErrOrStderr())

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return runFailure(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if waitForFlag != "" {
		logging.Info("cli", "waiting for %s", waitForFlag)
		if err := runner.WaitForService(ctx, waitForFlag, waitForStatusFlag, waitForTimeoutFlag, time.Second); err != nil {
			return withExitCode(ExitTestFailure, err)
		}
	}

	opts := runOptions{
		workspace:  args[0],
		collection: args[1],
		request:    requestFlag,
		envFile:    envFileFlag,
		config:     cfg,
		verbose:    verboseFlag > 0,
		quiet:      quietFlag,
		noColor:    noColorFlag,
		updateSnap: updateSnapsFlag,
	}
	out := cmd.OutOrStdout()

	err = runFailure(runAndReport(ctx, out, opts))
	if !watchFlag {
		return err
	}
	if aborted(err) {
		return err
	}

	dir := resolveWorkspace(opts.workspace, cfg.WorkspacesDir)
	return watchWorkspace(ctx, out, dir, func() {
		if err := runAndReport(ctx, out, opts); aborted(err) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		}
	})
}

// runFailure keeps usage errors at ExitUsageError and reports every other
// failure of the run command as ExitTestFailure.
func runFailure(err error) error {
	if code := exitCode(err); code == ExitSuccess || code == ExitTestFailure || code == ExitUsageError {
		return err
	}
	return withExitCode(ExitTestFailure, err)
}

// aborted reports whether err stopped a run before it printed a verdict.
func aborted(err error) bool {
	var ee *exitError
	return err != nil && (!errors.As(err, &ee) || ee.err != nil)
}

// runAndReport runs once, writes the report, records history, sends
// notifications and prints the verdict.
func runAndReport(ctx context.Context, stdout io.Writer, opts runOptions) error {
	report, err := runOnce(ctx, opts)
	if err != nil {
		if errors.Is(err, collection.ErrCollectionNotFound) {
			fmt.Fprintln(stdout, collection.ErrCollectionNotFound.Error())
			return withExitCode(ExitTestFailure, nil)
		}
		return err
	}

	if err := writeReport(stdout, report, opts); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}

	afterRun(ctx, opts.config, report)

	if report.Tree.Status == assertions.StatusPass {
		fmt.Fprintln(stdout, "Test Success")
		return nil
	}
	fmt.Fprintln(stdout, "Test Error")
	return withExitCode(ExitTestFailure, nil)
}

func runnerConfig(cfg *config.Config, baseDir string, updateSnapshots bool) *runner.Config {
	return &runner.Config{
		Timeout:         time.Duration(cfg.Timeout) * time.Millisecond,
		FollowRedirect:  cfg.GetFollowRedirects(),
		ValidateSSL:     cfg.GetValidateSSL(),
		Proxy:           cfg.Proxy,
		DefaultHeaders:  cfg.Headers,
		RateLimit:       cfg.RateLimit,
		Concurrency:     cfg.Concurrency,
		BaseDir:         baseDir,
		UpdateSnapshots: updateSnapshots,
	}
}

// runOnce loads the workspace and runs the collection, or the single
// request opts.request names, to completion.
func runOnce(ctx context.Context, opts runOptions) (*output.Report, error) {
	cfg := opts.config
	ws, err := openWorkspace(opts.workspace, cfg, cfg.DefaultEnvironment, opts.envFile)
	if err != nil {
		return nil, err
	}
	_, root, err := ws.Collection(opts.collection)
	if err != nil {
		return nil, err
	}

	r := runner.NewRunner(runnerConfig(cfg, ws.Dir, opts.updateSnap))
	envs := ws.BuildEnvs(root.Name)
	scripts := ws.ScriptTree()
	results := runner.NewResults()

	var (
		tree   runner.ResultFolder
		runErr error
	)
	begin := time.Now()
	if opts.request != "" {
		target, err := findRecord(ws, root, opts.request)
		if err != nil {
			return nil, err
		}
		logging.Info("cli", "running %s/%s", target.folder.Path, target.record.Name)
		runErr = r.RunRecord(ctx, envs, scripts, target.parent, target.folder.Path, target.folder, target.record, results)
		tree = runner.CreateRecordTree(target.folder, target.parent, target.record, results)
	} else {
		logging.Info("cli", "running collection %s of %s", root.Name, ws.Name)
		runErr = r.RunTestGroup(ctx, envs, scripts, root.Name, nil, root, cfg.GetFast(), results)
		tree = runner.CreateResultTree(root, nil, results)
	}
	end := time.Now()
	if runErr != nil {
		logging.Warn("cli", "run stopped early: %v", runErr)
	}

	return &output.Report{
		Workspace:   ws.Name,
		Collection:  root.Name,
		Environment: ws.SelectedEnvironment,
		Tree:        tree,
		Summary:     runner.Summarize(tree, begin, end),
	}, nil
}

func writeReport(stdout io.Writer, report *output.Report, opts runOptions) error {
	cfg := opts.config
	w := stdout
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		w = f
	} else if opts.quiet {
		return nil
	}

	formatter, err := output.New(cfg.Output, w, opts.verbose, opts.noColor)
	if err != nil {
		return err
	}
	return formatter.Format(report)
}
