package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
	"github.com/abdul-hamid-achik/hitcase/packages/db"
	"github.com/abdul-hamid-achik/hitcase/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitcase/packages/logging"
	"github.com/abdul-hamid-achik/hitcase/packages/notify"
	"github.com/abdul-hamid-achik/hitcase/packages/output"
)

const hookTimeout = 30 * time.Second

// afterRun exports metrics, records the run in history and sends
// notifications. Failures here are logged and never change the verdict.
func afterRun(ctx context.Context, cfg *config.Config, report *output.Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()

	if cfg.Metrics != nil {
		if err := exportMetrics(ctx, cfg.Metrics, report); err != nil {
			logging.Error("metrics", err, "cannot export metrics")
		}
	}

	manager, err := newNotifyManager(cfg.Notify)
	if err != nil {
		logging.Warn("notify", "%v", err)
	}

	if cfg.History != "" {
		previous, err := recordHistory(ctx, cfg.History, report)
		if err != nil {
			logging.Error("history", err, "cannot record run")
		} else if manager != nil && previous != nil {
			manager.SetPrevious(previous.Status == string(assertions.StatusPass))
		}
	}

	if manager == nil {
		return
	}
	if err := manager.Notify(ctx, newRunSummary(report)); err != nil {
		logging.Error("notify", err, "failed to send notification")
	}
}

func exportMetrics(ctx context.Context, m *config.Metrics, report *output.Report) error {
	run := metrics.FromReport(report)
	var errs []error

	if m.Format != "" && m.File != "" {
		f, err := os.Create(m.File)
		if err != nil {
			errs = append(errs, fmt.Errorf("cannot create metrics file: %w", err))
		} else {
			exp, err := metrics.New(m.Format, f)
			if err == nil {
				err = exp.Export(ctx, run)
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	if m.DatadogAPIKey != "" {
		dd := metrics.NewDataDogExporter(m.DatadogAPIKey,
			metrics.WithDataDogSite(m.DatadogSite),
			metrics.WithDataDogTags(m.DatadogTags),
		)
		if err := dd.Export(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// recordHistory saves report and returns the run recorded before it, if
// any.
func recordHistory(ctx context.Context, conn string, report *output.Report) (*db.Run, error) {
	client, err := db.NewClient(conn)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	previous, err := client.LastRun(ctx, report.Workspace, report.Collection)
	if err != nil && !errors.Is(err, db.ErrNoRuns) {
		return nil, err
	}

	tree, err := yaml.Marshal(report.Tree)
	if err != nil {
		return nil, err
	}
	s := report.Summary
	run := &db.Run{
		Workspace:   report.Workspace,
		Collection:  report.Collection,
		Environment: report.Environment,
		Status:      string(report.Tree.Status),
		Total:       s.Total,
		Passed:      s.Passed,
		Failed:      s.Failed,
		Skipped:     s.Skipped,
		Errors:      s.Errors,
		StartedAt:   s.Begin,
		Duration:    s.Duration,
		Report:      string(tree),
	}
	if err := client.SaveRun(ctx, run); err != nil {
		return nil, err
	}
	logging.Debug("history", "saved run %s", run.ID)
	return previous, nil
}

func newNotifyManager(n *config.Notify) (*notify.Manager, error) {
	if n == nil || (n.Slack == "" && n.Teams == "") {
		return nil, nil
	}
	on, err := notify.ParseNotifyOn(n.On)
	if err != nil {
		return nil, err
	}

	manager := notify.NewManager(on)
	if n.Slack != "" {
		var opts []notify.SlackOption
		if n.SlackChannel != "" {
			opts = append(opts, notify.WithSlackChannel(n.SlackChannel))
		}
		manager.AddNotifier(notify.NewSlackNotifier(n.Slack, opts...))
	}
	if n.Teams != "" {
		manager.AddNotifier(notify.NewTeamsNotifier(n.Teams))
	}
	return manager, nil
}

func newRunSummary(report *output.Report) *notify.RunSummary {
	s := report.Summary
	summary := &notify.RunSummary{
		Workspace:   report.Workspace,
		Collection:  report.Collection,
		Environment: report.Environment,
		Total:       int(s.Total),
		Passed:      int(s.Passed),
		Failed:      int(s.Failed + s.Errors),
		Skipped:     int(s.Skipped),
		Duration:    s.Duration,
		P95:         s.P95,
	}
	for _, row := range output.Rows(report.Tree) {
		if row.Status != assertions.StatusFail {
			continue
		}
		summary.Failures = append(summary.Failures, notify.Failure{
			Path:     row.ClassName + "/" + row.FullName(),
			Messages: row.Failures(),
		})
	}
	return summary
}
