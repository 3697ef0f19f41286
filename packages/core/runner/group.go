package runner

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/abdul-hamid-achik/hitcase/packages/logging"
)

// RunJobs executes jobs and stores every outcome in results. In fast mode all
// jobs start together; otherwise jobs sharing a parent testcase path form a
// batch and batches run one after another in order of first appearance.
// Job failures are recorded as outcomes, so RunJobs only returns early when
// ctx is cancelled between batches.
func (r *Runner) RunJobs(ctx context.Context, jobs []RunInfo, results *Results, fast bool) error {
	var batches [][]RunInfo
	if fast {
		batches = [][]RunInfo{jobs}
	} else {
		batches = groupByParent(jobs)
	}

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		logging.Debug("runner", "batch %d/%d: %d jobs", i+1, len(batches), len(batch))
		r.runBatch(ctx, batch, results)
	}
	return nil
}

func (r *Runner) runBatch(ctx context.Context, batch []RunInfo, results *Results) {
	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)
	for _, job := range batch {
		g.Go(func() error {
			results.Add(running{info: job})
			results.Add(r.SendWithScript(ctx, job))
			return nil
		})
	}
	_ = g.Wait()
}

func groupByParent(jobs []RunInfo) [][]RunInfo {
	index := map[string]int{}
	var batches [][]RunInfo
	for _, job := range jobs {
		key := strings.Join(job.Testcase.ParentPath, "/")
		i, ok := index[key]
		if !ok {
			i = len(batches)
			index[key] = i
			batches = append(batches, nil)
		}
		batches[i] = append(batches[i], job)
	}
	return batches
}
