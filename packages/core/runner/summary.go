package runner

import (
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/stats"
)

// Summarize tallies every request of tree into a stats summary for a run
// that started at begin and ended at end.
func Summarize(tree ResultFolder, begin, end time.Time) stats.Summary {
	c := stats.NewCollector()
	c.Start(begin)
	tree.Walk(func(_ []string, r ResultRequest) {
		c.Record(r.Name, outcomeOf(r), latencyOf(r))
	})
	c.Stop(end)
	return c.Summary()
}

func outcomeOf(r ResultRequest) stats.Outcome {
	if r.Error != nil {
		return stats.OutcomeError
	}
	switch r.Status {
	case assertions.StatusPass, assertions.StatusNone:
		return stats.OutcomePass
	case assertions.StatusFail:
		return stats.OutcomeFail
	case assertions.StatusSkip:
		return stats.OutcomeSkip
	}
	return stats.OutcomeOther
}

func latencyOf(r ResultRequest) time.Duration {
	switch {
	case r.Result != nil && r.Result.Response != nil:
		return time.Duration(r.Result.Response.ElapsedMs) * time.Millisecond
	case r.Error != nil && r.Error.Response != nil:
		return time.Duration(r.Error.Response.ElapsedMs) * time.Millisecond
	}
	return 0
}
