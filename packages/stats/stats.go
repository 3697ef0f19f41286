package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are recorded in microseconds between 1µs and 60s.
const (
	minLatency = 1
	maxLatency = 60_000_000
)

// Outcome is the per-request result kind counted by Collector.
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeFail
	OutcomeSkip
	OutcomeError
	OutcomeOther
)

// Collector aggregates request outcomes and latencies of one run.
type Collector struct {
	mu sync.Mutex

	counts    map[Outcome]int64
	histogram *hdrhistogram.Histogram
	requests  map[string]*requestStats

	startTime time.Time
	endTime   time.Time
}

type requestStats struct {
	total     int64
	failed    int64
	histogram *hdrhistogram.Histogram
}

func NewCollector() *Collector {
	return &Collector{
		counts:    make(map[Outcome]int64),
		histogram: hdrhistogram.New(minLatency, maxLatency, 3),
		requests:  make(map[string]*requestStats),
	}
}

// Start marks the beginning of the run.
func (c *Collector) Start(t time.Time) {
	c.mu.Lock()
	c.startTime = t
	c.mu.Unlock()
}

// Stop marks the end of the run.
func (c *Collector) Stop(t time.Time) {
	c.mu.Lock()
	c.endTime = t
	c.mu.Unlock()
}

func clamp(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatency {
		us = minLatency
	}
	if us > maxLatency {
		us = maxLatency
	}
	return us
}

// Record adds one request outcome. A zero latency (no response) is counted
// but not recorded in the histograms.
func (c *Collector) Record(name string, outcome Outcome, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts[outcome]++

	rs, ok := c.requests[name]
	if !ok {
		rs = &requestStats{histogram: hdrhistogram.New(minLatency, maxLatency, 3)}
		c.requests[name] = rs
	}
	rs.total++
	if outcome == OutcomeFail || outcome == OutcomeError {
		rs.failed++
	}

	if latency <= 0 {
		return
	}
	_ = c.histogram.RecordValue(clamp(latency))
	_ = rs.histogram.RecordValue(clamp(latency))
}

// Summary is the aggregated view of a run.
type Summary struct {
	Begin    time.Time     `json:"beginTime" yaml:"begin_time"`
	Duration time.Duration `json:"totalTime" yaml:"total_time"`

	Total   int64 `json:"testAll" yaml:"test_all"`
	Passed  int64 `json:"testPass" yaml:"test_pass"`
	Failed  int64 `json:"testFail" yaml:"test_fail"`
	Skipped int64 `json:"testSkip" yaml:"test_skip"`
	Errors  int64 `json:"testError" yaml:"test_error"`

	P50  time.Duration `json:"p50" yaml:"p50"`
	P95  time.Duration `json:"p95" yaml:"p95"`
	P99  time.Duration `json:"p99" yaml:"p99"`
	Min  time.Duration `json:"min" yaml:"min"`
	Max  time.Duration `json:"max" yaml:"max"`
	Mean time.Duration `json:"mean" yaml:"mean"`

	Requests []RequestSummary `json:"requests,omitempty" yaml:"requests,omitempty"`
}

// RequestSummary holds the numbers of one request name.
type RequestSummary struct {
	Name   string        `json:"name" yaml:"name"`
	Total  int64         `json:"total" yaml:"total"`
	Failed int64         `json:"failed" yaml:"failed"`
	P50    time.Duration `json:"p50" yaml:"p50"`
	P95    time.Duration `json:"p95" yaml:"p95"`
	Mean   time.Duration `json:"mean" yaml:"mean"`
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

// Summary returns the numbers collected so far.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.endTime
	if end.IsZero() {
		end = time.Now()
	}

	s := Summary{
		Begin:    c.startTime,
		Duration: end.Sub(c.startTime),
		Passed:   c.counts[OutcomePass],
		Failed:   c.counts[OutcomeFail],
		Skipped:  c.counts[OutcomeSkip],
		Errors:   c.counts[OutcomeError],
		P50:      quantile(c.histogram, 50),
		P95:      quantile(c.histogram, 95),
		P99:      quantile(c.histogram, 99),
		Min:      time.Duration(c.histogram.Min()) * time.Microsecond,
		Max:      time.Duration(c.histogram.Max()) * time.Microsecond,
		Mean:     time.Duration(c.histogram.Mean()) * time.Microsecond,
	}
	for _, n := range c.counts {
		s.Total += n
	}

	for name, rs := range c.requests {
		s.Requests = append(s.Requests, RequestSummary{
			Name:   name,
			Total:  rs.total,
			Failed: rs.failed,
			P50:    quantile(rs.histogram, 50),
			P95:    quantile(rs.histogram, 95),
			Mean:   time.Duration(rs.histogram.Mean()) * time.Microsecond,
		})
	}
	sort.Slice(s.Requests, func(i, j int) bool { return s.Requests[i].Name < s.Requests[j].Name })
	return s
}

// Success reports whether nothing failed.
func (s Summary) Success() bool {
	return s.Failed == 0 && s.Errors == 0
}

// SuccessRate is Passed over Total, 0 for an empty run.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total)
}
