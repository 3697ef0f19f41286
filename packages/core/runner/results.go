package runner

import (
	"sync"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
)

// Results collects outcomes keyed by testcase path. It is safe for
// concurrent use.
type Results struct {
	mu       sync.RWMutex
	outcomes map[string]Outcome
	order    []string
}

func NewResults() *Results {
	return &Results{outcomes: make(map[string]Outcome)}
}

// Add stores o under its path, replacing any earlier outcome (such as the
// Running placeholder).
func (r *Results) Add(o Outcome) {
	key := o.Key()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.outcomes[key]; !ok {
		r.order = append(r.order, key)
	}
	r.outcomes[key] = o
}

// Find looks up the outcome stored under path.
func (r *Results) Find(path []string) (Outcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.outcomes[pathKey(path)]
	return o, ok
}

// Status is the status stored under path, or Wait if nothing is there yet.
func (r *Results) Status(path []string) assertions.Status {
	o, ok := r.Find(path)
	if !ok {
		return assertions.StatusWait
	}
	return o.Status()
}

// Snapshot copies the outcomes in insertion order.
func (r *Results) Snapshot() []Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Outcome, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.outcomes[key])
	}
	return out
}

func (r *Results) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outcomes)
}

// running marks a job as in flight.
type running struct {
	info RunInfo
}

func (p running) Status() assertions.Status { return assertions.StatusRunning }
func (p running) Key() string               { return pathKey(p.info.Testcase.Path()) }
func (p running) Name() string              { return p.info.RequestName }
