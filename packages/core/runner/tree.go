package runner

import (
	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/collection"
)

// ResultFolder is the aggregated view of one folder run.
type ResultFolder struct {
	Name   string            `yaml:"name" json:"name"`
	Status assertions.Status `yaml:"status" json:"status"`
	Cases  []ResultCase      `yaml:"cases" json:"cases"`
}

// ResultCase is one testcase of a folder with everything that ran under it.
type ResultCase struct {
	Name     string            `yaml:"name" json:"name"`
	Status   assertions.Status `yaml:"status" json:"status"`
	Folders  []ResultFolder    `yaml:"folders,omitempty" json:"folders,omitempty"`
	Requests []ResultRequest   `yaml:"requests,omitempty" json:"requests,omitempty"`
}

// ResultRequest is one request under one testcase.
type ResultRequest struct {
	Name     string            `yaml:"name" json:"name"`
	Testcase string            `yaml:"testcase" json:"testcase"`
	Status   assertions.Status `yaml:"status" json:"status"`
	Result   *RunResult        `yaml:"result,omitempty" json:"result,omitempty"`
	Error    *RunError         `yaml:"error,omitempty" json:"error,omitempty"`
}

// CreateResultTree mirrors the traversal of GetTestGroupJobs over folder and
// looks every request up in results. ancestorPaths is the path of the
// testcase folder runs under, empty for a collection root.
func CreateResultTree(folder *collection.Folder, ancestorPaths []string, results *Results) ResultFolder {
	out := ResultFolder{Name: folder.Name}
	var statuses []assertions.Status
	for _, tc := range collection.SortedTestcases(folder.Testcases) {
		tc.EntryName = folder.Name
		tc.ParentPath = append([]string(nil), ancestorPaths...)
		rc := createCase(folder, tc, results)
		out.Cases = append(out.Cases, rc)
		statuses = append(statuses, rc.Status)
	}
	out.Status = rollup(statuses)
	return out
}

func createCase(folder *collection.Folder, tc collection.Testcase, results *Results) ResultCase {
	rc := ResultCase{Name: tc.Name}
	path := tc.Path()

	var statuses []assertions.Status
	for _, child := range folder.Children() {
		rf := CreateResultTree(child, path, results)
		rc.Folders = append(rc.Folders, rf)
		statuses = append(statuses, rf.Status)
	}
	for _, rec := range folder.Requests {
		for _, rr := range recordResults(path, rec, results) {
			rc.Requests = append(rc.Requests, rr)
			statuses = append(statuses, rr.Status)
		}
	}
	rc.Status = rollup(statuses)
	return rc
}

func recordResults(path []string, rec *collection.Record, results *Results) []ResultRequest {
	var out []ResultRequest
	for _, reqCase := range collection.SortedTestcases(rec.Testcases) {
		reqPath := append(append([]string(nil), path...), rec.Name+":"+reqCase.Name)
		rr := ResultRequest{Name: rec.Name, Testcase: reqCase.Name, Status: assertions.StatusWait}
		if o, ok := results.Find(reqPath); ok {
			rr.Status = o.Status()
			switch v := o.(type) {
			case *RunResult:
				rr.Result = v
			case *RunError:
				rr.Error = v
			}
		}
		out = append(out, rr)
	}
	return out
}

// CreateRecordTree is the result tree of a RunRecord call: folder with a
// single case named after parent holding only rec.
func CreateRecordTree(folder *collection.Folder, parent collection.Testcase, rec *collection.Record, results *Results) ResultFolder {
	rc := ResultCase{Name: parent.Name}
	rc.Requests = recordResults(parent.Path(), rec, results)
	statuses := make([]assertions.Status, 0, len(rc.Requests))
	for _, rr := range rc.Requests {
		statuses = append(statuses, rr.Status)
	}
	rc.Status = rollup(statuses)
	return ResultFolder{Name: folder.Name, Status: rc.Status, Cases: []ResultCase{rc}}
}

// rollup folds child statuses: Fail beats Running beats Wait; all Skip is
// Skip; anything else is Pass. Requests without test blocks (None) count as
// Pass.
func rollup(statuses []assertions.Status) assertions.Status {
	var running, waiting bool
	skipped := 0
	for _, s := range statuses {
		switch s {
		case assertions.StatusFail:
			return assertions.StatusFail
		case assertions.StatusRunning:
			running = true
		case assertions.StatusWait:
			waiting = true
		case assertions.StatusSkip:
			skipped++
		}
	}
	switch {
	case running:
		return assertions.StatusRunning
	case waiting:
		return assertions.StatusWait
	case len(statuses) > 0 && skipped == len(statuses):
		return assertions.StatusSkip
	}
	return assertions.StatusPass
}

// SuccessCount counts Pass requests in the folder and below.
func (f ResultFolder) SuccessCount() int {
	return f.count(func(r ResultRequest) bool { return r.Status == assertions.StatusPass })
}

// TotalCount counts every request in the folder and below.
func (f ResultFolder) TotalCount() int {
	return f.count(func(ResultRequest) bool { return true })
}

func (f ResultFolder) count(match func(ResultRequest) bool) int {
	n := 0
	for _, c := range f.Cases {
		for _, r := range c.Requests {
			if match(r) {
				n++
			}
		}
		for _, child := range c.Folders {
			n += child.count(match)
		}
	}
	return n
}

// Walk calls fn for every request in the tree, depth first, with the names
// of the folders and cases above it.
func (f ResultFolder) Walk(fn func(trail []string, r ResultRequest)) {
	f.walk(nil, fn)
}

func (f ResultFolder) walk(trail []string, fn func([]string, ResultRequest)) {
	for _, c := range f.Cases {
		here := append(append([]string(nil), trail...), f.Name+":"+c.Name)
		for _, child := range c.Folders {
			child.walk(here, fn)
		}
		for _, r := range c.Requests {
			fn(here, r)
		}
	}
}
