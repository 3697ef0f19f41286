package assertions

// Status is the outcome of a test block, a request run or a rolled-up tree node.
type Status string

const (
	StatusNone    Status = "NONE"
	StatusWait    Status = "WAIT"
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusSkip    Status = "SKIP"
	StatusRunning Status = "RUNNING"
)

// AssertResult is one recorded assertion.
type AssertResult struct {
	Status  Status `yaml:"status" json:"status"`
	Message string `yaml:"message" json:"message"`
}

// TestInfo is a closed test block.
type TestInfo struct {
	Name    string         `yaml:"name" json:"name"`
	Results []AssertResult `yaml:"results" json:"results"`
	Status  Status         `yaml:"status" json:"status"`
}

// TestResult records named test blocks and their assertions for one request.
// At most one block is open at a time.
type TestResult struct {
	Status Status     `yaml:"status" json:"status"`
	Tests  []TestInfo `yaml:"tests,omitempty" json:"tests,omitempty"`

	open    string
	isOpen  bool
	pending []AssertResult
}

func NewTestResult() *TestResult {
	return &TestResult{Status: StatusNone}
}

// Open starts a block. Opening while another block is open renames it.
func (r *TestResult) Open(name string) {
	r.open = name
	r.isOpen = true
}

// IsOpen reports the name of the open block, if any.
func (r *TestResult) IsOpen() (string, bool) {
	return r.open, r.isOpen
}

// Append records an assertion into the open block. Assertions made while no
// block is open are collected into the next closed block.
func (r *TestResult) Append(passed bool, message string) {
	status := StatusPass
	if !passed {
		status = StatusFail
	}
	r.pending = append(r.pending, AssertResult{Status: status, Message: message})
}

// Close finalizes the open block. It is a no-op when no block is open.
func (r *TestResult) Close() {
	if !r.isOpen {
		return
	}

	status := StatusPass
	for _, a := range r.pending {
		if a.Status != StatusPass {
			status = StatusFail
			break
		}
	}

	r.Tests = append(r.Tests, TestInfo{Name: r.open, Results: r.pending, Status: status})
	r.open = ""
	r.isOpen = false
	r.pending = nil

	r.Status = StatusPass
	for _, t := range r.Tests {
		if t.Status == StatusFail {
			r.Status = StatusFail
			break
		}
	}
}

// Discard drops the open block and its pending assertions.
func (r *TestResult) Discard() {
	r.open = ""
	r.isOpen = false
	r.pending = nil
}

// MarkSkipped sets the result and every closed block to Skip.
func (r *TestResult) MarkSkipped() {
	r.Discard()
	r.Status = StatusSkip
	for i := range r.Tests {
		r.Tests[i].Status = StatusSkip
	}
}

// Clone returns a deep copy, including the open block.
func (r *TestResult) Clone() *TestResult {
	if r == nil {
		return NewTestResult()
	}
	out := &TestResult{
		Status: r.Status,
		open:   r.open,
		isOpen: r.isOpen,
	}
	if r.pending != nil {
		out.pending = append([]AssertResult(nil), r.pending...)
	}
	for _, t := range r.Tests {
		t.Results = append([]AssertResult(nil), t.Results...)
		out.Tests = append(out.Tests, t)
	}
	return out
}

// Counts returns the number of passed, failed and skipped blocks.
func (r *TestResult) Counts() (passed, failed, skipped int) {
	for _, t := range r.Tests {
		switch t.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusSkip:
			skipped++
		}
	}
	return passed, failed, skipped
}
