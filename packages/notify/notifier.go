// Package notify posts collection run summaries to chat webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/logging"
)

// NotifyOn selects which runs produce a notification.
type NotifyOn string

const (
	NotifyAlways  NotifyOn = "always"
	NotifyFailure NotifyOn = "failure"
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery notifies on failures and on the first success after one.
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn accepts the NotifyOn names; "" means failure.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(strings.ToLower(strings.TrimSpace(s))); on {
	case "":
		return NotifyFailure, nil
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return on, nil
	}
	return "", fmt.Errorf("unknown notify policy %q", s)
}

// RunSummary is what a notification reports about one collection run.
type RunSummary struct {
	Workspace   string        `json:"workspace"`
	Collection  string        `json:"collection"`
	Environment string        `json:"environment,omitempty"`
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration"`
	P95         time.Duration `json:"p95"`
	Failures    []Failure     `json:"failures,omitempty"`
	IsRecovery  bool          `json:"is_recovery,omitempty"`
}

// Failure is one failed request.
type Failure struct {
	Path     string   `json:"path"`
	Messages []string `json:"messages,omitempty"`
}

func (s *RunSummary) success() bool {
	return s.Failed == 0
}

func (s *RunSummary) title() string {
	switch {
	case !s.success():
		return fmt.Sprintf("%s: %d request(s) failed", s.Collection, s.Failed)
	case s.IsRecovery:
		return fmt.Sprintf("%s: recovered", s.Collection)
	}
	return fmt.Sprintf("%s: all requests passed", s.Collection)
}

// Notifier delivers a summary somewhere.
type Notifier interface {
	Notify(ctx context.Context, summary *RunSummary) error
	Name() string
}

// Manager applies the NotifyOn policy and fans out to its notifiers.
type Manager struct {
	notifiers   []Notifier
	notifyOn    NotifyOn
	lastSuccess bool
}

// NewManager creates a manager that assumes the previous run succeeded.
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers:   notifiers,
		notifyOn:    notifyOn,
		lastSuccess: true,
	}
}

func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SetPrevious records the outcome of the previous run, for example from
// history, so recovery can be detected across processes.
func (m *Manager) SetPrevious(success bool) {
	m.lastSuccess = success
}

func (m *Manager) Len() int {
	return len(m.notifiers)
}

// Notify sends summary to every notifier when the policy asks for it. Errors
// from individual notifiers are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	current := summary.success()

	var send bool
	switch m.notifyOn {
	case NotifyAlways:
		send = true
	case NotifyFailure:
		send = !current
	case NotifySuccess:
		send = current
	case NotifyRecovery:
		summary.IsRecovery = current && !m.lastSuccess
		send = summary.IsRecovery || !current
	}
	m.lastSuccess = current

	if !send {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			logging.Warn("notify", "%s notification failed: %v", n.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func postJSON(ctx context.Context, client *http.Client, url string, msg any, accept ...int) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	for _, code := range accept {
		if resp.StatusCode == code {
			return nil
		}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
}
