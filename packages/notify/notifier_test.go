package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	calls []*RunSummary
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, s *RunSummary) error {
	r.calls = append(r.calls, s)
	return r.err
}

func (r *recordingNotifier) Name() string { return "recording" }

func TestManagerPolicy(t *testing.T) {
	pass := func() *RunSummary { return &RunSummary{Collection: "Suite", Total: 1, Passed: 1} }
	fail := func() *RunSummary { return &RunSummary{Collection: "Suite", Total: 1, Failed: 1} }

	tests := []struct {
		name string
		on   NotifyOn
		runs []*RunSummary
		want int
	}{
		{"always", NotifyAlways, []*RunSummary{pass(), fail()}, 2},
		{"failure", NotifyFailure, []*RunSummary{pass(), fail()}, 1},
		{"success", NotifySuccess, []*RunSummary{pass(), fail()}, 1},
		{"recovery", NotifyRecovery, []*RunSummary{pass(), fail(), pass(), pass()}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingNotifier{}
			m := NewManager(tt.on, rec)
			for _, s := range tt.runs {
				require.NoError(t, m.Notify(context.Background(), s))
			}
			assert.Len(t, rec.calls, tt.want)
		})
	}
}

func TestManagerRecoveryFromPrevious(t *testing.T) {
	rec := &recordingNotifier{}
	m := NewManager(NotifyRecovery, rec)
	m.SetPrevious(false)

	s := &RunSummary{Collection: "Suite", Total: 1, Passed: 1}
	require.NoError(t, m.Notify(context.Background(), s))
	require.Len(t, rec.calls, 1)
	assert.True(t, rec.calls[0].IsRecovery)
	assert.Equal(t, "Suite: recovered", s.title())
}

func TestManagerJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	m := NewManager(NotifyAlways, &recordingNotifier{err: boom}, &recordingNotifier{})
	err := m.Notify(context.Background(), &RunSummary{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, m.Len())
}

func TestParseNotifyOn(t *testing.T) {
	on, err := ParseNotifyOn("")
	require.NoError(t, err)
	assert.Equal(t, NotifyFailure, on)

	on, err = ParseNotifyOn("Recovery")
	require.NoError(t, err)
	assert.Equal(t, NotifyRecovery, on)

	_, err = ParseNotifyOn("sometimes")
	assert.Error(t, err)
}

func TestSlackNotifier(t *testing.T) {
	var got slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL, WithSlackChannel("#api"))
	err := n.Notify(context.Background(), &RunSummary{
		Collection: "Suite",
		Total:      2,
		Passed:     1,
		Failed:     1,
		Duration:   1500 * time.Millisecond,
		Failures:   []Failure{{Path: "Suite:Default/Ping:Default", Messages: []string{"Expect is \"1\" but actual is \"2\""}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "#api", got.Channel)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "danger", got.Attachments[0].Color)
	assert.Equal(t, "Suite: 1 request(s) failed", got.Attachments[0].Title)
	assert.Contains(t, got.Attachments[0].Text, "Ping:Default")
}

func TestTeamsNotifier(t *testing.T) {
	var got teamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := NewTeamsNotifier(server.URL).Notify(context.Background(), &RunSummary{Collection: "Suite", Total: 1, Passed: 1, Environment: "dev"})
	require.NoError(t, err)
	require.Len(t, got.Attachments, 1)
	body := got.Attachments[0].Content.Body
	assert.Equal(t, "Suite: all requests passed", body[0].Text)
	assert.Contains(t, body[1].Facts, teamsFact{Title: "Environment", Value: "dev"})
}

func TestWebhookErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid_payload"))
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Notify(context.Background(), &RunSummary{})
	assert.ErrorContains(t, err, "status 400: invalid_payload")
}
