package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorSummary(t *testing.T) {
	c := NewCollector()
	begin := time.Now()
	c.Start(begin)

	c.Record("Ping", OutcomePass, 100*time.Millisecond)
	c.Record("Ping", OutcomeFail, 200*time.Millisecond)
	c.Record("List", OutcomeSkip, 0)
	c.Record("List", OutcomeError, 0)

	c.Stop(begin.Add(time.Second))
	s := c.Summary()

	assert.Equal(t, int64(4), s.Total)
	assert.Equal(t, int64(1), s.Passed)
	assert.Equal(t, int64(1), s.Failed)
	assert.Equal(t, int64(1), s.Skipped)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, time.Second, s.Duration)
	assert.False(t, s.Success())
	assert.InDelta(t, 0.25, s.SuccessRate(), 0.001)

	assert.InDelta(t, float64(100*time.Millisecond), float64(s.Min), float64(time.Millisecond))
	assert.InDelta(t, float64(200*time.Millisecond), float64(s.Max), float64(time.Millisecond))

	require.Len(t, s.Requests, 2)
	assert.Equal(t, "List", s.Requests[0].Name)
	assert.Equal(t, int64(2), s.Requests[0].Total)
	assert.Equal(t, int64(1), s.Requests[0].Failed)
	assert.Equal(t, time.Duration(0), s.Requests[0].Mean)
	assert.Equal(t, "Ping", s.Requests[1].Name)
}

func TestEmptySummary(t *testing.T) {
	s := NewCollector().Summary()
	assert.Zero(t, s.Total)
	assert.True(t, s.Success())
	assert.Zero(t, s.SuccessRate())
}

func TestRecordClampsLatency(t *testing.T) {
	c := NewCollector()
	c.Record("slow", OutcomePass, 2*time.Minute)
	s := c.Summary()
	assert.InDelta(t, float64(60*time.Second), float64(s.Max), float64(100*time.Millisecond))
}
