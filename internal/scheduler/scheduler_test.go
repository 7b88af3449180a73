package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeyzrSoze/signals/pkg/logger"
)

type fakeJob struct {
	name string
	ran  chan struct{}
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return "@daily" }
func (j *fakeJob) Run(ctx context.Context) error {
	close(j.ran)
	return nil
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&fakeJob{name: "cycle", ran: make(chan struct{})}))
	err := s.AddJob(&fakeJob{name: "cycle", ran: make(chan struct{})})
	assert.Error(t, err)
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := New(logger.Nop())
	job := &fakeJob{name: "cycle", ran: make(chan struct{})}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("cycle"))

	select {
	case <-job.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}

	// The result lands after Run returns; poll briefly.
	deadline := time.Now().Add(5 * time.Second)
	for {
		history, err := s.GetJobHistory("cycle")
		require.NoError(t, err)
		if results := history.GetLatestResults(1); len(results) > 0 {
			assert.True(t, results[0].Success)
			assert.Equal(t, "cycle", results[0].JobName)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job result never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	stats := s.GetJobStats()
	require.Contains(t, stats, "cycle")
	assert.Equal(t, 1, stats["cycle"].TotalRuns)
	assert.Equal(t, 1.0, stats["cycle"].SuccessRate)
}

func TestRunJobUnknownName(t *testing.T) {
	s := New(logger.Nop())
	assert.Error(t, s.RunJob("missing"))
}

func TestJobHistoryWindow(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "cycle", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100)
	assert.Equal(t, 0.5, h.GetSuccessRate())
}
