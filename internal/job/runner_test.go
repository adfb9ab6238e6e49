package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func eventTypes(t *testing.T, st *store.Store, jobID string) []string {
	t.Helper()
	events, err := st.GetJournal(context.Background(), jobID, 100)
	require.NoError(t, err)
	// Oldest first for readable assertions.
	types := make([]string, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		types = append(types, events[i].EventType)
	}
	return types
}

func TestRun_Completes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)

	j, err := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, err)

	err = r.Run(ctx, j.ID, func(ctx context.Context, jc *Context) error {
		return jc.ReportProgress(ctx, map[string]any{"processed_items": 10}, 10)
	}, false)
	require.NoError(t, err)

	got, err := st.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, 10, got.ResultsCount)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	assert.Equal(t, []string{EventStart, EventProgress, EventComplete}, eventTypes(t, st, j.ID))
}

func TestRun_WorkErrorFailsJob(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)

	j, err := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, err)

	// The work error is recorded on the job, not returned.
	err = r.Run(ctx, j.ID, func(ctx context.Context, jc *Context) error {
		return errors.New("boom")
	}, false)
	require.NoError(t, err)

	got, err := st.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.NotNil(t, got.CompletedAt)

	types := eventTypes(t, st, j.ID)
	require.Len(t, types, 2)
	assert.Equal(t, EventStart, types[0])
	assert.Equal(t, EventError, types[1])

	events, err := st.GetJournal(ctx, j.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, "boom", events[0].DataMap()["error"])
}

func TestRun_StopPausesJob(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)

	j, err := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, err)

	err = r.Run(ctx, j.ID, func(ctx context.Context, jc *Context) error {
		for i := 0; i < 100; i++ {
			if jc.ShouldStop() {
				return jc.ReportProgress(ctx, map[string]any{"processed_items": i}, i)
			}
			if i == 3 {
				r.RequestStop()
			}
		}
		return nil
	}, false)
	require.NoError(t, err)

	got, err := st.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPaused, got.Status)
	assert.Equal(t, 4, got.ResultsCount)
	assert.Nil(t, got.CompletedAt, "paused is not terminal")

	assert.Equal(t,
		[]string{EventStart, EventInterrupt, EventProgress, EventPaused},
		eventTypes(t, st, j.ID))
}

func TestRun_Background(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)

	j, err := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, err)

	started := make(chan struct{})
	err = r.Run(ctx, j.ID, func(ctx context.Context, jc *Context) error {
		close(started)
		return nil
	}, true)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("background work never started")
	}
	require.True(t, r.WaitForCompletion(2*time.Second))

	got, err := st.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
}

func TestResume_FromPaused(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)

	j, err := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, err)
	require.NoError(t, st.UpdateJobProgress(ctx, j.ID, map[string]any{"processed_items": 7, "current_page": 2}, 7))
	require.NoError(t, st.UpdateJobStatus(ctx, j.ID, store.StatusPaused, ""))

	var savedSeen map[string]any
	err = r.Resume(ctx, j.ID, func(ctx context.Context, jc *Context, saved map[string]any) error {
		savedSeen = saved
		return nil
	}, false)
	require.NoError(t, err)

	require.NotNil(t, savedSeen)
	assert.Equal(t, float64(7), savedSeen["processed_items"])
	assert.Equal(t, float64(2), savedSeen["current_page"])

	got, err := st.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)

	// The resume event wraps the pre-resume snapshot.
	types := eventTypes(t, st, j.ID)
	assert.Equal(t, []string{EventResume, EventStart, EventComplete}, types)

	events, err := st.GetJournal(ctx, j.ID, 100)
	require.NoError(t, err)
	var resumeData map[string]any
	for _, e := range events {
		if e.EventType == EventResume {
			resumeData = e.DataMap()
		}
	}
	require.NotNil(t, resumeData)
	from, ok := resumeData["from_progress"].(map[string]any)
	require.True(t, ok, "resume event carries from_progress")
	assert.Equal(t, float64(7), from["processed_items"])
}

func TestResume_RejectsNonResumable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)

	j, err := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, err)
	require.NoError(t, st.UpdateJobStatus(ctx, j.ID, store.StatusCompleted, ""))

	err = r.Resume(ctx, j.ID, func(ctx context.Context, jc *Context, saved map[string]any) error {
		t.Fatal("work function must not run")
		return nil
	}, false)
	require.ErrorIs(t, err, ErrNotResumable)

	// Rejection leaves the job untouched.
	got, err := st.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	events, err := st.GetJournal(ctx, j.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestResume_UnknownJob(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)

	err := r.Resume(ctx, "no-such-job", func(ctx context.Context, jc *Context, saved map[string]any) error {
		return nil
	}, false)
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestRequestStop_Idempotent(t *testing.T) {
	st := newTestStore(t)
	r := NewRunner(st)

	r.RequestStop()
	r.RequestStop()
	assert.True(t, r.ShouldStop())
}

func TestRequestStop_JournalsInterruptOnlyWhileRunning(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)

	// No job running: flag set, nothing journaled.
	r.RequestStop()
	events, err := st.GetJournal(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestResumableJobs(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)

	a, _ := st.CreateJob(ctx, "scrape", nil)
	b, _ := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, st.UpdateJobStatus(ctx, a.ID, store.StatusPaused, ""))
	require.NoError(t, st.UpdateJobStatus(ctx, b.ID, store.StatusCompleted, ""))

	jobs, err := r.ResumableJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, a.ID, jobs[0].ID)
}

func TestWaitForCompletion_NoBackgroundRun(t *testing.T) {
	st := newTestStore(t)
	r := NewRunner(st)
	assert.True(t, r.WaitForCompletion(time.Millisecond))
}
