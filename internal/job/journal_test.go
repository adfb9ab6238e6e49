package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

func TestLastCheckpoint(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	jn := NewJournal(st)

	j, _ := st.CreateJob(ctx, "scrape", nil)

	// No progress yet.
	cp, err := jn.LastCheckpoint(ctx, j.ID)
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, jn.Log(ctx, EventStart, nil, j.ID))
	require.NoError(t, jn.Log(ctx, EventProgress, map[string]any{"processed_items": 5}, j.ID))
	require.NoError(t, jn.Log(ctx, EventProgress, map[string]any{"processed_items": 12}, j.ID))

	cp, err = jn.LastCheckpoint(ctx, j.ID)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, float64(12), cp["processed_items"])
}

func TestRecoveryPoint_PrefersNewest(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	jn := NewJournal(st)

	j, _ := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, jn.Log(ctx, EventProgress, map[string]any{"processed_items": 5}, j.ID))
	require.NoError(t, jn.Log(ctx, EventPaused, map[string]any{"processed_items": 9, "reason": "interrupt"}, j.ID))

	rp, err := jn.RecoveryPoint(ctx, j.ID)
	require.NoError(t, err)
	require.NotNil(t, rp)
	assert.Equal(t, float64(9), rp["processed_items"])
}

func TestRecoveryPoint_UnwrapsResume(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	jn := NewJournal(st)

	j, _ := st.CreateJob(ctx, "scrape", nil)
	snapshot := map[string]any{"processed_items": 30, "current_page": 4}
	require.NoError(t, jn.Log(ctx, EventResume, map[string]any{"from_progress": snapshot}, j.ID))

	rp, err := jn.RecoveryPoint(ctx, j.ID)
	require.NoError(t, err)
	require.NotNil(t, rp)
	// The nested snapshot comes back, not the wrapper.
	assert.Equal(t, float64(30), rp["processed_items"])
	assert.Equal(t, float64(4), rp["current_page"])
	assert.NotContains(t, rp, "from_progress")
}

func TestRecoveryPoint_NoHistory(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	jn := NewJournal(st)

	rp, err := jn.RecoveryPoint(ctx, "unknown-job")
	require.NoError(t, err)
	assert.Nil(t, rp)
}

func TestTimeline_OldestFirst(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	jn := NewJournal(st)

	j, _ := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, jn.Log(ctx, EventStart, nil, j.ID))
	require.NoError(t, jn.Log(ctx, EventProgress, map[string]any{"processed_items": 1}, j.ID))
	require.NoError(t, jn.Log(ctx, EventComplete, nil, j.ID))

	timeline, err := jn.Timeline(ctx, j.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	assert.Equal(t, EventStart, timeline[0].Event)
	assert.Equal(t, EventProgress, timeline[1].Event)
	assert.Equal(t, EventComplete, timeline[2].Event)
	assert.Equal(t, float64(1), timeline[1].Data["processed_items"])
	// Events without a payload degrade to an empty map.
	assert.NotNil(t, timeline[2].Data)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	r := NewRunner(st)
	jn := NewJournal(st)

	j, _ := st.CreateJob(ctx, "scrape", nil)

	// First run fails, then the job is paused manually and resumed to
	// completion; the summary counts it all.
	require.NoError(t, jn.Log(ctx, EventStart, nil, j.ID))
	require.NoError(t, jn.Log(ctx, EventError, map[string]any{"error": "timeout talking to provider"}, j.ID))
	require.NoError(t, st.UpdateJobStatus(ctx, j.ID, store.StatusPaused, ""))

	require.NoError(t, r.Resume(ctx, j.ID, func(ctx context.Context, jc *Context, saved map[string]any) error {
		return nil
	}, false))

	summary, err := jn.Summarize(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, summary.JobID)
	assert.Equal(t, store.StatusCompleted, summary.Status)
	assert.Equal(t, 5, summary.TotalEvents)
	assert.Equal(t, 1, summary.Resumes)
	assert.Equal(t, 0, summary.Interrupts)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "timeout talking to provider", summary.Errors[0])
	require.NotNil(t, summary.Duration)
	assert.GreaterOrEqual(t, *summary.Duration, time.Duration(0))
}

func TestSummarize_ErrorWithoutMessage(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	jn := NewJournal(st)

	j, _ := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, jn.Log(ctx, EventError, nil, j.ID))

	summary, err := jn.Summarize(ctx, j.ID)
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "Unknown error", summary.Errors[0])
	assert.Nil(t, summary.Duration, "no start event, no duration")
}

func TestClearOldEntries(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	jn := NewJournal(st)

	j, _ := st.CreateJob(ctx, "scrape", nil)
	require.NoError(t, jn.Log(ctx, EventStart, nil, j.ID))

	// Everything is newer than the 30-day cutoff.
	n, err := jn.ClearOldEntries(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, n)

	// A negative retention window pushes the cutoff into the future.
	n, err = jn.ClearOldEntries(ctx, -1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
