package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

// Journal reads a job's event log: checkpoints, recovery points,
// timelines and summaries. The runner is the only writer.
type Journal struct {
	store *store.Store
}

func NewJournal(st *store.Store) *Journal {
	return &Journal{store: st}
}

// Log appends one event outside the runner's own lifecycle writes.
func (j *Journal) Log(ctx context.Context, eventType string, data map[string]any, jobID string) error {
	return j.store.JournalEvent(ctx, eventType, data, jobID)
}

// LastCheckpoint returns the payload of the most recent progress event,
// or nil when the job has never reported progress.
func (j *Journal) LastCheckpoint(ctx context.Context, jobID string) (map[string]any, error) {
	events, err := j.store.GetJournal(ctx, jobID, 50)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if e.EventType != EventProgress {
			continue
		}
		if m := decodeEvent(e); m != nil {
			return m, nil
		}
	}
	return nil, nil
}

// RecoveryPoint returns the progress state a resumed job should
// continue from: the payload of the most recent progress, paused or
// resume event. A resume event wraps the pre-resume snapshot under
// "from_progress"; the nested snapshot is returned, not the wrapper.
func (j *Journal) RecoveryPoint(ctx context.Context, jobID string) (map[string]any, error) {
	events, err := j.store.GetJournal(ctx, jobID, 100)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		switch e.EventType {
		case EventProgress, EventPaused, EventResume:
		default:
			continue
		}
		m := decodeEvent(e)
		if m == nil {
			continue
		}
		if raw, ok := m["from_progress"]; ok {
			if nested, ok := raw.(map[string]any); ok {
				return nested, nil
			}
			continue
		}
		return m, nil
	}
	return nil, nil
}

// TimelineEntry is one journal event prepared for display.
type TimelineEntry struct {
	Time  time.Time      `json:"time"`
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// Timeline returns a job's events oldest-first, up to 1000. Malformed
// payloads degrade to an empty map instead of failing the call.
func (j *Journal) Timeline(ctx context.Context, jobID string) ([]TimelineEntry, error) {
	events, err := j.store.GetJournal(ctx, jobID, 1000)
	if err != nil {
		return nil, err
	}
	timeline := make([]TimelineEntry, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		timeline = append(timeline, TimelineEntry{
			Time:  e.CreatedAt,
			Event: e.EventType,
			Data:  e.DataMap(),
		})
	}
	return timeline, nil
}

// Summary aggregates a job's journal history.
type Summary struct {
	JobID       string         `json:"job_id"`
	Status      store.Status   `json:"status"`
	TotalEvents int            `json:"total_events"`
	Errors      []string       `json:"errors,omitempty"`
	Interrupts  int            `json:"interrupts"`
	Resumes     int            `json:"resumes"`
	Duration    *time.Duration `json:"duration,omitempty"`
}

// Summarize aggregates event counts, error messages and the run
// duration from the first start event to the last terminal event.
// Duration is nil unless both endpoints exist.
func (j *Journal) Summarize(ctx context.Context, jobID string) (*Summary, error) {
	events, err := j.store.GetJournal(ctx, jobID, 1000)
	if err != nil {
		return nil, err
	}
	jb, err := j.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{JobID: jobID, Status: "unknown", TotalEvents: len(events)}
	if jb != nil {
		summary.Status = jb.Status
	}

	var startTime, endTime *time.Time
	// Events arrive newest-first; walk oldest-first so "first start"
	// and "last terminal" fall out naturally.
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		switch e.EventType {
		case EventStart:
			if startTime == nil {
				t := e.CreatedAt
				startTime = &t
			}
		case EventComplete, EventPaused:
			t := e.CreatedAt
			endTime = &t
		case EventError:
			t := e.CreatedAt
			endTime = &t
			msg := "Unknown error"
			if m := decodeEvent(e); m != nil {
				if s, ok := m["error"].(string); ok && s != "" {
					msg = s
				}
			}
			summary.Errors = append(summary.Errors, msg)
		case EventInterrupt:
			summary.Interrupts++
		case EventResume:
			summary.Resumes++
		}
	}

	if startTime != nil && endTime != nil {
		d := endTime.Sub(*startTime)
		summary.Duration = &d
	}
	return summary, nil
}

// ClearOldEntries trims journal rows older than the given number of
// days. Administrative; never part of job execution.
func (j *Journal) ClearOldEntries(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	return j.store.DeleteJournalBefore(ctx, cutoff)
}

// decodeEvent parses an event payload, returning nil for absent or
// malformed data so scans can skip past it.
func decodeEvent(e *store.Event) map[string]any {
	if len(e.EventData) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(e.EventData, &m); err != nil {
		return nil
	}
	return m
}
