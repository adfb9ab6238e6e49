// Package job is the background job core: a single-job runner with
// cooperative cancellation and an append-only journal for crash and
// interrupt recovery.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

// Journal event types, in the order they appear in a job's lifetime.
const (
	EventStart     = "start"
	EventProgress  = "progress"
	EventPaused    = "paused"
	EventResume    = "resume"
	EventComplete  = "complete"
	EventError     = "error"
	EventInterrupt = "interrupt_requested"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrNotResumable = errors.New("job is not in a resumable state")
)

// WorkFunc is one unit of work. A non-nil error marks the job failed;
// a nil return completes the job, or pauses it if a stop was requested
// during execution.
type WorkFunc func(ctx context.Context, jc *Context) error

// ResumeFunc is a unit of work that continues from a recovered
// progress snapshot.
type ResumeFunc func(ctx context.Context, jc *Context, saved map[string]any) error

// Context is handed to a WorkFunc and is its only channel back to the
// runner: progress reporting and stop polling.
type Context struct {
	JobID  string
	Store  *store.Store
	runner *Runner
}

// ReportProgress persists a progress snapshot twice: on the job row
// (display) and as a journal event (recovery), in that order. A
// negative resultsCount leaves the job's count unchanged.
func (jc *Context) ReportProgress(ctx context.Context, progress map[string]any, resultsCount int) error {
	if err := jc.Store.UpdateJobProgress(ctx, jc.JobID, progress, resultsCount); err != nil {
		return err
	}
	return jc.Store.JournalEvent(ctx, EventProgress, progress, jc.JobID)
}

// ShouldStop reports whether a stop has been requested. Work functions
// must poll this between items and return early when it turns true.
func (jc *Context) ShouldStop() bool {
	return jc.runner.ShouldStop()
}

// Runner executes at most one job at a time, either on the caller's
// goroutine or on a supervised background goroutine.
type Runner struct {
	store *store.Store

	mu            sync.Mutex
	currentJobID  string
	stopRequested bool
	done          chan struct{}
}

func NewRunner(st *store.Store) *Runner {
	return &Runner{store: st}
}

// Run transitions the job to running and invokes fn. In foreground
// mode it blocks until fn returns and the terminal status is
// persisted. In background mode it returns immediately; callers poll
// the job row or WaitForCompletion. The returned error covers store
// failures only; a failing work function is recorded on the job, not
// propagated.
func (r *Runner) Run(ctx context.Context, jobID string, fn WorkFunc, background bool) error {
	if !background {
		return r.execute(ctx, jobID, fn)
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		if err := r.execute(ctx, jobID, fn); err != nil {
			slog.Error("background job", "job_id", jobID, "error", err)
		}
	}()
	return nil
}

func (r *Runner) execute(ctx context.Context, jobID string, fn WorkFunc) error {
	r.mu.Lock()
	r.currentJobID = jobID
	r.stopRequested = false
	r.mu.Unlock()

	// The current-job marker must clear on every path, including store
	// write failures.
	defer func() {
		r.mu.Lock()
		r.currentJobID = ""
		r.mu.Unlock()
	}()

	if err := r.store.UpdateJobStatus(ctx, jobID, store.StatusRunning, ""); err != nil {
		return err
	}
	if err := r.store.JournalEvent(ctx, EventStart, stamp(nil), jobID); err != nil {
		return err
	}

	workErr := fn(ctx, &Context{JobID: jobID, Store: r.store, runner: r})

	switch {
	case workErr != nil:
		if err := r.store.UpdateJobStatus(ctx, jobID, store.StatusFailed, workErr.Error()); err != nil {
			return err
		}
		return r.store.JournalEvent(ctx, EventError, stamp(map[string]any{"error": workErr.Error()}), jobID)
	case r.ShouldStop():
		if err := r.store.UpdateJobStatus(ctx, jobID, store.StatusPaused, ""); err != nil {
			return err
		}
		return r.store.JournalEvent(ctx, EventPaused, stamp(map[string]any{"reason": "interrupt"}), jobID)
	default:
		if err := r.store.UpdateJobStatus(ctx, jobID, store.StatusCompleted, ""); err != nil {
			return err
		}
		return r.store.JournalEvent(ctx, EventComplete, stamp(nil), jobID)
	}
}

// Resume re-runs a paused (or never-started) job from its last
// persisted progress snapshot. Jobs in any other state are rejected
// with no state change.
func (r *Runner) Resume(ctx context.Context, jobID string, fn ResumeFunc, background bool) error {
	j, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if j == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if !j.Status.IsResumable() {
		return fmt.Errorf("%w: %s has status %s", ErrNotResumable, jobID, j.Status)
	}

	saved := j.ProgressMap()
	if err := r.store.JournalEvent(ctx, EventResume, stamp(map[string]any{"from_progress": saved}), jobID); err != nil {
		return err
	}

	return r.Run(ctx, jobID, func(ctx context.Context, jc *Context) error {
		return fn(ctx, jc, saved)
	}, background)
}

// RequestStop sets the stop flag and, when a job is currently running,
// journals an interrupt marker against it. Safe to call from any
// goroutine, any number of times.
func (r *Runner) RequestStop() {
	r.mu.Lock()
	r.stopRequested = true
	jobID := r.currentJobID
	r.mu.Unlock()

	if jobID != "" {
		if err := r.store.JournalEvent(context.Background(), EventInterrupt, map[string]any{"reason": "user_interrupt"}, jobID); err != nil {
			slog.Warn("journal interrupt", "job_id", jobID, "error", err)
		}
	}
}

// ShouldStop reads the stop flag. The runner never terminates a work
// function itself; stopping is cooperative.
func (r *Runner) ShouldStop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopRequested
}

// InstallSignalHandlers routes SIGINT/SIGTERM to RequestStop. The
// returned release func detaches the handler.
func (r *Runner) InstallSignalHandlers() (release func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range ch {
			r.RequestStop()
		}
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}

// WaitForCompletion blocks until the last background run finishes, or
// the timeout elapses. A non-positive timeout waits forever. Returns
// whether the run finished.
func (r *Runner) WaitForCompletion(timeout time.Duration) bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return true
	}
	if timeout <= 0 {
		<-done
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ResumableJobs returns all jobs currently paused.
func (r *Runner) ResumableJobs(ctx context.Context) ([]*store.Job, error) {
	return r.store.GetJobs(ctx, store.StatusPaused)
}

// stamp adds the event timestamp the payloads carry for display.
func stamp(data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return data
}
