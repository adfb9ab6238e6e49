package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/job"
	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

// NewWork binds a registered source into a runner work function. An
// unknown source fails the job.
func NewWork(st *store.Store, sourceName string, config map[string]any) job.WorkFunc {
	return func(ctx context.Context, jc *job.Context) error {
		s := Get(ctx, sourceName, st, config)
		if s == nil {
			return fmt.Errorf("no scraper registered for source %q", sourceName)
		}
		return runScrape(ctx, jc, st, s, nil)
	}
}

// NewResumeWork is NewWork continuing from a recovered snapshot.
func NewResumeWork(st *store.Store, sourceName string, config map[string]any) job.ResumeFunc {
	return func(ctx context.Context, jc *job.Context, saved map[string]any) error {
		s := Get(ctx, sourceName, st, config)
		if s == nil {
			return fmt.Errorf("no scraper registered for source %q", sourceName)
		}
		return runScrape(ctx, jc, st, s, FromMap(saved))
	}
}

func runScrape(ctx context.Context, jc *job.Context, st *store.Store, s Scraper, resume *Progress) error {
	cb := func(rec Record, prog *Progress) {
		if err := jc.ReportProgress(ctx, prog.Map(), prog.ProcessedItems); err != nil {
			slog.Warn("report progress", "job_id", jc.JobID, "error", err)
		}
		// Relay a runner-level stop into the scraper so the stream
		// winds down between items.
		if jc.ShouldStop() {
			s.RequestStop()
		}
	}

	out := Run(ctx, s, st, resume, cb)
	if out.Err != nil {
		// Persist the final snapshot, fatal entry included, so the
		// journal keeps the recovery point; then fail the job.
		if err := jc.ReportProgress(ctx, out.Progress.Map(), out.Progress.ProcessedItems); err != nil {
			slog.Warn("report final progress", "job_id", jc.JobID, "error", err)
		}
		return fmt.Errorf("scrape %s: %w", s.Name(), out.Err)
	}

	if !jc.ShouldStop() {
		if id := sourceIDByName(ctx, st, s.Name()); id != 0 {
			if err := st.MarkSourceScraped(ctx, id); err != nil {
				slog.Warn("mark source scraped", "source", s.Name(), "error", err)
			}
		}
	}
	return nil
}
