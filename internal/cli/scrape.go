package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/scrape"
	"github.com/nebulai13/witches-herbal-grimmoire/internal/store"
)

var (
	scrapeBackground bool
	scrapeTimeout    time.Duration
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [source]",
	Short: "Scrape a data source into the catalog",
	Long: `Scrape data from a registered source into the local catalog.

Without arguments, lists the available scrapers. A foreground scrape
can be interrupted with Ctrl-C: the job pauses and its progress is
kept for a later "jobs resume".

Examples:
  grimoire scrape
  grimoire scrape "NAEB Datasette"
  grimoire scrape PubChem --background
  grimoire scrape PubChem --timeout 5m`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScrapeCmd,
}

func init() {
	scrapeCmd.Flags().BoolVarP(&scrapeBackground, "background", "b", false, "run the scrape on a background worker")
	scrapeCmd.Flags().DurationVar(&scrapeTimeout, "timeout", 0, "foreground wall-clock budget (0 = GRIMOIRE_SCRAPE_TIMEOUT)")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 0 {
		fmt.Println("Available scrapers:")
		for _, name := range scrape.List() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	sourceName := args[0]
	if !scrape.Has(sourceName) {
		return fmt.Errorf("no scraper available for %q", sourceName)
	}

	j, err := st.CreateJob(ctx, "scrape", map[string]any{"source": sourceName})
	if err != nil {
		return err
	}

	release := runner.InstallSignalHandlers()
	defer release()

	work := scrape.NewWork(st, sourceName, sourceConfig(ctx, sourceName))

	if scrapeBackground {
		if err := runner.Run(ctx, j.ID, work, true); err != nil {
			return err
		}
		fmt.Printf("Started background scrape job %s\n", j.ID)
		return watchJob(ctx, j.ID)
	}

	// The runner has no built-in wall-clock budget; the caller layers
	// one by requesting a cooperative stop when time is up.
	timeout := scrapeTimeout
	if timeout == 0 {
		timeout = cfg.ScrapeTimeout
	}
	if timeout > 0 {
		t := time.AfterFunc(timeout, runner.RequestStop)
		defer t.Stop()
	}

	if err := runner.Run(ctx, j.ID, work, false); err != nil {
		return err
	}
	return printJobOutcome(ctx, j.ID, sourceName)
}

// watchJob waits for the background run, printing status every two
// seconds.
func watchJob(ctx context.Context, jobID string) error {
	for !runner.WaitForCompletion(2 * time.Second) {
		if j, err := st.GetJob(ctx, jobID); err == nil && j != nil {
			fmt.Printf("  %s: %d items\n", j.Status, j.ResultsCount)
		}
	}
	return printJobOutcome(ctx, jobID, "")
}

func printJobOutcome(ctx context.Context, jobID, sourceName string) error {
	j, err := st.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if j == nil {
		return fmt.Errorf("job %s not found", jobID)
	}

	switch j.Status {
	case store.StatusCompleted:
		fmt.Printf("Scraped %d items", j.ResultsCount)
		if sourceName != "" {
			fmt.Printf(" from %s", sourceName)
		}
		fmt.Println()
	case store.StatusPaused:
		fmt.Printf("Scrape paused after %d items; resume with: grimoire jobs resume %s\n", j.ResultsCount, j.ID)
	case store.StatusFailed:
		return fmt.Errorf("scrape failed: %s", j.Error)
	default:
		fmt.Printf("Job %s is %s\n", j.ID, j.Status)
	}
	return nil
}

// sourceConfig resolves the persisted config for a source, layering
// the environment-level overrides under it.
func sourceConfig(ctx context.Context, name string) map[string]any {
	m := map[string]any{}
	if sources, err := st.GetSources(ctx, false); err == nil {
		for _, s := range sources {
			if s.Name == name {
				m = s.ConfigMap()
				break
			}
		}
	}
	if _, ok := m["user_agent"]; !ok && cfg.UserAgent != "" {
		m["user_agent"] = cfg.UserAgent
	}
	if _, ok := m["rate_limit"]; !ok && cfg.RateLimit > 0 {
		m["rate_limit"] = cfg.RateLimit
	}
	return m
}
