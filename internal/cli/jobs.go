package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nebulai13/witches-herbal-grimmoire/internal/scrape"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage background jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		jobs, err := st.GetJobs(ctx, "")
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs found")
			return nil
		}

		fmt.Printf("%-36s %-8s %-10s %-8s %s\n", "ID", "TYPE", "STATUS", "ITEMS", "CREATED")
		for _, j := range jobs {
			fmt.Printf("%-36s %-8s %-10s %-8d %s\n",
				j.ID, j.JobType, j.Status, j.ResultsCount, j.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a job's state and journal summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		j, err := st.GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		if j == nil {
			return fmt.Errorf("job %s not found", args[0])
		}

		fmt.Printf("Job: %s\n", j.ID)
		fmt.Printf("  Type: %s\n", j.JobType)
		fmt.Printf("  Status: %s\n", j.Status)
		fmt.Printf("  Items: %d\n", j.ResultsCount)
		if j.StartedAt != nil {
			fmt.Printf("  Started: %s\n", j.StartedAt.Format(time.RFC3339))
		}
		if j.CompletedAt != nil {
			fmt.Printf("  Completed: %s\n", j.CompletedAt.Format(time.RFC3339))
		}
		if j.Error != "" {
			fmt.Printf("  Error: %s\n", j.Error)
		}

		summary, err := journal.Summarize(ctx, j.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\nJournal: %d events, %d interrupts, %d resumes\n",
			summary.TotalEvents, summary.Interrupts, summary.Resumes)
		if summary.Duration != nil {
			fmt.Printf("  Duration: %s\n", summary.Duration.Round(time.Second))
		}
		for _, e := range summary.Errors {
			fmt.Printf("  Error: %s\n", e)
		}
		return nil
	},
}

var jobsTimelineCmd = &cobra.Command{
	Use:   "timeline <job-id>",
	Short: "Show a job's full event timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		timeline, err := journal.Timeline(ctx, args[0])
		if err != nil {
			return err
		}
		if len(timeline) == 0 {
			fmt.Println("No journal entries")
			return nil
		}
		for _, entry := range timeline {
			fmt.Printf("%s  %-20s", entry.Time.Format("2006-01-02 15:04:05"), entry.Event)
			if len(entry.Data) > 0 {
				if msg, ok := entry.Data["error"].(string); ok {
					fmt.Printf("  %s", msg)
				} else if n, ok := entry.Data["processed_items"]; ok {
					fmt.Printf("  processed=%v", n)
				}
			}
			fmt.Println()
		}
		return nil
	},
}

var jobsResumeBackground bool

var jobsResumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a paused scrape from its last progress",
	Long: `Resume a paused scrape job from its last recorded progress.
Without a job id, lists the jobs that can be resumed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if len(args) == 0 {
			jobs, err := runner.ResumableJobs(ctx)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("No resumable jobs")
				return nil
			}
			fmt.Println("Resumable jobs:")
			for _, j := range jobs {
				source, _ := j.QueryMap()["source"].(string)
				fmt.Printf("  %s  %s (%d items so far)\n", j.ID, source, j.ResultsCount)
			}
			return nil
		}

		jobID := args[0]
		j, err := st.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j == nil {
			return fmt.Errorf("job %s not found", jobID)
		}
		sourceName, _ := j.QueryMap()["source"].(string)
		if sourceName == "" {
			return fmt.Errorf("cannot determine source for job %s", jobID)
		}

		release := runner.InstallSignalHandlers()
		defer release()

		fn := scrape.NewResumeWork(st, sourceName, sourceConfig(ctx, sourceName))
		if jobsResumeBackground {
			if err := runner.Resume(ctx, jobID, fn, true); err != nil {
				return err
			}
			fmt.Printf("Resumed job %s in background\n", jobID)
			return watchJob(ctx, jobID)
		}
		if err := runner.Resume(ctx, jobID, fn, false); err != nil {
			return err
		}
		return printJobOutcome(ctx, jobID, sourceName)
	},
}

var jobsTrimDays int

var jobsTrimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Delete journal entries older than --days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := journal.ClearOldEntries(context.Background(), jobsTrimDays)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d journal entries older than %d days\n", n, jobsTrimDays)
		return nil
	},
}

var jobsResultsCmd = &cobra.Command{
	Use:   "results <job-id>",
	Short: "Show a job's stored results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := st.GetJobResults(context.Background(), args[0], 100)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results")
			return nil
		}
		for _, r := range results {
			fmt.Printf("%s  %-12s %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.ResultType, string(r.ResultData))
		}
		return nil
	},
}

func init() {
	jobsResumeCmd.Flags().BoolVarP(&jobsResumeBackground, "background", "b", false, "resume on a background worker")
	jobsTrimCmd.Flags().IntVar(&jobsTrimDays, "days", 30, "retention window in days")

	jobsCmd.AddCommand(jobsListCmd, jobsStatusCmd, jobsTimelineCmd, jobsResumeCmd, jobsResultsCmd, jobsTrimCmd)
	rootCmd.AddCommand(jobsCmd)
}
