package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage the data source catalog",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog sources by priority",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := st.GetSources(context.Background(), false)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("No sources configured")
			return nil
		}

		fmt.Printf("%-4s %-24s %-10s %-8s %-8s %s\n", "ID", "NAME", "TYPE", "PRIO", "ENABLED", "LAST SCRAPED")
		for _, s := range sources {
			last := "never"
			if s.LastScraped != nil {
				last = s.LastScraped.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-4d %-24s %-10s %-8d %-8t %s\n", s.ID, s.Name, s.SourceType, s.Priority, s.Enabled, last)
		}
		return nil
	},
}

var (
	sourceType     string
	sourcePriority int
)

var sourcesAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a source to the catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := st.AddSource(context.Background(), args[0], args[1], sourceType, sourcePriority, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Added source %d: %s\n", id, args[0])
		return nil
	},
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source id %q", args[0])
		}
		if err := st.EnableSource(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("Enabled source %d\n", id)
		return nil
	},
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source id %q", args[0])
		}
		if err := st.DisableSource(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("Disabled source %d\n", id)
		return nil
	},
}

func init() {
	sourcesAddCmd.Flags().StringVar(&sourceType, "type", "api", "source type tag")
	sourcesAddCmd.Flags().IntVar(&sourcePriority, "priority", 50, "source priority (higher scrapes first)")

	sourcesCmd.AddCommand(sourcesListCmd, sourcesAddCmd, sourcesEnableCmd, sourcesDisableCmd)
	rootCmd.AddCommand(sourcesCmd)
}
