package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog row counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := st.Stats(context.Background())
		if err != nil {
			return err
		}
		for _, table := range []string{"plants", "ingredients", "ailments", "recipes", "sources", "jobs"} {
			fmt.Printf("%-12s %d\n", table, stats[table])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
