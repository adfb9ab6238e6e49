package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <kind> <query>",
	Short: "Full-text search over the catalog",
	Long: `Search the local catalog with ranked full-text matching.

Kind is one of: plants, ingredients, ailments, recipes.

Examples:
  grimoire search plants "yarrow"
  grimoire search ingredients "curcumin"
  grimoire search ailments "fever" --limit 5`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	kind := args[0]
	query := strings.Join(args[1:], " ")

	switch kind {
	case "plants":
		plants, err := st.SearchPlants(ctx, query, searchLimit)
		if err != nil {
			return err
		}
		if len(plants) == 0 {
			fmt.Println("No matches")
			return nil
		}
		for _, p := range plants {
			line := p.Name
			if p.ScientificName != "" && p.ScientificName != p.Name {
				line += " (" + p.ScientificName + ")"
			}
			if p.Family != "" {
				line += " / " + p.Family
			}
			fmt.Println(line)
		}

	case "ingredients":
		ingredients, err := st.SearchIngredients(ctx, query, searchLimit)
		if err != nil {
			return err
		}
		if len(ingredients) == 0 {
			fmt.Println("No matches")
			return nil
		}
		for _, i := range ingredients {
			line := i.Name
			if i.MolecularFormula != "" {
				line += " [" + i.MolecularFormula + "]"
			}
			if i.PubChemCID != "" {
				line += " CID " + i.PubChemCID
			}
			fmt.Println(line)
		}

	case "ailments":
		ailments, err := st.SearchAilments(ctx, query, searchLimit)
		if err != nil {
			return err
		}
		if len(ailments) == 0 {
			fmt.Println("No matches")
			return nil
		}
		for _, a := range ailments {
			line := a.Name
			if a.Category != "" {
				line += " (" + a.Category + ")"
			}
			fmt.Println(line)
		}

	case "recipes":
		recipes, err := st.SearchRecipes(ctx, query, searchLimit)
		if err != nil {
			return err
		}
		if len(recipes) == 0 {
			fmt.Println("No matches")
			return nil
		}
		for _, r := range recipes {
			line := r.Name
			if r.Tradition != "" {
				line += " (" + r.Tradition + ")"
			}
			fmt.Println(line)
		}

	default:
		return fmt.Errorf("unknown kind %q: want plants, ingredients, ailments or recipes", kind)
	}
	return nil
}
