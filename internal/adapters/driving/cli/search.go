package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/folio/internal/core/domain"
)

var (
	searchLimit    int
	searchMinScore float64
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Show the passages most similar to a query",
	Long: `Ranks indexed passages by cosine similarity to the query without
generating an answer. Useful for checking what 'ask' will see.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of passages (default from settings)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "drop passages scoring below this similarity")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return fmt.Errorf("retrieval %w", errServiceMissing)
	}

	opts := retrievalDefaults()
	if searchLimit > 0 {
		opts.K = searchLimit
	}
	if cmd.Flags().Changed("min-score") {
		opts.MinScore = searchMinScore
	}

	results, err := retrievalService.Retrieve(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	if len(results) == 0 {
		cmd.Println("No passages found.")
		return nil
	}
	printSources(cmd, results)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SourceAttribution) error {
	if results == nil {
		results = []domain.SourceAttribution{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
