package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/folio/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or reset the document index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every indexed passage",
	Long: `Removes every passage from the index. Required after changing the
embedding model, since vectors from different models cannot be compared.`,
	Args: cobra.NoArgs,
	RunE: runIndexClear,
}

var (
	indexJSON     bool
	indexClearYes bool
)

func init() {
	indexStatsCmd.Flags().BoolVar(&indexJSON, "json", false, "output as JSON")
	indexClearCmd.Flags().BoolVar(&indexClearYes, "yes", false, "confirm clearing the index")

	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexClearCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return fmt.Errorf("retrieval %w", errServiceMissing)
	}

	info, err := retrievalService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	if indexJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if info.IsEmpty() {
		cmd.Println("Index is empty. Add documents with 'folio ingest FILE...'.")
		return nil
	}

	cmd.Printf("Documents:  %d\n", info.Documents)
	cmd.Printf("Passages:   %d\n", info.Entries)
	cmd.Printf("Model:      %s\n", info.Model)
	cmd.Printf("Dimensions: %d\n", info.Dimensions)
	return nil
}

func runIndexClear(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return fmt.Errorf("retrieval %w", errServiceMissing)
	}
	if !indexClearYes {
		return fmt.Errorf("%w: pass --yes to clear the index", domain.ErrInvalidInput)
	}

	if err := retrievalService.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	cmd.Println("Index cleared.")
	return nil
}
