package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/folio/internal/core/domain"
)

var (
	askTopK     int
	askMinScore float64
	askChatID   string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Ask a question about the indexed documents",
	Long: `Retrieves the passages most similar to the question and generates an
answer from them, listing the document and page of every source.

With --chat the question and answer are saved to that conversation.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (default from settings)")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", 0, "drop passages scoring below this similarity")
	askCmd.Flags().StringVar(&askChatID, "chat", "", "conversation id to record the exchange in")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	opts := retrievalDefaults()
	if cmd.Flags().Changed("top-k") {
		if askTopK <= 0 {
			return fmt.Errorf("%w: --top-k must be positive", domain.ErrInvalidInput)
		}
		opts.K = askTopK
	}
	if cmd.Flags().Changed("min-score") {
		opts.MinScore = askMinScore
	}

	var (
		answer *domain.Answer
		err    error
	)
	if askChatID != "" {
		if conversationService == nil {
			return fmt.Errorf("conversation %w", errServiceMissing)
		}
		answer, err = conversationService.Ask(cmd.Context(), askChatID, currentOwner(), args[0], opts)
	} else {
		if retrievalService == nil {
			return fmt.Errorf("retrieval %w", errServiceMissing)
		}
		answer, err = retrievalService.Answer(cmd.Context(), args[0], opts)
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, answer)
	return nil
}

// printAnswer writes the answer text followed by its numbered sources.
func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)
	if len(answer.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	printSources(cmd, answer.Sources)
}

func printSources(cmd *cobra.Command, sources []domain.SourceAttribution) {
	for i, s := range sources {
		// Format: [N] document, page P (score)
		cmd.Printf("  [%d] %s, page %d (%.2f)\n", i+1, s.Document, s.Page, s.Score)
		if s.Snippet != "" {
			cmd.Printf("      %s\n", s.Snippet)
		}
	}
}
