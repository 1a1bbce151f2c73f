package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/folio/internal/core/domain"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Index PDF files",
	Long: `Extracts, chunks and embeds up to four PDF files into the local index.

Files are validated before anything is indexed: if any file is not a PDF,
is empty, or more than four files are given, nothing is added.
Ingesting a file again appends a second copy of its passages.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return fmt.Errorf("retrieval %w", errServiceMissing)
	}

	files := make([]domain.UploadedFile, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, path, err)
		}
		files = append(files, domain.UploadedFile{Name: filepath.Base(path), Data: data})
	}

	result, err := retrievalService.Ingest(cmd.Context(), files)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, f := range result.Files {
		cmd.Printf("  %s: %d pages, %d chunks\n", f.Name, f.Pages, f.Chunks)
	}
	cmd.Printf("Indexed %d chunks from %d files.\n", result.IndexedChunks, result.IndexedFiles)
	return nil
}
