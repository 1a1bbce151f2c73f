// Command folio answers questions about local PDF documents.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/custodia-labs/folio/internal/adapters/driven/ai"
	"github.com/custodia-labs/folio/internal/adapters/driven/config/file"
	"github.com/custodia-labs/folio/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/folio/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/folio/internal/adapters/driven/tokenizer/tiktoken"
	"github.com/custodia-labs/folio/internal/adapters/driving/cli"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/core/services"
	"github.com/custodia-labs/folio/internal/logger"
	"github.com/custodia-labs/folio/internal/normalisers/pdf"
	"github.com/custodia-labs/folio/internal/postprocessors/chunker"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Diagnostics from wiring go through the logger, which --verbose
	// enables only once the command runs.
	if flagRequested(os.Args[1:], "-v", "--verbose") {
		logger.SetVerbose(true)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		logger.Error("getting home directory: %v", err)
		return err
	}
	baseDir := filepath.Join(home, ".folio")
	if dir := os.Getenv("FOLIO_HOME"); dir != "" {
		baseDir = dir
	}

	var (
		index         driven.VectorIndex
		conversations driven.ConversationStore
	)
	if flagRequested(os.Args[1:], "--ephemeral") {
		logger.Info("Using in-memory storage")
		index = memory.NewVectorIndex()
		conversations = memory.NewConversationStore()
	} else {
		store, err := sqlite.NewStore(filepath.Join(baseDir, "data"))
		if err != nil {
			logger.Error("opening store: %v", err)
			return err
		}
		defer store.Close()

		index, err = store.VectorIndex(ctx)
		if err != nil {
			logger.Error("loading vector index: %v", err)
			return err
		}
		conversations = store.ConversationStore()
	}

	configStore, err := file.NewConfigStore(baseDir)
	if err != nil {
		logger.Error("loading config: %v", err)
		return err
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator(ai.WithIndex(index)))

	settings, err := settingsService.Get()
	if err != nil {
		logger.Warn("reading settings, using defaults: %v", err)
		defaults := settingsService.GetDefaults()
		settings = &defaults
	}

	prompts, err := file.NewPromptStore(filepath.Join(baseDir, "prompts"))
	if err != nil {
		logger.Error("opening prompts: %v", err)
		return err
	}

	aiServices := createAIServices(settings)
	defer aiServices.Close()

	r := settings.Retrieval
	chunks := chunker.New(chunker.WithChunkSize(r.ChunkSize), chunker.WithOverlap(r.ChunkOverlap))
	logger.Debug("%s: %d characters per chunk, %d overlap", chunks.Name(), chunks.ChunkSize(), chunks.Overlap())

	pipeline := services.NewRetrievalPipeline(
		pdf.New(),
		chunks,
		aiServices.Embedding,
		index,
		aiServices.LLM,
		services.WithPromptStore(prompts),
		services.WithTokenCounter(tokenCounter()),
		services.WithMaxContextTokens(r.MaxContextTokens),
	)
	conversationService := services.NewConversationService(conversations, pipeline)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Retrieval:    pipeline,
		Conversation: conversationService,
		Settings:     settingsService,
	})

	return cli.Execute(ctx)
}

// createAIServices builds the configured providers. A provider that is not
// configured or fails to build is left nil, and operations needing it
// report it as unavailable.
func createAIServices(settings *domain.AppSettings) *ai.Services {
	svcs := &ai.Services{}

	if settings.Embedding.IsConfigured() {
		embedder, err := ai.CreateEmbeddingService(&settings.Embedding, ai.EmbeddingOptions{})
		if err != nil {
			logger.Warn("embedding provider unavailable: %v", err)
		} else {
			logger.Debug("Embedding with %s, at most %g requests/s",
				embedder.ModelName(), settings.Embedding.RequestsPerSecond())
			svcs.Embedding = embedder
		}
	}

	if settings.LLM.IsConfigured() {
		llm, err := ai.CreateLLMService(&settings.LLM)
		if err != nil {
			logger.Warn("LLM provider unavailable: %v", err)
		} else {
			svcs.LLM = llm
		}
	}

	return svcs
}

// tokenCounter loads the exact BPE encoding, falling back to an estimate offline.
func tokenCounter() driven.TokenCounter {
	counter, err := tiktoken.New(tiktoken.DefaultEncoding)
	if err != nil {
		logger.Warn("%v, estimating token counts", err)
		return tiktoken.Approximate()
	}
	return counter
}

// flagRequested reports whether any of names appears before a "--" terminator.
func flagRequested(args []string, names ...string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if slices.Contains(names, arg) {
			return true
		}
	}
	return false
}
