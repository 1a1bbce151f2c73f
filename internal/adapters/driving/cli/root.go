// Package cli implements the folio command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
	"github.com/custodia-labs/folio/internal/logger"
)

// version is set at build time via ldflags or by SetVersion.
var version = "dev"

// Global flags.
var (
	verbose   bool
	ephemeral bool
	ownerFlag string
)

// Services used by commands. Set once by main through SetServices.
var (
	retrievalService    driving.RetrievalService
	conversationService driving.ConversationService
	settingsService     driving.SettingsService
)

// errServiceMissing is returned when a command runs without its service wired.
var errServiceMissing = errors.New("service not configured")

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Ask questions about your PDF documents",
	Long: `Folio indexes PDF documents locally and answers questions about them,
citing the document and page each answer came from.

Get started:
  folio settings wizard        configure embedding and LLM providers
  folio ingest report.pdf      index up to four PDFs at a time
  folio ask "What changed?"    ask a question
  folio chat new               start a conversation that keeps history`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline diagnostics to stderr")
	rootCmd.PersistentFlags().StringVarP(&ownerFlag, "user", "u", "",
		"conversation owner (default: user.id from config, else the OS user)")
	// Read by main before the command runs; registered here so cobra accepts it.
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false,
		"keep the index and conversations in memory for this run only")
}

// Services groups the driving ports the commands call.
type Services struct {
	Retrieval    driving.RetrievalService
	Conversation driving.ConversationService
	Settings     driving.SettingsService
}

// SetServices injects the services used by commands.
func SetServices(s Services) {
	retrievalService = s.Retrieval
	conversationService = s.Conversation
	settingsService = s.Settings
}

// SetVersion sets the version reported by 'folio version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and prints any error with its hint to stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

// printError writes err and the remedy for its class.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := domain.Classify(err).Hint(); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

// currentOwner resolves the conversation owner for this invocation.
func currentOwner() string {
	if owner := strings.TrimSpace(ownerFlag); owner != "" {
		return owner
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil && settings.UserID != "" {
			return settings.UserID
		}
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}

// retrievalDefaults returns the configured retrieval options, or the
// built-in defaults when settings are unavailable.
func retrievalDefaults() domain.RetrievalOptions {
	opts := domain.RetrievalOptions{K: domain.DefaultTopK}
	if settingsService == nil {
		return opts
	}
	settings, err := settingsService.Get()
	if err != nil {
		logger.Warn("Could not read settings: %v", err)
		return opts
	}
	opts.K = settings.Retrieval.TopK
	opts.MinScore = settings.Retrieval.MinScore
	return opts
}
