package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/folio/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage conversations",
	Long: `Create, list, show, rename and delete conversations.
Ask within a conversation with 'folio ask --chat ID QUESTION'.`,
}

var chatNewCmd = &cobra.Command{
	Use:   "new [TITLE...]",
	Short: "Start a new conversation",
	Long: `Starts a new conversation. Without a title it is named after its
first question.`,
	RunE: runChatNew,
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runChatList,
}

var chatShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a conversation with its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatShow,
}

var chatRenameCmd = &cobra.Command{
	Use:   "rename ID TITLE",
	Short: "Rename a conversation",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runChatRename,
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatDelete,
}

var chatDeleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete all of your conversations",
	Args:  cobra.NoArgs,
	RunE:  runChatDeleteAll,
}

var (
	chatSkip      int
	chatLimit     int
	chatJSON      bool
	chatDeleteYes bool
)

func init() {
	chatListCmd.Flags().IntVar(&chatSkip, "skip", 0, "number of conversations to skip")
	chatListCmd.Flags().IntVar(&chatLimit, "limit", 20, "maximum number of conversations (0 = all)")
	chatListCmd.Flags().BoolVar(&chatJSON, "json", false, "output as JSON")
	chatDeleteAllCmd.Flags().BoolVar(&chatDeleteYes, "yes", false, "confirm deletion")

	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatShowCmd)
	chatCmd.AddCommand(chatRenameCmd)
	chatCmd.AddCommand(chatDeleteCmd)
	chatCmd.AddCommand(chatDeleteAllCmd)
	rootCmd.AddCommand(chatCmd)
}

func requireConversations() error {
	if conversationService == nil {
		return fmt.Errorf("conversation %w", errServiceMissing)
	}
	return nil
}

func runChatNew(cmd *cobra.Command, args []string) error {
	if err := requireConversations(); err != nil {
		return err
	}

	conv, err := conversationService.Create(cmd.Context(), currentOwner(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	cmd.Printf("Created conversation %s\n", conv.ID)
	cmd.Printf("Ask with: folio ask --chat %s \"your question\"\n", conv.ID)
	return nil
}

func runChatList(cmd *cobra.Command, _ []string) error {
	if err := requireConversations(); err != nil {
		return err
	}

	summaries, err := conversationService.List(cmd.Context(), currentOwner(),
		domain.ListOptions{Offset: chatSkip, Limit: chatLimit})
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if chatJSON {
		return outputConversationsJSON(cmd, summaries)
	}

	if len(summaries) == 0 {
		cmd.Println("No conversations.")
		return nil
	}

	for i := range summaries {
		s := &summaries[i]
		cmd.Printf("  %s  %s (%d messages, %s)\n",
			s.ID, s.Title, s.MessageCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		if s.LastMessage != "" {
			cmd.Printf("      %s\n", s.LastMessage)
		}
	}
	return nil
}

type conversationJSON struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
	LastMessage  string `json:"last_message,omitempty"`
}

func outputConversationsJSON(cmd *cobra.Command, summaries []domain.ConversationSummary) error {
	out := make([]conversationJSON, 0, len(summaries))
	for i := range summaries {
		s := &summaries[i]
		out = append(out, conversationJSON{
			ID:           s.ID,
			Title:        s.Title,
			CreatedAt:    s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			UpdatedAt:    s.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			MessageCount: s.MessageCount,
			LastMessage:  s.LastMessage,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func runChatShow(cmd *cobra.Command, args []string) error {
	if err := requireConversations(); err != nil {
		return err
	}

	conv, err := conversationService.Get(cmd.Context(), args[0], currentOwner())
	if err != nil {
		return fmt.Errorf("failed to get conversation: %w", err)
	}

	cmd.Printf("Conversation: %s\n", conv.Title)
	cmd.Printf("ID: %s\n", conv.ID)
	cmd.Printf("Messages: %d\n", conv.MessageCount)
	cmd.Println()

	for _, msg := range conv.Messages {
		switch m := msg.(type) {
		case domain.UserMessage:
			cmd.Printf("You: %s\n", m.Text)
		case domain.AssistantMessage:
			cmd.Printf("Folio: %s\n", m.Text)
			printSources(cmd, m.Sources)
		}
		cmd.Println()
	}
	return nil
}

func runChatRename(cmd *cobra.Command, args []string) error {
	if err := requireConversations(); err != nil {
		return err
	}

	title := strings.Join(args[1:], " ")
	if err := conversationService.Rename(cmd.Context(), args[0], currentOwner(), title); err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}

	cmd.Printf("Renamed conversation %s.\n", args[0])
	return nil
}

func runChatDelete(cmd *cobra.Command, args []string) error {
	if err := requireConversations(); err != nil {
		return err
	}

	if err := conversationService.Delete(cmd.Context(), args[0], currentOwner()); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	cmd.Printf("Deleted conversation %s.\n", args[0])
	return nil
}

func runChatDeleteAll(cmd *cobra.Command, _ []string) error {
	if err := requireConversations(); err != nil {
		return err
	}
	if !chatDeleteYes {
		return fmt.Errorf("%w: pass --yes to delete all conversations", domain.ErrInvalidInput)
	}

	n, err := conversationService.DeleteAll(cmd.Context(), currentOwner())
	if err != nil {
		return fmt.Errorf("failed to delete conversations: %w", err)
	}

	cmd.Printf("Deleted %d conversations.\n", n)
	return nil
}
