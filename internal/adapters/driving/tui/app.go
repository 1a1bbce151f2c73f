package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/folio/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/views/conversations"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	// conversationsView lists the owner's conversations.
	conversationsView *conversations.View

	// chatView shows the open conversation.
	chatView *chat.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// previousView is where esc returns to from help.
	previousView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has received its first window size.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingConversationService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:             ports,
		ctx:               context.Background(),
		styles:            s,
		keymap:            km,
		conversationsView: conversations.NewView(s, km, ports.Conversation, ports.Retrieval, ports.Owner),
		chatView:          chat.NewView(s, km, ports.Conversation, ports.Owner, ports.Options),
		currentView:       messages.ViewConversations,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.conversationsView.WithContext(ctx)
	a.chatView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("folio"),
		a.conversationsView.Init(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.conversationsView.SetDimensions(msg.Width, msg.Height)
		a.chatView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewConversations:
			a.conversationsView, cmd = a.conversationsView.Update(msg)
		case messages.ViewChat:
			a.chatView, cmd = a.chatView.Update(msg)
		case messages.ViewHelp:
			if keymap.Matches(msg.String(), a.keymap.Back) || keymap.Matches(msg.String(), a.keymap.Help) {
				a.currentView = a.previousView
			}
		}
		return a, cmd

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.ConversationSelected:
		a.currentView = messages.ViewChat
		return a, a.chatView.Open(msg.ID)

	case messages.ConversationLoaded, messages.AnswerReceived:
		a.chatView, cmd = a.chatView.Update(msg)
		a.err = a.chatView.Err()
		return a, cmd

	case messages.ConversationsLoaded, messages.ConversationCreated,
		messages.ConversationDeleted, messages.IndexStatsLoaded:
		a.conversationsView, cmd = a.conversationsView.Update(msg)
		a.err = a.conversationsView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.forwardToCurrent(msg)
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	// Spinner ticks and cursor blinks belong to the chat view.
	if a.currentView == messages.ViewChat {
		a.chatView, cmd = a.chatView.Update(msg)
	}
	return a, cmd
}

func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	switch view {
	case messages.ViewConversations:
		a.currentView = view
		// The chat may have changed titles and counts.
		return a.conversationsView.Init()
	case messages.ViewHelp:
		if a.currentView != messages.ViewHelp {
			a.previousView = a.currentView
		}
		a.currentView = view
	case messages.ViewChat:
		a.currentView = view
	}
	return nil
}

func (a *App) forwardToCurrent(msg tea.Msg) {
	switch a.currentView {
	case messages.ViewConversations:
		a.conversationsView, _ = a.conversationsView.Update(msg)
	case messages.ViewChat:
		a.chatView, _ = a.chatView.Update(msg)
	case messages.ViewHelp:
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.conversationsView.View()
	}
}

// viewHelp renders every keybinding grouped as in the keymap.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")

	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-10s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}

	b.WriteString(a.styles.Muted.Render("Questions are answered from your indexed documents only."))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.Update(tea.WindowSizeMsg{Width: width, Height: height})
}
