// Package conversations provides the conversation list view for the TUI.
package conversations

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/folio/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// View lists the owner's conversations and starts, opens or deletes them.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	list      *list.ConversationList
	statusbar *status.Bar

	conversations driving.ConversationService
	retrieval     driving.RetrievalService
	owner         string
	ctx           context.Context

	index   domain.IndexInfo
	loading bool
	err     error
	width   int
	height  int
}

// NewView creates a new conversation list view. retrieval may be nil.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	conversations driving.ConversationService,
	retrieval driving.RetrievalService,
	owner string,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		list:          list.NewConversationList(s),
		statusbar:     status.NewBar(s, km.ListHelp()),
		conversations: conversations,
		retrieval:     retrieval,
		owner:         owner,
		ctx:           context.Background(),
		width:         80,
		height:        24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the conversation list and the index statistics.
func (v *View) Init() tea.Cmd {
	v.loading = true
	cmds := []tea.Cmd{v.loadConversations()}
	if v.retrieval != nil {
		cmds = append(cmds, v.loadIndexStats())
	}
	return tea.Batch(cmds...)
}

// Update handles messages for the conversation list.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ConversationsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.err = nil
		v.list.SetItems(msg.Conversations)
		v.statusbar.SetState(status.StateReady, "")
		return v, nil

	case messages.ConversationCreated:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		id := msg.Conversation.ID
		return v, func() tea.Msg { return messages.ConversationSelected{ID: id} }

	case messages.ConversationDeleted:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.statusbar.SetState(status.StateInfo, "Conversation deleted")
		return v, v.loadConversations()

	case messages.IndexStatsLoaded:
		if msg.Err == nil {
			v.index = msg.Info
		}
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(keyStr, v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(keyStr, v.keymap.Open):
		if item := v.list.SelectedItem(); item != nil {
			id := item.ID
			return v, func() tea.Msg { return messages.ConversationSelected{ID: id} }
		}
	case keymap.Matches(keyStr, v.keymap.NewChat):
		return v, v.createConversation()
	case keymap.Matches(keyStr, v.keymap.Delete):
		if item := v.list.SelectedItem(); item != nil {
			return v, v.deleteConversation(item.ID)
		}
	case keymap.Matches(keyStr, v.keymap.Refresh):
		return v, v.Init()
	case keymap.Matches(keyStr, v.keymap.Help):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }
	case keymap.Matches(keyStr, v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	}
	return v, nil
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError, err.Error())
}

func (v *View) loadConversations() tea.Cmd {
	return func() tea.Msg {
		if v.conversations == nil {
			return messages.ConversationsLoaded{Err: ErrNoConversationService}
		}
		items, err := v.conversations.List(v.ctx, v.owner, domain.ListOptions{})
		return messages.ConversationsLoaded{Conversations: items, Err: err}
	}
}

func (v *View) loadIndexStats() tea.Cmd {
	return func() tea.Msg {
		info, err := v.retrieval.Stats(v.ctx)
		return messages.IndexStatsLoaded{Info: info, Err: err}
	}
}

func (v *View) createConversation() tea.Cmd {
	return func() tea.Msg {
		if v.conversations == nil {
			return messages.ConversationCreated{Err: ErrNoConversationService}
		}
		conv, err := v.conversations.Create(v.ctx, v.owner, "")
		return messages.ConversationCreated{Conversation: conv, Err: err}
	}
}

func (v *View) deleteConversation(id string) tea.Cmd {
	return func() tea.Msg {
		if v.conversations == nil {
			return messages.ConversationDeleted{ID: id, Err: ErrNoConversationService}
		}
		return messages.ConversationDeleted{ID: id, Err: v.conversations.Delete(v.ctx, id, v.owner)}
	}
}

// View renders the conversation list.
func (v *View) View() string {
	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("Folio"), v.renderIndexLine(), "")

	if v.loading && v.list.Count() == 0 {
		sections = append(sections, v.styles.Muted.Render("Loading conversations..."))
	} else {
		sections = append(sections, v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderIndexLine() string {
	if v.index.IsEmpty() {
		return v.styles.Warning.Render("No documents indexed. Run 'folio ingest FILE...' first.")
	}
	return v.styles.Muted.Render(fmt.Sprintf("%d documents, %d passages indexed with %s",
		v.index.Documents, v.index.Entries, v.index.Model))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.list.SetDimensions(width, height-6)
	v.statusbar.SetWidth(width)
}

// Conversations returns the listed conversations.
func (v *View) Conversations() []domain.ConversationSummary {
	return v.list.Items()
}

// Selected returns the selected conversation, or nil.
func (v *View) Selected() *domain.ConversationSummary {
	return v.list.SelectedItem()
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}
