// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/folio/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/folio/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// reservedLines is the height taken by the header, input and status bar.
const reservedLines = 7

// View shows one conversation and asks questions in it.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	viewport  viewport.Model
	spinner   spinner.Model
	input     *input.QuestionInput
	statusbar *status.Bar

	conversations driving.ConversationService
	owner         string
	opts          domain.RetrievalOptions
	ctx           context.Context

	conversation *domain.Conversation
	pending      string
	thinking     bool
	err          error
	width        int
	height       int
}

// NewView creates a new chat view. opts are passed to every question.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	conversations driving.ConversationService,
	owner string,
	opts domain.RetrievalOptions,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Spinner

	return &View{
		styles:        s,
		keymap:        km,
		viewport:      viewport.New(80, 24-reservedLines),
		spinner:       sp,
		input:         input.NewQuestionInput(s),
		statusbar:     status.NewBar(s, km.ChatHelp()),
		conversations: conversations,
		owner:         owner,
		opts:          opts,
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

// Open clears the view and loads the conversation with the given id.
func (v *View) Open(id string) tea.Cmd {
	v.conversation = nil
	v.pending = ""
	v.thinking = false
	v.err = nil
	v.input.Reset()
	v.statusbar.SetState(status.StateReady, "")
	v.refresh()

	return tea.Batch(v.input.Focus(), v.load(id))
}

func (v *View) load(id string) tea.Cmd {
	return func() tea.Msg {
		if v.conversations == nil {
			return messages.ConversationLoaded{Err: ErrNoConversationService}
		}
		conv, err := v.conversations.Get(v.ctx, id, v.owner)
		return messages.ConversationLoaded{Conversation: conv, Err: err}
	}
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ConversationLoaded:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.conversation = msg.Conversation
		v.refresh()
		return v, nil

	case messages.AnswerReceived:
		return v.handleAnswer(msg), nil

	case spinner.TickMsg:
		if !v.thinking {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewConversations} }

	case keymap.Matches(keyStr, v.keymap.ScrollUp), keymap.Matches(keyStr, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case keymap.Matches(keyStr, v.keymap.Send):
		return v, v.submit()
	}

	if v.thinking {
		return v, nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the typed question. Only one question is in flight at a time.
func (v *View) submit() tea.Cmd {
	if v.thinking || v.conversation == nil {
		return nil
	}
	question := strings.TrimSpace(v.input.Value())
	if question == "" {
		return nil
	}

	v.thinking = true
	v.pending = question
	v.err = nil
	v.input.Reset()
	v.statusbar.SetState(status.StateThinking, "Searching documents...")
	v.refresh()

	return tea.Batch(v.ask(v.conversation.ID, question), v.spinner.Tick)
}

func (v *View) ask(id, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := v.conversations.Ask(v.ctx, id, v.owner, question, v.opts)
		return messages.AnswerReceived{ConversationID: id, Question: question, Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) *View {
	if v.conversation == nil || msg.ConversationID != v.conversation.ID {
		return v
	}
	v.thinking = false
	v.pending = ""

	if msg.Err != nil {
		// Nothing was saved, so hand the question back for another try.
		v.input.SetValue(msg.Question)
		v.setError(msg.Err)
		v.refresh()
		return v
	}

	now := time.Now()
	v.conversation.Messages = append(v.conversation.Messages,
		domain.UserMessage{Text: msg.Question, CreatedAt: now},
		domain.AssistantMessage{Text: msg.Answer.Text, Sources: msg.Answer.Sources, CreatedAt: now},
	)
	v.conversation.MessageCount += 2
	if v.conversation.HasDefaultTitle() {
		v.conversation.Title = domain.DeriveTitle(msg.Question)
	}
	v.statusbar.SetState(status.StateReady, "")
	v.refresh()
	return v
}

func (v *View) setError(err error) {
	v.err = err
	msg := err.Error()
	if hint := domain.Classify(err).Hint(); hint != "" {
		msg += " (" + hint + ")"
	}
	v.statusbar.SetState(status.StateError, msg)
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if v.conversation == nil {
		return v.styles.Muted.Render("Loading conversation...")
	}
	if len(v.conversation.Messages) == 0 && v.pending == "" {
		return v.styles.Muted.Render("Ask a question about your documents to begin.")
	}

	wrap := lipgloss.NewStyle().Width(max(20, v.width-2))
	blocks := make([]string, 0, len(v.conversation.Messages)+1)
	for _, msg := range v.conversation.Messages {
		switch m := msg.(type) {
		case domain.UserMessage:
			blocks = append(blocks, v.styles.UserLabel.Render("You")+"\n"+wrap.Render(m.Text))
		case domain.AssistantMessage:
			blocks = append(blocks, v.styles.AssistantLabel.Render("Folio")+"\n"+wrap.Render(m.Text)+
				v.renderSources(m.Sources))
		}
	}
	if v.pending != "" {
		blocks = append(blocks,
			v.styles.UserLabel.Render("You")+"\n"+wrap.Render(v.pending),
			v.styles.AssistantLabel.Render("Folio")+"\n"+v.spinner.View()+" thinking...")
	}
	return strings.Join(blocks, "\n\n")
}

func (v *View) renderSources(sources []domain.SourceAttribution) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	for i := range sources {
		b.WriteString("\n")
		b.WriteString(v.styles.Source.Render(fmt.Sprintf("[%d] %s, page %d",
			i+1, sources[i].Document, sources[i].Page)))
	}
	return b.String()
}

// View renders the chat view.
func (v *View) View() string {
	title := "Conversation"
	if v.conversation != nil {
		title = v.conversation.Title
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render(domain.Truncate(title, max(10, v.width-4))),
		"",
		v.viewport.View(),
		"",
		v.input.View(),
		"",
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(3, height-reservedLines)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Conversation returns the open conversation, or nil while loading.
func (v *View) Conversation() *domain.Conversation {
	return v.conversation
}

// Thinking reports whether a question is awaiting its answer.
func (v *View) Thinking() bool {
	return v.thinking
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}
