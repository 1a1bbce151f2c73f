// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/folio/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/folio/internal/core/domain"
)

// ConversationList displays conversation summaries in a navigable list.
type ConversationList struct {
	items    []domain.ConversationSummary
	selected int
	styles   *styles.Styles
	width    int
	height   int
	now      func() time.Time
}

// NewConversationList creates a new conversation list component.
func NewConversationList(s *styles.Styles) *ConversationList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ConversationList{
		styles: s,
		width:  80,
		height: 10,
		now:    time.Now,
	}
}

// Update handles list navigation messages.
func (l *ConversationList) Update(msg tea.Msg) (*ConversationList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *ConversationList) View() string {
	if len(l.items) == 0 {
		return l.styles.Muted.Render("No conversations yet. Press n to start one.")
	}

	lines := make([]string, 0, len(l.items)*2+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Conversations (%d)", len(l.items))), "")

	// Each entry takes two lines.
	visible := (l.height - 2) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := start + visible
	if end > len(l.items) {
		end = len(l.items)
	}

	for i := start; i < end; i++ {
		lines = append(lines, l.renderItem(i, &l.items[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *ConversationList) renderItem(index int, item *domain.ConversationSummary) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	meta := fmt.Sprintf("%d msgs, %s", item.MessageCount, relativeTime(l.now(), item.UpdatedAt))
	maxTitle := l.width - len(meta) - 6
	if maxTitle < 10 {
		maxTitle = 10
	}
	title := domain.Truncate(item.Title, maxTitle)

	var titleLine string
	if index == l.selected {
		titleLine = l.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitle+3, title, meta))
	} else {
		titleLine = l.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitle+3, title)) +
			l.styles.Muted.Render(meta)
	}

	preview := item.LastMessage
	if preview == "" {
		preview = "(empty)"
	}
	maxPreview := l.width - 6
	if maxPreview < 20 {
		maxPreview = 20
	}
	return titleLine + "\n" + l.styles.Muted.Render("    "+domain.Truncate(preview, maxPreview))
}

// relativeTime renders t relative to now in coarse units.
func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// SetItems replaces the list contents, keeping the selection in range.
func (l *ConversationList) SetItems(items []domain.ConversationSummary) {
	l.items = items
	if l.selected >= len(items) {
		l.selected = len(items) - 1
	}
	if l.selected < 0 {
		l.selected = 0
	}
}

// Items returns the current items.
func (l *ConversationList) Items() []domain.ConversationSummary {
	return l.items
}

// Selected returns the index of the selected item.
func (l *ConversationList) Selected() int {
	return l.selected
}

// SelectedItem returns the selected conversation, or nil if the list is empty.
func (l *ConversationList) SelectedItem() *domain.ConversationSummary {
	if l.selected < 0 || l.selected >= len(l.items) {
		return nil
	}
	return &l.items[l.selected]
}

// MoveUp moves selection up.
func (l *ConversationList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *ConversationList) MoveDown() {
	if l.selected < len(l.items)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *ConversationList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of items.
func (l *ConversationList) Count() int {
	return len(l.items)
}
