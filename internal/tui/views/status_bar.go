package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/nicedig/ndm/internal/auth"
	"github.com/nicedig/ndm/internal/tui/model"
	"github.com/nicedig/ndm/internal/tui/ui"
)

// StatusBar displays the profile, the signed-in user, the unread badge and
// the current flash message.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	profile string
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme, profile string) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme, profile: profile}
}

// Update renders the bar.
func (sb *StatusBar) Update(s model.Snapshot, flash *ui.FlashMessage) {
	sb.Clear()

	parts := []string{fmt.Sprintf("[::b]%s[-:-:-]", display(sb.profile))}
	if s.User != nil {
		name := s.User.DisplayName
		if name == "" {
			name = s.User.Name
		}
		parts = append(parts, display(name))
	}
	if s.Session != auth.Ready {
		parts = append(parts, string(s.Session))
	}
	parts = append(parts, sb.unread(s))
	if s.ListLoading || s.PaneLoading {
		parts = append(parts, fmt.Sprintf("[%s]~[-]", ui.ColorName(sb.theme.OwnColor)))
	}

	line := " " + strings.Join(parts, " | ")
	if flash != nil {
		line += fmt.Sprintf(" | [%s]%s[-]", ui.ColorName(sb.theme.FlashLevelColor(flash.Level)), display(flash.Text))
	}
	_, _ = fmt.Fprint(sb, line)
}

func (sb *StatusBar) unread(s model.Snapshot) string {
	switch {
	case s.UnreadErr != nil:
		return fmt.Sprintf("[%s]未読 ?[-]", ui.ColorName(sb.theme.FlashWarnColor))
	case s.Unread > 0:
		return fmt.Sprintf("[%s::b]未読 %d[-:-:-]", ui.ColorName(sb.theme.BadgeColor), s.Unread)
	default:
		return "未読 0"
	}
}
