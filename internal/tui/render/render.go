// Package render provides pure rendering functions for the dashboard TUI.
package render

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/domain"
)

const (
	sectionWidth = 22
	actionWidth  = 10
	targetWidth  = 18
	toastWidth   = 48
)

// RowState is the data needed to render one actionable row.
type RowState struct {
	Section  string
	Action   string
	Target   string
	Label    string
	Selected bool
	Width    int
}

// TaskState is the data needed to render one task checkbox.
type TaskState struct {
	Label    string
	Checked  bool
	Selected bool
	Width    int
}

// FooterState is the data needed to render the help line.
type FooterState struct {
	Asking    bool
	Prompting bool
	Busy      bool
	Search    bool
}

// Header renders the title line with the role.
func Header(role domain.Role, width int) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ansiColorNumber(colors.Blue)))

	title := fmt.Sprintf("UrbanMD  %s dashboard", role)
	return headerStyle.Render(truncate(title, width))
}

// ColumnHeader renders the column titles of the action list.
func ColumnHeader(width int) string {
	style := lipgloss.NewStyle().Bold(true)
	line := fmt.Sprintf("  %-*s  %-*s  %-*s  %s",
		sectionWidth, "SECTION",
		actionWidth, "ACTION",
		targetWidth, "TARGET",
		"LABEL",
	)
	return style.Render(truncate(line, width))
}

// Row renders a single actionable element.
func Row(state RowState) string {
	rowStyle := lipgloss.NewStyle()
	marker := "  "
	if state.Selected {
		rowStyle = rowStyle.Background(lipgloss.Color(ansiColorNumber(colors.Blue))).Foreground(lipgloss.Color("0"))
		marker = "> "
	}
	line := fmt.Sprintf("%s%-*s  %-*s  %-*s  %s",
		marker,
		sectionWidth, clip(state.Section, sectionWidth),
		actionWidth, clip(state.Action, actionWidth),
		targetWidth, clip(state.Target, targetWidth),
		state.Label,
	)
	return rowStyle.Render(truncate(line, state.Width))
}

// Task renders a task checkbox row.
func Task(state TaskState) string {
	rowStyle := lipgloss.NewStyle()
	marker := "  "
	if state.Selected {
		rowStyle = rowStyle.Background(lipgloss.Color(ansiColorNumber(colors.Blue))).Foreground(lipgloss.Color("0"))
		marker = "> "
	}
	box := "[ ]"
	if state.Checked {
		box = "[x]"
	}
	return rowStyle.Render(truncate(fmt.Sprintf("%s%s %s", marker, box, state.Label), state.Width))
}

// SectionTitle renders a dim title above a block of content.
func SectionTitle(title string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Render(title)
}

// Stats renders region texts as "key: value" lines sorted by key.
func Stats(texts map[string]string, width int) string {
	if len(texts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(texts))
	for k := range texts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		name := k
		if _, key, ok := strings.Cut(k, "="); ok {
			name = key
		}
		lines = append(lines, truncate(name+": "+texts[k], width))
	}
	return strings.Join(lines, "\n")
}

// Toasts renders the notification stack, newest at the bottom.
func Toasts(entries []domain.NotificationEntry) string {
	var out []string
	for _, e := range entries {
		if !e.OnScreen() {
			continue
		}
		out = append(out, Toast(e))
	}
	return strings.Join(out, "\n")
}

// Toast renders one notification with its kind color and lifecycle styling.
func Toast(e domain.NotificationEntry) string {
	color := lipgloss.Color(ansiColorNumber(kindColor(e.Kind)))
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(toastWidth).
		Padding(0, 1)
	if e.Visibility == domain.VisibilityExiting || e.Visibility == domain.VisibilityEntering {
		style = style.Faint(true)
	}
	label := lipgloss.NewStyle().Bold(true).Foreground(color).Render(kindIcon(e.Kind))
	return style.Render(label + " " + e.Message)
}

// Question renders a confirmation or prompt dialog.
func Question(question, input string) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(ansiColorNumber(colors.Yellow))).
		Padding(0, 1)
	body := question
	if input != "" {
		body += "\n" + input
	}
	return style.Render(body)
}

// Status renders a transient status line.
func Status(message string, width int) string {
	if message == "" {
		return ""
	}
	return lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")).Render(truncate(message, width))
}

// Footer renders the footer with help text.
func Footer(state FooterState) string {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	var help []string
	switch {
	case state.Prompting:
		help = append(help, "Enter: submit", "ESC: cancel")
	case state.Asking:
		help = append(help, "y: confirm", "n/ESC: cancel")
	default:
		help = append(help, "j/k: move", "Enter: run", "space: toggle task")
		help = append(help, "/: search doctors")
		if state.Search {
			help = append(help, "c: close search")
		}
		help = append(help, "r: refresh", "q: quit")
	}
	if state.Busy {
		help = append(help, "working...")
	}
	return helpStyle.Render(strings.Join(help, "  |  "))
}

func kindColor(k domain.Kind) string {
	switch k {
	case domain.KindSuccess:
		return colors.Green
	case domain.KindError:
		return colors.Red
	case domain.KindWarning:
		return colors.Yellow
	default:
		return colors.Cyan
	}
}

func kindIcon(k domain.Kind) string {
	switch k {
	case domain.KindSuccess:
		return "✓"
	case domain.KindError:
		return "✗"
	case domain.KindWarning:
		return "!"
	default:
		return "i"
	}
}

func clip(value string, width int) string {
	if utf8.RuneCountInString(value) <= width {
		return value
	}
	return string([]rune(value)[:width-3]) + "..."
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if utf8.RuneCountInString(value) <= width {
		return value
	}
	return string([]rune(value)[:width])
}

// ansiColorNumber extracts the color number from an ANSI escape sequence.
func ansiColorNumber(ansi string) string {
	if len(ansi) < 2 {
		return ""
	}
	lastSemicolon := strings.LastIndex(ansi, ";")
	if lastSemicolon == -1 {
		return ""
	}
	return ansi[lastSemicolon+1 : len(ansi)-1]
}
