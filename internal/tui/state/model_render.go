package state

import (
	"strings"

	"github.com/urbanmd/urbanmd/internal/dashboard"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/tui/render"
	"github.com/urbanmd/urbanmd/internal/view"
)

// View renders the model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(render.Header(m.ctrl.Role(), m.width))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(render.Status("Nothing to act on for this page.", m.width))
		b.WriteString("\n")
	} else {
		b.WriteString(render.ColumnHeader(m.width))
		b.WriteString("\n")
		for i, r := range m.rows {
			selected := i == m.cursor
			if r.task != nil {
				b.WriteString(render.Task(render.TaskState{
					Label:    r.task.Label,
					Checked:  m.isChecked(*r.task),
					Selected: selected,
					Width:    m.width,
				}))
			} else {
				b.WriteString(render.Row(render.RowState{
					Section:  r.binding.Section,
					Action:   r.binding.Action,
					Target:   targetText(r.binding.IDs()),
					Label:    r.binding.Label,
					Selected: selected,
					Width:    m.width,
				}))
			}
			b.WriteString("\n")
		}
	}

	if m.bridge != nil {
		if stats := render.Stats(statTexts(m.bridge.Texts()), m.width); stats != "" {
			b.WriteString("\n")
			b.WriteString(render.SectionTitle("Stats"))
			b.WriteString("\n")
			b.WriteString(stats)
			b.WriteString("\n")
		}
		if queue := m.fragmentLines(view.RegionQueue); len(queue) > 0 {
			b.WriteString("\n")
			b.WriteString(render.SectionTitle("Patient queue"))
			b.WriteString("\n")
			b.WriteString(strings.Join(queue, "\n"))
			b.WriteString("\n")
		}
	}

	if search := m.ctrl.Search(); search != nil && m.bridge != nil && m.bridge.Visible(view.RegionSearchModal) {
		b.WriteString("\n")
		b.WriteString(render.SectionTitle("Doctor search: " + search.State().String()))
		b.WriteString("\n")
	}

	if m.searching {
		b.WriteString("\n")
		b.WriteString(render.Question("Search doctors", m.input.View()))
		b.WriteString("\n")
	}
	if m.question != nil {
		input := ""
		if m.question.Prompt {
			input = m.input.View()
		}
		b.WriteString("\n")
		b.WriteString(render.Question(m.question.Question, input))
		b.WriteString("\n")
	}

	if toasts := render.Toasts(m.toasts); toasts != "" {
		b.WriteString("\n")
		b.WriteString(toasts)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(render.Status(m.status, m.width))
		b.WriteString("\n")
	}
	b.WriteString(render.Footer(render.FooterState{
		Asking:    m.question != nil && !m.question.Prompt,
		Prompting: m.searching || (m.question != nil && m.question.Prompt),
		Busy:      m.busy > 0,
		Search:    m.ctrl.Search() != nil && m.ctrl.Search().State() != dashboard.SearchHidden,
	}))
	return b.String()
}

func (m *Model) fragmentLines(region string) []string {
	html, ok := m.bridge.Fragment(region)
	if !ok {
		return nil
	}
	doc, err := page.ParseFragment(html)
	if err != nil {
		return nil
	}
	return doc.Lines()
}

func targetText(ids []string) string {
	return strings.Join(ids, "/")
}

// statTexts keeps the texts written to stat nodes.
func statTexts(texts map[string]string) map[string]string {
	out := map[string]string{}
	for region, text := range texts {
		if strings.Contains(region, "=") {
			out[region] = text
		}
	}
	return out
}
