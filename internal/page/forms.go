package page

import (
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/urbanmd/urbanmd/internal/domain"
)

// Form is a form the page marks for asynchronous submission.
type Form struct {
	ID     string
	Action string
	Method string
	Fields []domain.FormField
	// SubmitLabel is the submit control's label before submission.
	SubmitLabel string
	HasSubmit   bool
}

// Field returns the first value submitted under name.
func (f Form) Field(name string) (string, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// Set replaces every value of name with value, appending when absent.
func (f *Form) Set(name, value string) {
	out := f.Fields[:0:0]
	replaced := false
	for _, field := range f.Fields {
		if field.Name != name {
			out = append(out, field)
			continue
		}
		if !replaced {
			out = append(out, domain.FormField{Name: name, Value: value})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, domain.FormField{Name: name, Value: value})
	}
	f.Fields = out
}

// AjaxForms returns every form carrying data-ajax, in document order.
func (d *Document) AjaxForms() []Form {
	var out []Form
	walk(d.root, func(n *html.Node) {
		if n.DataAtom != atom.Form {
			return
		}
		if _, ok := attr(n, "data-ajax"); ok {
			out = append(out, readForm(n))
		}
	})
	return out
}

// FormByID returns the form with the given id, flagged or not.
func (d *Document) FormByID(id string) (Form, bool) {
	n := findFirst(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return n.DataAtom == atom.Form && ok && v == id
	})
	if n == nil {
		return Form{}, false
	}
	return readForm(n), true
}

func readForm(n *html.Node) Form {
	f := Form{Method: http.MethodPost}
	f.ID, _ = attr(n, "id")
	f.Action, _ = attr(n, "action")
	if m, ok := attr(n, "method"); ok && strings.TrimSpace(m) != "" {
		f.Method = strings.ToUpper(strings.TrimSpace(m))
	}

	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.ElementNode {
			if c != n && c.DataAtom == atom.Form {
				return
			}
			if !f.HasSubmit && isSubmit(c) {
				f.HasSubmit = true
				f.SubmitLabel = submitLabel(c)
			}
			if field, ok := formValue(c); ok {
				f.Fields = append(f.Fields, field)
			}
			if c.DataAtom == atom.Select || c.DataAtom == atom.Textarea {
				return
			}
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return f
}

func isSubmit(n *html.Node) bool {
	t, _ := attr(n, "type")
	t = strings.ToLower(t)
	switch n.DataAtom {
	case atom.Button:
		return t == "" || t == "submit"
	case atom.Input:
		return t == "submit"
	}
	return false
}

func submitLabel(n *html.Node) string {
	if n.DataAtom == atom.Input {
		v, _ := attr(n, "value")
		return v
	}
	return textContent(n)
}

// formValue mirrors what FormData collects: named, enabled controls, checked
// boxes only, buttons excluded.
func formValue(n *html.Node) (domain.FormField, bool) {
	name, ok := attr(n, "name")
	if !ok || name == "" {
		return domain.FormField{}, false
	}
	if _, disabled := attr(n, "disabled"); disabled {
		return domain.FormField{}, false
	}

	switch n.DataAtom {
	case atom.Input:
		t, _ := attr(n, "type")
		switch strings.ToLower(t) {
		case "submit", "button", "reset", "image", "file":
			return domain.FormField{}, false
		case "checkbox", "radio":
			if _, checked := attr(n, "checked"); !checked {
				return domain.FormField{}, false
			}
			v, ok := attr(n, "value")
			if !ok {
				v = "on"
			}
			return domain.FormField{Name: name, Value: v}, true
		}
		v, _ := attr(n, "value")
		return domain.FormField{Name: name, Value: v}, true
	case atom.Textarea:
		return domain.FormField{Name: name, Value: rawText(n)}, true
	case atom.Select:
		v, ok := selectedOption(n)
		if !ok {
			return domain.FormField{}, false
		}
		return domain.FormField{Name: name, Value: v}, true
	}
	return domain.FormField{}, false
}

func selectedOption(sel *html.Node) (string, bool) {
	var options []*html.Node
	walk(sel, func(n *html.Node) {
		if n.DataAtom == atom.Option {
			options = append(options, n)
		}
	})
	if len(options) == 0 {
		return "", false
	}
	chosen := options[0]
	for _, o := range options {
		if _, ok := attr(o, "selected"); ok {
			chosen = o
			break
		}
	}
	if v, ok := attr(chosen, "value"); ok {
		return v, true
	}
	return textContent(chosen), true
}

func rawText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
