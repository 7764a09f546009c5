// Package page reads the server-rendered dashboard HTML: the role tag, the
// actionable elements of every section, AJAX forms and stat nodes.
package page

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page or fragment.
type Document struct {
	root *html.Node
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("page: parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse for an in-memory page.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseFragment reads an HTML fragment such as the queue or search results
// the backend returns in the html field.
func ParseFragment(s string) (*Document, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(s), container)
	if err != nil {
		return nil, fmt.Errorf("page: parse fragment: %w", err)
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root}, nil
}

// Element is a snapshot of one tagged element.
type Element struct {
	Tag     string
	Classes []string
	Attrs   map[string]string
	Text    string
}

// Attr returns the named attribute.
func (e Element) Attr(name string) string {
	return e.Attrs[name]
}

// Data returns data-<key>, e.g. Data("appointment-id").
func (e Element) Data(key string) string {
	return e.Attrs["data-"+key]
}

// Action returns the element's data-action.
func (e Element) Action() string {
	return e.Data("action")
}

// HasClass reports whether the element carries class.
func (e Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// UserType returns the first data-user-type value on the page.
func (d *Document) UserType() string {
	n := findFirst(d.root, func(n *html.Node) bool {
		_, ok := attr(n, "data-user-type")
		return ok
	})
	if n == nil {
		return ""
	}
	v, _ := attr(n, "data-user-type")
	return v
}

// ByClass returns every element carrying class, in document order.
func (d *Document) ByClass(class string) []Element {
	var out []Element
	walk(d.root, func(n *html.Node) {
		if hasClass(n, class) {
			out = append(out, snapshot(n))
		}
	})
	return out
}

// ByClassOutside is ByClass without the elements inside any container
// carrying the class container.
func (d *Document) ByClassOutside(class, container string) []Element {
	var out []Element
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if hasClass(n, container) {
				return
			}
			if hasClass(n, class) {
				out = append(out, snapshot(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(d.root)
	return out
}

// HasClass reports whether any element carries class.
func (d *Document) HasClass(class string) bool {
	return findFirst(d.root, func(n *html.Node) bool { return hasClass(n, class) }) != nil
}

// WithAttr returns every element that has the attribute, in document order.
func (d *Document) WithAttr(name string) []Element {
	var out []Element
	walk(d.root, func(n *html.Node) {
		if _, ok := attr(n, name); ok {
			out = append(out, snapshot(n))
		}
	})
	return out
}

// AttrValues returns the distinct values of an attribute such as data-stat,
// in document order.
func (d *Document) AttrValues(name string) []string {
	seen := map[string]bool{}
	var out []string
	walk(d.root, func(n *html.Node) {
		if v, ok := attr(n, name); ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	})
	return out
}

// TextOf returns the text of the first element whose attribute equals value.
func (d *Document) TextOf(name, value string) (string, bool) {
	n := findFirst(d.root, func(n *html.Node) bool {
		v, ok := attr(n, name)
		return ok && v == value
	})
	if n == nil {
		return "", false
	}
	return textContent(n), true
}

// Lines returns the document's visible text, one line per block.
func (d *Document) Lines() []string {
	var (
		lines []string
		cur   strings.Builder
	)
	flush := func() {
		line := strings.Join(strings.Fields(cur.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			cur.WriteByte(' ')
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Template {
				return
			}
			if n.DataAtom == atom.Br || isBlock(n.DataAtom) {
				flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			flush()
		}
	}
	visit(d.root)
	flush()
	return lines
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Div, atom.P, atom.Li, atom.Tr, atom.Section, atom.Article, atom.Header,
		atom.Footer, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Ul, atom.Ol,
		atom.Table, atom.Form, atom.Button, atom.Nav, atom.Main, atom.Aside:
		return true
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func classes(n *html.Node) []string {
	v, _ := attr(n, "class")
	return strings.Fields(v)
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

func snapshot(n *html.Node) Element {
	e := Element{
		Tag:     n.Data,
		Classes: classes(n),
		Attrs:   make(map[string]string, len(n.Attr)),
		Text:    textContent(n),
	}
	for _, a := range n.Attr {
		e.Attrs[strings.ToLower(a.Key)] = a.Val
	}
	return e
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
