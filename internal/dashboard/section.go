package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/page"
)

// Target is the identifier set read from an element.
type Target struct {
	ID   string
	Type string
}

// Invocation is one triggered action.
type Invocation struct {
	Section string
	Action  string
	Target  Target
}

func (inv Invocation) request(endpoint, method string) domain.ActionRequest {
	target := inv.Target.ID
	if inv.Target.Type != "" {
		target = inv.Target.Type + "/" + inv.Target.ID
	}
	return domain.ActionRequest{ActionName: inv.Action, TargetID: target, Endpoint: endpoint, Method: method}
}

// Behavior runs one invocation.
type Behavior func(ctx context.Context, c *Controller, inv Invocation) domain.Outcome

// Section is one dashboard area: the class its action elements carry, the
// attributes holding their identifiers and the actions they may name.
type Section struct {
	Name  string
	Class string
	// IDAttr holds the target id (data- prefix omitted). Empty means the
	// section's actions take no identifier.
	IDAttr string
	// TypeAttr, when set, also must be present.
	TypeAttr string
	Actions  map[string]Behavior
}

// ActionNames returns the section's actions sorted.
func (s Section) ActionNames() []string {
	names := make([]string, 0, len(s.Actions))
	for name := range s.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Target reads the identifiers from el.
func (s Section) Target(el page.Element) Target {
	t := Target{}
	if s.IDAttr != "" {
		t.ID = el.Data(s.IDAttr)
	}
	if s.TypeAttr != "" {
		t.Type = el.Data(s.TypeAttr)
	}
	return t
}

func (s Section) complete(t Target) bool {
	if s.IDAttr != "" && t.ID == "" {
		return false
	}
	if s.TypeAttr != "" && t.Type == "" {
		return false
	}
	return true
}

// Element builds the element an action button for this section would be.
func (s Section) Element(action string, ids ...string) page.Element {
	attrs := map[string]string{"data-action": action}
	switch {
	case s.TypeAttr != "" && len(ids) >= 2:
		attrs["data-"+s.TypeAttr] = ids[0]
		attrs["data-"+s.IDAttr] = ids[1]
	case s.IDAttr != "" && len(ids) >= 1:
		attrs["data-"+s.IDAttr] = ids[0]
	}
	return page.Element{Tag: "button", Classes: []string{s.Class}, Attrs: attrs}
}

// Binding is an actionable element found on the page.
type Binding struct {
	Section string
	Action  string
	Target  Target
	Label   string
}

// IDs returns the target in the order Invoke takes it.
func (b Binding) IDs() []string {
	switch {
	case b.Target.Type != "":
		return []string{b.Target.Type, b.Target.ID}
	case b.Target.ID != "":
		return []string{b.Target.ID}
	default:
		return nil
	}
}

func (b Binding) String() string {
	switch {
	case b.Target.Type != "":
		return fmt.Sprintf("%s %s %s/%s", b.Section, b.Action, b.Target.Type, b.Target.ID)
	case b.Target.ID != "":
		return fmt.Sprintf("%s %s %s", b.Section, b.Action, b.Target.ID)
	default:
		return fmt.Sprintf("%s %s", b.Section, b.Action)
	}
}
