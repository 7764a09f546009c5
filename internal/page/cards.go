package page

import (
	"golang.org/x/net/html"
)

// DoctorCard is a search result card carrying data-doctor-id.
type DoctorCard struct {
	ID         string
	Name       string
	CanBook    bool
	CanProfile bool
}

// DoctorCards returns the doctor cards with the buttons each one offers.
func (d *Document) DoctorCards() []DoctorCard {
	var out []DoctorCard
	walk(d.root, func(n *html.Node) {
		id, ok := attr(n, "data-doctor-id")
		if !ok {
			return
		}
		card := DoctorCard{ID: id}
		if name, ok := attr(n, "data-doctor-name"); ok {
			card.Name = name
		}
		walk(n, func(c *html.Node) {
			if hasClass(c, "book-appointment-btn") {
				card.CanBook = true
			}
			if hasClass(c, "view-profile-btn") {
				card.CanProfile = true
			}
			if card.Name == "" && hasClass(c, "doctor-name") {
				card.Name = textContent(c)
			}
		})
		out = append(out, card)
	})
	return out
}

// Task is a task checkbox on the patient dashboard.
type Task struct {
	ID      string
	Label   string
	Checked bool
}

// Tasks returns the page's task checkboxes; the label is the text of the
// checkbox's parent.
func (d *Document) Tasks() []Task {
	var out []Task
	walk(d.root, func(n *html.Node) {
		if !hasClass(n, "task-checkbox") {
			return
		}
		t := Task{}
		t.ID, _ = attr(n, "data-task-id")
		_, t.Checked = attr(n, "checked")
		if n.Parent != nil {
			t.Label = textContent(n.Parent)
		}
		out = append(out, t)
	})
	return out
}
