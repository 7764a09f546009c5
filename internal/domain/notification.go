// Package domain holds the value types shared by the dashboard client:
// notification entries, action requests, backend responses and roles.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the presentation category of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindSuccess, KindError, KindWarning, KindInfo}
}

// IsValid checks if the kind is supported.
func (k Kind) IsValid() bool {
	switch k {
	case KindSuccess, KindError, KindWarning, KindInfo:
		return true
	default:
		return false
	}
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a kind case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("invalid notification kind: %q", s)
	}
	return k, nil
}

// Visibility is the lifecycle stage of a notification entry.
type Visibility string

const (
	VisibilityEntering Visibility = "entering"
	VisibilityVisible  Visibility = "visible"
	VisibilityExiting  Visibility = "exiting"
	VisibilityRemoved  Visibility = "removed"
)

// String returns the string representation of the visibility.
func (v Visibility) String() string {
	return string(v)
}

// next returns the stage that follows v; removed is terminal.
func (v Visibility) next() Visibility {
	switch v {
	case VisibilityEntering:
		return VisibilityVisible
	case VisibilityVisible:
		return VisibilityExiting
	default:
		return VisibilityRemoved
	}
}

// NotificationEntry is one toast on the notification stack.
type NotificationEntry struct {
	ID         string
	Kind       Kind
	Message    string
	Visibility Visibility
	CreatedAt  time.Time
}

// OnScreen reports whether the entry still occupies a slot in the stack.
func (n NotificationEntry) OnScreen() bool {
	return n.Visibility != VisibilityRemoved
}

// Advance moves the entry to its next lifecycle stage and returns it.
func (n *NotificationEntry) Advance() Visibility {
	n.Visibility = n.Visibility.next()
	return n.Visibility
}
