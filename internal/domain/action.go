package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ActionRequest is built from an element's attributes at trigger time and
// lives for exactly one dispatch.
type ActionRequest struct {
	ActionName string
	TargetID   string
	Endpoint   string
	Method     string
}

// Validate checks the request is dispatchable.
func (r ActionRequest) Validate() error {
	if r.ActionName == "" {
		return fmt.Errorf("action request: empty action name")
	}
	if r.Endpoint == "" {
		return fmt.Errorf("action request %s: empty endpoint", r.ActionName)
	}
	switch r.Method {
	case http.MethodGet, http.MethodPost:
		return nil
	default:
		return fmt.Errorf("action request %s: unsupported method %q", r.ActionName, r.Method)
	}
}

// Outcome is how a dispatch resolved.
type Outcome string

const (
	// OutcomeNavigate sends the user to another URL.
	OutcomeNavigate Outcome = "navigate"
	// OutcomeMutate updated the view (reload, fragment, text) and notified.
	OutcomeMutate Outcome = "mutate"
	// OutcomeNotifyError surfaced a failure as an error notification.
	OutcomeNotifyError Outcome = "notify-error"
	// OutcomeSkipped means no request was issued: declined confirmation,
	// empty reason, unknown action or missing identifier.
	OutcomeSkipped Outcome = "skipped"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// Resolved reports whether the outcome is one of the three terminal results
// an issued ActionRequest may have.
func (o Outcome) Resolved() bool {
	switch o {
	case OutcomeNavigate, OutcomeMutate, OutcomeNotifyError:
		return true
	default:
		return false
	}
}

// Response is the JSON envelope every backend endpoint returns.
type Response struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	HTML     string            `json:"html,omitempty"`
	Count    int               `json:"count,omitempty"`
	Stats    map[string]string `json:"stats,omitempty"`
}

// UnmarshalJSON accepts any truthy success value and non-string stats, the
// way the dashboard pages treat them.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success  json.RawMessage            `json:"success"`
		Message  *string                    `json:"message"`
		Redirect *string                    `json:"redirect"`
		HTML     *string                    `json:"html"`
		Count    json.RawMessage            `json:"count"`
		Stats    map[string]json.RawMessage `json:"stats"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Response{Success: truthy(raw.Success)}
	if raw.Message != nil {
		r.Message = *raw.Message
	}
	if raw.Redirect != nil {
		r.Redirect = *raw.Redirect
	}
	if raw.HTML != nil {
		r.HTML = *raw.HTML
	}
	if n, ok := number(raw.Count); ok {
		r.Count = n
	}
	if raw.Stats != nil {
		r.Stats = make(map[string]string, len(raw.Stats))
		for key, value := range raw.Stats {
			r.Stats[key] = scalarText(value)
		}
	}
	return nil
}

func truthy(raw json.RawMessage) bool {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}

func number(raw json.RawMessage) (int, bool) {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

func scalarText(raw json.RawMessage) string {
	var v any
	if json.Unmarshal(raw, &v) != nil {
		return string(raw)
	}
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64, bool:
		return strings.TrimSpace(string(raw))
	default:
		return string(raw)
	}
}

// FormField is one named value of a submitted form, in document order.
type FormField struct {
	Name  string
	Value string
}

// MessageOr returns the server message, or fallback when none was sent.
func (r Response) MessageOr(fallback string) string {
	if r.Message != "" {
		return r.Message
	}
	return fallback
}
