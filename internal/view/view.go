// Package view abstracts the page regions the dashboard logic mutates so the
// dispatch and notification code can run against a terminal, a TUI or an
// in-memory recorder.
package view

import (
	"context"
)

// Region names shared by the dashboard sections.
const (
	RegionQueue         = "patient-queue"
	RegionSearchModal   = "doctorSearchModal"
	RegionSearchLoading = "loadingState"
	RegionSearchResults = "searchResults"
	RegionSearchEmpty   = "noResults"
	RegionSearchSummary = "resultsSummary"
	RegionResultsCount  = "resultsCount"
)

// StatRegion names the node tagged attr=key, e.g. StatRegion("data-stat", "patients").
func StatRegion(attr, key string) string {
	return attr + "=" + key
}

// Asker collects a decision from the user. Both block until answered or ctx
// is done; a done context counts as declined.
type Asker interface {
	Confirm(ctx context.Context, message string) bool
	// Prompt returns the entered text; ok is false when cancelled.
	Prompt(ctx context.Context, message string) (text string, ok bool)
}

// View is the set of page mutations the dashboard performs.
type View interface {
	Asker

	Navigate(url string)
	Reload()
	// RenderFragment replaces a region's content with server HTML.
	RenderFragment(region, html string)
	SetVisible(region string, visible bool)
	SetText(region, text string)
	// SetControl updates a form's submit control.
	SetControl(formID string, disabled bool, label string)
}
