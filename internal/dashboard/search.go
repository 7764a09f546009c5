package dashboard

import (
	"context"
	"strconv"
	"sync"

	"github.com/urbanmd/urbanmd/internal/dispatch"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/view"
)

// SearchState is the doctor search panel's visual state. Exactly one holds
// at a time.
type SearchState int

const (
	SearchHidden SearchState = iota
	SearchLoading
	SearchResults
	SearchEmpty
)

func (s SearchState) String() string {
	switch s {
	case SearchLoading:
		return "loading"
	case SearchResults:
		return "results"
	case SearchEmpty:
		return "empty"
	default:
		return "hidden"
	}
}

// SearchFailure is shown when the search request fails.
const SearchFailure = "Failed to search doctors. Please try again."

// DoctorSearch drives the patient's doctor search modal.
type DoctorSearch struct {
	backend Backend
	perf    *dispatch.Performer

	mu    sync.Mutex
	state SearchState
	count int
	cards []page.DoctorCard
}

func newDoctorSearch(backend Backend, perf *dispatch.Performer) *DoctorSearch {
	return &DoctorSearch{backend: backend, perf: perf}
}

// State returns the current state.
func (s *DoctorSearch) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Count returns the result count of the last successful search.
func (s *DoctorSearch) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Cards returns the doctor cards of the current results.
func (s *DoctorSearch) Cards() []page.DoctorCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]page.DoctorCard(nil), s.cards...)
}

// Submit searches with the form's non-empty fields and returns the state the
// panel ends in.
func (s *DoctorSearch) Submit(ctx context.Context, fields []domain.FormField) SearchState {
	s.show(SearchLoading)

	resp, err := s.backend.SearchDoctors(ctx, fields)
	if err != nil {
		s.perf.Logger().Error("doctor search failed", "error", err)
		s.show(SearchEmpty)
		s.perf.Notifier().Notify(domain.KindError, SearchFailure)
		return SearchEmpty
	}

	if !resp.Success || resp.Count <= 0 {
		s.show(SearchEmpty)
		return SearchEmpty
	}

	v := s.perf.View()
	v.RenderFragment(view.RegionSearchResults, resp.HTML)
	v.SetText(view.RegionResultsCount, strconv.Itoa(resp.Count))

	var cards []page.DoctorCard
	if fragment, err := page.ParseFragment(resp.HTML); err == nil {
		cards = fragment.DoctorCards()
	}
	s.mu.Lock()
	s.count = resp.Count
	s.cards = cards
	s.mu.Unlock()

	s.show(SearchResults)
	return SearchResults
}

// Close hides the modal.
func (s *DoctorSearch) Close() {
	s.show(SearchHidden)
}

// show applies state to every region so they never disagree.
func (s *DoctorSearch) show(state SearchState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	v := s.perf.View()
	v.SetVisible(view.RegionSearchModal, state != SearchHidden)
	v.SetVisible(view.RegionSearchLoading, state == SearchLoading)
	v.SetVisible(view.RegionSearchResults, state == SearchResults)
	v.SetVisible(view.RegionSearchSummary, state == SearchResults)
	v.SetVisible(view.RegionSearchEmpty, state == SearchEmpty)
}
