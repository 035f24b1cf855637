// Package aggregator merges per-category fetch results into an ordered view.
package aggregator

import (
	"slices"
	"sort"
	"sync"

	"github.com/smartcity/mobility/internal/domain"
)

// RawResults maps each category to the sets fetched for it
type RawResults map[domain.Category][]domain.CategoryResponseSet

// Project filters empty categories, sorts public transit departures and
// orders the remaining categories by priority. The input is not modified.
func Project(raw RawResults) domain.AggregatedView {
	sections := make([]domain.Section, 0, len(raw))

	for category, sets := range raw {
		if _, ok := category.Priority(); !ok {
			continue
		}

		kept := make([]domain.CategoryResponseSet, 0, len(sets))
		for _, set := range sets {
			if len(set.Options) == 0 {
				continue
			}
			set.Options = slices.Clone(set.Options)
			if category.IsPublicTransit() {
				SortDepartures(set.Options)
			}
			kept = append(kept, set)
		}
		if len(kept) == 0 {
			continue
		}

		sections = append(sections, domain.Section{Category: category, Sets: kept})
	}

	// Map iteration order is random; priorities are unique so this is total
	sort.Slice(sections, func(i, j int) bool {
		pi, _ := sections[i].Category.Priority()
		pj, _ := sections[j].Category.Priority()
		return pi < pj
	})

	return domain.AggregatedView{Sections: sections}
}

// SortDepartures orders options by estimated departure in place.
// Options without an estimate go last; ties keep their original order.
func SortDepartures(options []domain.MobilityOption) {
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i].DepartureEstimated, options[j].DepartureEstimated
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// WorkingSet holds the latest result per category for one screen.
// Results may arrive in any order from concurrent fetches.
type WorkingSet struct {
	mu      sync.RWMutex
	results RawResults
}

// NewWorkingSet creates an empty working set
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{results: make(RawResults)}
}

// Apply replaces the stored result of one category
func (w *WorkingSet) Apply(category domain.Category, sets []domain.CategoryResponseSet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results[category] = slices.Clone(sets)
}

// Raw returns a copy of the stored results
func (w *WorkingSet) Raw() RawResults {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(RawResults, len(w.results))
	for k, v := range w.results {
		out[k] = slices.Clone(v)
	}
	return out
}

// View projects the current results
func (w *WorkingSet) View() domain.AggregatedView {
	return Project(w.Raw())
}

// Reset drops every stored result
func (w *WorkingSet) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = make(RawResults)
}
