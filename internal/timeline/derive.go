// Package timeline derives display state from a raw milestone
// collection: ordering, category filtering, per-category counts and the
// alternating card placement. Everything here is pure; callers own the
// data and the transient filter selection.
package timeline

import (
	"sort"
	"time"

	"babysteps/internal/model"
)

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// SortByDate returns a new slice ordered ascending by event date.
// The sort is stable, so items sharing a date keep their insertion
// order. Dates are day-granularity ISO strings and compare
// lexicographically.
func SortByDate(items []model.Milestone) []model.Milestone {
	out := make([]model.Milestone, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// Filter returns the items matching category. CategoryNone means "all"
// and returns a copy of the input unchanged; filtering never mutates
// the underlying collection.
func Filter(items []model.Milestone, category model.Category) []model.Milestone {
	if category == model.CategoryNone {
		out := make([]model.Milestone, len(items))
		copy(out, items)
		return out
	}
	out := make([]model.Milestone, 0, len(items))
	for _, it := range items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// Counts reports the total item count plus the count per defined
// category. Items with no category contribute to the total only.
type Counts struct {
	All        int
	ByCategory map[model.Category]int
}

func CountByCategory(items []model.Milestone) Counts {
	c := Counts{All: len(items), ByCategory: map[model.Category]int{}}
	for _, cat := range model.Categories() {
		c.ByCategory[cat] = 0
	}
	for _, it := range items {
		if it.Category == model.CategoryNone {
			continue
		}
		c.ByCategory[it.Category]++
	}
	return c
}

// SideForIndex assigns the alternating visual placement by position
// parity in the sorted list. Purely presentational.
func SideForIndex(i int) Side {
	if i%2 == 0 {
		return SideLeft
	}
	return SideRight
}

// FormatDate renders an ISO date in the long human form used on cards,
// e.g. "February 1, 2024". Unparseable input is returned as-is.
func FormatDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("January 2, 2006")
}

// Icon maps a category to its display glyph. Uncategorized (or
// unrecognized) items get the default heart.
func Icon(category model.Category) string {
	switch category {
	case model.CategoryMilestone:
		return "🌟"
	case model.CategoryFirst:
		return "🎉"
	case model.CategoryGrowth:
		return "📏"
	case model.CategoryFun:
		return "😊"
	default:
		return "💖"
	}
}

// Label is the human name for a category shown on filter buttons and
// in the add form.
func Label(category model.Category) string {
	switch category {
	case model.CategoryMilestone:
		return "Milestone"
	case model.CategoryFirst:
		return "First Time"
	case model.CategoryGrowth:
		return "Growth"
	case model.CategoryFun:
		return "Fun Moment"
	default:
		return "All"
	}
}
