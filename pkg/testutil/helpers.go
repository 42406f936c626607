// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/property-costs/internal/view"
)

// FindLine finds a line by ID anywhere in the layout, including section
// totals and the grand total. Returns a pointer to the line if found, nil
// otherwise.
func FindLine(layout view.Layout, id string) *view.Line {
	for i := range layout.Sections {
		section := &layout.Sections[i]
		for j := range section.Lines {
			if section.Lines[j].ID == id {
				return &section.Lines[j]
			}
		}
		if section.Total != nil && section.Total.ID == id {
			return section.Total
		}
	}
	if layout.GrandTotal.ID == id {
		return &layout.GrandTotal
	}
	return nil
}

// LineAmounts flattens the layout into amounts keyed by line ID.
func LineAmounts(layout view.Layout) map[string]float64 {
	amounts := make(map[string]float64)
	for _, section := range layout.Sections {
		for _, line := range section.Lines {
			amounts[line.ID] = line.Amount
		}
		if section.Total != nil {
			amounts[section.Total.ID] = section.Total.Amount
		}
	}
	if layout.GrandTotal.ID != "" {
		amounts[layout.GrandTotal.ID] = layout.GrandTotal.Amount
	}
	return amounts
}
