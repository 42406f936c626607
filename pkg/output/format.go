// Package output provides utilities for formatting and displaying calculator results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/property-costs/internal/view"
	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/costs"
	"github.com/iwvelando/property-costs/pkg/format"
	"github.com/iwvelando/property-costs/pkg/loans"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Result is everything printed for one calculation.
type Result struct {
	State     costs.State       `json:"state"`
	Breakdown costs.Breakdown   `json:"breakdown"`
	Summary   costs.LoanSummary `json:"summary"`
	Layout    view.Layout       `json:"layout"`
	Warnings  []string          `json:"warnings,omitempty"`
	// Schedule is the optional yearly repayment breakdown of the bond.
	Schedule []loans.YearSummary `json:"schedule,omitempty"`
}

// Write renders result in the named format.
func Write(w io.Writer, outputFormat string, result Result) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, result)
	case constants.OutputFormatCSV:
		return CsvFormat(w, result)
	case constants.OutputFormatJSON:
		return JSONFormat(w, result)
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, result Result) error {
	title := cases.Title(language.English)
	ew := &errWriter{w: w}

	if result.Layout.Empty {
		ew.printf("Enter an asking price to see the costs of buying.\n")
		return ew.err
	}

	width := labelWidth(result.Layout)
	for _, section := range result.Layout.Sections {
		ew.printf("--- %s ---\n", title.String(section.Title))
		for _, line := range section.Lines {
			ew.printf("%-*s | %s\n", width, line.Label, line.Display)
		}
		if section.Total != nil {
			ew.printf("%-*s | %s\n", width, strings.Repeat("_", width), strings.Repeat("_", len(section.Total.Display)))
			ew.printf("%-*s | %s\n", width, section.Total.Label, section.Total.Display)
		}
		ew.printf("\n")
	}
	grand := result.Layout.GrandTotal
	ew.printf("%-*s | %s\n", width, title.String(grand.Label), grand.Display)

	if len(result.Schedule) > 0 {
		ew.printf("\n--- %s ---\n", title.String("repayment schedule"))
		ew.printf("%4s | %14s | %14s | %14s | %14s\n", "Year", "Paid", "Principal", "Interest", "Balance")
		for _, year := range result.Schedule {
			ew.printf("%4d | %14s | %14s | %14s | %14s\n", year.Year,
				format.Currency(year.Paid), format.Currency(year.Principal),
				format.Currency(year.Interest), format.Currency(year.RemainingPrincipal))
		}
	}

	for _, warning := range result.Warnings {
		ew.printf("warning: %s\n", warning)
	}
	return ew.err
}

// CsvFormat outputs one row per line item in comma-separated value format.
func CsvFormat(w io.Writer, result Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"section", "item", "amount"}); err != nil {
		return err
	}
	for _, section := range result.Layout.Sections {
		for _, line := range section.Lines {
			if err := cw.Write([]string{section.Name, line.ID, csvAmount(line)}); err != nil {
				return err
			}
		}
		if section.Total != nil {
			if err := cw.Write([]string{section.Name, section.Total.ID, csvAmount(*section.Total)}); err != nil {
				return err
			}
		}
	}
	grand := result.Layout.GrandTotal
	if err := cw.Write([]string{"total", grand.ID, csvAmount(grand)}); err != nil {
		return err
	}
	for _, year := range result.Schedule {
		rows := [][]string{
			{"schedule", fmt.Sprintf("year%dPaid", year.Year), fmt.Sprintf("%.0f", year.Paid)},
			{"schedule", fmt.Sprintf("year%dInterest", year.Year), fmt.Sprintf("%.0f", year.Interest)},
			{"schedule", fmt.Sprintf("year%dBalance", year.Year), fmt.Sprintf("%.0f", year.RemainingPrincipal)},
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONFormat outputs the full result as indented JSON.
func JSONFormat(w io.Writer, result Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func csvAmount(line view.Line) string {
	switch line.ID {
	case "interestRate":
		return strings.TrimSuffix(format.Percent(line.Amount), "%")
	case "loanTermYears":
		return fmt.Sprintf("%d", int(line.Amount))
	}
	return fmt.Sprintf("%.0f", line.Amount)
}

func labelWidth(layout view.Layout) int {
	width := len(layout.GrandTotal.Label)
	for _, section := range layout.Sections {
		for _, line := range section.Lines {
			width = max(width, len(line.Label))
		}
		if section.Total != nil {
			width = max(width, len(section.Total.Label))
		}
	}
	return width
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(tmpl string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, tmpl, args...)
}
