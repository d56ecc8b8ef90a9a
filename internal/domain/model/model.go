// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// PlaceholderLastName is used when a display name has a single token.
const PlaceholderLastName = "Unknown"

// Person is a known member of the roster. Identity is ID; the display name
// is never used for matching.
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// WorklogTotals is the raw logged time of one person over a query window,
// as reported by a single worklog source.
type WorklogTotals struct {
	PersonID           string
	TotalSeconds       int64
	BillableSeconds    int64 // best effort; sources may not add up to TotalSeconds
	NonBillableSeconds int64
}

// Add folds other into t. Used by sources that report per-entry data.
func (t *WorklogTotals) Add(other WorklogTotals) {
	t.TotalSeconds += other.TotalSeconds
	t.BillableSeconds += other.BillableSeconds
	t.NonBillableSeconds += other.NonBillableSeconds
}

// RequiredHoursBaseline is the calendar-derived expectation for a window.
// RequiredHours is always WorkingDays * ExpectedDailyHours.
type RequiredHoursBaseline struct {
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	ExpectedDailyHours float64   `json:"expected_daily_hours"`
	WorkingDays        int       `json:"working_days"`
	RequiredHours      float64   `json:"required_hours"`
}

// OvertimeRecord is the per-person result of an aggregation. Hour fields are
// rounded to two decimals.
type OvertimeRecord struct {
	PersonID           string  `json:"person_id"`
	DisplayName        string  `json:"display_name"`
	TotalHours         float64 `json:"total_hours"`
	RequiredHours      float64 `json:"required_hours"`
	OvertimeHours      float64 `json:"overtime_hours"`
	OvertimePercentage float64 `json:"overtime_percentage"`
	BillableHours      float64 `json:"billable_hours"`
	NonBillableHours   float64 `json:"non_billable_hours"`
	// Synthetic marks placeholder rows from the static fallback dataset.
	Synthetic bool `json:"synthetic,omitempty"`
}

// OvertimeSummary aggregates a sequence of OvertimeRecord.
type OvertimeSummary struct {
	EmployeeCount          int     `json:"employee_count"`
	TotalRequiredHours     float64 `json:"total_required_hours"`
	TotalWorkedHours       float64 `json:"total_worked_hours"`
	TotalOvertimeHours     float64 `json:"total_overtime_hours"`
	AverageOvertimeHours   float64 `json:"average_overtime_hours"`
	EmployeesWithOvertime  int     `json:"employees_with_overtime"`
	EmployeesWithUndertime int     `json:"employees_with_undertime"`
}

// SplitDisplayName returns the first and last token of name. A single-token
// name gets PlaceholderLastName as its last name.
func SplitDisplayName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", PlaceholderLastName
	case 1:
		return parts[0], PlaceholderLastName
	default:
		return parts[0], parts[len(parts)-1]
	}
}
