package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/okian/overtime/internal/domain/model"
)

const dateLayout = "2006-01-02"

// RenderOvertime writes the records as an aligned table preceded by the
// baseline and any fallback warning.
func RenderOvertime(w io.Writer, o Overtime) error {
	writeHeader(w, o.Mode, o.Baseline, o.UsedFallback, o.FallbackReason)

	if len(o.Records) == 0 {
		_, err := fmt.Fprintln(w, "no records")
		return err
	}

	var t table
	t.row(headColor, "#", "WHO", "NAME", "LOGGED", "REQUIRED", "OVERTIME", "%", "BILLABLE", "NON-BILLABLE", "STATUS")
	for i, r := range o.Records {
		c := statusColor(r.OvertimeHours)
		t.add(
			plain(fmt.Sprint(i+1)),
			plain(Initials(r.DisplayName)),
			plain(displayName(r)),
			plain(FormatHours(r.TotalHours)),
			plain(FormatHours(r.RequiredHours)),
			tint(c, FormatSignedHours(r.OvertimeHours)),
			tint(c, FormatPercent(r.OvertimePercentage)),
			plain(FormatHours(r.BillableHours)),
			plain(FormatHours(r.NonBillableHours)),
			tint(c, Status(r.OvertimeHours)),
		)
	}
	return t.write(w)
}

// RenderSummary writes the aggregate statistics.
func RenderSummary(w io.Writer, s Summary) error {
	writeHeader(w, s.Mode, s.Baseline, s.UsedFallback, s.FallbackReason)

	sum := s.Summary
	var t table
	t.add(tint(headColor, "People"), plain(fmt.Sprint(sum.EmployeeCount)))
	t.add(tint(headColor, "Required"), plain(FormatHours(sum.TotalRequiredHours)))
	t.add(tint(headColor, "Logged"), plain(FormatHours(sum.TotalWorkedHours)))
	t.add(tint(headColor, "Overtime"), tint(statusColor(sum.TotalOvertimeHours), FormatSignedHours(sum.TotalOvertimeHours)))
	t.add(tint(headColor, "Average overtime"), tint(statusColor(sum.AverageOvertimeHours), FormatSignedHours(sum.AverageOvertimeHours)))
	t.add(tint(headColor, "With overtime"), plain(fmt.Sprint(sum.EmployeesWithOvertime)))
	t.add(tint(headColor, "With undertime"), plain(fmt.Sprint(sum.EmployeesWithUndertime)))
	return t.write(w)
}

// cell is table text with an optional color. Width is measured on text
// alone, so escape codes never shift a column.
type cell struct {
	text  string
	color *color.Color
}

func plain(text string) cell { return cell{text: text} }

func tint(c *color.Color, text string) cell { return cell{text: text, color: c} }

// table left-aligns cells in columns two spaces apart.
type table struct {
	rows   [][]cell
	widths []int
}

func (t *table) add(cells ...cell) {
	for i, c := range cells {
		if i == len(t.widths) {
			t.widths = append(t.widths, 0)
		}
		t.widths[i] = max(t.widths[i], runewidth.StringWidth(c.text))
	}
	t.rows = append(t.rows, cells)
}

func (t *table) row(c *color.Color, texts ...string) {
	cells := make([]cell, len(texts))
	for i, text := range texts {
		cells[i] = tint(c, text)
	}
	t.add(cells...)
}

func (t *table) write(w io.Writer) error {
	var b strings.Builder
	for _, r := range t.rows {
		for i, c := range r {
			text := c.text
			if i < len(r)-1 {
				text = runewidth.FillRight(text, t.widths[i]+2)
			}
			if c.color != nil {
				// Trailing padding stays outside the escape codes.
				trimmed := strings.TrimRight(text, " ")
				text = c.color.Sprint(trimmed) + text[len(trimmed):]
			}
			b.WriteString(text)
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeHeader(w io.Writer, mode string, b model.RequiredHoursBaseline, fallback bool, reason string) {
	_, _ = fmt.Fprintf(w, "%s %s..%s  %d working days x %s = %s  (mode: %s)\n",
		headColor.Sprint("Window"),
		b.Start.Format(dateLayout), b.End.Format(dateLayout),
		b.WorkingDays, FormatHours(b.ExpectedDailyHours), FormatHours(b.RequiredHours), mode)
	if fallback {
		_, _ = fmt.Fprintln(w, warnColor.Sprintf("showing placeholder data: %s", reason))
	}
}

func displayName(r model.OvertimeRecord) string {
	if r.DisplayName == "" {
		return r.PersonID
	}
	return r.DisplayName
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
