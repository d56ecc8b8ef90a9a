package overtime

import (
	"cmp"
	"slices"

	"github.com/okian/overtime/internal/domain/model"
	"github.com/shopspring/decimal"
)

const hourPrecision = 2

var (
	secondsPerHour = decimal.NewFromInt(3600)
	hundred        = decimal.NewFromInt(100)
)

func hours(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(secondsPerHour)
}

// round is the only place hour values are rounded. Ties go away from zero.
func round(d decimal.Decimal) float64 {
	f, _ := d.Round(hourPrecision).Float64()
	return f
}

// BuildRecord converts raw seconds into a rounded OvertimeRecord. All
// arithmetic happens on unrounded decimals.
func BuildRecord(p model.Person, t model.WorklogTotals, requiredHours float64) model.OvertimeRecord {
	total := hours(t.TotalSeconds)
	required := decimal.NewFromFloat(requiredHours)
	overtime := total.Sub(required)

	pct := decimal.Zero
	if required.IsPositive() {
		pct = overtime.Div(required).Mul(hundred)
	}

	return model.OvertimeRecord{
		PersonID:           p.ID,
		DisplayName:        p.DisplayName,
		TotalHours:         round(total),
		RequiredHours:      round(required),
		OvertimeHours:      round(overtime),
		OvertimePercentage: round(pct),
		BillableHours:      round(hours(t.BillableSeconds)),
		NonBillableHours:   round(hours(t.NonBillableSeconds)),
	}
}

// SortRecords orders records by overtime, highest first. Equal values keep
// their input order.
func SortRecords(records []model.OvertimeRecord) {
	slices.SortStableFunc(records, func(a, b model.OvertimeRecord) int {
		return cmp.Compare(b.OvertimeHours, a.OvertimeHours)
	})
}

// ComputeSummary aggregates records. It never fetches anything.
func ComputeSummary(records []model.OvertimeRecord) model.OvertimeSummary {
	var required, worked, overtime decimal.Decimal
	s := model.OvertimeSummary{EmployeeCount: len(records)}
	for _, r := range records {
		required = required.Add(decimal.NewFromFloat(r.RequiredHours))
		worked = worked.Add(decimal.NewFromFloat(r.TotalHours))
		overtime = overtime.Add(decimal.NewFromFloat(r.OvertimeHours))
		switch {
		case r.OvertimeHours > 0:
			s.EmployeesWithOvertime++
		case r.OvertimeHours < 0:
			s.EmployeesWithUndertime++
		}
	}
	s.TotalRequiredHours = round(required)
	s.TotalWorkedHours = round(worked)
	s.TotalOvertimeHours = round(overtime)
	s.AverageOvertimeHours = round(overtime.Div(decimal.NewFromInt(int64(max(len(records), 1)))))
	return s
}
