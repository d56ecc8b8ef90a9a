package overtime

import (
	"time"

	"github.com/okian/overtime/internal/domain/model"
)

// Placeholder figures shown when no real data can be fetched. Every
// record built from them is marked Synthetic.
const (
	fallbackWorkingDays = 20
	fallbackDailyHours  = 8.0
)

var fallbackDataset = []struct {
	person      model.Person
	workedHours int64
}{
	{model.Person{ID: "fallback-1", DisplayName: "Alex Thompson"}, 176},
	{model.Person{ID: "fallback-2", DisplayName: "Sarah Chen"}, 168},
	{model.Person{ID: "fallback-3", DisplayName: "Maria Garcia"}, 152},
	{model.Person{ID: "fallback-4", DisplayName: "David Kim"}, 184},
	{model.Person{ID: "fallback-5", DisplayName: "Emma Wilson"}, 160},
}

// FallbackResult builds the labelled placeholder result for the range
// start..end.
func FallbackResult(start, end time.Time, reason string) Result {
	baseline := model.RequiredHoursBaseline{
		Start:              start,
		End:                end,
		ExpectedDailyHours: fallbackDailyHours,
		WorkingDays:        fallbackWorkingDays,
		RequiredHours:      fallbackWorkingDays * fallbackDailyHours,
	}

	records := make([]model.OvertimeRecord, 0, len(fallbackDataset))
	for _, f := range fallbackDataset {
		seconds := f.workedHours * 3600
		r := BuildRecord(f.person, model.WorklogTotals{
			PersonID:           f.person.ID,
			TotalSeconds:       seconds,
			NonBillableSeconds: seconds,
		}, baseline.RequiredHours)
		r.Synthetic = true
		records = append(records, r)
	}
	SortRecords(records)

	return Result{
		Records:        records,
		Baseline:       baseline,
		UsedFallback:   true,
		FallbackReason: reason,
	}
}
