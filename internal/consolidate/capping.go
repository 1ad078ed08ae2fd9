package consolidate

import (
	"context"
	"math"
	"sort"

	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/sheets"
	"github.com/shopspring/decimal"
)

// CapAdjustment records the hours removed from one employee.
type CapAdjustment struct {
	Employee     string  `json:"employee_name"`
	RegularHours float64 `json:"regular_hours"`
	Removed      float64 `json:"removed_hours"`
	DroppedRows  int     `json:"dropped_entries"`
}

// CapRegularHours trims regular hours to limit for every employee that also
// has an overtime entry. Hours come off the latest regular entries first and
// entries left at zero are dropped. Employees without overtime are untouched.
func CapRegularHours(ctx context.Context, site *sheets.Intermediate, limit float64) []CapAdjustment {
	if site == nil {
		return nil
	}
	log := logging.FromContext(ctx)
	capDec := decimal.NewFromFloat(limit)

	var adjustments []CapAdjustment
	for i := range site.Employees {
		emp := &site.Employees[i]

		var regular []int
		hasOvertime := false
		total := decimal.Zero
		for j, e := range emp.Entries {
			switch e.HourType {
			case payroll.Regular:
				// Non-finite hours are left for NewDailyEntry to reject.
				if math.IsNaN(e.Hours) || math.IsInf(e.Hours, 0) {
					continue
				}
				regular = append(regular, j)
				total = total.Add(decimal.NewFromFloat(e.Hours))
			case payroll.Overtime:
				hasOvertime = true
			}
		}
		if !hasOvertime || total.LessThanOrEqual(capDec) {
			continue
		}

		sort.SliceStable(regular, func(a, b int) bool {
			return emp.Entries[regular[a]].Date.After(emp.Entries[regular[b]].Date)
		})

		excess := total.Sub(capDec)
		emptied := map[int]bool{}
		for _, j := range regular {
			if !excess.IsPositive() {
				break
			}
			hours := decimal.NewFromFloat(emp.Entries[j].Hours)
			cut := decimal.Min(hours, excess)
			left := hours.Sub(cut)
			emp.Entries[j].Hours = left.InexactFloat64()
			if !left.IsPositive() {
				emptied[j] = true
			}
			excess = excess.Sub(cut)
		}

		kept := emp.Entries[:0]
		dropped := 0
		for j, e := range emp.Entries {
			if emptied[j] {
				dropped++
				continue
			}
			kept = append(kept, e)
		}
		emp.Entries = kept

		adj := CapAdjustment{
			Employee:     emp.Name,
			RegularHours: total.InexactFloat64(),
			Removed:      total.Sub(capDec).InexactFloat64(),
			DroppedRows:  dropped,
		}
		adjustments = append(adjustments, adj)
		log.Info().
			Str("employee", adj.Employee).
			Float64("regular_hours", adj.RegularHours).
			Float64("removed_hours", adj.Removed).
			Int("dropped_entries", adj.DroppedRows).
			Msg("capped regular hours")
	}
	return adjustments
}
