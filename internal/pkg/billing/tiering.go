package billing

import (
	"math"
	"time"

	"github.com/elvish-ishaan/dotformer/app/models"
)

// CostForUsage prices a usage total against a plan's tiers for one operation
// type. The first tier's free quota is subtracted up front, then the
// remainder is walked through the tiers in order, each tier absorbing at most
// its band width. An unbounded final tier absorbs whatever is left.
//
// Tiers must already be filtered to a single operation type and ordered by
// tier ordinal, as returned by PricingPlan.TiersFor.
func CostForUsage(tiers []models.PricingTier, usage int64) float64 {
	if len(tiers) == 0 || usage <= 0 {
		return 0
	}

	remaining := usage - tiers[0].FreeQuota
	if remaining < 0 {
		remaining = 0
	}

	var cost float64
	for i := range tiers {
		if remaining <= 0 {
			break
		}
		inTier := remaining
		if width := tiers[i].Width(); width >= 0 && width < inTier {
			inTier = width
		}
		cost += float64(inTier) * tiers[i].UnitPrice
		remaining -= inTier
	}
	return cost
}

// ApplyMinimum raises a positive cost to the plan's minimum charge. A zero
// cost stays zero: the floor applies only when there is something to bill.
func ApplyMinimum(planName string, cost float64) float64 {
	min := models.MinimumCharge(planName)
	if cost > 0 && cost < min {
		return min
	}
	return cost
}

// RoundToCents rounds a computed amount to two decimals for storage.
func RoundToCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// PreviousMonthWindow returns the [start, end) window covering the calendar
// month before now, in UTC. This is the window the monthly billing run bills.
func PreviousMonthWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -1, 0)
	return start, end
}

// StartOfMonth returns the first instant of now's calendar month in UTC.
func StartOfMonth(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
