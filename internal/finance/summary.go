package finance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount is one bar of the spending-by-category chart.
type CategoryAmount struct {
	Category Category
	Amount   decimal.Decimal
}

// DayAmount is one bucket of the spending-over-time series.
type DayAmount struct {
	Date   string // YYYY-MM-DD
	Amount decimal.Decimal
}

// MerchantAmount is one slice of the top-merchants breakdown.
type MerchantAmount struct {
	Merchant string
	Amount   decimal.Decimal
}

// Summary holds every aggregate the dashboard renders. It is derived
// from a Context snapshot on each render, never stored.
type Summary struct {
	TotalSpending      decimal.Decimal
	TotalIncome        decimal.Decimal
	NetFlow            decimal.Decimal
	SpendingByCategory []CategoryAmount
	SpendingOverTime   []DayAmount
	TopMerchants       []MerchantAmount
}

const topMerchantCount = 3

// Summarize computes dashboard aggregates from a context snapshot.
// It is pure: the same snapshot always produces the same summary, and
// an empty snapshot produces zeros rather than an error.
//
// Spending totals are absolute sums of negative amounts; income is the
// sum of positive amounts; net flow is income minus spending.
func Summarize(c Context) Summary {
	s := Summary{
		TotalSpending: decimal.Zero,
		TotalIncome:   decimal.Zero,
	}

	byCategory := map[Category]decimal.Decimal{}
	byDay := map[string]decimal.Decimal{}
	byMerchant := map[string]decimal.Decimal{}

	for _, t := range c.Transactions {
		if t.IsExpense() {
			spend := t.Amount.Abs()
			s.TotalSpending = s.TotalSpending.Add(spend)

			cat := t.Category
			if cat == "" {
				cat = CategoryOther
			}
			byCategory[cat] = byCategory[cat].Add(spend)
			byDay[t.Date] = byDay[t.Date].Add(spend)
			byMerchant[t.Description] = byMerchant[t.Description].Add(spend)
		} else {
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		}
	}
	s.NetFlow = s.TotalIncome.Sub(s.TotalSpending)

	s.SpendingByCategory = sortedCategories(byCategory)
	s.SpendingOverTime = sortedDays(byDay)
	s.TopMerchants = topMerchants(byMerchant, topMerchantCount)
	return s
}

// sortedCategories orders category totals largest first, ties broken
// by name so the output is deterministic.
func sortedCategories(m map[Category]decimal.Decimal) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for cat, amt := range m {
		out = append(out, CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// sortedDays orders daily buckets chronologically. Dates are ISO
// strings so lexical order is date order.
func sortedDays(m map[string]decimal.Decimal) []DayAmount {
	out := make([]DayAmount, 0, len(m))
	for day, amt := range m {
		out = append(out, DayAmount{Date: day, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// topMerchants returns the n largest spend totals by merchant,
// largest first, ties broken by name.
func topMerchants(m map[string]decimal.Decimal, n int) []MerchantAmount {
	out := make([]MerchantAmount, 0, len(m))
	for name, amt := range m {
		out = append(out, MerchantAmount{Merchant: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Merchant < out[j].Merchant
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
