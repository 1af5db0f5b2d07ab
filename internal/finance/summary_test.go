package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleContext() Context {
	return Context{
		Transactions: []Transaction{
			{ID: "t1", Date: "2025-09-12", Description: "Daily Grind Coffee", Amount: dec("-6.50"), Category: CategoryFoodDrink},
			{ID: "t2", Date: "2025-09-12", Description: "Lyft Ride", Amount: dec("-15.75"), Category: CategoryTransport},
			{ID: "t3", Date: "2025-09-08", Description: "Salary Deposit", Amount: dec("3500"), Category: CategoryIncome},
		},
	}
}

func TestSummarize_Totals(t *testing.T) {
	s := Summarize(sampleContext())

	assert.True(t, s.TotalSpending.Equal(dec("22.25")), "spending = %s", s.TotalSpending)
	assert.True(t, s.TotalIncome.Equal(dec("3500")), "income = %s", s.TotalIncome)
	assert.True(t, s.NetFlow.Equal(dec("3477.75")), "net = %s", s.NetFlow)
}

func TestSummarize_Deterministic(t *testing.T) {
	ctx := sampleContext()
	first := Summarize(ctx)
	second := Summarize(ctx)

	assert.Equal(t, first, second)
}

func TestSummarize_ByCategory(t *testing.T) {
	s := Summarize(sampleContext())

	require.Len(t, s.SpendingByCategory, 2)
	assert.Equal(t, CategoryTransport, s.SpendingByCategory[0].Category)
	assert.True(t, s.SpendingByCategory[0].Amount.Equal(dec("15.75")))
	assert.Equal(t, CategoryFoodDrink, s.SpendingByCategory[1].Category)
	assert.True(t, s.SpendingByCategory[1].Amount.Equal(dec("6.50")))
}

func TestSummarize_UncategorizedFallsBackToOther(t *testing.T) {
	s := Summarize(Context{Transactions: []Transaction{
		{ID: "t1", Date: "2025-09-01", Description: "Mystery", Amount: dec("-10")},
	}})

	require.Len(t, s.SpendingByCategory, 1)
	assert.Equal(t, CategoryOther, s.SpendingByCategory[0].Category)
}

func TestSummarize_OverTimeIsChronological(t *testing.T) {
	s := Summarize(Context{Transactions: []Transaction{
		{ID: "t1", Date: "2025-09-12", Description: "b", Amount: dec("-2")},
		{ID: "t2", Date: "2025-09-10", Description: "a", Amount: dec("-1")},
		{ID: "t3", Date: "2025-09-12", Description: "c", Amount: dec("-3")},
	}})

	require.Len(t, s.SpendingOverTime, 2)
	assert.Equal(t, "2025-09-10", s.SpendingOverTime[0].Date)
	assert.Equal(t, "2025-09-12", s.SpendingOverTime[1].Date)
	assert.True(t, s.SpendingOverTime[1].Amount.Equal(dec("5")))
}

func TestSummarize_TopMerchants(t *testing.T) {
	s := Summarize(Context{Transactions: []Transaction{
		{ID: "t1", Date: "2025-09-01", Description: "Amazon", Amount: dec("-540.50")},
		{ID: "t2", Date: "2025-09-02", Description: "Whole Foods", Amount: dec("-312.80")},
		{ID: "t3", Date: "2025-09-03", Description: "Lyft", Amount: dec("-180.20")},
		{ID: "t4", Date: "2025-09-04", Description: "Corner Store", Amount: dec("-4.20")},
		{ID: "t5", Date: "2025-09-05", Description: "Amazon", Amount: dec("-10")},
	}})

	require.Len(t, s.TopMerchants, 3)
	assert.Equal(t, "Amazon", s.TopMerchants[0].Merchant)
	assert.True(t, s.TopMerchants[0].Amount.Equal(dec("550.50")))
	assert.Equal(t, "Whole Foods", s.TopMerchants[1].Merchant)
	assert.Equal(t, "Lyft", s.TopMerchants[2].Merchant)
}

func TestSummarize_EmptyContext(t *testing.T) {
	s := Summarize(Context{})

	assert.True(t, s.TotalSpending.IsZero())
	assert.True(t, s.TotalIncome.IsZero())
	assert.True(t, s.NetFlow.IsZero())
	assert.Empty(t, s.SpendingByCategory)
	assert.Empty(t, s.SpendingOverTime)
	assert.Empty(t, s.TopMerchants)
}

func TestPolicyProgress(t *testing.T) {
	p := Policy{LimitAmount: dec("50"), CurrentSpending: dec("35.50")}
	assert.Equal(t, 71, p.Progress())

	over := Policy{LimitAmount: dec("50"), CurrentSpending: dec("80")}
	assert.Equal(t, 100, over.Progress())
	assert.True(t, over.Exceeded())

	zero := Policy{}
	assert.Equal(t, 0, zero.Progress())
}

func TestGoalProgress(t *testing.T) {
	g := UserGoal{TargetAmount: dec("1000"), CurrentProgress: dec("250")}
	assert.Equal(t, 25, g.Progress())

	done := UserGoal{TargetAmount: dec("1000"), CurrentProgress: dec("1200")}
	assert.Equal(t, 100, done.Progress())
}

func TestContextClone(t *testing.T) {
	orig := sampleContext()
	clone := orig.Clone()

	clone.Transactions[0].Description = "mutated"
	assert.Equal(t, "Daily Grind Coffee", orig.Transactions[0].Description)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$3500.00", FormatAmount(dec("3500")))
	assert.Equal(t, "-$6.50", FormatAmount(dec("-6.5")))
}
