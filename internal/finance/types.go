// Package finance defines the domain model shared by the finsight
// clients: transactions, budget policies, savings goals, and the
// aggregate context snapshot the backend returns. It also provides the
// pure aggregation functions the dashboard renders from.
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// The backend speaks JSON numbers for amounts, not quoted strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Category is one of the fixed transaction categories the backend
// classifier assigns. A transaction may carry no category until it has
// been classified.
type Category string

const (
	CategoryFoodDrink     Category = "Food & Drink"
	CategoryTransport     Category = "Transport"
	CategoryShopping      Category = "Shopping"
	CategoryHousing       Category = "Housing"
	CategoryEntertainment Category = "Entertainment"
	CategoryIncome        Category = "Income"
	CategoryOther         Category = "Other"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryFoodDrink,
	CategoryTransport,
	CategoryShopping,
	CategoryHousing,
	CategoryEntertainment,
	CategoryIncome,
	CategoryOther,
}

// Timeframe is the window a policy limit applies to.
type Timeframe string

const (
	TimeframeMonthly Timeframe = "monthly"
	TimeframeWeekly  Timeframe = "weekly"
)

// Transaction is a single ledger entry. Amount sign convention:
// negative = expense, positive = income. Transactions are immutable
// once created; the whole set is replaced on every context refresh.
type Transaction struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category,omitempty"`
}

// IsExpense reports whether the transaction is money out.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// NewTransaction is the client-side shape for creating a transaction.
// The backend assigns the ID.
type NewTransaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category,omitempty"`
}

// Validate checks the fields a form must fill before any network call.
func (t NewTransaction) Validate() error {
	if t.Date == "" {
		return fmt.Errorf("date is required")
	}
	if t.Description == "" {
		return fmt.Errorf("description is required")
	}
	if t.Amount.IsZero() {
		return fmt.Errorf("amount must be non-zero")
	}
	return nil
}

// UserGoal is the single savings goal a user tracks. Progress may
// exceed the target, which the UI treats as complete.
type UserGoal struct {
	GoalName        string          `json:"goal_name"`
	TargetAmount    decimal.Decimal `json:"target_amount"`
	CurrentProgress decimal.Decimal `json:"current_progress"`
}

// Progress returns completion as a rounded percentage, clamped to 100.
func (g UserGoal) Progress() int {
	return progressPercent(g.CurrentProgress, g.TargetAmount)
}

// NewGoal is the client-side shape for setting a goal. Progress is
// tracked server-side.
type NewGoal struct {
	GoalName     string          `json:"goal_name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

// Validate checks required goal fields.
func (g NewGoal) Validate() error {
	if g.GoalName == "" {
		return fmt.Errorf("goal name is required")
	}
	if !g.TargetAmount.IsPositive() {
		return fmt.Errorf("target amount must be positive")
	}
	return nil
}

// Policy is a budget rule capping spend in a category over a
// timeframe. CurrentSpending is server-authoritative: the client never
// recomputes it from the transaction list, it only replaces the whole
// object on refresh.
type Policy struct {
	PolicyID        string          `json:"policy_id"`
	Description     string          `json:"description"`
	LimitAmount     decimal.Decimal `json:"limit_amount"`
	CurrentSpending decimal.Decimal `json:"current_spending"`
	Timeframe       Timeframe       `json:"timeframe"`
	TargetCategory  Category        `json:"target_category"`
}

// Progress returns spend against the limit as a rounded percentage,
// clamped to 100. A 35.50 spend against a 50 limit reports 71.
func (p Policy) Progress() int {
	return progressPercent(p.CurrentSpending, p.LimitAmount)
}

// Exceeded reports whether spending has reached or passed the limit.
func (p Policy) Exceeded() bool {
	return p.CurrentSpending.GreaterThanOrEqual(p.LimitAmount)
}

// NewPolicy is the client-side shape for creating a policy. The
// backend assigns the ID and timeframe and tracks spending.
type NewPolicy struct {
	Description    string          `json:"description"`
	LimitAmount    decimal.Decimal `json:"limit_amount"`
	TargetCategory Category        `json:"target_category"`
}

// Validate checks required policy fields.
func (p NewPolicy) Validate() error {
	if p.Description == "" {
		return fmt.Errorf("description is required")
	}
	if !p.LimitAmount.IsPositive() {
		return fmt.Errorf("limit amount must be positive")
	}
	if p.TargetCategory == "" {
		return fmt.Errorf("target category is required")
	}
	return nil
}

// Context is the aggregate snapshot of a user's financial state. It is
// the single source of truth for the session and is replaced wholesale
// on every successful fetch or mutation, never patched in place.
type Context struct {
	Transactions []Transaction `json:"transactions"`
	Goals        []UserGoal    `json:"goals"`
	Policies     []Policy      `json:"policies"`
}

// Clone returns a deep copy so callers can hold a snapshot without
// aliasing the store's slices.
func (c Context) Clone() Context {
	out := Context{}
	if c.Transactions != nil {
		out.Transactions = make([]Transaction, len(c.Transactions))
		copy(out.Transactions, c.Transactions)
	}
	if c.Goals != nil {
		out.Goals = make([]UserGoal, len(c.Goals))
		copy(out.Goals, c.Goals)
	}
	if c.Policies != nil {
		out.Policies = make([]Policy, len(c.Policies))
		copy(out.Policies, c.Policies)
	}
	return out
}

// progressPercent computes part/whole as a rounded percent in [0, 100].
// A non-positive whole reports 0 rather than dividing by zero.
func progressPercent(part, whole decimal.Decimal) int {
	if !whole.IsPositive() {
		return 0
	}
	pct := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// FormatAmount renders a decimal as a currency string, e.g. "$22.25"
// or "-$6.50".
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
