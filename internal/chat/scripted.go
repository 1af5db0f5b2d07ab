package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/finsight/internal/finance"
)

// defaultReplyDelay approximates a model thinking before it answers.
const defaultReplyDelay = 1500 * time.Millisecond

// Scripted is a reply generator that needs no backend: it derives
// short insights from the context snapshot and keys on a few phrases
// in the user's last message. It exists so the chat flow works end to
// end before a real inference backend is plugged in.
type Scripted struct {
	// Delay before each reply. Zero means answer immediately, which
	// tests rely on.
	Delay time.Duration
}

// NewScripted returns a scripted replier with the default delay.
func NewScripted() *Scripted {
	return &Scripted{Delay: defaultReplyDelay}
}

// Reply implements Replier. It honors context cancellation during the
// simulated delay.
func (s *Scripted) Reply(ctx context.Context, history []Message, fin finance.Context) (string, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	var question string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender == SenderUser {
			question = strings.ToLower(history[i].Content)
			break
		}
	}

	sum := finance.Summarize(fin)
	switch {
	case strings.Contains(question, "summar"), strings.Contains(question, "spending"):
		return spendingSummary(sum), nil
	case strings.Contains(question, "save"):
		return savingTip(sum), nil
	case strings.Contains(question, "largest"), strings.Contains(question, "biggest"):
		return largestPurchases(sum), nil
	default:
		return "That's a great question! Based on your data, here is what I found: you've spent " +
			finance.FormatAmount(sum.TotalSpending) + " this period against " +
			finance.FormatAmount(sum.TotalIncome) + " of income.", nil
	}
}

func spendingSummary(sum finance.Summary) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "You've spent %s this period against %s of income, for a net flow of %s.",
		finance.FormatAmount(sum.TotalSpending),
		finance.FormatAmount(sum.TotalIncome),
		finance.FormatAmount(sum.NetFlow))
	if len(sum.SpendingByCategory) > 0 {
		top := sum.SpendingByCategory[0]
		fmt.Fprintf(b, " Your biggest category is **%s** at %s.",
			top.Category, finance.FormatAmount(top.Amount))
	}
	return b.String()
}

func savingTip(sum finance.Summary) string {
	if len(sum.SpendingByCategory) == 0 {
		return "I don't see any spending yet, so nothing to trim. Upload a statement and I'll take a look."
	}
	top := sum.SpendingByCategory[0]
	return fmt.Sprintf("Your biggest area for potential savings is **%s**, where you've spent %s. "+
		"Setting a spending policy for that category is a good first step.",
		top.Category, finance.FormatAmount(top.Amount))
}

func largestPurchases(sum finance.Summary) string {
	if len(sum.TopMerchants) == 0 {
		return "I don't see any purchases in your data yet."
	}
	b := &strings.Builder{}
	b.WriteString("Your largest spend by merchant:\n")
	for i, m := range sum.TopMerchants {
		fmt.Fprintf(b, "%d. %s: %s\n", i+1, m.Merchant, finance.FormatAmount(m.Amount))
	}
	return strings.TrimRight(b.String(), "\n")
}
