package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/finsight/internal/finance"
)

func TestLogAppendOrder(t *testing.T) {
	l := NewLog()
	a := l.Append(SenderUser, "a")
	b := l.Append(SenderUser, "b")

	assert.Less(t, a.Seq, b.Seq)

	h := l.History()
	require.Len(t, h, 2)
	assert.Equal(t, "a", h[0].Content)
	assert.Equal(t, "b", h[1].Content)
}

func TestLogOrderStableUnderInterleavedReplies(t *testing.T) {
	// send("a") then send("b"): "a" precedes "b" no matter when the
	// AI replies land in between.
	l := NewLog()
	l.Append(SenderUser, "a")
	l.Append(SenderAI, "reply to a")
	l.Append(SenderUser, "b")
	l.Append(SenderAI, "reply to b")

	h := l.History()
	var userOrder []string
	for _, m := range h {
		if m.Sender == SenderUser {
			userOrder = append(userOrder, m.Content)
		}
	}
	assert.Equal(t, []string{"a", "b"}, userOrder)

	for i := 1; i < len(h); i++ {
		assert.Greater(t, h[i].Seq, h[i-1].Seq)
	}
}

func TestLogHistoryIsACopy(t *testing.T) {
	l := NewLog()
	l.Append(SenderUser, "original")

	h := l.History()
	h[0].Content = "mutated"

	assert.Equal(t, "original", l.History()[0].Content)
}

func TestLogConcurrentAppends(t *testing.T) {
	l := NewLog()
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			l.Append(SenderUser, fmt.Sprintf("msg-%d", n))
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	h := l.History()
	require.Len(t, h, 10)
	seen := map[int]bool{}
	for _, m := range h {
		assert.False(t, seen[m.Seq], "duplicate seq %d", m.Seq)
		seen[m.Seq] = true
	}
}

func TestSeed(t *testing.T) {
	l := NewLog()
	l.Seed("Miguel")

	h := l.History()
	require.Len(t, h, 1)
	assert.Equal(t, SenderAI, h[0].Sender)
	assert.Contains(t, h[0].Content, "Miguel")
}

func spendingContext() finance.Context {
	six, _ := decimal.NewFromString("-6.50")
	rent, _ := decimal.NewFromString("-2500")
	salary, _ := decimal.NewFromString("3500")
	return finance.Context{Transactions: []finance.Transaction{
		{ID: "t1", Date: "2025-09-12", Description: "Daily Grind Coffee", Amount: six, Category: finance.CategoryFoodDrink},
		{ID: "t2", Date: "2025-09-10", Description: "Rent Payment", Amount: rent, Category: finance.CategoryHousing},
		{ID: "t3", Date: "2025-09-08", Description: "Salary Deposit", Amount: salary, Category: finance.CategoryIncome},
	}}
}

func TestScriptedReply_SpendingSummary(t *testing.T) {
	s := &Scripted{}
	history := []Message{{Sender: SenderUser, Content: "Summarize my spending this month."}}

	reply, err := s.Reply(context.Background(), history, spendingContext())
	require.NoError(t, err)
	assert.Contains(t, reply, "$2506.50")
	assert.Contains(t, reply, "Housing")
}

func TestScriptedReply_SavingTip(t *testing.T) {
	s := &Scripted{}
	history := []Message{{Sender: SenderUser, Content: "Where can I save the most money?"}}

	reply, err := s.Reply(context.Background(), history, spendingContext())
	require.NoError(t, err)
	assert.Contains(t, reply, "Housing")
}

func TestScriptedReply_LargestPurchases(t *testing.T) {
	s := &Scripted{}
	history := []Message{{Sender: SenderUser, Content: "Show my largest purchases."}}

	reply, err := s.Reply(context.Background(), history, spendingContext())
	require.NoError(t, err)
	assert.Contains(t, reply, "Rent Payment")
}

func TestScriptedReply_EmptyContext(t *testing.T) {
	s := &Scripted{}
	history := []Message{{Sender: SenderUser, Content: "Where can I save?"}}

	reply, err := s.Reply(context.Background(), history, finance.Context{})
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
}

func TestScriptedReply_CancelledDuringDelay(t *testing.T) {
	s := &Scripted{Delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Reply(ctx, nil, finance.Context{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSystemInstructionCarriesContext(t *testing.T) {
	fifty, _ := decimal.NewFromString("50")
	spent, _ := decimal.NewFromString("35.50")
	fin := spendingContext()
	fin.Policies = []finance.Policy{{
		Description:     "Coffee Budget",
		LimitAmount:     fifty,
		CurrentSpending: spent,
		Timeframe:       finance.TimeframeMonthly,
		TargetCategory:  finance.CategoryFoodDrink,
	}}

	prompt := systemInstruction(fin)
	assert.Contains(t, prompt, "Coffee Budget")
	assert.Contains(t, prompt, "71%")
	assert.Contains(t, prompt, "Daily Grind Coffee")
}
