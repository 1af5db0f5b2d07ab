package chat

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/fyrsmithlabs/finsight/internal/finance"
)

// DefaultGeminiModel is used when the config names none.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini is a Replier backed by a real inference model. Each reply
// sends the full history plus a system instruction carrying the
// current financial context, so the model always answers against the
// latest snapshot.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini replier. Credentials come from the
// environment (GEMINI_API_KEY), which is how the genai client resolves
// them by default.
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Reply implements Replier.
func (g *Gemini) Reply(ctx context.Context, history []Message, fin finance.Context) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction(fin)}}},
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.RoleUser
		if m.Sender == SenderAI {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// systemInstruction renders the financial context into the prompt the
// model answers against.
func systemInstruction(fin finance.Context) string {
	sum := finance.Summarize(fin)

	b := &strings.Builder{}
	b.WriteString("You are a friendly personal-finance assistant. ")
	b.WriteString("Answer concisely in Markdown using only the data below. ")
	b.WriteString("Never invent transactions.\n\n")

	fmt.Fprintf(b, "Total spending: %s\nTotal income: %s\nNet flow: %s\n",
		finance.FormatAmount(sum.TotalSpending),
		finance.FormatAmount(sum.TotalIncome),
		finance.FormatAmount(sum.NetFlow))

	if len(sum.SpendingByCategory) > 0 {
		b.WriteString("\nSpending by category:\n")
		for _, c := range sum.SpendingByCategory {
			fmt.Fprintf(b, "- %s: %s\n", c.Category, finance.FormatAmount(c.Amount))
		}
	}
	if len(fin.Policies) > 0 {
		b.WriteString("\nSpending policies:\n")
		for _, p := range fin.Policies {
			fmt.Fprintf(b, "- %s: %s of %s (%d%%)\n",
				p.Description,
				finance.FormatAmount(p.CurrentSpending),
				finance.FormatAmount(p.LimitAmount),
				p.Progress())
		}
	}
	if len(fin.Goals) > 0 {
		b.WriteString("\nGoals:\n")
		for _, g := range fin.Goals {
			fmt.Fprintf(b, "- %s: %s of %s (%d%%)\n",
				g.GoalName,
				finance.FormatAmount(g.CurrentProgress),
				finance.FormatAmount(g.TargetAmount),
				g.Progress())
		}
	}

	b.WriteString("\nRecent transactions:\n")
	txs := fin.Transactions
	if len(txs) > 20 {
		txs = txs[len(txs)-20:]
	}
	for _, t := range txs {
		fmt.Fprintf(b, "- %s %s %s (%s)\n", t.Date, t.Description, finance.FormatAmount(t.Amount), t.Category)
	}
	return b.String()
}
