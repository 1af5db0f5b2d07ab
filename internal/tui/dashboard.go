package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/finsight/internal/chat"
	"github.com/fyrsmithlabs/finsight/internal/finance"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	barChartWidth   = 36
	barChartHeight  = 6
	sidebarCount    = 8
)

// createSparkline renders the spending-over-time series.
func createSparkline(days []finance.DayAmount) string {
	if len(days) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, d := range days {
		spark.Push(d.Amount.InexactFloat64())
	}

	return sparklineStyle.Render(spark.View())
}

// createBarChart renders spending by category.
func createBarChart(cats []finance.CategoryAmount) string {
	if len(cats) == 0 {
		return dimStyle.Render("no spending yet")
	}

	bc := barchart.New(barChartWidth, barChartHeight)
	for i, c := range cats {
		bc.Push(barchart.BarData{
			Label: shortLabel(string(c.Category)),
			Values: []barchart.BarValue{{
				Name:  string(c.Category),
				Value: c.Amount.InexactFloat64(),
				Style: barStyles[i%len(barStyles)],
			}},
		})
	}
	bc.Draw()
	return bc.View()
}

// shortLabel trims a category name to fit under its bar. Trimming is
// by rune so multi-byte names stay valid UTF-8.
func shortLabel(s string) string {
	r := []rune(s)
	if len(r) > 6 {
		return string(r[:6])
	}
	return s
}

// renderMain renders the dashboard, sidebar and chat pane.
func (m Model) renderMain() string {
	snap := m.store.Snapshot()
	sum := finance.Summarize(snap)

	var content string

	greeting := "Overview"
	if m.cfg.Identity.Name != "" {
		greeting = "Welcome back, " + m.cfg.Identity.Name
	}
	header := headerStyle.Render(" finsight ")
	content += header + "  " + dimStyle.Render(greeting) + "\n"

	// KPI row
	content += "\n" + sectionStyle.Render("┃ This period") + "\n"
	content += labelStyle.Render("  Spending: ") + spendStyle.Render(finance.FormatAmount(sum.TotalSpending)) +
		labelStyle.Render("   Income: ") + incomeStyle.Render(finance.FormatAmount(sum.TotalIncome)) +
		labelStyle.Render("   Net: ") + valueStyle.Render(finance.FormatAmount(sum.NetFlow)) + "\n"

	// Charts
	content += "\n" + sectionStyle.Render("┃ Spending by category") + "\n"
	content += createBarChart(sum.SpendingByCategory) + "\n"

	content += sectionStyle.Render("┃ Spending over time") + "\n"
	content += "  " + createSparkline(sum.SpendingOverTime) + "\n"

	// Budget policies
	content += m.renderPolicies(snap.Policies)

	// Goal
	content += m.renderGoals(snap.Goals)

	left := content
	right := m.renderSidebar(snap, sum)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "   ", right)

	out := body + "\n" + m.renderChat()

	if m.statusLine != "" {
		out += "\n" + dimStyle.Render(m.statusLine)
	}

	footer := footerKeyStyle.Render("[ctrl+t]") + footerStyle.Render(" transaction  ") +
		footerKeyStyle.Render("[ctrl+p]") + footerStyle.Render(" policy  ") +
		footerKeyStyle.Render("[ctrl+g]") + footerStyle.Render(" goal  ") +
		footerKeyStyle.Render("[ctrl+u]") + footerStyle.Render(" upload  ") +
		footerKeyStyle.Render("[ctrl+r]") + footerStyle.Render(" refresh  ") +
		footerKeyStyle.Render("[ctrl+c]") + footerStyle.Render(" quit")
	out += "\n" + footer

	return containerStyle.Render(out)
}

func (m Model) renderPolicies(policies []finance.Policy) string {
	var content string
	content += "\n" + sectionStyle.Render("┃ Budget policies") + "\n"
	if len(policies) == 0 {
		content += dimStyle.Render("  No policies yet. Press ctrl+p to add one.") + "\n"
		return content
	}

	for _, p := range policies {
		bar := progress.New(
			progress.WithGradient("#00ff00", "#ff0000"),
			progress.WithWidth(30),
		)
		pct := float64(p.Progress()) / 100.0
		line := labelStyle.Render("  "+p.Description+": ") +
			bar.ViewAs(pct) +
			" " + valueStyle.Render(fmt.Sprintf("%d%%", p.Progress())) +
			" " + dimStyle.Render(finance.FormatAmount(p.CurrentSpending)+" / "+finance.FormatAmount(p.LimitAmount))
		if p.Exceeded() {
			line += " " + errorStyle.Render("over limit")
		}
		content += line + "\n"
	}
	return content
}

func (m Model) renderGoals(goals []finance.UserGoal) string {
	var content string
	content += "\n" + sectionStyle.Render("┃ Savings goal") + "\n"
	if len(goals) == 0 {
		content += dimStyle.Render("  No goal set. Press ctrl+g to set one.") + "\n"
		return content
	}

	for _, g := range goals {
		bar := progress.New(
			progress.WithGradient("#00ffff", "#00ff00"),
			progress.WithWidth(30),
		)
		pct := float64(g.Progress()) / 100.0
		content += labelStyle.Render("  "+g.GoalName+": ") +
			bar.ViewAs(pct) +
			" " + valueStyle.Render(fmt.Sprintf("%d%%", g.Progress())) +
			" " + dimStyle.Render(finance.FormatAmount(g.CurrentProgress)+" of "+finance.FormatAmount(g.TargetAmount)) + "\n"
	}
	return content
}

// renderSidebar shows recent transactions and derived recommendations.
func (m Model) renderSidebar(snap finance.Context, sum finance.Summary) string {
	var content string
	content += sectionStyle.Render("┃ Recent transactions") + "\n"

	if len(snap.Transactions) == 0 {
		content += dimStyle.Render("  none yet") + "\n"
	} else {
		txs := snap.Transactions
		if len(txs) > sidebarCount {
			txs = txs[len(txs)-sidebarCount:]
		}
		for i := len(txs) - 1; i >= 0; i-- {
			t := txs[i]
			amount := incomeStyle.Render(finance.FormatAmount(t.Amount))
			if t.IsExpense() {
				amount = spendStyle.Render(finance.FormatAmount(t.Amount))
			}
			content += fmt.Sprintf("  %s %s %s %s\n",
				categoryGlyph(t.Category),
				dimStyle.Render(t.Date),
				valueStyle.Render(truncate(t.Description, 22)),
				amount)
		}
	}

	content += "\n" + sectionStyle.Render("┃ Insights") + "\n"
	for _, r := range recommendations(sum) {
		content += labelStyle.Render("  • ") + dimStyle.Render(r) + "\n"
	}
	return content
}

// recommendations derives short tips from the current aggregates.
func recommendations(sum finance.Summary) []string {
	var tips []string
	if len(sum.SpendingByCategory) > 0 {
		top := sum.SpendingByCategory[0]
		tips = append(tips, fmt.Sprintf("%s is your biggest category at %s.",
			top.Category, finance.FormatAmount(top.Amount)))
	}
	if len(sum.TopMerchants) > 0 {
		top := sum.TopMerchants[0]
		tips = append(tips, fmt.Sprintf("Most spent at %s (%s).",
			top.Merchant, finance.FormatAmount(top.Amount)))
	}
	if sum.NetFlow.IsNegative() {
		tips = append(tips, "You spent more than you earned this period.")
	}
	if len(tips) == 0 {
		tips = append(tips, "Upload a statement to see spending insights.")
	}
	return tips
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Chat pane

var suggestedPrompts = []string{
	"Summarize my spending",
	"How can I save money?",
	"What were my largest purchases?",
}

func (m Model) renderChat() string {
	var content string
	content += sectionStyle.Render("┃ Assistant") + "\n"
	content += m.chatView.View() + "\n"
	if m.pendingReplies > 0 {
		content += dimStyle.Render("  Assistant is typing...") + "\n"
	} else if m.chatLog.Len() <= 1 {
		content += dimStyle.Render("  Try: "+strings.Join(suggestedPrompts, " · ")) + "\n"
	}
	content += labelStyle.Render("  > ") + m.chatInput.View()
	return content
}

// refreshChatView rebuilds the viewport content from the log and
// scrolls to the latest message.
func (m *Model) refreshChatView() {
	var b strings.Builder
	for _, msg := range m.chatLog.History() {
		if msg.Sender == chat.SenderUser {
			b.WriteString(userMsgStyle.Render("You: "+msg.Content) + "\n")
			continue
		}
		b.WriteString(aiMsgStyle.Render(renderMarkdown(msg.Content, m.chatView.Width)))
		b.WriteString("\n")
	}
	m.chatView.SetContent(b.String())
	m.chatView.GotoBottom()
}

// renderMarkdown renders an assistant reply. Plain text passes through
// unchanged when rendering fails.
func renderMarkdown(text string, width int) string {
	if width <= 0 {
		width = 72
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
