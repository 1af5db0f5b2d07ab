package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fyrsmithlabs/finsight/internal/finance"
)

type modalKind int

const (
	modalTransaction modalKind = iota
	modalPolicy
	modalGoal
)

// modal is a small form overlay. Submit closes it immediately; the
// dashboard only changes once the backend confirms, so a failed
// mutation leaves the displayed data exactly as it was.
type modal struct {
	kind    modalKind
	title   string
	labels  []string
	inputs  []textinput.Model
	focus   int
	errLine string
}

func newField(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 128
	in.Width = 32
	return in
}

func newModal(kind modalKind, title string, fields ...[2]string) *modal {
	m := &modal{kind: kind, title: title}
	for i, f := range fields {
		in := newField(f[1])
		if i == 0 {
			in.Focus()
		}
		m.labels = append(m.labels, f[0])
		m.inputs = append(m.inputs, in)
	}
	return m
}

func newTransactionModal() *modal {
	return newModal(modalTransaction, "Add transaction",
		[2]string{"Date", "YYYY-MM-DD"},
		[2]string{"Description", "Coffee Shop"},
		[2]string{"Amount", "-4.50 (negative = expense)"},
		[2]string{"Category", "Food & Drink"},
	)
}

func newPolicyModal() *modal {
	return newModal(modalPolicy, "Add budget policy",
		[2]string{"Description", "Coffee Budget"},
		[2]string{"Limit", "50.00"},
		[2]string{"Category", "Food & Drink"},
	)
}

func newGoalModal() *modal {
	return newModal(modalGoal, "Set savings goal",
		[2]string{"Name", "Emergency Fund"},
		[2]string{"Target", "5000.00"},
	)
}

func (f *modal) setFocus(i int) {
	f.focus = i
	for j := range f.inputs {
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *modal) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// parseCategory maps free-form input onto a known category. Unknown
// input falls back to Other rather than failing the form.
func parseCategory(s string) finance.Category {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, c := range finance.Categories {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return finance.CategoryOther
}

func (m Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.modal
	switch msg.String() {
	case "esc":
		m.modal = nil
		return m, nil
	case "tab", "down":
		f.setFocus((f.focus + 1) % len(f.inputs))
		return m, nil
	case "shift+tab", "up":
		f.setFocus((f.focus - 1 + len(f.inputs)) % len(f.inputs))
		return m, nil
	case "enter":
		if f.focus < len(f.inputs)-1 {
			f.setFocus(f.focus + 1)
			return m, nil
		}
		return m.submitModal()
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return m, cmd
}

// submitModal validates locally, closes the form, and hands the
// mutation to the store. The store only swaps its snapshot on backend
// success.
func (m Model) submitModal() (tea.Model, tea.Cmd) {
	f := m.modal
	if m.submitting {
		return m, nil
	}

	var cmd tea.Cmd
	switch f.kind {
	case modalTransaction:
		amount, err := decimal.NewFromString(f.value(2))
		if err != nil {
			f.errLine = "amount must be a number like -4.50"
			return m, nil
		}
		tx := finance.NewTransaction{
			Date:        f.value(0),
			Description: f.value(1),
			Amount:      amount,
			Category:    parseCategory(f.value(3)),
		}
		if err := tx.Validate(); err != nil {
			f.errLine = err.Error()
			return m, nil
		}
		cmd = m.addTransactionCmd(tx)

	case modalPolicy:
		limit, err := decimal.NewFromString(f.value(1))
		if err != nil {
			f.errLine = "limit must be a number like 50.00"
			return m, nil
		}
		p := finance.NewPolicy{
			Description:    f.value(0),
			LimitAmount:    limit,
			TargetCategory: parseCategory(f.value(2)),
		}
		if err := p.Validate(); err != nil {
			f.errLine = err.Error()
			return m, nil
		}
		cmd = m.addPolicyCmd(p)

	case modalGoal:
		target, err := decimal.NewFromString(f.value(1))
		if err != nil {
			f.errLine = "target must be a number like 5000.00"
			return m, nil
		}
		g := finance.NewGoal{GoalName: f.value(0), TargetAmount: target}
		if err := g.Validate(); err != nil {
			f.errLine = err.Error()
			return m, nil
		}
		cmd = m.setGoalCmd(g)
	}

	m.modal = nil
	m.submitting = true
	m.statusLine = "Saving..."
	m.retry = cmd
	return m, cmd
}

func (m Model) addTransactionCmd(tx finance.NewTransaction) tea.Cmd {
	ctx := m.ctx
	st := m.store
	id := m.session.Identity()
	return func() tea.Msg {
		return mutationDoneMsg{err: st.AddTransaction(ctx, id, tx)}
	}
}

func (m Model) addPolicyCmd(p finance.NewPolicy) tea.Cmd {
	ctx := m.ctx
	st := m.store
	id := m.session.Identity()
	return func() tea.Msg {
		return mutationDoneMsg{err: st.AddPolicy(ctx, id, p)}
	}
}

func (m Model) setGoalCmd(g finance.NewGoal) tea.Cmd {
	ctx := m.ctx
	st := m.store
	id := m.session.Identity()
	return func() tea.Msg {
		return mutationDoneMsg{err: st.SetGoal(ctx, id, g)}
	}
}

func (m Model) renderModal() string {
	f := m.modal
	header := headerStyle.Render(" " + f.title + " ")

	var content string
	content += "\n"
	for i := range f.inputs {
		content += labelStyle.Render("  "+f.labels[i]+": ") + f.inputs[i].View() + "\n"
	}
	if f.errLine != "" {
		content += "\n  " + errorStyle.Render(f.errLine) + "\n"
	}
	content += "\n" + footerKeyStyle.Render("[enter]") + footerStyle.Render(" next / save  ") +
		footerKeyStyle.Render("[tab]") + footerStyle.Render(" switch field  ") +
		footerKeyStyle.Render("[esc]") + footerStyle.Render(" cancel")

	return containerStyle.Render(header + "\n" + content)
}
