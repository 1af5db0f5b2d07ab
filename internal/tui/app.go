// Package tui is the Bubble Tea front end. The root Model owns the
// screen state machine: sign-in gate, one-shot account sync, statement
// upload, then the main dashboard with the chat pane. All network work
// runs in tea.Cmd closures; Update only moves state.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/finsight/internal/api"
	"github.com/fyrsmithlabs/finsight/internal/chat"
	"github.com/fyrsmithlabs/finsight/internal/config"
	"github.com/fyrsmithlabs/finsight/internal/session"
	"github.com/fyrsmithlabs/finsight/internal/store"
)

type screen int

const (
	screenSignIn screen = iota
	screenLoading
	screenUpload
	screenMain
)

// Message types
type syncDoneMsg struct{ existed bool }
type contextMsg struct{}
type uploadedMsg struct{ count int }
type noRowsMsg struct{}
type mutationDoneMsg struct{ err error }
type replyMsg struct {
	text string
	err  error
}
type errMsg error

// Model is the root Bubble Tea model.
type Model struct {
	cfg     config.Config
	session *session.Session
	store   *store.Store
	chatLog *chat.Log
	replier chat.Replier
	logger  *zap.Logger

	// ctx is cancelled when the program quits so in-flight commands
	// unwind instead of leaking.
	ctx    context.Context
	cancel context.CancelFunc

	screen   screen
	quitting bool
	width    int
	height   int

	err   error
	retry tea.Cmd

	loading    bool
	submitting bool
	statusLine string

	// sign-in form
	emailInput textinput.Model
	nameInput  textinput.Model
	signFocus  int

	// upload screen
	pathInput textinput.Model

	// chat pane
	chatInput      textinput.Model
	chatView       viewport.Model
	pendingReplies int

	modal *modal
}

// New builds the root model. The session and store are expected to be
// wired to the same backend client.
func New(cfg config.Config, sess *session.Session, st *store.Store, log *chat.Log, replier chat.Replier, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 128
	email.Width = 40
	email.Focus()

	name := textinput.New()
	name.Placeholder = "Your name"
	name.CharLimit = 64
	name.Width = 40

	path := textinput.New()
	path.Placeholder = "/path/to/statement.csv"
	path.CharLimit = 512
	path.Width = 56
	path.Focus()

	input := textinput.New()
	input.Placeholder = "Ask about your spending..."
	input.CharLimit = 512
	input.Width = 60
	input.Focus()

	view := viewport.New(72, 14)

	m := Model{
		cfg:        cfg,
		session:    sess,
		store:      st,
		chatLog:    log,
		replier:    replier,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		emailInput: email,
		nameInput:  name,
		pathInput:  path,
		chatInput:  input,
		chatView:   view,
		width:      100,
		height:     32,
	}

	if sess.SignedIn() {
		m.screen = screenLoading
		m.loading = true
	} else {
		m.screen = screenSignIn
	}
	return m
}

// Init starts the one-shot account sync when an identity is already
// configured; otherwise the sign-in form waits for input.
func (m Model) Init() tea.Cmd {
	if m.screen == screenLoading {
		return m.syncCmd()
	}
	return textinput.Blink
}

// Commands

func (m Model) syncCmd() tea.Cmd {
	ctx := m.ctx
	sess := m.session
	return func() tea.Msg {
		existed, err := sess.Sync(ctx)
		if err != nil {
			return errMsg(err)
		}
		return syncDoneMsg{existed: existed}
	}
}

func (m Model) fetchCmd() tea.Cmd {
	ctx := m.ctx
	st := m.store
	id := m.session.Identity()
	return func() tea.Msg {
		if err := st.Refresh(ctx, id); err != nil {
			return errMsg(err)
		}
		return contextMsg{}
	}
}

func (m Model) uploadCmd(path string) tea.Cmd {
	ctx := m.ctx
	st := m.store
	id := m.session.Identity()
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return errMsg(fmt.Errorf("cannot open %s: %w", path, err))
		}
		defer f.Close()

		n, err := st.Upload(ctx, id, filepath.Base(path), f)
		if errors.Is(err, store.ErrNoTransactions) {
			return noRowsMsg{}
		}
		if err != nil {
			return errMsg(err)
		}
		return uploadedMsg{count: n}
	}
}

func (m Model) replyCmd() tea.Cmd {
	ctx := m.ctx
	replier := m.replier
	history := m.chatLog.History()
	fin := m.store.Snapshot()
	return func() tea.Msg {
		text, err := replier.Reply(ctx, history, fin)
		return replyMsg{text: text, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chatView.Width = max(min(msg.Width-8, 90), 20)
		m.chatView.Height = max(msg.Height-18, 6)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case syncDoneMsg:
		m.loading = false
		if msg.existed {
			m.screen = screenLoading
			m.loading = true
			return m, m.fetchCmd()
		}
		m.screen = screenUpload
		m.statusLine = ""
		return m, nil

	case contextMsg:
		m.loading = false
		m.err = nil
		m.screen = screenMain
		if m.chatLog.Len() == 0 {
			m.chatLog.Seed(m.cfg.Identity.Name)
		}
		m.refreshChatView()
		return m, nil

	case uploadedMsg:
		m.loading = false
		m.statusLine = fmt.Sprintf("Imported %d transactions", msg.count)
		m.screen = screenMain
		if m.chatLog.Len() == 0 {
			m.chatLog.Seed(m.cfg.Identity.Name)
		}
		m.refreshChatView()
		return m, nil

	case noRowsMsg:
		// Not an error: the statement parsed but held no rows. Stay
		// on the upload screen and say so.
		m.loading = false
		m.screen = screenUpload
		m.statusLine = "No transactions found in that statement. Try another file."
		return m, nil

	case mutationDoneMsg:
		m.submitting = false
		if msg.err != nil {
			// Snapshot was never swapped, so the dashboard already
			// shows the rolled-back data. Surface the backend detail.
			m.statusLine = errorStyle.Render(msg.err.Error())
			return m, nil
		}
		m.statusLine = "Saved."
		return m, nil

	case replyMsg:
		if m.pendingReplies > 0 {
			m.pendingReplies--
		}
		if msg.err != nil {
			m.chatLog.Append(chat.SenderAI, "Sorry, I couldn't answer that right now. "+msg.err.Error())
		} else {
			m.chatLog.Append(chat.SenderAI, msg.text)
		}
		m.refreshChatView()
		return m, nil

	case errMsg:
		m.loading = false
		m.submitting = false
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		m.cancel()
		return m, tea.Quit
	}

	// Error view swallows everything except retry and quit.
	if m.err != nil {
		switch msg.String() {
		case "r":
			m.err = nil
			m.loading = true
			if m.retry != nil {
				return m, m.retry
			}
			return m, m.fetchCmd()
		case "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}
		return m, nil
	}

	if m.modal != nil {
		return m.updateModal(msg)
	}

	switch m.screen {
	case screenSignIn:
		return m.updateSignIn(msg)
	case screenUpload:
		return m.updateUpload(msg)
	case screenMain:
		return m.updateMain(msg)
	}
	return m, nil
}

func (m Model) updateSignIn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.signFocus = 1 - m.signFocus
		if m.signFocus == 0 {
			m.emailInput.Focus()
			m.nameInput.Blur()
		} else {
			m.nameInput.Focus()
			m.emailInput.Blur()
		}
		return m, nil
	case "enter":
		email := m.emailInput.Value()
		if email == "" {
			m.statusLine = "Email is required"
			return m, nil
		}
		if m.cfg.Identity.Name == "" {
			m.cfg.Identity.Name = m.nameInput.Value()
		}
		m.session.SignIn(api.Identity{UserID: "user_" + email, Email: email})
		m.screen = screenLoading
		m.loading = true
		m.statusLine = ""
		cmd := m.syncCmd()
		m.retry = cmd
		return m, cmd
	}

	var cmd tea.Cmd
	if m.signFocus == 0 {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return m, cmd
}

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.loading {
			return m, nil
		}
		path := m.pathInput.Value()
		if path == "" {
			m.statusLine = "Enter the path to a CSV statement"
			return m, nil
		}
		m.loading = true
		m.statusLine = ""
		cmd := m.uploadCmd(path)
		m.retry = cmd
		return m, cmd
	case "ctrl+s":
		// Skip upload and go straight to the dashboard.
		if m.loading {
			return m, nil
		}
		m.loading = true
		cmd := m.fetchCmd()
		m.retry = cmd
		return m, cmd
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := m.chatInput.Value()
		if text == "" {
			return m, nil
		}
		// The user message lands in the log before the reply command
		// is issued, so display order always matches send order.
		m.chatLog.Append(chat.SenderUser, text)
		m.chatInput.SetValue("")
		m.pendingReplies++
		m.refreshChatView()
		return m, m.replyCmd()
	case "ctrl+r":
		m.statusLine = ""
		cmd := m.fetchCmd()
		m.retry = cmd
		return m, cmd
	case "ctrl+u":
		m.screen = screenUpload
		m.statusLine = ""
		return m, nil
	case "ctrl+t":
		m.modal = newTransactionModal()
		return m, nil
	case "ctrl+p":
		m.modal = newPolicyModal()
		return m, nil
	case "ctrl+g":
		m.modal = newGoalModal()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	cmds = append(cmds, cmd)
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the active screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	if m.modal != nil {
		return m.renderModal()
	}

	switch m.screen {
	case screenSignIn:
		return m.renderSignIn()
	case screenLoading:
		return m.renderLoading()
	case screenUpload:
		return m.renderUpload()
	default:
		return m.renderMain()
	}
}

// renderError renders the error view.
func (m Model) renderError() string {
	header := headerStyle.Render(" finsight ")

	var content string
	content += "\n"
	content += errorStyle.Render("⚠ Something went wrong") + "\n"
	content += "\n"
	content += dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n"
	content += "\n"
	content += dimStyle.Render("The backend may be unreachable. Check that it is running and retry.") + "\n"
	content += "\n"
	content += footerKeyStyle.Render("[r]") + footerStyle.Render(" retry  ") +
		footerKeyStyle.Render("[q]") + footerStyle.Render(" quit") + "\n"

	return containerStyle.Render(header + "\n" + content)
}

func (m Model) renderLoading() string {
	header := headerStyle.Render(" finsight ")
	body := "\n" + labelStyle.Render("Syncing your account...") + "\n"
	return containerStyle.Render(header + "\n" + body)
}

func (m Model) renderSignIn() string {
	header := headerStyle.Render(" finsight ")

	var content string
	content += "\n" + sectionStyle.Render("┃ Sign in") + "\n"
	content += labelStyle.Render("  Email: ") + m.emailInput.View() + "\n"
	content += labelStyle.Render("  Name:  ") + m.nameInput.View() + "\n"
	if m.statusLine != "" {
		content += "\n  " + warningStyle.Render(m.statusLine) + "\n"
	}
	content += "\n" + footerKeyStyle.Render("[tab]") + footerStyle.Render(" switch field  ") +
		footerKeyStyle.Render("[enter]") + footerStyle.Render(" sign in  ") +
		footerKeyStyle.Render("[ctrl+c]") + footerStyle.Render(" quit")

	return containerStyle.Render(header + "\n" + content)
}

func (m Model) renderUpload() string {
	header := headerStyle.Render(" finsight ")

	var content string
	content += "\n" + sectionStyle.Render("┃ Upload a bank statement") + "\n"
	content += dimStyle.Render("  CSV with columns: Date, Description, Amount") + "\n\n"
	content += labelStyle.Render("  File: ") + m.pathInput.View() + "\n"
	if m.loading {
		content += "\n  " + labelStyle.Render("Uploading...") + "\n"
	} else if m.statusLine != "" {
		content += "\n  " + warningStyle.Render(m.statusLine) + "\n"
	}
	content += "\n" + footerKeyStyle.Render("[enter]") + footerStyle.Render(" upload  ") +
		footerKeyStyle.Render("[ctrl+s]") + footerStyle.Render(" skip  ") +
		footerKeyStyle.Render("[ctrl+c]") + footerStyle.Render(" quit")

	return containerStyle.Render(header + "\n" + content)
}
