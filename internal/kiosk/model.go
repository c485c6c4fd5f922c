// Package kiosk is the interactive gate terminal: a bubbletea program that
// drives a gate.Session from the keyboard and redraws whenever the zone
// registry or the push channel changes underneath it.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alfredjeanlab/parkgate/internal/gate"
	"github.com/alfredjeanlab/parkgate/internal/model"
	"github.com/alfredjeanlab/parkgate/internal/push"
	"github.com/alfredjeanlab/parkgate/internal/ui"
)

// Session is the part of gate.Session the terminal drives.
type Session interface {
	Enter(ctx context.Context, gateID string) error
	Leave()
	Reset() error
	SelectUserType(u model.UserType) error
	SetSubscriptionID(id string)
	VerifySubscription(ctx context.Context) error
	SelectZone(zoneID string) error
	Checkin(ctx context.Context) (*model.Ticket, error)
	DismissTicket()
	State() gate.State
}

// ZoneWatcher signals registry changes.
type ZoneWatcher interface {
	Watch() (<-chan struct{}, func())
}

// StatusWatcher reports push channel status changes.
type StatusWatcher interface {
	WatchStatus() (<-chan push.Status, func())
}

type (
	enteredMsg      struct{ err error }
	verifiedMsg     struct{ err error }
	zonesChangedMsg struct{}
	statusMsg       struct{ status push.Status }
)

type checkedInMsg struct {
	ticket *model.Ticket
	err    error
}

// watchers holds the subscriptions shared by every copy of a Model.
type watchers struct {
	zones  <-chan struct{}
	status <-chan push.Status
	cancel []func()
}

func (w *watchers) close() {
	for _, c := range w.cancel {
		c()
	}
	w.cancel = nil
}

// Model is the bubbletea model for one gate.
type Model struct {
	ctx     context.Context
	session Session
	gateID  string
	keys    KeyMap
	watch   *watchers

	state   gate.State
	status  push.Status
	cursor  int
	editing bool
	notice  string
	failed  bool

	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	width   int
}

// NewModel builds a terminal for gateID. zones and status may be nil. Call
// Close once the program has exited.
func NewModel(ctx context.Context, session Session, gateID string, zones ZoneWatcher, status StatusWatcher) Model {
	input := textinput.New()
	input.Placeholder = "subscription id"
	input.CharLimit = 64
	input.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	w := &watchers{}
	if zones != nil {
		ch, cancel := zones.Watch()
		w.zones = ch
		w.cancel = append(w.cancel, cancel)
	}
	if status != nil {
		ch, cancel := status.WatchStatus()
		w.status = ch
		w.cancel = append(w.cancel, cancel)
	}

	return Model{
		ctx:     ctx,
		session: session,
		gateID:  gateID,
		keys:    DefaultKeyMap(),
		watch:   w,
		state:   session.State(),
		input:   input,
		spinner: sp,
		help:    help.New(),
	}
}

// Close releases the registry and status subscriptions.
func (m Model) Close() {
	m.watch.close()
}

// Init implements tea.Model. Loads the gate and starts listening for
// registry and status changes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.enter(), m.spinner.Tick}
	if m.watch.zones != nil {
		cmds = append(cmds, listenForZones(m.watch.zones))
	}
	if m.watch.status != nil {
		cmds = append(cmds, listenForStatus(m.watch.status))
	}
	return tea.Batch(cmds...)
}

// listenForZones blocks until the registry changes.
func listenForZones(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return zonesChangedMsg{}
	}
}

// listenForStatus blocks until the push channel status changes.
func listenForStatus(ch <-chan push.Status) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg{status: s}
	}
}

func (m Model) enter() tea.Cmd {
	return func() tea.Msg {
		return enteredMsg{err: m.session.Enter(m.ctx, m.gateID)}
	}
}

func (m Model) verify() tea.Cmd {
	return func() tea.Msg {
		return verifiedMsg{err: m.session.VerifySubscription(m.ctx)}
	}
}

func (m Model) checkin() tea.Cmd {
	return func() tea.Msg {
		t, err := m.session.Checkin(m.ctx)
		return checkedInMsg{ticket: t, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case enteredMsg:
		m.refresh()
		m.report(msg.err, "")
		return m, nil

	case verifiedMsg:
		m.refresh()
		m.report(msg.err, "Subscription verified")
		return m, nil

	case checkedInMsg:
		m.refresh()
		if msg.ticket != nil {
			m.report(msg.err, "Ticket "+msg.ticket.ID+" issued")
		} else {
			m.report(msg.err, "")
		}
		return m, nil

	case zonesChangedMsg:
		m.refresh()
		return m, listenForZones(m.watch.zones)

	case statusMsg:
		m.status = msg.status
		return m, listenForStatus(m.watch.status)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		m.session.SetSubscriptionID(m.input.Value())
		m.refresh()
		m.state.Verification = gate.Verifying
		return m, m.verify()
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Leave()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Visitor):
		m.report(m.session.SelectUserType(model.UserVisitor), "")
		m.cursor = 0
		m.refresh()

	case key.Matches(msg, m.keys.Subscriber):
		m.report(m.session.SelectUserType(model.UserSubscriber), "")
		m.cursor = 0
		m.refresh()

	case key.Matches(msg, m.keys.EditSubID):
		if m.state.UserType != model.UserSubscriber {
			m.report(gate.ErrNotSubscriber, "")
			return m, nil
		}
		m.editing = true
		m.input.SetValue(m.state.SubscriptionID)
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.state.Eligible)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Select):
		if len(m.state.Eligible) == 0 {
			m.report(gate.ErrZoneRequired, "")
			return m, nil
		}
		m.report(m.session.SelectZone(m.state.Eligible[m.cursor].ID), "")
		m.refresh()

	case key.Matches(msg, m.keys.Checkin):
		m.state.Checkin = gate.CheckinInFlight
		return m, m.checkin()

	case key.Matches(msg, m.keys.NewCycle):
		m.report(m.session.Reset(), "")
		m.input.SetValue("")
		m.cursor = 0
		m.refresh()

	case key.Matches(msg, m.keys.Dismiss):
		m.session.DismissTicket()
		m.refresh()

	case key.Matches(msg, m.keys.Retry):
		if m.state.Phase == gate.PhaseSnapshotLoading {
			return m, nil
		}
		m.state.Phase = gate.PhaseSnapshotLoading
		m.notice = ""
		return m, m.enter()
	}
	return m, nil
}

// refresh re-reads the session and keeps the cursor inside the eligible list.
func (m *Model) refresh() {
	m.state = m.session.State()
	if m.cursor >= len(m.state.Eligible) {
		m.cursor = max(len(m.state.Eligible)-1, 0)
	}
}

// report shows err, or ok when err is nil and ok is set. Stale responses
// leave the current notice alone.
func (m *Model) report(err error, ok string) {
	switch {
	case errors.Is(err, gate.ErrStale):
	case err != nil:
		m.notice = err.Error()
		m.failed = true
	case ok != "":
		m.notice = ok
		m.failed = false
	default:
		m.notice = ""
		m.failed = false
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	sectionStyle  = lipgloss.NewStyle().MarginTop(1)
	ticketStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectedMark  = "●"
	cursorMark    = "›"
	notSelectable = "Select visitor or subscriber to see zones"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	name := m.gateID
	if m.state.Gate != nil && m.state.Gate.Name != "" {
		name = fmt.Sprintf("%s (%s)", m.state.Gate.Name, m.gateID)
	}
	fmt.Fprintf(&b, "%s  push: %s\n", titleStyle.Render("Gate "+name), ui.RenderConnection(m.status == push.StatusConnected))

	switch m.state.Phase {
	case gate.PhaseSnapshotLoading:
		fmt.Fprintf(&b, "\n%s Loading gate...\n", m.spinner.View())
		return b.String()
	case gate.PhaseIdle:
		b.WriteString("\n" + m.renderNotice() + "\n")
		b.WriteString(ui.RenderMuted("press r to reload, q to quit") + "\n")
		return b.String()
	}

	b.WriteString(sectionStyle.Render(m.renderUser()) + "\n")
	b.WriteString(sectionStyle.Render(m.renderZones()) + "\n")

	if m.state.ShowTicket && m.state.Ticket != nil {
		b.WriteString(ticketStyle.Render(renderTicket(m.state.Ticket)) + "\n")
	}
	if m.state.Checkin == gate.CheckinInFlight {
		fmt.Fprintf(&b, "%s Checking in...\n", m.spinner.View())
	}
	if n := m.renderNotice(); n != "" {
		b.WriteString(n + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m Model) renderUser() string {
	var b strings.Builder
	b.WriteString("User: ")
	for _, u := range []model.UserType{model.UserVisitor, model.UserSubscriber} {
		if m.state.UserType == u {
			b.WriteString(ui.RenderAccent("["+u.String()+"]") + " ")
		} else {
			b.WriteString(ui.RenderMuted(u.String()) + " ")
		}
	}
	if m.state.UserType != model.UserSubscriber {
		return b.String()
	}

	b.WriteString("\nSubscription: ")
	if m.editing {
		b.WriteString(m.input.View())
		return b.String()
	}
	id := m.state.SubscriptionID
	if id == "" {
		id = ui.RenderMuted("(none, press i)")
	}
	b.WriteString(id + " ")
	switch m.state.Verification {
	case gate.Verifying:
		b.WriteString(m.spinner.View() + " verifying")
	case gate.Verified:
		b.WriteString(ui.RenderOK("verified"))
		if sub := m.state.Subscription; sub != nil {
			b.WriteString(ui.RenderMuted(fmt.Sprintf(" %s, category %s", sub.UserName, sub.Category)))
		}
	case gate.VerificationFailed:
		b.WriteString(ui.RenderFail("not verified"))
	default:
		b.WriteString(ui.RenderMuted("unverified"))
	}
	return b.String()
}

func (m Model) renderZones() string {
	if m.state.UserType == "" {
		return ui.RenderMuted(notSelectable)
	}
	if len(m.state.Eligible) == 0 {
		return ui.RenderMuted("No zones available")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Zones") + "\n")
	for i, z := range m.state.Eligible {
		cur := " "
		if i == m.cursor {
			cur = ui.RenderAccent(cursorMark)
		}
		sel := " "
		if z.ID == m.state.SelectedZoneID {
			sel = ui.RenderAccent(selectedMark)
		}
		rate := fmt.Sprintf("%.2f/h", z.ActiveRate())
		if z.SpecialActive {
			rate = ui.RenderWarn(rate + " special")
		}
		fmt.Fprintf(&b, "%s%s %-16s %-10s %s  %s\n", cur, sel, z.Name, z.CategoryID,
			ui.RenderAvailability(z.AvailableFor(m.state.UserType), z.TotalSlots, z.Open), rate)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTicket(t *model.Ticket) string {
	lines := []string{
		titleStyle.Render("Ticket " + t.ID),
		"Zone: " + t.ZoneID,
		"Type: " + t.Type.String(),
	}
	if !t.CheckinAt.IsZero() {
		lines = append(lines, "Checked in: "+t.CheckinAt.Local().Format("2006-01-02 15:04"))
	}
	if t.SubscriptionID != "" {
		lines = append(lines, "Subscription: "+t.SubscriptionID)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderNotice() string {
	if m.notice == "" {
		return ""
	}
	if m.failed {
		return ui.RenderFail(m.notice)
	}
	return ui.RenderOK(m.notice)
}
