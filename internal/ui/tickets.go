// Package ui is the terminal dashboard of the launches a wallet holds
// tickets in.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/cook"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/launch"
	"github.com/rovshanmuradov/letscook/internal/txn"
	"github.com/rovshanmuradov/letscook/internal/ui/component"
	"github.com/rovshanmuradov/letscook/internal/ui/style"
)

// ErrNoWallet is returned when the dashboard is opened without a wallet.
var ErrNoWallet = errors.New("a wallet is required to list tickets")

// maxNotices is how many notices stay on screen.
const maxNotices = 5

// loadTimeout bounds one reload of the ticket table.
const loadTimeout = 30 * time.Second

// Source lists launches and the user's tickets across them.
type Source interface {
	Launches(ctx context.Context) ([]launch.Listing, error)
	Tickets(ctx context.Context, now time.Time, user solana.PublicKey, listings []launch.Listing) ([]launch.Row, error)
	Action(now time.Time, r launch.Row) cook.Action
}

// Actor runs the action a launch page offers at now.
type Actor func(ctx context.Context, page string, now time.Time) (*txn.Result, error)

// Tickets is the "my tickets" model.
type Tickets struct {
	source Source
	act    Actor
	user   solana.PublicKey
	relay  *Relay
	now    func() time.Time
	logger *zap.Logger

	keys  KeyMap
	help  help.Model
	table *component.Table

	rows    []launch.Row
	sort    launch.SortField
	reverse bool

	loading  bool
	busy     bool
	status   string
	failed   bool
	notices  []string
	width    int
	quitting bool
}

// TicketsOption configures the model.
type TicketsOption func(*Tickets)

// WithRelay feeds bus notices into the model.
func WithRelay(r *Relay) TicketsOption {
	return func(m *Tickets) { m.relay = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TicketsOption {
	return func(m *Tickets) { m.now = now }
}

// WithSort sets the initial sort order.
func WithSort(field launch.SortField, reverse bool) TicketsOption {
	return func(m *Tickets) {
		m.sort = field
		m.reverse = reverse
	}
}

// NewTickets создает модель таблицы билетов пользователя.
func NewTickets(source Source, act Actor, user solana.PublicKey, logger *zap.Logger, opts ...TicketsOption) *Tickets {
	m := &Tickets{
		source: source,
		act:    act,
		user:   user,
		now:    time.Now,
		logger: logger.Named("tickets"),
		keys:   DefaultKeyMap(),
		help:   help.New(),
		sort:   launch.SortDate,
		table: component.NewTable(
			component.TableColumn{Header: "Token", Width: 12, Align: lipgloss.Left},
			component.TableColumn{Header: "Date", Width: 16, Align: lipgloss.Left},
			component.TableColumn{Header: "Tickets", Width: 8, Align: lipgloss.Right},
			component.TableColumn{Header: "Win Rate", Width: 9, Align: lipgloss.Right},
			component.TableColumn{Header: "Status", Width: 12, Align: lipgloss.Left},
			component.TableColumn{Header: "Action", Width: 8, Align: lipgloss.Left},
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rows returns the rows in display order.
func (m *Tickets) Rows() []launch.Row { return m.rows }

// Status returns the status line.
func (m *Tickets) Status() string { return m.status }

// Notices returns the recent notices, oldest first.
func (m *Tickets) Notices() []string { return m.notices }

// Init starts the first load and, with a relay, listening for notices.
func (m *Tickets) Init() tea.Cmd {
	m.loading = true
	cmds := []tea.Cmd{m.load()}
	if m.relay != nil {
		cmds = append(cmds, m.relay.Listen())
	}
	return tea.Batch(cmds...)
}

func (m *Tickets) load() tea.Cmd {
	now := m.now()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		listings, err := m.source.Launches(ctx)
		if err != nil {
			return rowsMsg{err: err}
		}
		rows, err := m.source.Tickets(ctx, now, m.user, listings)
		return rowsMsg{rows: rows, err: err}
	}
}

func (m *Tickets) run(page string, action cook.Action) tea.Cmd {
	now := m.now()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		res, err := m.act(ctx, page, now)
		return actionDoneMsg{page: page, action: action, result: res, err: err}
	}
}

// Update handles keys, reloads, action results and relayed notices.
func (m *Tickets) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case rowsMsg:
		m.loading = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Failed to load tickets: %v", msg.err), true)
			m.logger.Warn("Failed to load tickets", zap.Error(msg.err))
			return m, nil
		}
		m.rows = msg.rows
		m.resort()
		m.setStatus(fmt.Sprintf("%d launches", len(m.rows)), false)
		return m, nil

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("%s %s failed: %v", msg.action, msg.page, msg.err), true)
			return m, nil
		}
		status := fmt.Sprintf("%s %s: %s", msg.action, msg.page, msg.result.Status)
		if !msg.result.Signature.IsZero() {
			status += " " + msg.result.Signature.String()
		}
		m.setStatus(status, false)
		m.loading = true
		return m, m.load()

	case NoticeMsg:
		text := msg.Message
		if msg.Level == events.NoticeError {
			text = style.Failed.Render(text)
		}
		m.pushNotice(text)
		return m, m.listen()

	case SubmissionMsg:
		m.logger.Debug("Submission changed",
			zap.String("action", msg.Action),
			zap.String("status", msg.Status),
			zap.String("signature", msg.Signature))
		return m, m.listen()
	}
	return m, nil
}

func (m *Tickets) listen() tea.Cmd {
	if m.relay == nil {
		return nil
	}
	return m.relay.Listen()
}

func (m *Tickets) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.table.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.table.MoveDown()
	case key.Matches(msg, m.keys.SortDate):
		m.sortBy(launch.SortDate)
	case key.Matches(msg, m.keys.SortTickets):
		m.sortBy(launch.SortTickets)
	case key.Matches(msg, m.keys.SortSymbol):
		m.sortBy(launch.SortSymbol)
	case key.Matches(msg, m.keys.Refresh):
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.setStatus("Refreshing...", false)
		return m, m.load()
	case key.Matches(msg, m.keys.Act):
		return m.actOnSelected()
	}
	return m, nil
}

func (m *Tickets) actOnSelected() (tea.Model, tea.Cmd) {
	if m.busy || len(m.rows) == 0 {
		return m, nil
	}
	row := m.rows[m.table.Selected()]
	page := row.Launch.PageName
	switch action := m.source.Action(m.now(), row); action {
	case cook.ActionCheck, cook.ActionClaim, cook.ActionRefund:
		m.busy = true
		m.setStatus(fmt.Sprintf("Sending %s for %s...", action, page), false)
		return m, m.run(page, action)
	case cook.ActionBuy:
		m.setStatus(fmt.Sprintf("Open %s to buy tickets", page), false)
	default:
		m.setStatus(fmt.Sprintf("Nothing to do for %s", page), false)
	}
	return m, nil
}

// sortBy toggles direction when the field is already active.
func (m *Tickets) sortBy(field launch.SortField) {
	if m.sort == field {
		m.reverse = !m.reverse
	} else {
		m.sort = field
		m.reverse = false
	}
	m.resort()
}

func (m *Tickets) resort() {
	launch.SortRows(m.rows, m.sort, m.reverse)

	now := m.now()
	data := make([][]string, len(m.rows))
	for i, r := range m.rows {
		data[i] = []string{
			r.Launch.Symbol,
			time.UnixMilli(int64(r.Launch.LaunchDate)).UTC().Format("2006-01-02 15:04"),
			strconv.Itoa(int(r.Join.NumTickets)),
			r.WinRate,
			r.Badge,
			actionLabel(m.source.Action(now, r)),
		}
	}
	m.table.SetRows(data)
	for i, r := range m.rows {
		m.table.SetRowStyle(i, lipgloss.NewStyle().Foreground(style.BadgeColor(r.Badge)).Padding(0, 1))
	}
}

func actionLabel(a cook.Action) string {
	if a == cook.ActionNone {
		return "--"
	}
	return strings.ToUpper(a.String()[:1]) + a.String()[1:]
}

func (m *Tickets) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

func (m *Tickets) pushNotice(text string) {
	m.notices = append(m.notices, text)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

// View renders the table, the status line, notices and help.
func (m *Tickets) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(style.Title.Render("My Tickets"))
	b.WriteString(style.Muted.Render(fmt.Sprintf("  sorted by %s", m.sort)))
	if m.reverse {
		b.WriteString(style.Muted.Render(" (reversed)"))
	}
	b.WriteString("\n\n")

	if len(m.rows) == 0 && !m.loading {
		b.WriteString(style.Muted.Render("No tickets found"))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")

	if m.status != "" {
		if m.failed {
			b.WriteString(style.Failed.Render(m.status))
		} else {
			b.WriteString(style.Notice.Render(m.status))
		}
		b.WriteString("\n")
	}
	for _, n := range m.notices {
		b.WriteString(style.Muted.Render("• ") + n + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
