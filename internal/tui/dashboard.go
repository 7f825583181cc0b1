// Package tui renders the cell ledger in the terminal.
//
// The dashboard is a bubbletea program. It polls the operator API on a
// fixed interval and refreshes early whenever a remote event arrives.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kanban-tracker/internal/domain"
)

const requestTimeout = 3 * time.Second

type ledgerMsg struct {
	resp domain.LedgerResponse
	err  error
	// polled marks replies to the periodic poll, which reschedule it
	polled bool
}

type pollMsg struct{}

type remoteEventMsg struct{ ev domain.Event }

type eventsClosedMsg struct{}

type actionDoneMsg struct {
	what string
	err  error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	barStyle   = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder(), true, false, false, false)
)

var columns = []table.Column{
	{Title: "#", Width: 4},
	{Title: "Order", Width: 11},
	{Title: "Model", Width: 6},
	{Title: "Pack", Width: 5},
	{Title: "Qty", Width: 5},
	{Title: "Good", Width: 5},
	{Title: "Defect", Width: 6},
	{Title: "Done", Width: 5},
	{Title: "Stage", Width: 16},
}

// Dashboard is the bubbletea model.
type Dashboard struct {
	api      API
	events   <-chan domain.Event
	interval time.Duration

	table  table.Model
	rows   []domain.RowView
	status domain.LinkStatus
	loaded bool
	err    error
	notice string
	lastAt time.Time
	width  int
	remote bool // event stream attached
}

// NewDashboard builds the model. events may be nil when no broker is configured.
func NewDashboard(api API, events <-chan domain.Event, interval time.Duration) *Dashboard {
	if interval <= 0 {
		interval = time.Second
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return &Dashboard{api: api, events: events, interval: interval, table: t, remote: events != nil}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.fetch(true), d.waitForEvent())
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.table.SetHeight(max(3, msg.Height-8))
		return d, nil

	case ledgerMsg:
		var next tea.Cmd
		if msg.polled {
			next = d.schedulePoll()
		}
		if msg.err != nil {
			d.err = msg.err
			return d, next
		}
		d.err = nil
		d.loaded = true
		d.lastAt = time.Now()
		d.setLedger(msg.resp)
		return d, next

	case pollMsg:
		return d, d.fetch(true)

	case remoteEventMsg:
		if msg.ev.Link != nil {
			d.status = *msg.ev.Link
		}
		return d, tea.Batch(d.fetch(false), d.waitForEvent())

	case eventsClosedMsg:
		d.remote = false
		d.events = nil
		d.notice = "event stream closed, polling only"
		return d, nil

	case actionDoneMsg:
		if msg.err != nil {
			d.err = msg.err
			return d, nil
		}
		d.notice = msg.what
		return d, d.fetch(false)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return d, tea.Quit
		case "r":
			c := d.table.Cursor()
			if c < 0 || c >= len(d.rows) {
				return d, nil
			}
			row := d.rows[c].Row
			return d, d.action(fmt.Sprintf("row %d reset", row), func(ctx context.Context) error {
				return d.api.ResetOne(ctx, row)
			})
		case "R":
			return d, d.action("all rows reset", d.api.ResetAll)
		case "c":
			return d, d.action("ledger cleared", d.api.Clear)
		}
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

func (d *Dashboard) setLedger(resp domain.LedgerResponse) {
	d.rows = resp.Rows
	d.status = resp.Status
	rows := make([]table.Row, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		rows = append(rows, table.Row{
			strconv.Itoa(r.Row),
			r.OrderID,
			r.Model,
			r.PackingCode,
			strconv.Itoa(r.RequiredQty),
			strconv.Itoa(r.GoodQty),
			strconv.Itoa(r.DefectQty),
			strconv.Itoa(r.CompletedQty),
			cursorMark(r, resp.Status.Cursor),
		})
	}
	d.table.SetRows(rows)
	if c := d.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		d.table.SetCursor(len(rows) - 1)
	}
}

// cursorMark shows the stage and, on the row the PLC is working, the column.
func cursorMark(r domain.RowView, c domain.Cursor) string {
	if r.Row == c.Row && r.Stage == domain.StageRunning {
		return string(r.Stage) + "/" + string(c.Col)
	}
	return string(r.Stage)
}

func (d *Dashboard) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Kanban cell"))
	b.WriteString("\n\n")
	if !d.loaded && d.err == nil {
		b.WriteString(hintStyle.Render("Loading ledger..."))
		b.WriteString("\n")
	} else {
		b.WriteString(d.table.View())
		b.WriteString("\n")
	}
	bar := barStyle
	if d.width > 0 {
		bar = bar.Width(d.width)
	}
	b.WriteString(bar.Render(d.statusLine()))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("↑/↓ select · r reset row · R reset all · c clear · q quit"))
	return b.String()
}

func (d *Dashboard) statusLine() string {
	st := d.status
	link := errStyle.Render("● offline")
	if st.Connected {
		link = okStyle.Render("● online")
	}
	state := st.State
	switch state {
	case domain.StateMismatch, domain.StateNotReady, domain.StateBindFailed, domain.StateOffline:
		state = errStyle.Render(state)
	case domain.StateAwaitingOutfeed, domain.StateVerifying:
		state = warnStyle.Render(state)
	}
	parts := []string{link, state, fmt.Sprintf("cursor %d/%s", st.Cursor.Row, st.Cursor.Col)}
	if st.Pending != nil {
		parts = append(parts, fmt.Sprintf("outfeed %s x%d", st.Pending.OrderID, st.Pending.Qty))
	}
	if d.remote {
		parts = append(parts, "live")
	}
	if !d.lastAt.IsZero() {
		parts = append(parts, "updated "+d.lastAt.Format("15:04:05"))
	}
	if d.err != nil {
		parts = append(parts, errStyle.Render(d.err.Error()))
	} else if d.notice != "" {
		parts = append(parts, d.notice)
	}
	return strings.Join(parts, " · ")
}

func (d *Dashboard) fetch(polled bool) tea.Cmd {
	api := d.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := api.Ledger(ctx)
		return ledgerMsg{resp: resp, err: err, polled: polled}
	}
}

func (d *Dashboard) schedulePoll() tea.Cmd {
	return tea.Tick(d.interval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (d *Dashboard) waitForEvent() tea.Cmd {
	if d.events == nil {
		return nil
	}
	ch := d.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return remoteEventMsg{ev: ev}
	}
}

func (d *Dashboard) action(what string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return actionDoneMsg{what: what, err: fn(ctx)}
	}
}

// Run starts the dashboard on the terminal and blocks until the user quits.
func Run(api API, events <-chan domain.Event, interval time.Duration) error {
	_, err := tea.NewProgram(NewDashboard(api, events, interval), tea.WithAltScreen()).Run()
	return err
}
