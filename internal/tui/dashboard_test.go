package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban-tracker/internal/domain"
)

type fakeAPI struct {
	mu       sync.Mutex
	resp     domain.LedgerResponse
	err      error
	resets   []int
	resetAll int
	clears   int
}

func (f *fakeAPI) Ledger(context.Context) (domain.LedgerResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resp, f.err
}

func (f *fakeAPI) ResetOne(_ context.Context, row int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, row)
	return f.err
}

func (f *fakeAPI) ResetAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetAll++
	return f.err
}

func (f *fakeAPI) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return f.err
}

func sampleLedger() domain.LedgerResponse {
	return domain.LedgerResponse{
		Rows: []domain.RowView{
			{Row: 0, OrderID: "123456789", Model: "4321", PackingCode: "1A", RequiredQty: 10, GoodQty: 10, CompletedQty: 10, Stage: domain.StageCompleted},
			{Row: 1, OrderID: "987654321", Model: "5555", PackingCode: "2B", RequiredQty: 4, Stage: domain.StageRunning},
		},
		Status: domain.LinkStatus{
			Connected: true,
			Cursor:    domain.Cursor{Row: 1, Col: domain.ColumnGood},
			State:     domain.StateReady,
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T, api *fakeAPI) *Dashboard {
	t.Helper()
	d := NewDashboard(api, nil, time.Hour)
	_, cmd := d.Update(d.fetch(true)())
	require.NotNil(t, cmd, "a polled reply schedules the next poll")
	return d
}

func TestDashboard_RendersLedger(t *testing.T) {
	d := NewDashboard(&fakeAPI{resp: sampleLedger()}, nil, time.Hour)
	assert.Contains(t, d.View(), "Loading ledger")

	d = loaded(t, &fakeAPI{resp: sampleLedger()})
	view := d.View()
	assert.Contains(t, view, "123456789")
	assert.Contains(t, view, "RUNNING/GOOD")
	assert.Contains(t, view, domain.StateReady)
	assert.Contains(t, view, "online")
	assert.Contains(t, view, "cursor 1/GOOD")
}

func TestDashboard_ShowsFetchError(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection refused")}
	d := NewDashboard(api, nil, time.Hour)
	_, cmd := d.Update(d.fetch(true)())
	assert.NotNil(t, cmd, "polling continues after an error")
	assert.Contains(t, d.View(), "connection refused")
}

func TestDashboard_OperatorKeys(t *testing.T) {
	api := &fakeAPI{resp: sampleLedger()}
	d := loaded(t, api)

	d.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := d.Update(key("r"))
	require.NotNil(t, cmd)
	done := cmd()
	assert.Equal(t, actionDoneMsg{what: "row 1 reset"}, done)
	assert.Equal(t, []int{1}, api.resets)

	_, cmd = d.Update(done)
	require.NotNil(t, cmd, "a finished action refreshes the ledger")
	assert.Contains(t, d.View(), "row 1 reset")

	_, cmd = d.Update(key("R"))
	cmd()
	_, cmd = d.Update(key("c"))
	cmd()
	assert.Equal(t, 1, api.resetAll)
	assert.Equal(t, 1, api.clears)
}

func TestDashboard_ActionErrorShown(t *testing.T) {
	api := &fakeAPI{resp: sampleLedger()}
	d := loaded(t, api)
	api.err = errors.New("not_found: row not found: 9")

	_, cmd := d.Update(key("R"))
	_, next := d.Update(cmd())
	assert.Nil(t, next)
	assert.Contains(t, d.View(), "row not found")
}

func TestDashboard_ResetWithoutRowsIsNoop(t *testing.T) {
	api := &fakeAPI{}
	d := loaded(t, api)
	_, cmd := d.Update(key("r"))
	assert.Nil(t, cmd)
	assert.Empty(t, api.resets)
}

func TestDashboard_RemoteEvents(t *testing.T) {
	events := make(chan domain.Event, 1)
	api := &fakeAPI{resp: sampleLedger()}
	d := NewDashboard(api, events, time.Hour)

	events <- domain.Event{Kind: domain.EventLinkStatus, Link: &domain.LinkStatus{State: domain.StateMismatch}}
	msg := d.waitForEvent()()
	require.IsType(t, remoteEventMsg{}, msg)
	_, cmd := d.Update(msg)
	require.NotNil(t, cmd)
	assert.Contains(t, d.View(), domain.StateMismatch)

	close(events)
	msg = d.waitForEvent()()
	require.IsType(t, eventsClosedMsg{}, msg)
	d.Update(msg)
	assert.Contains(t, d.View(), "polling only")
	assert.Nil(t, d.waitForEvent(), "no wait without an event stream")
}

func TestDashboard_Quit(t *testing.T) {
	d := loaded(t, &fakeAPI{})
	_, cmd := d.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
