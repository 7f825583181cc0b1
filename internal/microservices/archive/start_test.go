package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban-tracker/internal/cell"
	"kanban-tracker/internal/config"
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/events"
	"kanban-tracker/internal/protocol"
)

func TestArchive_RecordsCompletedOrderFromEngine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	defer a.Close()

	hub := events.NewHub()
	done := make(chan error, 1)
	ch, unsubscribe := Subscribe(hub)
	go func() {
		defer unsubscribe()
		done <- a.Run(ctx, ch)
	}()

	e := cell.New(cell.WithPublisher(hub))
	e.RecordLot(domain.LotScan{Lot: "MA0000123", Station: domain.StationInfeed, Device: "infeed-1"})
	e.RegisterInfeed("123456789", "4321", "1A", 10)
	for _, frame := range []string{"M100|200", "M101|4321|9", "M102|4321|1", "M103|4321|10", "M104"} {
		req, err := protocol.Parse([]byte(frame))
		require.NoError(t, err)
		e.Handle(req)
	}
	require.NoError(t, e.OnOutfeedScan("123456789", "4321", 10))
	for _, frame := range []string{"M104", "M105|200"} {
		req, err := protocol.Parse([]byte(frame))
		require.NoError(t, err)
		e.Handle(req)
	}

	require.Eventually(t, func() bool {
		_, ok, err := a.Service.GetOrder(ctx, "123456789")
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)

	rec, _, err := a.Service.GetOrder(ctx, "123456789")
	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, rec.Stage)
	assert.Equal(t, 9, rec.GoodQty)
	assert.Equal(t, 1, rec.DefectQty)
	assert.Equal(t, 10, rec.CompletedQty)

	lots, err := a.Service.ListLots(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "MA0000123", lots[0].Lot)

	cancel()
	assert.NoError(t, <-done)
}
