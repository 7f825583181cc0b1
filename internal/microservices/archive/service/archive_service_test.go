package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/microservices/archive/models"
)

type fakeRepo struct {
	archived []models.OrderRecord
	lots     []domain.LotScan
	fail     error
}

func (f *fakeRepo) Migrate(context.Context) error { return nil }

func (f *fakeRepo) ArchiveTx(_ context.Context, rec models.OrderRecord) error {
	if f.fail != nil {
		return f.fail
	}
	f.archived = append(f.archived, rec)
	return nil
}

func (f *fakeRepo) GetOrder(context.Context, string) (models.OrderRecord, bool, error) {
	return models.OrderRecord{}, false, nil
}

func (f *fakeRepo) ListOrders(context.Context, int, int) ([]models.OrderRecord, error) {
	return f.archived, nil
}

func (f *fakeRepo) GetTimeline(context.Context, string, int, int) ([]models.StageEntry, error) {
	return nil, nil
}

func (f *fakeRepo) RecordLot(_ context.Context, scan domain.LotScan) error {
	if f.fail != nil {
		return f.fail
	}
	f.lots = append(f.lots, scan)
	return nil
}

func (f *fakeRepo) ListLots(context.Context, int, int) ([]domain.LotScan, error) {
	return f.lots, nil
}

func updated(id string, stage domain.Stage) domain.Event {
	return domain.Event{
		Kind: domain.EventOrderUpdated,
		Row:  &domain.RowView{OrderID: id, Model: "m", Stage: stage, UpdatedAt: time.Now()},
	}
}

func TestApply_ArchivesFinishedStagesOnce(t *testing.T) {
	repo := &fakeRepo{}
	s := NewArchiveService(repo)
	ctx := context.Background()

	steps := []struct {
		ev   domain.Event
		want bool
	}{
		{updated("a", domain.StageRunning), false},
		{updated("a", domain.StageFailed), true},
		{updated("a", domain.StageFailed), false},
		{updated("a", domain.StageNext), false},
		{updated("a", domain.StageRunning), false},
		{updated("a", domain.StageCompleted), true},
		{domain.Event{Kind: domain.EventLinkStatus, Link: &domain.LinkStatus{}}, false},
		{domain.Event{Kind: domain.EventOrderUpdated}, false},
	}
	for i, st := range steps {
		got, err := s.Apply(ctx, st.ev)
		require.NoError(t, err)
		assert.Equal(t, st.want, got, "step %d", i)
	}
	require.Len(t, repo.archived, 2)
	assert.Equal(t, domain.StageFailed, repo.archived[0].Stage)
	assert.Equal(t, domain.StageCompleted, repo.archived[1].Stage)
}

func TestApply_ClearForgetsHistory(t *testing.T) {
	repo := &fakeRepo{}
	s := NewArchiveService(repo)
	ctx := context.Background()

	_, _ = s.Apply(ctx, updated("a", domain.StageCompleted))
	_, _ = s.Apply(ctx, domain.Event{Kind: domain.EventLedgerCleared})
	ok, err := s.Apply(ctx, updated("a", domain.StageCompleted))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, repo.archived, 2)
}

func TestApply_RecordsLotScans(t *testing.T) {
	repo := &fakeRepo{}
	s := NewArchiveService(repo)
	ctx := context.Background()

	lot := domain.LotScan{Lot: "MA0000123", Station: domain.StationInfeed, Device: "infeed-1", ScannedAt: time.Now()}
	for i := 0; i < 2; i++ {
		ok, err := s.Apply(ctx, domain.Event{Kind: domain.EventLotScanned, Lot: &lot})
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := s.Apply(ctx, domain.Event{Kind: domain.EventLotScanned})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []domain.LotScan{lot, lot}, repo.lots)
}

func TestRun_LogsFailuresAndStopsOnClose(t *testing.T) {
	repo := &fakeRepo{fail: errors.New("disk full")}
	s := NewArchiveService(repo)

	ch := make(chan domain.Event, 2)
	ch <- updated("a", domain.StageCompleted)
	close(ch)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), ch) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
	assert.Empty(t, repo.archived)
}
