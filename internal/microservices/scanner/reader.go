package scanner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"kanban-tracker/internal/common/logger"
	"kanban-tracker/internal/domain"
)

// Sink receives decoded scans and lot labels.
type Sink interface {
	Ingest(ev domain.ScanEvent) (bool, error)
	RecordLot(scan domain.LotScan) domain.LotScan
}

// Device is one barcode scanner. Path "-" reads standard input.
type Device struct {
	Name        string
	Station     domain.Station
	Path        string
	ReopenDelay time.Duration
}

type Reader struct {
	dev  Device
	sink Sink
	open func(path string) (io.ReadCloser, error)
	lg   *logger.Logger
}

func NewReader(dev Device, sink Sink) *Reader {
	if dev.ReopenDelay <= 0 {
		dev.ReopenDelay = 2 * time.Second
	}
	return &Reader{dev: dev, sink: sink, open: openDevice, lg: logger.New("scanner")}
}

func openDevice(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// Run reads the device line by line until it reports EOF or ctx is done.
// A device that cannot be opened is retried every ReopenDelay.
func (r *Reader) Run(ctx context.Context) error {
	fields := map[string]any{"device": r.dev.Name, "path": r.dev.Path, "station": string(r.dev.Station)}
	for {
		rc, err := r.open(r.dev.Path)
		if err == nil {
			r.lg.Info("scanner_opened", fields)
			err = r.consume(ctx, rc)
			if err == nil || ctx.Err() != nil {
				return nil
			}
		}
		r.lg.Error("scanner_unavailable", err, fields)

		select {
		case <-time.After(r.dev.ReopenDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Reader) consume(ctx context.Context, rc io.ReadCloser) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = rc.Close()
		case <-done:
			_ = rc.Close()
		}
	}()

	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		r.Process(sc.Text())
	}
	if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// Process decodes and forwards one line. Lot labels go to RecordLot;
// undecodable lines are logged and dropped.
func (r *Reader) Process(line string) {
	fields := map[string]any{"device": r.dev.Name, "station": string(r.dev.Station)}
	ev, err := Decode(line, r.dev.Station)
	switch {
	case errors.Is(err, ErrLotNumber):
		r.sink.RecordLot(domain.LotScan{Lot: strings.TrimSpace(line), Station: r.dev.Station, Device: r.dev.Name})
		return
	case err != nil:
		r.lg.Error("scan_decode_failed", err, fields)
		return
	}

	fields["order_id"], fields["model"], fields["qty"] = ev.OrderID, ev.Model, ev.Quantity
	created, err := r.sink.Ingest(ev)
	if err != nil {
		r.lg.Error("scan_rejected", err, fields)
		return
	}
	fields["created"] = created
	r.lg.Debug("scan_accepted", fields)
}
