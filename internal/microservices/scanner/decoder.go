package scanner

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"kanban-tracker/internal/domain"
)

var (
	ErrLotNumber    = errors.New("lot number scan")
	ErrUnrecognized = errors.New("unrecognized scan")
	ErrMalformed    = errors.New("malformed kanban label")
)

const (
	kanbanPrefix = "DISC"
	lotPrefix    = "MA"
)

// Kanban labels are fixed-width; each field is located by its own pattern
// inside the payload that starts at the first "MA". The 7-digit reference is
// the one followed by the label's print year.
var (
	modelRe = regexp.MustCompile(`-(\d{4})(\d[A-Z])`)
	qtyRe   = regexp.MustCompile(`0000(\d{3})([A-Z])`)
	orderRe = regexp.MustCompile(`(\d{9})$`)
)

var now = time.Now

// refPattern matches a reference followed by the year of t or the year before.
func refPattern(t time.Time) *regexp.Regexp {
	y := t.Year()
	return regexp.MustCompile(fmt.Sprintf(`(\d{7})(?:%04d|%04d)`, y, y-1))
}

// Decode turns one raw scanner line into a ScanEvent for station.
func Decode(line string, station domain.Station) (domain.ScanEvent, error) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, kanbanPrefix):
	case strings.HasPrefix(line, lotPrefix):
		return domain.ScanEvent{}, ErrLotNumber
	default:
		return domain.ScanEvent{}, fmt.Errorf("%w: %.24q", ErrUnrecognized, line)
	}

	i := strings.Index(line, lotPrefix)
	if i < 0 {
		return domain.ScanEvent{}, fmt.Errorf("%w: no payload", ErrMalformed)
	}
	payload := line[i:]

	ref := refPattern(now()).FindStringSubmatch(payload)
	if ref == nil {
		return domain.ScanEvent{}, fmt.Errorf("%w: reference", ErrMalformed)
	}
	model := modelRe.FindStringSubmatch(payload)
	if model == nil {
		return domain.ScanEvent{}, fmt.Errorf("%w: model", ErrMalformed)
	}
	qty := qtyRe.FindStringSubmatch(payload)
	if qty == nil {
		return domain.ScanEvent{}, fmt.Errorf("%w: quantity", ErrMalformed)
	}
	order := orderRe.FindStringSubmatch(payload)
	if order == nil {
		return domain.ScanEvent{}, fmt.Errorf("%w: order", ErrMalformed)
	}
	n, err := strconv.Atoi(qty[1])
	if err != nil {
		return domain.ScanEvent{}, fmt.Errorf("%w: quantity %q", ErrMalformed, qty[1])
	}

	return domain.ScanEvent{
		Model:       model[1],
		PackingCode: model[2],
		OrderID:     order[1],
		Quantity:    strconv.Itoa(n),
		UnitCode:    qty[2],
		RefNo:       ref[1],
		Station:     station,
	}, nil
}

// ParseStation maps a config or API station name to a Station.
func ParseStation(s string) (domain.Station, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(domain.StationInfeed):
		return domain.StationInfeed, nil
	case string(domain.StationOutfeed):
		return domain.StationOutfeed, nil
	}
	return "", fmt.Errorf("unknown station %q", s)
}
