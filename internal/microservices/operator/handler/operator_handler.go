package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"kanban-tracker/internal/cell"
	"kanban-tracker/internal/domain"
	"kanban-tracker/internal/ledger"
	"kanban-tracker/internal/microservices/operator/service"
	"kanban-tracker/internal/microservices/scanner"
	"kanban-tracker/internal/protocol"
)

const maxScanBody = 4 << 10

type OperatorHandler struct {
	service service.OperatorServiceInterface
}

func NewOperatorHandler(svc service.OperatorServiceInterface) *OperatorHandler {
	return &OperatorHandler{service: svc}
}

func (h *OperatorHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *OperatorHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Ledger())
}

func (h *OperatorHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Status())
}

func (h *OperatorHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	h.service.ResetAll()
	writeJSON(w, http.StatusOK, h.service.Ledger())
}

func (h *OperatorHandler) ResetOne(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(param(r, "row"))
	if err != nil || row < 0 {
		writeProblem(w, http.StatusBadRequest, "bad_row", "row must be a non-negative integer")
		return
	}
	if err := h.service.ResetOne(row); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeProblem(w, http.StatusInternalServerError, "reset_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.service.Ledger())
}

func (h *OperatorHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.service.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *OperatorHandler) PostScan(w http.ResponseWriter, r *http.Request) {
	var req domain.ScanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScanBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	resp, err := h.service.Scan(req)
	switch {
	case err == nil:
		code := http.StatusOK
		switch {
		case resp.Lot != nil:
			code = http.StatusAccepted
		case resp.Created:
			code = http.StatusCreated
		}
		writeJSON(w, code, resp)
	case errors.Is(err, scanner.ErrUnrecognized), errors.Is(err, scanner.ErrMalformed),
		errors.Is(err, protocol.ErrBadQuantity):
		writeProblem(w, http.StatusUnprocessableEntity, "bad_scan", err.Error())
	case errors.Is(err, cell.ErrUnknownOrder), errors.Is(err, cell.ErrOutfeedNotExpected),
		errors.Is(err, cell.ErrReconcileInFlight):
		writeProblem(w, http.StatusConflict, "scan_rejected", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "scan_failed", err.Error())
	}
}

func (h *OperatorHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	limit := atoiDefault(r.URL.Query().Get("limit"), 50)
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	orders, err := h.service.ArchivedOrders(r.Context(), limit, offset)
	if err != nil {
		writeArchiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OperatorHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id := param(r, "order_id")
	limit := atoiDefault(r.URL.Query().Get("limit"), 50)
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	entries, err := h.service.ArchivedTimeline(r.Context(), id, limit, offset)
	if err != nil {
		writeArchiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": id, "events": entries})
}

func (h *OperatorHandler) GetLots(w http.ResponseWriter, r *http.Request) {
	limit := atoiDefault(r.URL.Query().Get("limit"), 50)
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	lots, err := h.service.ArchivedLots(r.Context(), limit, offset)
	if err != nil {
		writeArchiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lots": lots})
}

func writeArchiveError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrArchiveDisabled) {
		writeProblem(w, http.StatusServiceUnavailable, "archive_disabled", err.Error())
		return
	}
	writeProblem(w, http.StatusInternalServerError, "db_error", err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem writes a simplified RFC 7807 problem document.
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	resp := map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	}
	writeJSON(w, code, resp)
}

func param(r *http.Request, key string) string {
	return r.PathValue(key)
}

func atoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return d
	}
	return n
}
