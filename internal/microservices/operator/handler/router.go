package handler

import "net/http"

func Router(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.OperatorHandler.Health)
	mux.HandleFunc("GET /api/v1/orders", h.OperatorHandler.GetLedger)
	mux.HandleFunc("DELETE /api/v1/orders", h.OperatorHandler.Clear)
	mux.HandleFunc("POST /api/v1/orders/reset", h.OperatorHandler.ResetAll)
	mux.HandleFunc("POST /api/v1/orders/{row}/reset", h.OperatorHandler.ResetOne)
	mux.HandleFunc("GET /api/v1/status", h.OperatorHandler.GetStatus)
	mux.HandleFunc("POST /api/v1/scans", h.OperatorHandler.PostScan)
	mux.HandleFunc("GET /api/v1/archive/orders", h.OperatorHandler.GetArchive)
	mux.HandleFunc("GET /api/v1/archive/orders/{order_id}/timeline", h.OperatorHandler.GetTimeline)
	mux.HandleFunc("GET /api/v1/archive/lots", h.OperatorHandler.GetLots)
	return mux
}
