package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zest-protocol/dashboard/settlement"
)

func (h *handler) ledgerRoutes(r chi.Router) {
	r.Get("/", h.listTransactions)
	r.Get("/stats", h.transactionStats)
	r.Get("/address/{address}", h.transactionsByAddress)
	r.Get("/type/{type}", h.transactionsByType)
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.Ledger.List(r.Context(), settlement.Query{
		PageQuery: page,
		Address:   q.Get("address"),
		From:      q.Get("from"),
		To:        q.Get("to"),
		Type:      q.Get("type"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) transactionsByAddress(w http.ResponseWriter, r *http.Request) {
	out, err := h.Ledger.ByAddress(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) transactionsByType(w http.ResponseWriter, r *http.Request) {
	out, err := h.Ledger.ByType(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) transactionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Ledger.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
