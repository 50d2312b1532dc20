package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zest-protocol/dashboard/payment"
)

type prepareBody struct {
	RequestID string `json:"requestId"`
}

type recordBody struct {
	RequestID string `json:"requestId"`
	TxHash    string `json:"txHash"`
}

func (h *handler) paymentRoutes(r chi.Router) {
	r.Get("/balance/{identifier}", h.getBalance)
	r.Post("/request", h.createRequest)
	r.Get("/request/{id}", h.getRequest)
	r.Post("/prepare", h.preparePayment)
	r.Post("/record", h.recordPayment)
	r.Get("/history", h.paymentHistory)
}

func (h *handler) getBalance(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Payments.GetBalances(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var body payment.CreateRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.Payments.CreateRequest(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Payments.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) preparePayment(w http.ResponseWriter, r *http.Request) {
	var body prepareBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	prepared, err := h.Payments.PreparePayment(r.Context(), body.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prepared)
}

func (h *handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var body recordBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.Payments.RecordCompletion(r.Context(), body.RequestID, body.TxHash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) paymentHistory(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	history, err := h.Payments.History(r.Context(), payment.HistoryQuery{
		PageQuery:   page,
		FromAddress: q.Get("fromAddress"),
		Status:      q.Get("status"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
