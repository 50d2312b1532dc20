package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zest-protocol/dashboard/verification"
)

func (h *handler) kycRoutes(r chi.Router) {
	r.Post("/verify", h.submitProof)
	r.Get("/status/{userId}", h.kycStatus)
}

func (h *handler) submitProof(w http.ResponseWriter, r *http.Request) {
	var body verification.SubmitRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.KYC.Submit(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sub)
}

func (h *handler) kycStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.KYC.Status(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
