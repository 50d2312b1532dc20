package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type registerBody struct {
	Label string `json:"label" validate:"required"`
	Owner string `json:"owner" validate:"required"`
}

func (h *handler) namingRoutes(r chi.Router) {
	r.Get("/resolve/{name}", h.resolveName)
	r.Get("/lookup/{address}", h.lookupAddress)
	r.Get("/text/{name}", h.textRecord)
	r.Get("/avatar/{nameOrAddress}", h.avatar)
	r.Post("/register", h.registerName)
}

func (h *handler) resolveName(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Naming.ResolveName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) lookupAddress(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	name, err := h.Naming.LookupAddress(r.Context(), address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var out *string
	if name != "" {
		out = &name
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": address, "name": out})
}

func (h *handler) textRecord(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	key := r.URL.Query().Get("key")
	value, err := h.Naming.TextRecord(r.Context(), name, key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "key": key, "value": value})
}

func (h *handler) avatar(w http.ResponseWriter, r *http.Request) {
	avatar, err := h.Naming.Avatar(r.Context(), chi.URLParam(r, "nameOrAddress"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar": avatar})
}

func (h *handler) registerName(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	reg, err := h.Naming.Register(r.Context(), body.Label, body.Owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, reg)
}
