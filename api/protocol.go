package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zest-protocol/dashboard/protocol"
)

func (h *handler) cdpRoutes(r chi.Router) {
	r.Post("/prepare", h.prepareCDP)
	r.Post("/record", h.recordCDP)
	r.Get("/", h.listCDPs)
	r.Get("/owner/{owner}", h.getCDP)
	r.Get("/{owner}/interest", h.cdpInterest)
}

func (h *handler) prepareCDP(w http.ResponseWriter, r *http.Request) {
	var body protocol.OpenCDPRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := h.CDP.Prepare(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *handler) recordCDP(w http.ResponseWriter, r *http.Request) {
	var body protocol.OpenCDPRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	pos, err := h.CDP.Record(r.Context(), body, r.URL.Query().Get("txHash"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

func (h *handler) listCDPs(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.CDP.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getCDP(w http.ResponseWriter, r *http.Request) {
	pos, err := h.CDP.Get(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (h *handler) cdpInterest(w http.ResponseWriter, r *http.Request) {
	out, err := h.CDP.Interest(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) stabilityRoutes(r chi.Router) {
	r.Post("/prepare", h.prepareDeposit)
	r.Post("/prepare-withdraw", h.prepareWithdraw)
	r.Post("/record", h.recordDeposit)
	r.Get("/", h.listDeposits)
	r.Get("/total/deposits", h.poolFigure("totalDeposits", (*protocol.StabilityService).TotalDeposits))
	r.Get("/total/yield", h.poolFigure("totalYield", (*protocol.StabilityService).TotalYield))
	r.Get("/share/price", h.poolFigure("sharePrice", (*protocol.StabilityService).SharePrice))
	r.Get("/calculate-szest/{amount}", h.calculateSZEST)
	r.Get("/{depositor}", h.getDeposit)
}

func (h *handler) prepareDeposit(w http.ResponseWriter, r *http.Request) {
	var body protocol.DepositRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := h.Stability.PrepareDeposit(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *handler) prepareWithdraw(w http.ResponseWriter, r *http.Request) {
	var body protocol.WithdrawRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := h.Stability.PrepareWithdraw(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *handler) recordDeposit(w http.ResponseWriter, r *http.Request) {
	var body protocol.DepositRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	dep, err := h.Stability.Record(r.Context(), body, r.URL.Query().Get("txHash"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (h *handler) listDeposits(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Stability.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getDeposit(w http.ResponseWriter, r *http.Request) {
	dep, err := h.Stability.Get(r.Context(), chi.URLParam(r, "depositor"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dep)
}

// poolFigure serves a single pool-wide value under key.
func (h *handler) poolFigure(key string, read func(*protocol.StabilityService, context.Context) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := read(h.Stability, r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{key: v})
	}
}

func (h *handler) calculateSZEST(w http.ResponseWriter, r *http.Request) {
	amount := chi.URLParam(r, "amount")
	shares, err := h.Stability.CalculateSZEST(r.Context(), amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount, "sZEST": shares})
}

func (h *handler) swapRoutes(r chi.Router) {
	r.Post("/prepare", h.prepareSwap)
	r.Post("/record", h.recordSwap)
	r.Get("/rate", h.swapRate)
	r.Get("/", h.listSwaps)
	r.Get("/{swapper}", h.swapsBySwapper)
}

func (h *handler) prepareSwap(w http.ResponseWriter, r *http.Request) {
	var body protocol.SwapRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := h.Swap.Prepare(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *handler) recordSwap(w http.ResponseWriter, r *http.Request) {
	var body protocol.SwapRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	entry, err := h.Swap.Record(r.Context(), body, r.URL.Query().Get("txHash"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *handler) swapRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rate, err := h.Swap.Rate(r.Context(), protocol.RateQuery{
		FromToken: q.Get("fromToken"),
		ToToken:   q.Get("toToken"),
		Amount:    q.Get("amount"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (h *handler) listSwaps(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := h.Swap.List(r.Context(), protocol.SwapQuery{
		PageQuery: page,
		Swapper:   q.Get("swapper"),
		ToToken:   q.Get("toToken"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) swapsBySwapper(w http.ResponseWriter, r *http.Request) {
	out, err := h.Swap.BySwapper(r.Context(), chi.URLParam(r, "swapper"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) priceRoutes(r chi.Router) {
	r.Get("/", h.allPrices)
	r.Get("/{token}", h.tokenPrice)
}

func (h *handler) allPrices(w http.ResponseWriter, r *http.Request) {
	out, err := h.Prices.All(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) tokenPrice(w http.ResponseWriter, r *http.Request) {
	out, err := h.Prices.Price(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
