package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zest-protocol/dashboard/payment"
	"github.com/zest-protocol/dashboard/protocol"
	"github.com/zest-protocol/dashboard/queue"
	"github.com/zest-protocol/dashboard/settlement"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
)

const payee = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

type fixedChain struct{}

func (fixedChain) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (fixedChain) TokenBalance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(2), nil
}

type hexNames struct{}

func (hexNames) Resolve(_ context.Context, identifier string) (common.Address, error) {
	if !common.IsHexAddress(identifier) {
		return common.Address{}, types.NewError(types.ErrResolution, "cannot resolve "+identifier, nil)
	}
	return common.HexToAddress(identifier), nil
}

func (hexNames) LookupAddress(context.Context, string) (string, error) { return "", nil }

type fakeJobs map[string]queue.Status

func (f fakeJobs) Status(id string) (queue.Status, bool) {
	s, ok := f[id]
	return s, ok
}

func newServices(t *testing.T) Services {
	t.Helper()
	store, err := storage.Open(storage.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return Services{
		Payments: payment.NewService(payment.Config{Chain: fixedChain{}, Names: hexNames{}, Store: store}),
		Ledger:   settlement.NewLedger(store, nil, nil),
		Prices:   protocol.NewPriceFeed(nil, common.Address{}, true, nil),
		Jobs:     fakeJobs{"job-1": queue.StatusRunning},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	s := newServices(t)
	rec := do(t, NewRouter(s, Config{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	s.Ping = func(context.Context) error { return errors.New("db gone") }
	rec = do(t, NewRouter(s, Config{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsMountedOnlyWhenGiven(t *testing.T) {
	s := newServices(t)
	rec := do(t, NewRouter(s, Config{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "# metrics")
	})
	rec = do(t, NewRouter(s, Config{MetricsHandler: metricsHandler}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestPaymentFlow(t *testing.T) {
	router := NewRouter(newServices(t), Config{})

	rec := do(t, router, http.MethodPost, "/payment/request",
		fmt.Sprintf(`{"amount":"1.25","token":"USDT","fromAddress":%q}`, payee))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[payment.RequestCreated](t, rec)
	require.NotEmpty(t, created.RequestID)

	rec = do(t, router, http.MethodGet, "/payment/request/"+created.RequestID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	req := decodeBody[types.PaymentRequest](t, rec)
	assert.Equal(t, types.PaymentPending, req.Status)

	rec = do(t, router, http.MethodPost, "/payment/prepare", fmt.Sprintf(`{"requestId":%q}`, created.RequestID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prepared := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "0", prepared["value"])

	hash := "0x" + strings.Repeat("cd", 32)
	rec = do(t, router, http.MethodPost, "/payment/record",
		fmt.Sprintf(`{"requestId":%q,"txHash":%q}`, created.RequestID, hash))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/payment/prepare", fmt.Sprintf(`{"requestId":%q}`, created.RequestID))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, types.ErrInvalidState, decodeBody[ErrorResponse](t, rec).Code)

	rec = do(t, router, http.MethodGet, "/transactions/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":1,"byType":{"PAYMENT":1}}`, rec.Body.String())
}

func TestErrorStatuses(t *testing.T) {
	router := NewRouter(newServices(t), Config{})

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown request", http.MethodGet, "/payment/request/" + uuid.NewString(), "", http.StatusNotFound, types.ErrNotFound},
		{"malformed body", http.MethodPost, "/payment/request", "{", http.StatusBadRequest, types.ErrValidation},
		{"empty body", http.MethodPost, "/payment/request", "", http.StatusBadRequest, types.ErrValidation},
		{"bad token", http.MethodPost, "/payment/request", `{"amount":"1","token":"DOGE","fromAddress":"x"}`, http.StatusBadRequest, types.ErrValidation},
		{"unresolvable", http.MethodGet, "/payment/balance/nobody", "", http.StatusBadRequest, types.ErrResolution},
		{"bad page", http.MethodGet, "/transactions?page=0", "", http.StatusBadRequest, types.ErrValidation},
		{"bad type", http.MethodGet, "/transactions/type/BRIDGE", "", http.StatusBadRequest, types.ErrValidation},
		{"bad price token", http.MethodGet, "/price-feed/DOGE", "", http.StatusBadRequest, types.ErrValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := do(t, router, c.method, c.path, c.body)
			assert.Equal(t, c.status, rec.Code, rec.Body.String())
			assert.Equal(t, c.code, decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestBalanceAndPrices(t *testing.T) {
	router := NewRouter(newServices(t), Config{})

	rec := do(t, router, http.MethodGet, "/payment/balance/"+payee, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decodeBody[types.BalanceSnapshot](t, rec)
	assert.Equal(t, "1", snap.CBTC)
	assert.Equal(t, "2", snap.USDT)

	rec = do(t, router, http.MethodGet, "/price-feed/cbtc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"cBTC","price":85000}`, rec.Body.String())
}

func TestUnconfiguredServicesAreNotMounted(t *testing.T) {
	router := NewRouter(newServices(t), Config{})
	for _, path := range []string{"/kyc/status/u1", "/ens/resolve/bob", "/cdp/", "/swap/rate"} {
		rec := do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestJobStatus(t *testing.T) {
	router := NewRouter(newServices(t), Config{})

	rec := do(t, router, http.MethodGet, "/jobs/job-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jobId":"job-1","status":"running"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/jobs/job-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, types.ErrNotFound, decodeBody[ErrorResponse](t, rec).Code)
}

func TestRateLimit(t *testing.T) {
	router := NewRouter(newServices(t), Config{RateLimitRPS: 0.001, RateLimitBurst: 1})

	rec := do(t, router, http.MethodGet, "/price-feed/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/price-feed/", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, codeRateLimited, decodeBody[ErrorResponse](t, rec).Code)

	rec = do(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusGone, statusOf(types.ErrExpired))
	assert.Equal(t, http.StatusBadGateway, statusOf(types.ErrBalanceRead))
	assert.Equal(t, http.StatusConflict, statusOf(types.ErrUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusOf(types.ErrStore))
}
