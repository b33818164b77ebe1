package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wallet-dashboard/internal/errors"
	"github.com/wallet-dashboard/internal/service"
	"github.com/wallet-dashboard/internal/types"
)

const testAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

type stubWallet struct {
	balance   *service.WalletBalanceView
	holdings  *service.HoldingsView
	err       error
	lastInput service.HoldingsInput
}

func (s *stubWallet) GetWalletBalance(ctx context.Context, address, network string) (*service.WalletBalanceView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.balance, nil
}

func (s *stubWallet) GetHoldings(ctx context.Context, input service.HoldingsInput) (*service.HoldingsView, error) {
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.holdings, nil
}

type stubActivity struct {
	view  *service.ActivityView
	err   error
	panic bool
}

func (s *stubActivity) GetActivity(ctx context.Context, address, network string) (*service.ActivityView, error) {
	if s.panic {
		panic("boom")
	}
	return s.view, s.err
}

type stubTransfer struct {
	quote   *service.TransferQuote
	err     error
	lastReq service.TransferRequest
}

func (s *stubTransfer) Quote(ctx context.Context, req service.TransferRequest) (*service.TransferQuote, error) {
	s.lastReq = req
	return s.quote, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type testServer struct {
	*Server
	wallet   *stubWallet
	activity *stubActivity
	transfer *stubTransfer
}

func createTestServer(health HealthChecker) *testServer {
	wallet := &stubWallet{}
	activity := &stubActivity{}
	transfer := &stubTransfer{}
	cfg := &ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		DefaultNetwork: types.NetworkSepolia,
	}
	return &testServer{
		Server:   NewServer(cfg, wallet, activity, transfer, health),
		wallet:   wallet,
		activity: activity,
		transfer: transfer,
	}
}

func (ts *testServer) do(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ServiceError {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	w := createTestServer(nil).do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = createTestServer(stubPinger{err: errors.New("connection refused")}).do("GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

type stubReporter struct{ stubPinger }

func (stubReporter) Upstreams(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{"explorer": map[string]interface{}{"breaker": "open"}}
}

func TestHealthReportsUpstreams(t *testing.T) {
	w := createTestServer(stubReporter{}).do("GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status    string `json:"status"`
		Upstreams struct {
			Explorer struct {
				Breaker string `json:"breaker"`
			} `json:"explorer"`
		} `json:"upstreams"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "open", body.Upstreams.Explorer.Breaker)
}

func TestListNetworks(t *testing.T) {
	w := createTestServer(nil).do("GET", "/api/networks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Networks []types.Network `json:"networks"`
		Default  string          `json:"default"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Networks, 2)
	assert.Equal(t, "sepolia", body.Default)
}

func TestGetBalance(t *testing.T) {
	ts := createTestServer(nil)
	ts.wallet.balance = &service.WalletBalanceView{Address: testAddress, Balance: "1.5", Symbol: "ETH", FormattedUSD: "$3,000.00"}

	w := ts.do("GET", "/api/wallets/"+testAddress+"/balance?network=sepolia", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view service.WalletBalanceView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "$3,000.00", view.FormattedUSD)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestGetHoldingsPassesSort(t *testing.T) {
	ts := createTestServer(nil)
	ts.wallet.holdings = &service.HoldingsView{FormattedTotal: "$0.00"}

	w := ts.do("GET", "/api/wallets/"+testAddress+"/holdings?network=mainnet&sort=balance&order=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.HoldingsInput{
		Address:   testAddress,
		Network:   "mainnet",
		SortField: "balance",
		Direction: "desc",
	}, ts.wallet.lastInput)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "unknown network", err: apperrors.NewUnsupportedNetworkError("polygon"), status: http.StatusBadRequest, code: "UNSUPPORTED_NETWORK"},
		{name: "invalid address", err: apperrors.NewInvalidAddressError("0x12"), status: http.StatusBadRequest, code: "INVALID_ADDRESS"},
		{name: "provider down", err: apperrors.NewProviderError("explorer", errors.New("502")), status: http.StatusBadGateway, code: "PROVIDER_ERROR"},
		{name: "pending", err: apperrors.NewPendingError("price"), status: http.StatusServiceUnavailable, code: "PENDING"},
		{name: "unexpected", err: errors.New("nil map"), status: http.StatusInternalServerError, code: ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := createTestServer(nil)
			ts.wallet.err = tt.err

			w := ts.do("GET", "/api/wallets/"+testAddress+"/holdings", nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestInternalErrorMessageIsGeneric(t *testing.T) {
	ts := createTestServer(nil)
	ts.activity.err = errors.New("dial tcp 10.0.0.7:6379: refused")

	w := ts.do("GET", "/api/wallets/"+testAddress+"/activity", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.7")
}

func TestGetActivity(t *testing.T) {
	ts := createTestServer(nil)
	ts.activity.view = &service.ActivityView{
		Address: testAddress,
		Days:    []service.DayView{{Date: "2024-03-09", Header: "March 9, 2024"}},
	}

	w := ts.do("GET", "/api/wallets/"+testAddress+"/activity", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "March 9, 2024")
}

func TestQuoteTransfer(t *testing.T) {
	ts := createTestServer(nil)
	ts.transfer.quote = &service.TransferQuote{Fee: "0.00042"}

	body := []byte(`{"to":"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238","value":"0.5","network":"sepolia"}`)
	w := ts.do("POST", "/api/wallets/"+testAddress+"/transfers/quote", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testAddress, ts.transfer.lastReq.From)
	assert.Equal(t, "0.5", ts.transfer.lastReq.Value)
	assert.Contains(t, w.Body.String(), "0.00042")
}

func TestQuoteTransferBadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: "invalid json"},
		{name: "unknown field", body: `{"to":"0x1","amount":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := createTestServer(nil).do("POST", "/api/wallets/"+testAddress+"/transfers/quote", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, ErrCodeInvalidInput, decodeError(t, w).Code)
		})
	}
}

func TestQuoteTransferValidationMessage(t *testing.T) {
	ts := createTestServer(nil)
	ts.transfer.err = apperrors.NewInsufficientFundsError("value", "You don't have enough ETH.")

	w := ts.do("POST", "/api/wallets/"+testAddress+"/transfers/quote", []byte(`{"to":"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238","value":"9"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)

	svcErr := decodeError(t, w)
	assert.Equal(t, "INSUFFICIENT_FUNDS", svcErr.Code)
	assert.Equal(t, "You don't have enough ETH.", svcErr.Message)
	assert.Equal(t, "value", svcErr.Details["parameter"])
}

func TestRequestID(t *testing.T) {
	ts := createTestServer(nil)

	w := ts.do("GET", "/health", nil)
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.New().String()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	w := createTestServer(nil).do("OPTIONS", "/api/wallets/"+testAddress+"/transfers/quote", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	ts := createTestServer(nil)
	ts.activity.panic = true

	w := ts.do("GET", "/api/wallets/"+testAddress+"/activity", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ErrCodeInternalError, decodeError(t, w).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := createTestServer(nil)
	ts.do("GET", "/health", nil)

	w := ts.do("GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wallet_http_requests_total")
}
