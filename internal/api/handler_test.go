package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anziyang2000/hq-code-sub003/internal/api"
	"github.com/anziyang2000/hq-code-sub003/internal/api/middleware"
	"github.com/anziyang2000/hq-code-sub003/internal/config"
	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/idempotency"
	"github.com/anziyang2000/hq-code-sub003/internal/identity"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
	"github.com/anziyang2000/hq-code-sub003/internal/serial"
	"github.com/anziyang2000/hq-code-sub003/internal/service"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "ticket-ledger-test"
	testJWTAudience = "ticket-api-test"
	testOrg         = "Org1MSP"
)

var (
	adminCaller = identity.Caller{ID: "admin", Org: testOrg}
	aliceCaller = identity.Caller{ID: "alice", Org: testOrg}
)

type testAPI struct {
	handler http.Handler
}

// setupAPI builds the real router on an in-memory ledger. With withCache
// the idempotency cache runs on miniredis.
func setupAPI(t *testing.T, withCache bool) *testAPI {
	t.Helper()
	middleware.SetJWTSecret(testJWTSecret)
	middleware.SetJWTValidation(testJWTIssuer, testJWTAudience)

	cfg := &config.Config{
		HTTPPort:           "0",
		JWTSecret:          testJWTSecret,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
		IdempotencyTTL:     time.Hour,
	}
	svc := service.NewContractService(ledger.NewMemoryStore(), serial.NewLocal())

	var idemStore *idempotency.Store
	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		idemStore = idempotency.NewStore(client, "ticket", cfg.IdempotencyTTL)
	}
	router := api.NewRouter(cfg, zap.NewNop(), svc, idemStore, nil)
	return &testAPI{handler: router.Routes()}
}

func generateTestToken(t *testing.T, caller identity.Caller) string {
	t.Helper()
	token, err := middleware.SignToken(caller, "operator", time.Hour)
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, caller *identity.Caller, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+generateTestToken(t, *caller))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testAPI) initialize(t *testing.T) {
	t.Helper()
	w := a.do(t, &adminCaller, http.MethodPost, "/v1/contract/initialize", map[string]string{
		"name": "TicketLedger", "symbol": "TKT", "org": testOrg, "admin": adminCaller.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func mintBody(t *testing.T, tokenID, owner string, balance int64) map[string]any {
	t.Helper()
	slot := models.NewTicketInfo()
	slot.BasicInformation.SimpleTicket.ScenicID = "scenic-1"
	slot.BasicInformation.SimpleTicket.TicketStock.BatchID = "batch-1"
	return map[string]any{
		"token_id":     tokenID,
		"owner":        owner,
		"slot":         slot,
		"balance":      balance,
		"metadata":     models.Metadata{Description: "day ticket", TokenURL: "https://tickets.example/" + tokenID},
		"trigger_time": 1700000000,
	}
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	require.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRFC7807ProblemDetails(t *testing.T) {
	a := setupAPI(t, false)

	w := a.do(t, nil, http.MethodGet, "/v1/tokens/T1", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	body := decodeProblem(t, w)
	assert.NotEmpty(t, body["type"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.NotEmpty(t, body["title"])
	assert.NotEmpty(t, body["detail"])
	assert.Equal(t, "/v1/tokens/T1", body["instance"])
	assert.NotEmpty(t, body["request_id"])
	assert.NotContains(t, body, "contract_code")
}

func TestAuthRejectsBadTokens(t *testing.T) {
	a := setupAPI(t, false)

	cases := []struct {
		name   string
		header string
	}{
		{"not bearer", "Token abc"},
		{"garbage", "Bearer not-a-jwt"},
		{"missing org", "Bearer " + func() string {
			token, err := middleware.SignToken(identity.Caller{ID: "alice"}, "", time.Hour)
			require.NoError(t, err)
			return token
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, nil, http.MethodGet, "/v1/contract", nil, "Authorization", tc.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestContractLifecycle(t *testing.T) {
	a := setupAPI(t, false)

	w := a.do(t, &adminCaller, http.MethodGet, "/v1/contract", nil)
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, float64(domain.CodeServiceInit), decodeProblem(t, w)["contract_code"])
	assert.Equal(t, "https://errors.ticketledger.dev/contract/service-init", decodeProblem(t, w)["type"])

	a.initialize(t)

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/contract/initialize", map[string]string{
		"name": "Other", "symbol": "OTH", "org": testOrg, "admin": adminCaller.ID,
	})
	require.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/contract", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info models.ContractInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, models.ContractInfo{Name: "TicketLedger", Symbol: "TKT"}, info)

	w = a.do(t, &aliceCaller, http.MethodPost, "/v1/contract/org-admins", map[string]string{"org": testOrg, "admin": "alice"})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, float64(domain.CodeServiceIdentity), decodeProblem(t, w)["contract_code"])

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/contract/org-admins", map[string]string{"org": testOrg, "admin": "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var mapping map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mapping))
	assert.Equal(t, []string{"admin", "alice"}, mapping[testOrg])

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/contract/client-account-id", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"client_account_id":"alice"}`, w.Body.String())

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/contract/lock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"locked":true}`, w.Body.String())

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", mintBody(t, "T1", "admin", 10))
	require.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, float64(domain.CodeServiceLock), decodeProblem(t, w)["contract_code"])

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/contract/lock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, &adminCaller, http.MethodGet, "/v1/contract/lock", nil)
	assert.JSONEq(t, `{"locked":false}`, w.Body.String())
}

func TestMintAndReadToken(t *testing.T) {
	a := setupAPI(t, false)
	a.initialize(t)

	w := a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", mintBody(t, "T1", "admin", 10))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var token models.Token
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))
	assert.Equal(t, int64(10), token.Balance)
	assert.Equal(t, int64(10), token.TotalBalance)

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", mintBody(t, "T1", "admin", 10))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, float64(domain.CodeConflict), decodeProblem(t, w)["contract_code"])

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", mintBody(t, "T2", "admin", 0))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, float64(domain.CodeNumberError), decodeProblem(t, w)["contract_code"])

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", `{"token_id":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, float64(domain.CodeParseError), decodeProblem(t, w)["contract_code"])

	w = a.do(t, &aliceCaller, http.MethodPost, "/v1/tokens", mintBody(t, "T3", "alice", 5))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens/T1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens/T1/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token_id":"T1","balance":10}`, w.Body.String())

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens/T1/owner", nil)
	assert.JSONEq(t, `{"token_id":"T1","owner":"admin"}`, w.Body.String())

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens/T1/uri", nil)
	assert.JSONEq(t, `{"token_id":"T1","token_url":"https://tickets.example/T1"}`, w.Body.String())

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens/T1/slot", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens/supply", nil)
	assert.JSONEq(t, `{"total_supply":1}`, w.Body.String())

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens?owner=admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []models.TokenSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Equal(t, []models.TokenSummary{{TicketID: "T1", Owner: "admin", Balance: 10}}, rows)

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens?owner=nobody", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens/T9", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, float64(domain.CodeNotExist), decodeProblem(t, w)["contract_code"])
}

func TestSplitAndBurn(t *testing.T) {
	a := setupAPI(t, false)
	a.initialize(t)

	w := a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", mintBody(t, "T1", "admin", 10))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tokens/split", map[string]any{
		"sender_stock_id":  "T1",
		"receive_stock_id": "T2",
		"receive":          "bob",
		"amount":           4,
		"trigger_time":     1700000001,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.SplitResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, int64(6), res.Source.Balance)
	assert.Equal(t, int64(4), res.Dest.Balance)
	assert.Equal(t, "bob", res.Dest.Owner)

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tokens/T1/burn", map[string]any{"amount": 6})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"contract_code":2000,"contract_msg":"success"}`, w.Body.String())

	w = a.do(t, &adminCaller, http.MethodGet, "/v1/tokens/T1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tokens/T2/burn", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, float64(domain.CodeNotOwner), decodeProblem(t, w)["contract_code"])
}

func TestOrderAndCreditRoutes(t *testing.T) {
	a := setupAPI(t, false)
	a.initialize(t)

	w := a.do(t, &adminCaller, http.MethodPost, "/v1/orders", map[string]any{
		"payload":      map[string]any{"order": map[string]any{"order_id": "O1"}},
		"trigger_time": 1700000002,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, float64(domain.CodeTypeMismatch), decodeProblem(t, w)["contract_code"])

	order := models.NewOrderInfo()
	order.OrderGroupID = "G1"
	order.OrderTab[0].OrderID = "O1"
	order.OrderTab[0].SellerID = "1001"
	order.OrderTab[0].UserID = "u-1"
	order.OrderTab[0].OrderProductTicket[0].TicketRn[0].TicketNumber = "TK-1"
	order.OrderTab[0].OrderProductTicket[0].TicketRn[0].TicketStatus = "1"
	w = a.do(t, &adminCaller, http.MethodPost, "/v1/orders", map[string]any{"payload": order, "trigger_time": 1700000002})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/orders/G1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.OrderInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, "O1", stored.OrderTab[0].OrderID)

	w = a.do(t, &adminCaller, http.MethodGet, "/v1/orders/O404", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/credits", map[string]any{
		"type": domain.CreditTypeSetOrUpdate,
		"info": models.CreditInfo{
			Account: "acct-1", MerchantID: "M1", CreditLimit: "1000", AssetsKey: "A1", SeqNo: "S1",
		},
		"trigger_time": 1700000003,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/credits/transfers", map[string]any{
		"from": "acct-1",
		"to":   "acct-2",
		"info": models.TransferInfo{
			IssuerID: "A2", IssuerAccount: "acct-2", ReceiverID: "A1", ReceiverAccount: "acct-1",
			AssetsKey: "A1", Amount: "400", TradeNo: "TR1",
		},
		"trigger_time": 1700000004,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/credits/A2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acct models.CreditAccount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &acct))
	assert.Equal(t, int64(400), acct.CreditLimit)

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/payments", map[string]any{
		"info": models.PaymentFlowInfo{
			UserName: "Li Lei", BankCardNumber: "6222000011112222", BankName: "ICBC",
			TransactionSerialNumber: "TX1", Amount: "250", CreditorID: "C1", CorporationID: "CORP1",
		},
		"trigger_time": 1700000005,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestTicketMaintenanceRoutes(t *testing.T) {
	a := setupAPI(t, false)
	a.initialize(t)
	for _, id := range []string{"S1-a", "S1-b"} {
		w := a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", mintBody(t, id, "alice", 5))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	update := map[string]any{
		"items":        []models.TicketStatusUpdate{{TicketID: "S1-a", Status: "3"}},
		"trigger_time": 1700000010,
		"request_id":   "req-1",
	}
	w := a.do(t, &aliceCaller, http.MethodPost, "/v1/tickets/status-updates", update)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, float64(domain.CodeServiceIdentity), decodeProblem(t, w)["contract_code"])

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tickets/status-updates", update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the same request id is refused by the ledger
	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tickets/status-updates", update)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, float64(domain.CodeConflict), decodeProblem(t, w)["contract_code"])

	w = a.do(t, &adminCaller, http.MethodGet, "/v1/tokens/S1-a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var token models.Token
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))
	assert.Equal(t, json.Number("3"), token.Slot.AdditionalInformation.TicketData.Status)

	w = a.do(t, &adminCaller, http.MethodPatch, "/v1/stocks/S1", map[string]any{
		"fields":       models.StockTimes{PurchaseBeginTime: "2024-06-01", PurchaseEndTime: "2024-06-30"},
		"trigger_time": 1700000011,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, &adminCaller, http.MethodPatch, "/v1/stocks/S9", map[string]any{
		"fields":       models.StockTimes{PurchaseBeginTime: "2024-06-01"},
		"trigger_time": 1700000012,
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, &adminCaller, http.MethodPost, "/v1/tickets/verifications", map[string]any{
		"items":        "not-a-list",
		"trigger_time": 1700000013,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, float64(domain.CodeTypeMismatch), decodeProblem(t, w)["contract_code"])
}

func TestOwnerBalanceRoutes(t *testing.T) {
	a := setupAPI(t, false)
	a.initialize(t)
	for id, balance := range map[string]int64{"T1": 5, "T2": 7} {
		w := a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", mintBody(t, id, "alice", balance))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens?owner=alice&balance=7", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[{"ticketId":"T2","owner":"alice","balance":7}]`, w.Body.String())

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/tokens?owner=alice&balance=seven", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(t, &aliceCaller, http.MethodGet, "/v1/contract/client-account-balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"balance":2}`, w.Body.String())
}

func TestMintIdempotency(t *testing.T) {
	a := setupAPI(t, true)
	a.initialize(t)
	body := mintBody(t, "T1", "admin", 10)

	w1 := a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", body, "Idempotency-Key", "mint-1")
	require.Equal(t, http.StatusCreated, w1.Code, w1.Body.String())
	assert.Empty(t, w1.Header().Get("X-Idempotent-Replay"))

	w2 := a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", body, "Idempotency-Key", "mint-1")
	require.Equal(t, http.StatusCreated, w2.Code)
	assert.Equal(t, "redis", w2.Header().Get("X-Idempotent-Replay"))
	assert.JSONEq(t, w1.Body.String(), w2.Body.String())

	w3 := a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", mintBody(t, "T2", "admin", 10), "Idempotency-Key", "mint-1")
	require.Equal(t, http.StatusConflict, w3.Code)
	assert.Equal(t, "https://errors.ticketledger.dev/idempotency/key-conflict", decodeProblem(t, w3)["type"])

	// without the header the contract itself rejects the replay
	w4 := a.do(t, &adminCaller, http.MethodPost, "/v1/tokens", body)
	require.Equal(t, http.StatusConflict, w4.Code)
	assert.Equal(t, float64(domain.CodeConflict), decodeProblem(t, w4)["contract_code"])

	supply := a.do(t, &adminCaller, http.MethodGet, "/v1/tokens/supply", nil)
	assert.JSONEq(t, `{"total_supply":1}`, supply.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	a := setupAPI(t, false)

	cases := []struct {
		name string
		path string
	}{
		{name: "live", path: "/healthz"},
		{name: "ready", path: "/readyz"},
		{name: "metrics", path: "/metrics"},
		{name: "openapi", path: "/openapi.yaml"},
		{name: "swagger", path: "/swagger/index.html"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, nil, http.MethodGet, tc.path, nil)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}
