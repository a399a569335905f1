package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "adboard-backend/internal/api/http"
	"adboard-backend/internal/policy"
	"adboard-backend/internal/pricing"
	"adboard-backend/internal/repository/memory"
	"adboard-backend/internal/security"
	"adboard-backend/internal/service"
	"adboard-backend/internal/session"
)

const (
	integrationKey = "front-end-key"
	staffID        = 900
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	staff := policy.NewStaff([]int64{staffID})
	settings := service.Settings{
		AdLifetime:      30 * 24 * time.Hour,
		ExtensionWindow: 3 * 24 * time.Hour,
		MarketingChatID: -1001,
		ExchangeChatID:  -1002,
		MinWithdrawal:   decimal.NewFromInt(100),
		RepostInterval:  24 * time.Hour,
		RepostBatchSize: 50,
	}
	var collab service.Collaborators
	engine := pricing.NewEngine(pricing.DefaultPinMultiplier, pricing.DefaultFees)

	svc := apihttp.Services{
		Accounts:  service.NewAccountService(store, staff, collab),
		Ledger:    service.NewLedgerService(store, staff, collab),
		Channels:  service.NewChannelService(store, staff, collab),
		Ads:       service.NewAdService(store, staff, collab, settings),
		Sales:     service.NewSaleService(store, staff, collab),
		Funding:   service.NewFundingService(store, staff, collab, settings),
		Placement: service.NewPlacementService(store, engine, session.NewMemoryStore(time.Hour), collab, settings),
		Staff:     staff,
	}
	hash, err := security.HashIntegrationKey(integrationKey)
	require.NoError(t, err)

	h := apihttp.NewHandler(svc, security.NewTokenManager("test-secret", time.Hour), hash)
	srv := httptest.NewServer(apihttp.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, map[string]any) {
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
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func login(t *testing.T, srv *httptest.Server, id int64) string {
	t.Helper()
	status, body := call(t, srv, http.MethodPost, "/v1/auth/token", "", map[string]any{
		"integration_key": integrationKey,
		"account_id":      id,
		"username":        fmt.Sprintf("user%d", id),
	})
	require.Equal(t, http.StatusOK, status, body)
	return body["access_token"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func money(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(v))
	require.NoError(t, err)
	return d
}

func TestPublicRoutes(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = call(t, srv, http.MethodGet, "/v1/ads?q=bike", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, srv, http.MethodGet, "/v1/channels", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, srv, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", errorCode(body))

	status, _ = call(t, srv, http.MethodGet, "/v1/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestIssueToken(t *testing.T) {
	srv := newTestServer(t)

	t.Run("wrong key", func(t *testing.T) {
		status, body := call(t, srv, http.MethodPost, "/v1/auth/token", "", map[string]any{
			"integration_key": "guess", "account_id": 1,
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "unauthenticated", errorCode(body))
	})

	t.Run("staff flag", func(t *testing.T) {
		status, body := call(t, srv, http.MethodPost, "/v1/auth/token", "", map[string]any{
			"integration_key": integrationKey, "account_id": staffID,
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["staff"])
	})

	t.Run("registers account", func(t *testing.T) {
		token := login(t, srv, 42)
		status, body := call(t, srv, http.MethodGet, "/v1/me", token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(42), body["id"])
		assert.Equal(t, "user42", body["username"])
	})

	t.Run("bad body", func(t *testing.T) {
		status, body := call(t, srv, http.MethodPost, "/v1/auth/token", "", "{")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "bad_request", errorCode(body))
	})
}

func TestEscrowSaleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	staff := login(t, srv, staffID)
	seller := login(t, srv, 1)
	buyer := login(t, srv, 2)

	status, body := call(t, srv, http.MethodPost, "/v1/staff/accounts/2/balance", staff, map[string]any{
		"mode": "credit", "amount": "500", "note": "card payment",
	})
	require.Equal(t, http.StatusOK, status, body)

	status, body = call(t, srv, http.MethodPost, "/v1/ads", seller, map[string]any{
		"title": "Bike", "text": "Road bike, barely used", "price": "300", "city": "Moscow",
	})
	require.Equal(t, http.StatusCreated, status, body)
	adID := int64(body["id"].(float64))
	assert.Equal(t, "pending", body["moderation_status"])

	status, body = call(t, srv, http.MethodPost, fmt.Sprintf("/v1/staff/ads/%d/approve", adID), seller, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", errorCode(body))

	status, body = call(t, srv, http.MethodPost, fmt.Sprintf("/v1/staff/ads/%d/approve", adID), staff, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "approved", body["moderation_status"])

	status, body = call(t, srv, http.MethodPost, "/v1/sales", buyer, map[string]any{"ad_id": adID})
	require.Equal(t, http.StatusCreated, status, body)
	saleID := int64(body["id"].(float64))

	_, body = call(t, srv, http.MethodGet, "/v1/me/balance", buyer, nil)
	assert.True(t, money(t, body["balance"]).Equal(decimal.NewFromInt(200)))

	status, body = call(t, srv, http.MethodPost, fmt.Sprintf("/v1/sales/%d/complete", saleID), seller, nil)
	assert.Equal(t, http.StatusForbidden, status, body)

	status, body = call(t, srv, http.MethodPost, fmt.Sprintf("/v1/sales/%d/complete", saleID), buyer, nil)
	require.Equal(t, http.StatusOK, status, body)

	status, body = call(t, srv, http.MethodPost, fmt.Sprintf("/v1/sales/%d/cancel", saleID), buyer, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_processed", errorCode(body))

	_, body = call(t, srv, http.MethodGet, "/v1/me/balance", seller, nil)
	assert.True(t, money(t, body["balance"]).Equal(decimal.NewFromInt(300)))
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	staff := login(t, srv, staffID)
	seller := login(t, srv, 1)
	buyer := login(t, srv, 2)

	_, body := call(t, srv, http.MethodPost, "/v1/ads", seller, map[string]any{"text": "Lamp", "price": "50"})
	adID := int64(body["id"].(float64))
	status, _ := call(t, srv, http.MethodPost, fmt.Sprintf("/v1/staff/ads/%d/approve", adID), staff, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, srv, http.MethodPost, "/v1/sales", buyer, map[string]any{"ad_id": adID})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "insufficient_funds", errorCode(body))

	status, body = call(t, srv, http.MethodGet, "/v1/ads/999999", buyer, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errorCode(body))

	status, body = call(t, srv, http.MethodPost, "/v1/ads", seller, map[string]any{"text": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_failed", errorCode(body))

	status, body = call(t, srv, http.MethodPost, "/v1/ads", seller, map[string]any{"text": "Lamp", "price": "10.005"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_failed", errorCode(body))

	path := fmt.Sprintf("/v1/staff/ads/%d/price", adID)
	status, body = call(t, srv, http.MethodPut, path, seller, map[string]any{"price": "40"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", errorCode(body))
	status, body = call(t, srv, http.MethodPut, path, staff, map[string]any{"price": "40.001"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_failed", errorCode(body))
	status, body = call(t, srv, http.MethodPut, path, staff, map[string]any{"price": "40"})
	require.Equal(t, http.StatusOK, status, body)
	assert.True(t, money(t, body["price"]).Equal(decimal.NewFromInt(40)))

	status, body = call(t, srv, http.MethodPost, "/v1/ads", seller, map[string]any{"text": "x", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.True(t, strings.Contains(body["error"].(map[string]any)["message"].(string), "colour"))

	status, body = call(t, srv, http.MethodGet, "/v1/nowhere", buyer, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errorCode(body))
}

func TestFundingOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	staff := login(t, srv, staffID)
	user := login(t, srv, 5)

	status, body := call(t, srv, http.MethodPost, "/v1/funding/topups", user, map[string]any{
		"amount": "250", "payment_system": "sbp", "receipt": "file-1",
	})
	require.Equal(t, http.StatusCreated, status, body)
	reqID := int64(body["id"].(float64))

	status, _ = call(t, srv, http.MethodGet, "/v1/staff/funding/pending", user, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, srv, http.MethodGet, "/v1/staff/funding/pending", staff, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["requests"], 1)

	status, _ = call(t, srv, http.MethodPost, fmt.Sprintf("/v1/staff/funding/%d/approve", reqID), staff, nil)
	require.Equal(t, http.StatusOK, status)

	_, body = call(t, srv, http.MethodGet, "/v1/me/balance", user, nil)
	assert.True(t, money(t, body["balance"]).Equal(decimal.NewFromInt(250)))

	status, body = call(t, srv, http.MethodPost, "/v1/funding/withdrawals", user, map[string]any{
		"amount": "50", "card": "4111 1111 1111 1111",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status, body)
}

func TestPlacementCartOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	staff := login(t, srv, staffID)
	user := login(t, srv, 7)

	status, body := call(t, srv, http.MethodPost, "/v1/staff/channels", staff, map[string]any{
		"chat_id": -3001, "title": "Flea market", "region": "moscow",
		"price_for_1": "100", "price_for_5": "400", "price_for_10": "700", "active": true,
	})
	require.Equal(t, http.StatusCreated, status, body)
	channelID := int64(body["id"].(float64))

	status, body = call(t, srv, http.MethodPost, "/v1/placements/cart/picks", user, map[string]any{
		"mode": "single", "pick": map[string]any{"channel_id": channelID, "quantity": 5},
	})
	require.Equal(t, http.StatusOK, status, body)
	quote := body["quote"].(map[string]any)
	assert.True(t, money(t, quote["total"]).Equal(decimal.NewFromInt(450)))

	status, _ = call(t, srv, http.MethodPost, "/v1/placements/checkout", user, map[string]any{
		"ad": map[string]any{"text": "Sofa"}, "quoted_total": "450",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)

	status, _ = call(t, srv, http.MethodDelete, "/v1/placements/cart", user, nil)
	assert.Equal(t, http.StatusNoContent, status)
}
