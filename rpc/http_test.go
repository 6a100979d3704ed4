package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sparkmarket/native/market"
	"sparkmarket/native/registry"
	"sparkmarket/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	store := storage.NewMarketStore(storage.NewMemDB())
	var vault [20]byte
	for i := range vault {
		vault[i] = 0xEE
	}

	reg := registry.NewEngine()
	reg.SetState(store)

	claims := market.NewClaimLedger()
	claims.SetState(store)
	claims.SetVault(vault)

	sale := market.NewSaleEngine(claims)
	sale.SetState(store)
	sale.SetVerifier(reg)
	sale.SetVault(vault)

	auction := market.NewAuctionEngine(claims)
	auction.SetState(store)
	auction.SetVerifier(reg)
	auction.SetVault(vault)

	srv := NewServer(sale, auction, claims, reg, store, nil)
	ts := httptest.NewServer(http.HandlerFunc(srv.handle))
	t.Cleanup(ts.Close)
	return ts, srv
}

func call(t *testing.T, ts *httptest.Server, method string, params interface{}) (*RPCResponse, int) {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()
	out := &RPCResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s response: %v", method, err)
	}
	return out, resp.StatusCode
}

func mustCall(t *testing.T, ts *httptest.Server, method string, params interface{}) interface{} {
	t.Helper()
	resp, status := call(t, ts, method, params)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("%s failed: status %d error %+v", method, status, resp.Error)
	}
	return resp.Result
}

func hexAddr(fill byte) string {
	return "0x" + strings.Repeat(fmt.Sprintf("%02x", fill), 20)
}

func TestSaleLifecycleOverRPC(t *testing.T) {
	ts, _ := newTestServer(t)
	seller := hexAddr(0x01)
	buyer := hexAddr(0x02)
	collection := hexAddr(0xC0)

	mustCall(t, ts, "registry_add", map[string]interface{}{"collection": collection})
	mustCall(t, ts, "registry_verify", map[string]interface{}{"collection": collection})
	mustCall(t, ts, "admin_mintAsset", map[string]interface{}{
		"collection": collection, "tokenId": 7, "owner": seller,
		"royaltyReceiver": hexAddr(0x05), "royaltyBps": 1000,
	})
	mustCall(t, ts, "admin_creditAccount", map[string]interface{}{
		"account": buyer, "currency": "native", "amount": "1000000",
	})

	result := mustCall(t, ts, "market_createSale", map[string]interface{}{
		"seller": seller, "collection": collection, "tokenId": 7,
		"currency": "native", "startPrice": "1000000", "endPrice": "1000000", "duration": 0,
	})
	sale, ok := result.(map[string]interface{})
	if !ok || sale["seller"] != seller {
		t.Fatalf("unexpected create result %+v", result)
	}

	result = mustCall(t, ts, "market_getCurrentPrice", map[string]interface{}{
		"collection": collection, "tokenId": 7,
	})
	price, ok := result.(map[string]interface{})
	if !ok || price["price"] != "1000000" {
		t.Fatalf("unexpected price result %+v", result)
	}

	mustCall(t, ts, "market_buy", map[string]interface{}{
		"buyer": buyer, "collection": collection, "tokenId": 7, "value": "1000000",
	})

	result = mustCall(t, ts, "admin_assetOwner", map[string]interface{}{
		"collection": collection, "tokenId": 7,
	})
	owner, ok := result.(map[string]interface{})
	if !ok || owner["owner"] != buyer {
		t.Fatalf("expected buyer as owner, got %+v", result)
	}

	// The listing is gone, a second buy maps to the not-found error code.
	resp, status := call(t, ts, "market_buy", map[string]interface{}{
		"buyer": buyer, "collection": collection, "tokenId": 7, "value": "1000000",
	})
	if status != http.StatusNotFound || resp.Error == nil || resp.Error.Code != codeMarketNotFound {
		t.Fatalf("expected market not-found error, got status %d %+v", status, resp.Error)
	}
}

func TestAuctionAndClaimsOverRPC(t *testing.T) {
	ts, _ := newTestServer(t)
	seller := hexAddr(0x01)
	bidder1 := hexAddr(0x03)
	bidder2 := hexAddr(0x04)
	collection := hexAddr(0xC1)

	mustCall(t, ts, "registry_add", map[string]interface{}{"collection": collection})
	mustCall(t, ts, "registry_verify", map[string]interface{}{"collection": collection})
	mustCall(t, ts, "admin_mintAsset", map[string]interface{}{
		"collection": collection, "tokenId": 11, "owner": seller,
	})
	mustCall(t, ts, "admin_creditAccount", map[string]interface{}{
		"account": bidder1, "currency": "native", "amount": "800000",
	})
	mustCall(t, ts, "admin_creditAccount", map[string]interface{}{
		"account": bidder2, "currency": "native", "amount": "900000",
	})

	mustCall(t, ts, "auction_create", map[string]interface{}{
		"seller": seller, "collection": collection, "tokenId": 11, "currency": "native",
	})
	mustCall(t, ts, "auction_bid", map[string]interface{}{
		"caller": bidder1, "collection": collection, "tokenId": 11,
		"amount": "800000", "value": "800000",
	})

	// A lower follow-up bid maps to the payment error code.
	resp, status := call(t, ts, "auction_bid", map[string]interface{}{
		"caller": bidder2, "collection": collection, "tokenId": 11,
		"amount": "700000", "value": "700000",
	})
	if status != http.StatusUnprocessableEntity || resp.Error == nil || resp.Error.Code != codeMarketPayment {
		t.Fatalf("expected payment error, got status %d %+v", status, resp.Error)
	}

	mustCall(t, ts, "auction_bid", map[string]interface{}{
		"caller": bidder2, "collection": collection, "tokenId": 11,
		"amount": "900000", "value": "900000",
	})
	mustCall(t, ts, "auction_acceptBid", map[string]interface{}{
		"caller": seller, "collection": collection, "tokenId": 11,
	})

	result := mustCall(t, ts, "claim_balance", map[string]interface{}{
		"beneficiary": bidder1, "currency": "native",
	})
	balance, ok := result.(map[string]interface{})
	if !ok || balance["amount"] != "800000" {
		t.Fatalf("expected superseded bid claimable, got %+v", result)
	}

	mustCall(t, ts, "claim_withdraw", map[string]interface{}{
		"caller": bidder1, "amount": "800000", "currency": "native",
	})
	result = mustCall(t, ts, "claim_balance", map[string]interface{}{
		"beneficiary": bidder1, "currency": "native",
	})
	balance, ok = result.(map[string]interface{})
	if !ok || balance["amount"] != "0" {
		t.Fatalf("expected drained claim, got %+v", result)
	}
}

func TestRequestValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, status := call(t, ts, "market_noSuchMethod", nil)
	if status != http.StatusNotFound || resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found, got status %d %+v", status, resp.Error)
	}

	resp, status = call(t, ts, "market_getSale", map[string]interface{}{"collection": "0x1234"})
	if status != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params, got status %d %+v", status, resp.Error)
	}

	raw, err := http.Post(ts.URL, "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post malformed body: %v", err)
	}
	defer raw.Body.Close()
	out := &RPCResponse{}
	if err := json.NewDecoder(raw.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw.StatusCode != http.StatusBadRequest || out.Error == nil || out.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got status %d %+v", raw.StatusCode, out.Error)
	}
}

func callWithToken(t *testing.T, ts *httptest.Server, token, method string, params interface{}) (*RPCResponse, int) {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()
	out := &RPCResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s response: %v", method, err)
	}
	return out, resp.StatusCode
}

func TestBearerTokenGuardsMutatingMethods(t *testing.T) {
	ts, srv := newTestServer(t)
	srv.SetAuthToken("secret")
	collection := hexAddr(0xC0)
	params := map[string]interface{}{"collection": collection}

	resp, status := call(t, ts, "registry_add", params)
	if status != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized without token, got status %d %+v", status, resp.Error)
	}
	resp, status = callWithToken(t, ts, "wrong", "registry_add", params)
	if status != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized with bad token, got status %d %+v", status, resp.Error)
	}
	resp, status = callWithToken(t, ts, "secret", "registry_add", params)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("expected success with token, got status %d %+v", status, resp.Error)
	}

	// The query surface stays open without a token.
	resp, status = call(t, ts, "registry_isVerified", params)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("expected open read access, got status %d %+v", status, resp.Error)
	}
	resp, status = call(t, ts, "claim_balance", map[string]interface{}{
		"beneficiary": hexAddr(0x03), "currency": "native",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("expected open claim query, got status %d %+v", status, resp.Error)
	}
}
