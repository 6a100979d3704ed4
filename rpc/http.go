package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sparkmarket/native/market"
	"sparkmarket/native/registry"
	"sparkmarket/observability"
	"sparkmarket/storage"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001

	codeMarketNotFound  = -32031
	codeMarketForbidden = -32032
	codeMarketConflict  = -32033
	codeMarketPayment   = -32034
)

// Server exposes the marketplace engines over a single JSON-RPC endpoint.
type Server struct {
	sale     *market.SaleEngine
	auction  *market.AuctionEngine
	claims   *market.ClaimLedger
	registry  *registry.Engine
	store     *storage.MarketStore
	logger    *slog.Logger
	authToken string
}

// NewServer wires the engines into an RPC server. The store backs the admin
// surface used to mint assets and seed balances on local deployments.
func NewServer(sale *market.SaleEngine, auction *market.AuctionEngine, claims *market.ClaimLedger, reg *registry.Engine, store *storage.MarketStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sale:     sale,
		auction:  auction,
		claims:   claims,
		registry: reg,
		store:    store,
		logger:   logger,
	}
}

// SetAuthToken enables bearer authentication for mutating methods. With an
// empty token every method stays open, which is only acceptable when the RPC
// port is private.
func (s *Server) SetAuthToken(token string) {
	s.authToken = strings.TrimSpace(token)
}

// readOnlyMethod marks the query surface that stays available without a
// bearer token. Everything else moves funds, custody or registry state.
func readOnlyMethod(method string) bool {
	switch method {
	case "market_getSale", "market_getCurrentPrice",
		"auction_get",
		"claim_balance",
		"registry_isVerified", "registry_existingContract",
		"registry_list", "registry_listVerified",
		"admin_assetOwner":
		return true
	default:
		return false
	}
}

func (s *Server) authorized(r *http.Request) bool {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) == 1
}

// Start blocks serving the RPC endpoint plus prometheus metrics.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

type rpcHandler func(req *RPCRequest) (interface{}, error)

func (s *Server) route(method string) rpcHandler {
	switch method {
	case "market_createSale":
		return s.handleCreateSale
	case "market_getSale":
		return s.handleGetSale
	case "market_getCurrentPrice":
		return s.handleGetCurrentPrice
	case "market_buy":
		return s.handleBuy
	case "market_cancelSale":
		return s.handleCancelSale
	case "market_makeOffer":
		return s.handleMakeOffer
	case "market_cancelOffer":
		return s.handleCancelOffer
	case "market_acceptOffer":
		return s.handleAcceptOffer
	case "auction_create":
		return s.handleCreateAuction
	case "auction_get":
		return s.handleGetAuction
	case "auction_bid":
		return s.handleBid
	case "auction_cancelBid":
		return s.handleCancelBid
	case "auction_acceptBid":
		return s.handleAcceptBid
	case "auction_cancel":
		return s.handleCancelAuction
	case "claim_balance":
		return s.handleClaimBalance
	case "claim_withdraw":
		return s.handleClaimWithdraw
	case "registry_add":
		return s.handleRegistryAdd
	case "registry_verify":
		return s.handleRegistryVerify
	case "registry_remove":
		return s.handleRegistryRemove
	case "registry_isVerified":
		return s.handleRegistryIsVerified
	case "registry_existingContract":
		return s.handleRegistryExisting
	case "registry_list":
		return s.handleRegistryList
	case "registry_listVerified":
		return s.handleRegistryListVerified
	case "admin_mintAsset":
		return s.handleAdminMintAsset
	case "admin_creditAccount":
		return s.handleAdminCreditAccount
	case "admin_assetOwner":
		return s.handleAdminAssetOwner
	default:
		return nil
	}
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "failed to read request body", err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	handler := s.route(req.Method)
	if handler == nil {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	if s.authToken != "" && !readOnlyMethod(req.Method) && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "unauthorized", nil)
		return
	}

	module := req.Method
	if idx := strings.IndexByte(module, '_'); idx > 0 {
		module = module[:idx]
	}
	start := time.Now()
	result, err := handler(req)
	observability.ModuleMetrics().Observe(module, req.Method, start, err)
	if err != nil {
		status, code := mapError(err)
		s.logger.Debug("rpc call failed",
			slog.String("method", req.Method),
			slog.String("error", err.Error()),
		)
		writeError(w, status, req.ID, code, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, result)
}

var errInvalidParams = errors.New("invalid params")

func mapError(err error) (status, code int) {
	switch {
	case errors.Is(err, errInvalidParams):
		return http.StatusBadRequest, codeInvalidParams
	case errors.Is(err, market.ErrSaleNotFound),
		errors.Is(err, market.ErrAuctionNotFound),
		errors.Is(err, market.ErrOfferNotFound),
		errors.Is(err, storage.ErrAssetNotFound),
		errors.Is(err, registry.ErrNotRegistered):
		return http.StatusNotFound, codeMarketNotFound
	case errors.Is(err, market.ErrUnauthorized):
		return http.StatusForbidden, codeMarketForbidden
	case errors.Is(err, market.ErrAlreadyListed),
		errors.Is(err, registry.ErrAlreadyRegistered),
		errors.Is(err, market.ErrNotVerified):
		return http.StatusConflict, codeMarketConflict
	case errors.Is(err, market.ErrInsufficientPayment),
		errors.Is(err, market.ErrBidTooLow),
		errors.Is(err, market.ErrAmountMismatch),
		errors.Is(err, market.ErrClaimMismatch),
		errors.Is(err, market.ErrNoOffers),
		errors.Is(err, market.ErrNoBids),
		errors.Is(err, market.ErrInsufficientFunds),
		errors.Is(err, market.ErrInvalidAmount),
		errors.Is(err, market.ErrInvalidPricing),
		errors.Is(err, market.ErrInvalidCurrency):
		return http.StatusUnprocessableEntity, codeMarketPayment
	default:
		return http.StatusInternalServerError, codeServerError
	}
}

func singleObjectParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("%w: exactly one parameter object expected", errInvalidParams)
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func parseAddress(field, value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != len(addr) {
		return addr, fmt.Errorf("%w: %s must be a 20-byte hex address", errInvalidParams, field)
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative base-10 amount", errInvalidParams, field)
	}
	return amount, nil
}

func parseCurrency(value string) (market.Currency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "native", "0", "":
		return market.CurrencyNative, nil
	case "spark", "1":
		return market.CurrencySpark, nil
	default:
		return 0, fmt.Errorf("%w: unsupported currency %q", errInvalidParams, value)
	}
}

func encodeAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
