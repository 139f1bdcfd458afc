package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"liqmine/core/state"
	"liqmine/crypto"
	"liqmine/gateway/middleware"
	"liqmine/native/incentive"
	"liqmine/observability"
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
	codeNotFound       = -32004
	codeForbidden      = -32005
	codeConflict       = -32009
)

// Server exposes the incentive engine over JSON-RPC 2.0.
type Server struct {
	engine *incentive.Engine
	state  *state.Manager
	events *EventBuffer
	logger *slog.Logger

	auth        *middleware.Authenticator
	authEnabled bool
	rateLimiter *middleware.RateLimiter
	obs         *middleware.Observability
	cors        middleware.CORSConfig
}

// ServerConfig assembles the middleware applied around the RPC endpoint.
type ServerConfig struct {
	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
	Obs       middleware.ObservabilityConfig
	CORS      middleware.CORSConfig
}

// NewServer wires the engine, state, and event buffer behind the RPC surface.
func NewServer(engine *incentive.Engine, manager *state.Manager, events *EventBuffer, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:      engine,
		state:       manager,
		events:      events,
		logger:      logger,
		auth:        middleware.NewAuthenticator(cfg.Auth, logger),
		authEnabled: cfg.Auth.Enabled,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimit),
		obs:         middleware.NewObservability(cfg.Obs, logger),
		cors:        cfg.CORS,
	}
}

// Router assembles the HTTP surface: the JSON-RPC endpoint, Prometheus
// metrics, and a liveness probe.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(s.cors))
	r.Use(s.rateLimiter.Middleware())

	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rpcHandler := s.obs.Middleware("rpc")(s.auth.Middleware()(http.HandlerFunc(s.handle)))
	r.Method(http.MethodPost, "/rpc", rpcHandler)
	return r
}

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
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
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() { _ = reader.Close() }()

	body, err := io.ReadAll(reader)
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "request too large or unreadable", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON", nil)
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version", nil)
		return
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	status := s.dispatch(w, r, &req)
	observability.ModuleMetrics().Observe("incentive", method, status, time.Since(start))
}

// dispatch routes a request to its handler and reports the HTTP status for
// metrics. Handlers write their own responses.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) int {
	switch req.Method {
	case "incentive_create":
		return s.handleIncentiveCreate(w, r, req)
	case "incentive_end":
		return s.handleIncentiveEnd(w, req)
	case "incentive_get":
		return s.handleIncentiveGet(w, req)
	case "incentive_transferDeposit":
		return s.handleTransferDeposit(w, req)
	case "incentive_withdrawPosition":
		return s.handleWithdrawPosition(w, req)
	case "incentive_stake":
		return s.handleStake(w, req)
	case "incentive_unstake":
		return s.handleUnstake(w, req)
	case "incentive_claim":
		return s.handleClaim(w, req)
	case "incentive_getDeposit":
		return s.handleGetDeposit(w, req)
	case "incentive_getStake":
		return s.handleGetStake(w, req)
	case "incentive_depositsByOwner":
		return s.handleDepositsByOwner(w, req)
	case "incentive_rewardBalance":
		return s.handleRewardBalance(w, req)
	case "incentive_addReferrer":
		return s.handleAddReferrer(w, r, req)
	case "incentive_referrerOf":
		return s.handleReferrerOf(w, req)
	case "incentive_setReferralRate":
		return s.handleSetReferralRate(w, r, req)
	case "incentive_setReferralRoot":
		return s.handleSetReferralRoot(w, r, req)
	case "incentive_recoverToken":
		return s.handleRecoverToken(w, r, req)
	case "incentive_events":
		return s.handleEvents(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return http.StatusNotFound
	}
}

// requireAdminScope gates admin methods behind the incentive:admin JWT scope
// when authentication is enabled. The engine still checks on-state roles for
// the caller address.
func (s *Server) requireAdminScope(r *http.Request) *RPCError {
	if !s.authEnabled {
		return nil
	}
	if !middleware.HasScope(r.Context(), middleware.ScopeAdmin) {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "incentive:admin scope required"}
	}
	return nil
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseBech32Address(value string) ([20]byte, error) {
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	return decoded.Array(), nil
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func parseOptionalBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

// writeEngineError maps engine sentinel errors onto JSON-RPC error codes.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) int {
	switch {
	case errors.Is(err, incentive.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeForbidden, "forbidden", err.Error())
		return http.StatusForbidden
	case errors.Is(err, incentive.ErrIncentiveNotFound),
		errors.Is(err, incentive.ErrDepositNotFound),
		errors.Is(err, incentive.ErrStakeNotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, "not found", err.Error())
		return http.StatusNotFound
	case errors.Is(err, incentive.ErrIncentiveNotStarted),
		errors.Is(err, incentive.ErrIncentiveEnded),
		errors.Is(err, incentive.ErrIncentiveNotEnded),
		errors.Is(err, incentive.ErrIncentiveActive),
		errors.Is(err, incentive.ErrNoRefund),
		errors.Is(err, incentive.ErrDepositExists),
		errors.Is(err, incentive.ErrDepositActive),
		errors.Is(err, incentive.ErrAlreadyStaked),
		errors.Is(err, incentive.ErrStakeLocked),
		errors.Is(err, incentive.ErrReferrerExists),
		errors.Is(err, incentive.ErrReferralCycle):
		writeError(w, http.StatusConflict, id, codeConflict, "conflict", err.Error())
		return http.StatusConflict
	case errors.Is(err, incentive.ErrInvalidReward),
		errors.Is(err, incentive.ErrInvalidTimeWindow),
		errors.Is(err, incentive.ErrPoolMismatch),
		errors.Is(err, incentive.ErrZeroLiquidity),
		errors.Is(err, incentive.ErrLiquidityTooWide),
		errors.Is(err, incentive.ErrSelfReferral),
		errors.Is(err, incentive.ErrReferrerNotEligible),
		errors.Is(err, incentive.ErrNoDeposit),
		errors.Is(err, incentive.ErrRateTier),
		errors.Is(err, incentive.ErrRateTooHigh),
		errors.Is(err, incentive.ErrRateTableSum),
		errors.Is(err, state.ErrInsufficientFunds),
		errors.Is(err, state.ErrTokenNotRegistered),
		errors.Is(err, state.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "invalid_params", err.Error())
		return http.StatusBadRequest
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", err.Error())
		return http.StatusInternalServerError
	}
}
