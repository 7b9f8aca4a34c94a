// server.go - HTTP facade over the root registry.
//
// The server plays the ledger/execution environment the registry expects:
// it attests caller identity (X-Caller header), persists registry state
// through the injected store-backed registry, and records every accepted
// root transition. It also takes action submissions and returns synthetic
// transaction ids. Submitted nullifiers are recorded, not checked: the
// observed contract performs no on-chain replay enforcement, and neither
// does its stand-in.

package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"anonsignal/internal/field"
	"anonsignal/internal/registry"
)

// callerHeader carries the attested identity of the caller. A real host
// derives this from transaction signatures; the demo host trusts the header.
const callerHeader = "X-Caller"

// Options configures a Server.
type Options struct {
	Logger   zerolog.Logger
	Registry *registry.Registry
	// RateLimit is the per-caller bucket size; zero disables limiting.
	RateLimit  int
	RefillRate int
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Server hosts the registry API.
type Server struct {
	log     zerolog.Logger
	reg     *registry.Registry
	limiter *callerLimiter
	metrics *metrics
	health  *healthChecker
	mux     *http.ServeMux

	mu      sync.Mutex
	actions []ActionRecord
}

type ActionRecord struct {
	TxID            string          `json:"tx_id"`
	Caller          string          `json:"caller"`
	ContractAddress string          `json:"contract_address"`
	EntryPoint      string          `json:"entry_point"`
	Calldata        []field.Element `json:"calldata"`
}

// New assembles a server around an existing registry.
func New(opts Options) *Server {
	if opts.Registerer == nil {
		reg := prometheus.NewRegistry()
		opts.Registerer = reg
		opts.Gatherer = reg
	}
	s := &Server{
		log:     opts.Logger,
		reg:     opts.Registry,
		metrics: newMetrics(opts.Registerer),
		health:  newHealthChecker(),
	}
	if opts.RateLimit > 0 {
		s.limiter = newCallerLimiter(opts.RateLimit, opts.RefillRate)
	}
	s.health.register("registry", func() error {
		if _, err := s.reg.Transitions(); err != nil {
			return err
		}
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/root", s.handleCurrentRoot)
	mux.HandleFunc("GET /v1/roots/accepted", s.handleRootAccepted)
	mux.HandleFunc("GET /v1/admin", s.handleAdmin)
	mux.HandleFunc("GET /v1/transitions", s.handleTransitions)
	mux.HandleFunc("POST /v1/init", s.handleInitialize)
	mux.HandleFunc("POST /v1/root", s.handleSetRoot)
	mux.HandleFunc("POST /v1/actions", s.handleSubmitAction)
	mux.HandleFunc("GET /healthz", s.health.handle)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	s.mux = mux
	return s
}

// Handler returns the server's HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.withMiddleware(s.mux)
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get(callerHeader)
		if s.limiter != nil && r.Method == http.MethodPost {
			if !s.limiter.allow(caller) {
				s.metrics.rateLimited.Inc()
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		s.metrics.requests.WithLabelValues(r.Method, s.routePattern(r)).Inc()
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Str("caller", caller).Msg("request")
		next.ServeHTTP(w, r)
	})
}

// routePattern resolves the registered mux pattern the request matches, so
// the request counter's label set stays bounded no matter what paths clients
// send. Unmatched requests collapse into one bucket.
func (s *Server) routePattern(r *http.Request) string {
	if _, pattern := s.mux.Handler(r); pattern != "" {
		return pattern
	}
	return "unmatched"
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeRegistryError maps the registry taxonomy onto HTTP statuses.
func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, registry.ErrInvalidRoot),
		errors.Is(err, registry.ErrNoOpRoot),
		errors.Is(err, registry.ErrNotInitialized):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrAlreadyInitialized):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleCurrentRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"root": s.reg.CurrentRoot().Hex()})
}

func (s *Server) handleRootAccepted(w http.ResponseWriter, r *http.Request) {
	root, err := field.FromHex(r.URL.Query().Get("root"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": s.reg.IsRootAccepted(root)})
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"admin": string(s.reg.Admin())})
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	ts, err := s.reg.Transitions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": ts})
}

type initRequest struct {
	InitialRoot field.Element `json:"initial_root"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	caller := registry.Identity(r.Header.Get(callerHeader))
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing "+callerHeader+" header")
		return
	}
	var req initRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.reg.Initialize(caller, req.InitialRoot); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.metrics.rotations.Inc()
	s.log.Info().Str("root", req.InitialRoot.Hex()).Str("admin", string(caller)).Msg("registry initialized")
	writeJSON(w, http.StatusOK, map[string]string{"admin": string(caller)})
}

type setRootRequest struct {
	NewRoot field.Element `json:"new_root"`
}

func (s *Server) handleSetRoot(w http.ResponseWriter, r *http.Request) {
	caller := registry.Identity(r.Header.Get(callerHeader))
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing "+callerHeader+" header")
		return
	}
	var req setRootRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	previous := s.reg.CurrentRoot()
	if err := s.reg.SetRoot(caller, req.NewRoot); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.metrics.rotations.Inc()
	s.log.Info().
		Str("previous_root", previous.Hex()).
		Str("new_root", req.NewRoot.Hex()).
		Str("updated_by", string(caller)).
		Msg("root rotated")
	writeJSON(w, http.StatusOK, map[string]string{"root": req.NewRoot.Hex()})
}

type submitActionRequest struct {
	ContractAddress string          `json:"contract_address"`
	EntryPoint      string          `json:"entry_point"`
	Calldata        []field.Element `json:"calldata"`
}

func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(callerHeader)
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing "+callerHeader+" header")
		return
	}
	var req submitActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ContractAddress == "" || req.EntryPoint == "" {
		writeError(w, http.StatusBadRequest, "contract_address and entry_point are required")
		return
	}

	s.mu.Lock()
	seq := len(s.actions)
	rec := ActionRecord{
		TxID:            syntheticTxID(caller, req, seq),
		Caller:          caller,
		ContractAddress: req.ContractAddress,
		EntryPoint:      req.EntryPoint,
		Calldata:        req.Calldata,
	}
	s.actions = append(s.actions, rec)
	s.mu.Unlock()

	s.metrics.actions.Inc()
	s.log.Info().
		Str("tx_id", rec.TxID).
		Str("contract", req.ContractAddress).
		Str("entry_point", req.EntryPoint).
		Msg("action accepted")
	writeJSON(w, http.StatusOK, map[string]string{"tx_id": rec.TxID})
}

// Actions returns the accepted action records, oldest first. The records and
// their calldata are copies; mutating them does not touch server state.
func (s *Server) Actions() []ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActionRecord, len(s.actions))
	for i, rec := range s.actions {
		rec.Calldata = append([]field.Element(nil), rec.Calldata...)
		out[i] = rec
	}
	return out
}

func syntheticTxID(caller string, req submitActionRequest, seq int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s/%s/%s/%d", caller, req.ContractAddress, req.EntryPoint, seq)
	for _, e := range req.Calldata {
		h.Write([]byte(e.Hex()))
	}
	return "0x" + hex.EncodeToString(h.Sum(nil)[:16])
}
