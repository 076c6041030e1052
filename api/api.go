// Package api serves tax reports over HTTP.
//
// Clients post a transaction log and get back the replayed lots or the tax
// year report. When a store is configured, reports can also be computed from
// the persisted log.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/reportcache"
	"github.com/etnz/taxlot/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// maxBodyBytes bounds the size of a posted log.
const maxBodyBytes = 16 << 20

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Server holds what the handlers share.
type Server struct {
	cache   *reportcache.Cache
	store   *store.Store // optional
	limiter *rate.Limiter
}

// NewServer creates a server. s may be nil, then the ledger routes are not
// served.
func NewServer(cache *reportcache.Cache, s *store.Store, limiter *rate.Limiter) *Server {
	return &Server{cache: cache, store: s, limiter: limiter}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	if s.limiter != nil {
		r.Use(s.rateLimitMiddleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/report", s.handleReport)
		r.Post("/replay", s.handleReplay)
		if s.store != nil {
			r.Get("/ledger/report/{year}", s.handleLedgerReport)
		}
	})
	return r
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			log.Printf("%s: rate limit exceeded on %s", requestID(r), r.URL.Path)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDContextKey).(string)
	return id
}

// computeRequest is the body of the compute routes.
type computeRequest struct {
	Transactions []taxlot.Transaction    `json:"transactions"`
	Method       taxlot.AccountingMethod `json:"method"`
	Year         int                     `json:"year"`
	Selections   []taxlot.Selection      `json:"selections"`
}

func (c computeRequest) selections() taxlot.Selections {
	res := make(taxlot.Selections)
	for _, sel := range c.Selections {
		res.Add(sel)
	}
	return res
}

// TickerReplay is the replay of one ticker.
type TickerReplay struct {
	Ticker string                  `json:"ticker"`
	Lots   []taxlot.Lot            `json:"lots"`
	Sales  []taxlot.SaleAllocation `json:"sales"`
}

// ReplayResponse is the body returned by POST /api/replay.
type ReplayResponse struct {
	Method    taxlot.AccountingMethod `json:"method"`
	Tickers   []TickerReplay          `json:"tickers"`
	WashSales []taxlot.WashSaleFlag   `json:"wash_sales"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if req.Year == 0 {
		writeError(w, r, http.StatusBadRequest, errors.New("missing year"))
		return
	}
	report, err := s.cache.Report(req.Transactions, req.Method, req.selections(), req.Year)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	book, err := s.cache.Book(req.Transactions, req.Method, req.selections())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	resp := ReplayResponse{Method: book.Method, WashSales: book.WashSales()}
	for _, t := range book.Tickers() {
		resp.Tickers = append(resp.Tickers, TickerReplay{Ticker: t, Lots: book.Lots(t), Sales: book.Sales(t)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLedgerReport reports on the stored log. Reports are saved in the
// store until the log changes.
func (s *Server) handleLedgerReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New("invalid year"))
		return
	}
	method := taxlot.FIFO
	if m := r.URL.Query().Get("method"); m != "" {
		if method, err = taxlot.ParseAccountingMethod(m); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	report, err := s.store.Report(ctx, year, method)
	if err == nil {
		writeJSON(w, http.StatusOK, report)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	txs, err := s.store.All(ctx)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	report, err = s.cache.Report(txs, method, nil, year)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if err := s.store.SaveReport(ctx, report); err != nil {
		log.Printf("%s: cannot save %d report: %v", requestID(r), year, err)
	}
	writeJSON(w, http.StatusOK, report)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (computeRequest, bool) {
	var req computeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return req, false
	}
	return req, true
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	log.Printf("%s: %s %s: %v", requestID(r), r.Method, r.URL.Path, err)
	writeJSON(w, status, ErrorResponse{Error: err.Error(), RequestID: requestID(r)})
}

// writeEngineError reports an error of the engine as unprocessable, with its
// kind and the offending transaction.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: err.Error(), RequestID: requestID(r)}
	var (
		malformed *taxlot.MalformedTransactionError
		short     *taxlot.InsufficientLotsError
		ambiguous *taxlot.AmbiguousSpecificLotError
		ordering  *taxlot.InvalidDateOrderingError
	)
	switch {
	case errors.As(err, &malformed):
		resp.Kind, resp.Transaction = "malformed_transaction", malformed.ID
	case errors.As(err, &short):
		resp.Kind, resp.Transaction = "insufficient_lots", short.ID
	case errors.As(err, &ambiguous):
		resp.Kind, resp.Transaction = "ambiguous_specific_lot", ambiguous.ID
	case errors.As(err, &ordering):
		resp.Kind, resp.Transaction = "invalid_date_ordering", ordering.ID
	default:
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	log.Printf("%s: %s %s: %v", requestID(r), r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("cannot write response: %v", err)
	}
}
