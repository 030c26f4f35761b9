// Package api exposes the replay session over REST and WebSocket so a UI or
// script can watch the simulation without touching the console.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/quantfold/exsim/pkg/book"
	"github.com/quantfold/exsim/pkg/journal"
	"github.com/quantfold/exsim/pkg/session"
)

// Server handles REST requests and WebSocket connections. All market state
// is read through the session; the journal is optional.
type Server struct {
	session *session.Session
	journal *journal.Journal
	router  *mux.Router
	hub     *Hub
	logger  *zap.Logger
}

// NewServer wires a server onto a running session. A nil journal disables
// the trade-history endpoint. The session's trade hook is claimed for the
// WebSocket broadcast.
func NewServer(sess *session.Session, j *journal.Journal, logger *zap.Logger) *Server {
	s := &Server{
		session: sess,
		journal: j,
		router:  mux.NewRouter(),
		hub:     NewHub(logger),
		logger:  logger,
	}

	sess.OnTrades(s.broadcastTrades)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Products carry a slash (BTC/USDT), so filters travel as query
	// parameters rather than path segments.
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/products", s.handleProducts).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/orders", s.handleOrders).Methods("GET")
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	api.HandleFunc("/trades", s.handleTrades).Methods("GET")
	api.HandleFunc("/wallet", s.handleWallet).Methods("GET")
	api.HandleFunc("/step", s.handleStep).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves HTTP on addr. It blocks until the listener
// fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.logger.Info("api server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	store := s.session.Store()
	respondJSON(w, StatusInfo{
		CurrentTime: s.session.CurrentTime(),
		Products:    store.KnownProducts(),
		Timeframes:  len(store.Timestamps()),
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.session.Store().KnownProducts())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.session.MarketStats()

	response := make([]ProductStatsInfo, len(stats))
	for i, st := range stats {
		info := ProductStatsInfo{
			Product:  st.Product,
			AskCount: st.AskCount,
		}
		if st.HasAsks {
			info.MaxAsk = st.MaxAsk.String()
			info.MinAsk = st.MinAsk.String()
		}
		response[i] = info
	}

	respondJSON(w, response)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	product := r.URL.Query().Get("product")
	if product == "" {
		respondError(w, http.StatusBadRequest, "missing product parameter", "")
		return
	}
	kind := book.ParseKind(r.URL.Query().Get("kind"))
	if kind != book.Bid && kind != book.Ask {
		respondError(w, http.StatusBadRequest, "kind must be bid or ask", "")
		return
	}

	orders := s.session.Store().OrdersFiltered(kind, product, s.session.CurrentTime())
	respondJSON(w, toOrderInfos(orders))
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input := fmt.Sprintf("%s,%s,%s", req.Product, req.Price, req.Amount)

	var placed *book.Order
	var err error
	switch req.Side {
	case "bid":
		placed, err = s.session.PlaceBid(input)
	case "ask":
		placed, err = s.session.PlaceAsk(input)
	default:
		respondError(w, http.StatusBadRequest, "side must be bid or ask", "")
		return
	}
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "order rejected", err.Error())
		return
	}

	s.logger.Info("order placed via api",
		zap.String("side", req.Side),
		zap.String("product", req.Product),
	)
	respondJSON(w, PlaceOrderResponse{Status: "placed", Order: toOrderInfo(placed)})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		respondError(w, http.StatusNotFound, "trade journal disabled", "")
		return
	}

	var trades []journal.Trade
	var err error
	if product := r.URL.Query().Get("product"); product != "" {
		trades, err = s.journal.ByProduct(product)
	} else {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 {
				limit = n
			}
		}
		trades, err = s.journal.Recent(limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal read failed", err.Error())
		return
	}

	response := make([]TradeInfo, len(trades))
	for i, t := range trades {
		response[i] = toTradeInfo(t)
	}
	respondJSON(w, response)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wlt := s.session.Wallet()

	balances := make(map[string]string)
	for _, currency := range wlt.Currencies() {
		balances[currency] = wlt.Balance(currency).String()
	}
	respondJSON(w, WalletInfo{Balances: balances})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.Step()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "step failed", err.Error())
		return
	}

	s.BroadcastStep(res)
	respondJSON(w, StepResponse{
		From:    res.From,
		To:      res.To,
		Wrapped: res.Wrapped,
		Trades:  toOrderInfos(res.Sales),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// BroadcastStep publishes a timeframe advance on the "steps" channel. The
// daemon calls this after its ticker-driven steps; the REST step handler
// calls it too.
func (s *Server) BroadcastStep(res session.StepResult) {
	s.hub.BroadcastToChannel("steps", StepUpdate{
		Type:    "step",
		From:    res.From,
		To:      res.To,
		Wrapped: res.Wrapped,
		Trades:  len(res.Sales),
	})
}

func (s *Server) broadcastTrades(timestamp string, sales []*book.Order) {
	if len(sales) == 0 {
		return
	}
	s.hub.BroadcastToChannel("trades", TradeUpdate{
		Type:      "trade",
		Timestamp: timestamp,
		Trades:    toOrderInfos(sales),
	})
}

func toOrderInfo(o *book.Order) OrderInfo {
	return OrderInfo{
		Timestamp: o.Timestamp,
		Product:   o.Product,
		Kind:      o.Kind.String(),
		Owner:     o.Owner,
		Price:     o.Price.String(),
		Amount:    o.Amount.String(),
	}
}

func toOrderInfos(orders []*book.Order) []OrderInfo {
	infos := make([]OrderInfo, len(orders))
	for i, o := range orders {
		infos[i] = toOrderInfo(o)
	}
	return infos
}

func toTradeInfo(t journal.Trade) TradeInfo {
	return TradeInfo{
		ID:         t.ID,
		Seq:        t.Seq,
		Timestamp:  t.Timestamp,
		Product:    t.Product,
		Kind:       t.Kind,
		Owner:      t.Owner,
		Price:      t.Price.String(),
		Amount:     t.Amount.String(),
		Annotation: t.Annotation,
		RecordedAt: t.RecordedAt.Format(time.RFC3339),
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: detail})
}
