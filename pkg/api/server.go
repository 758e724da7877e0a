package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meridian-dex/meridian/pkg/exchange"
	"github.com/meridian-dex/meridian/pkg/exchange/lifecycle"
	"github.com/meridian-dex/meridian/pkg/exchange/market"
	"github.com/meridian-dex/meridian/pkg/exchange/orderbook"
)

// Server handles REST API and WebSocket connections.
type Server struct {
	ex     *exchange.Exchange
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer builds the REST/WebSocket server. hub may be created ahead of
// the server so it can be registered as an event sink before the exchange
// starts; pass nil to have the server own a fresh one.
func NewServer(ex *exchange.Exchange, hub *Hub, log *zap.SugaredLogger) *Server {
	if hub == nil {
		hub = NewHub(log)
	}
	s := &Server{
		ex:     ex,
		router: mux.NewRouter(),
		hub:    hub,
		log:    log,
	}
	s.setupRoutes()
	return s
}

// Hub exposes the WebSocket hub so it can be wired as an event sink.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market endpoints
	api.HandleFunc("/markets", s.handleGetMarkets).Methods("GET")
	api.HandleFunc("/markets/{symbol}", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/markets/{symbol}/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/markets/{symbol}/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/markets/{symbol}/quote", s.handleGetQuote).Methods("GET")

	// Order endpoints
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the server; the WebSocket hub starts alongside.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// Router exposes the handler tree for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	pairs := s.ex.Pairs()
	response := make([]PairInfo, len(pairs))
	for i, p := range pairs {
		response[i] = pairInfo(p)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	p, err := s.ex.Pair(symbol)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, pairInfo(p))
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	bids, asks, err := s.ex.Depth(symbol)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	bidIDs, _ := s.ex.BuyOrders(symbol)
	askIDs, _ := s.ex.SellOrders(symbol)

	respondJSON(w, OrderbookSnapshot{
		Symbol:    symbol,
		Bids:      bookLevels(bids),
		Asks:      bookLevels(asks),
		BidIDs:    bidIDs,
		AskIDs:    askIDs,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	fills, err := s.ex.RecentTrades(symbol, limit)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	response := make([]TradeInfo, len(fills))
	for i, f := range fills {
		response[i] = TradeInfo{
			Pair:     f.Pair,
			MakerID:  f.MakerID,
			TakerID:  f.TakerID,
			Price:    f.Price.String(),
			BaseQty:  f.BaseQty.String(),
			QuoteQty: f.QuoteQty.String(),
			Sequence: f.Seq,
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	side, err := orderbook.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	baseQty, err := decimal.NewFromString(r.URL.Query().Get("size"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid size")
		return
	}

	quoteQty, err := s.ex.Quote(symbol, side, baseQty)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, QuoteResponse{
		Pair:     symbol,
		Side:     side.String(),
		BaseQty:  baseQty.String(),
		QuoteQty: quoteQty.String(),
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Owner) {
		respondError(w, http.StatusBadRequest, "invalid owner address")
		return
	}

	side, err := orderbook.ParseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	typ, err := orderbook.ParseOrderType(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	offered, err := decimal.NewFromString(req.AmountOffered)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amountOffered")
		return
	}
	requested, err := decimal.NewFromString(req.AmountRequested)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amountRequested")
		return
	}

	id, err := s.ex.PlaceOrder(req.Pair, lifecycle.PlaceRequest{
		Owner:           common.HexToAddress(req.Owner),
		Side:            side,
		Type:            typ,
		AmountOffered:   offered,
		AmountRequested: requested,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	o, err := s.ex.GetOrder(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, PlaceOrderResponse{OrderID: id, Order: orderInfo(o)})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Owner) {
		respondError(w, http.StatusBadRequest, "invalid owner address")
		return
	}

	if err := s.ex.CancelOrder(req.OrderID, common.HexToAddress(req.Owner)); err != nil {
		respondDomainError(w, err)
		return
	}

	o, err := s.ex.GetOrder(req.OrderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, orderInfo(o))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := s.ex.GetOrder(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, orderInfo(o))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func pairInfo(p *market.Pair) PairInfo {
	return PairInfo{
		Symbol:        p.Symbol,
		BaseToken:     p.BaseToken,
		QuoteToken:    p.QuoteToken,
		Status:        p.Status.String(),
		PriceDecimals: p.PriceDecimals,
		MinBaseSize:   p.MinBaseSize.String(),
		MinNotional:   p.MinNotional.String(),
	}
}

func orderInfo(o orderbook.Order) OrderInfo {
	return OrderInfo{
		ID:              o.ID,
		Pair:            o.Pair,
		Owner:           o.Owner.Hex(),
		Side:            o.Side.String(),
		Type:            o.Type.String(),
		Price:           o.Price.String(),
		AmountOffered:   o.AmountOffered.String(),
		AmountRequested: o.AmountRequested.String(),
		FilledBase:      o.FilledBase.String(),
		FilledQuote:     o.FilledQuote.String(),
		RemainingBase:   o.RemainingBase().String(),
		Status:          o.Status.String(),
		CreatedAt:       o.CreatedAt,
	}
}

func bookLevels(levels []orderbook.PriceLevel) []BookLevel {
	out := make([]BookLevel, len(levels))
	for i, l := range levels {
		out[i] = BookLevel{Price: l.Price.String(), BaseQty: l.BaseQty.String(), Orders: l.Orders}
	}
	return out
}

// respondDomainError maps engine sentinel errors onto HTTP status codes.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orderbook.ErrInvalidOrderParams):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orderbook.ErrNotOwner):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, orderbook.ErrAlreadyTerminal):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orderbook.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orderbook.ErrInsufficientLiquidity):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusNotFound, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
