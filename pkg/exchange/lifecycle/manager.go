// Package lifecycle owns order placement, cancellation and the per-pair
// serialization that makes price-time priority meaningful: every operation
// against one pair runs to completion under a single lock, so "time" is
// the apply order of operations, never wall-clock arrival.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meridian-dex/meridian/pkg/events"
	"github.com/meridian-dex/meridian/pkg/exchange/market"
	"github.com/meridian-dex/meridian/pkg/exchange/orderbook"
	"github.com/meridian-dex/meridian/pkg/util"
)

const recentTradeCap = 256

// IDSource allocates globally unique, strictly increasing order ids.
type IDSource interface {
	Next() uint64
}

// PlaceRequest carries a validated-at-the-edge submission into the engine.
// AmountOffered is what the owner gives, AmountRequested what they want.
type PlaceRequest struct {
	Owner           common.Address
	Side            orderbook.Side
	Type            orderbook.OrderType
	AmountOffered   decimal.Decimal
	AmountRequested decimal.Decimal
}

// Manager runs the full order lifecycle for one trading pair. Its mutex is
// the pair's serialization point: reads and writes both go through it, so
// a crossed book is never observable between operations.
type Manager struct {
	mu sync.RWMutex

	pair   *market.Pair
	book   *orderbook.OrderBook
	engine *orderbook.MatchingEngine

	ids IDSource
	seq uint64 // pair-local logical clock, advanced under mu

	sink   events.Sink
	settle Settlement
	store  OrderStore
	clock  util.Clock // informational timestamps only, never priority
	log    *zap.SugaredLogger

	recent []orderbook.Fill // newest last, bounded ring
}

func NewManager(pair *market.Pair, ids IDSource, sink events.Sink, settle Settlement, store OrderStore, log *zap.SugaredLogger) *Manager {
	book := orderbook.NewOrderBook(pair.Symbol, pair.PriceDecimals)
	return &Manager{
		pair:   pair,
		book:   book,
		engine: orderbook.NewMatchingEngine(book),
		ids:    ids,
		sink:   sink,
		settle: settle,
		store:  store,
		clock:  util.RealClock{},
		log:    log.With("pair", pair.Symbol),
	}
}

func (m *Manager) Pair() *market.Pair { return m.pair }

// nextSeq advances the pair's logical clock. Callers hold mu.
func (m *Manager) nextSeq() uint64 {
	m.seq++
	return m.seq
}

// Place validates, matches and (for LIMIT residuals) rests a new order.
// The order id is returned whether the order filled fully, partially or
// rested untouched.
func (m *Manager) Place(req PlaceRequest) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validate(req); err != nil {
		return 0, err
	}

	o, err := orderbook.NewOrder(m.ids.Next(), req.Owner, m.pair.Symbol, req.Side, req.Type,
		req.AmountOffered, req.AmountRequested, m.pair.PriceDecimals)
	if err != nil {
		return 0, err
	}
	o.Seq = m.nextSeq()
	o.CreatedAt = m.clock.Now().UnixMilli()

	if err := m.book.Register(o); err != nil {
		// Sequential id allocation makes this unreachable; continuing would
		// corrupt the book, so abort the instance.
		panic(fmt.Sprintf("lifecycle: %v", err))
	}

	m.emit(events.TypeOrderPlaced, o.Seq, events.OrderPlaced{
		ID:              o.ID,
		Owner:           o.Owner,
		Side:            o.Side.String(),
		OrderType:       o.Type.String(),
		Price:           o.Price,
		AmountOffered:   o.AmountOffered,
		AmountRequested: o.AmountRequested,
		Timestamp:       o.CreatedAt,
	})

	fills := m.engine.Match(o, m.nextSeq)
	for _, f := range fills {
		if err := m.settle.Settle(f); err != nil {
			panic(fmt.Sprintf("lifecycle: settlement failed for fill seq %d: %v", f.Seq, err))
		}
		m.pushRecent(f)
		m.emit(events.TypeOrderFilled, f.Seq, events.OrderFilled{Fill: f})
		if maker, ok := m.book.Get(f.MakerID); ok {
			m.persist(maker)
		}
	}

	// IOC and FOK residuals never rest.
	if !o.Status.Terminal() && o.Type != orderbook.Limit && o.RemainingBase().IsPositive() {
		o.Status = orderbook.Cancelled
		m.emit(events.TypeOrderCancelled, m.nextSeq(), events.OrderCancelled{ID: o.ID, Owner: o.Owner})
	}
	m.persist(o)

	m.log.Debugw("order_placed",
		"id", o.ID, "side", o.Side.String(), "type", o.Type.String(),
		"price", o.Price, "fills", len(fills), "status", o.Status.String())
	return o.ID, nil
}

// Cancel removes an open order. Only the owner may cancel; terminal orders
// always answer ErrAlreadyTerminal without mutating anything, however many
// times the call is retried.
func (m *Manager) Cancel(id uint64, requester common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.book.Get(id)
	if !ok {
		return fmt.Errorf("%w: id %d", orderbook.ErrOrderNotFound, id)
	}
	if o.Owner != requester {
		return fmt.Errorf("%w: order %d", orderbook.ErrNotOwner, id)
	}
	if o.Status.Terminal() {
		return fmt.Errorf("%w: order %d is %s", orderbook.ErrAlreadyTerminal, id, o.Status)
	}

	// A resting order is always in its index here, but removal of a missing
	// id stays a tolerated no-op per the book contract.
	if err := m.book.Remove(id); err != nil {
		m.log.Warnw("cancel_index_miss", "id", id, "err", err)
	}
	o.Status = orderbook.Cancelled
	m.emit(events.TypeOrderCancelled, m.nextSeq(), events.OrderCancelled{ID: o.ID, Owner: o.Owner})
	m.persist(o)
	return nil
}

func (m *Manager) persist(o *orderbook.Order) {
	if err := m.store.SaveOrder(o); err != nil {
		m.log.Errorw("order_persist_failed", "id", o.ID, "err", err)
	}
}

func (m *Manager) validate(req PlaceRequest) error {
	if req.Side != orderbook.Buy && req.Side != orderbook.Sell {
		return fmt.Errorf("%w: side %d", orderbook.ErrInvalidOrderParams, req.Side)
	}
	if req.Type != orderbook.Limit && req.Type != orderbook.IOC && req.Type != orderbook.FOK {
		return fmt.Errorf("%w: order type %d", orderbook.ErrInvalidOrderParams, req.Type)
	}
	if !req.AmountOffered.IsPositive() || !req.AmountRequested.IsPositive() {
		return fmt.Errorf("%w: amounts must be positive", orderbook.ErrInvalidOrderParams)
	}

	baseQty, notional := req.AmountRequested, req.AmountOffered
	if req.Side == orderbook.Sell {
		baseQty, notional = req.AmountOffered, req.AmountRequested
	}
	if err := m.pair.CheckOrder(baseQty, notional); err != nil {
		return fmt.Errorf("%w: %v", orderbook.ErrInvalidOrderParams, err)
	}
	return nil
}

func (m *Manager) emit(typ events.Type, seq uint64, data interface{}) {
	ev := events.Envelope{
		Type: typ,
		Pair: m.pair.Symbol,
		Seq:  seq,
		Time: m.clock.Now().UnixMilli(),
		Data: data,
	}
	if err := m.sink.Publish(ev); err != nil {
		m.log.Errorw("event_publish_failed", "type", typ, "seq", seq, "err", err)
	}
}

func (m *Manager) pushRecent(f orderbook.Fill) {
	m.recent = append(m.recent, f)
	if len(m.recent) > recentTradeCap {
		m.recent = m.recent[len(m.recent)-recentTradeCap:]
	}
}

// GetOrder returns a snapshot copy of the order record, resting or
// terminal.
func (m *Manager) GetOrder(id uint64) (orderbook.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.book.Get(id)
	if !ok {
		return orderbook.Order{}, false
	}
	return *o, true
}

// BuyOrders returns open buy order ids in price-time priority order.
func (m *Manager) BuyOrders() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.SnapshotBids()
}

// SellOrders returns open sell order ids in price-time priority order.
func (m *Manager) SellOrders() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.SnapshotAsks()
}

// Depth returns aggregated bid and ask levels, best first.
func (m *Manager) Depth() ([]orderbook.PriceLevel, []orderbook.PriceLevel) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.BidLevels(), m.book.AskLevels()
}

// Quote prices a hypothetical taker against the current book, read-only.
func (m *Manager) Quote(side orderbook.Side, baseQty decimal.Decimal) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine.Quote(side, baseQty)
}

// RecentTrades returns up to n most recent fills, newest first.
func (m *Manager) RecentTrades(n int) []orderbook.Fill {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || n > len(m.recent) {
		n = len(m.recent)
	}
	out := make([]orderbook.Fill, n)
	for i := 0; i < n; i++ {
		out[i] = m.recent[len(m.recent)-1-i]
	}
	return out
}

// RestoreOrder replays a persisted order record into the book during
// startup. Non-terminal orders rest with their original sequence; the
// pair clock advances past everything replayed.
func (m *Manager) RestoreOrder(o *orderbook.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.book.Register(o); err != nil {
		return err
	}
	if !o.Status.Terminal() {
		m.book.Rest(o)
	}
	if o.Seq > m.seq {
		m.seq = o.Seq
	}
	return nil
}

// RestoreFill replays a persisted fill into the recent-trades ring during
// startup. Fills arrive oldest first, in event-log order.
func (m *Manager) RestoreFill(f orderbook.Fill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushRecent(f)
}

// AdvanceSeq raises the pair clock after event replay.
func (m *Manager) AdvanceSeq(v uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v > m.seq {
		m.seq = v
	}
}
