// Package exchange ties the per-pair lifecycle managers together behind a
// pair-keyed registry. Independent pairs share no mutable state and run
// fully in parallel; everything touching one pair serializes inside its
// manager.
package exchange

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meridian-dex/meridian/pkg/events"
	"github.com/meridian-dex/meridian/pkg/exchange/lifecycle"
	"github.com/meridian-dex/meridian/pkg/exchange/market"
	"github.com/meridian-dex/meridian/pkg/exchange/orderbook"
	"github.com/meridian-dex/meridian/pkg/sequence"
	"github.com/meridian-dex/meridian/pkg/storage"
)

type Exchange struct {
	registry *market.Registry
	ids      *sequence.Sequencer
	managers map[string]*lifecycle.Manager

	mu         sync.RWMutex
	orderPairs map[uint64]string // order id -> pair symbol

	log *zap.SugaredLogger
}

// Options carries the injected collaborators. Store may be nil for a
// stateless run; Sink and Settle default to no-ops.
type Options struct {
	Store  *storage.Store
	Sink   events.Sink
	Settle lifecycle.Settlement
}

// New builds one lifecycle manager per listed pair and, when a store is
// present, replays persisted state into the books.
func New(registry *market.Registry, opts Options, log *zap.SugaredLogger) (*Exchange, error) {
	if opts.Sink == nil {
		opts.Sink = events.NopSink{}
	}
	if opts.Settle == nil {
		opts.Settle = lifecycle.NopSettlement{}
	}
	var store lifecycle.OrderStore = lifecycle.NopOrderStore{}
	if opts.Store != nil {
		store = opts.Store
	}

	ex := &Exchange{
		registry:   registry,
		ids:        sequence.New(0),
		managers:   make(map[string]*lifecycle.Manager),
		orderPairs: make(map[uint64]string),
		log:        log,
	}
	for _, p := range registry.List() {
		ids := &pairIDSource{ex: ex, pair: p.Symbol}
		ex.managers[p.Symbol] = lifecycle.NewManager(p, ids, opts.Sink, opts.Settle, store, log)
	}

	if opts.Store != nil {
		if err := ex.restore(opts.Store); err != nil {
			return nil, fmt.Errorf("restore exchange state: %w", err)
		}
	}
	return ex, nil
}

// restore reloads persisted orders into their books. Orders replay in
// sequence order so FIFO priority within a price level survives restarts,
// and both the global id source and each pair clock advance past
// everything seen.
func (ex *Exchange) restore(store *storage.Store) error {
	orders, err := store.LoadOrders()
	if err != nil {
		return err
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Seq < orders[j].Seq })

	restored := 0
	for _, o := range orders {
		mgr, ok := ex.managers[o.Pair]
		if !ok {
			ex.log.Warnw("restore_unknown_pair", "pair", o.Pair, "order", o.ID)
			continue
		}
		if err := mgr.RestoreOrder(o); err != nil {
			return fmt.Errorf("restore order %d: %w", o.ID, err)
		}
		ex.orderPairs[o.ID] = o.Pair
		ex.ids.Advance(o.ID)
		restored++
	}

	// One pass over each pair's event log: recover the pair clock and refill
	// the recent-trades ring from the durable order_filled envelopes.
	for symbol, mgr := range ex.managers {
		var last uint64
		err := store.ReplayEvents(symbol, func(ev events.Envelope) error {
			if ev.Seq > last {
				last = ev.Seq
			}
			if ev.Type != events.TypeOrderFilled {
				return nil
			}
			// Data came back from JSON as a generic map; round-trip it into
			// the fill shape.
			raw, err := json.Marshal(ev.Data)
			if err != nil {
				return fmt.Errorf("re-encode fill event %s/%d: %w", symbol, ev.Seq, err)
			}
			var f orderbook.Fill
			if err := json.Unmarshal(raw, &f); err != nil {
				return fmt.Errorf("decode fill event %s/%d: %w", symbol, ev.Seq, err)
			}
			mgr.RestoreFill(f)
			return nil
		})
		if err != nil {
			return err
		}
		mgr.AdvanceSeq(last)
	}

	if restored > 0 {
		ex.log.Infow("state_restored", "orders", restored, "next_id", ex.ids.Current()+1)
	}
	return nil
}

// pairIDSource records the id -> pair mapping at allocation time, inside
// the pair's critical section. By the time an id escapes anywhere (return
// value, event sink), cancel-by-id and lookup-by-id can already route it.
type pairIDSource struct {
	ex   *Exchange
	pair string
}

func (s *pairIDSource) Next() uint64 {
	id := s.ex.ids.Next()
	s.ex.mu.Lock()
	s.ex.orderPairs[id] = s.pair
	s.ex.mu.Unlock()
	return id
}

func (ex *Exchange) manager(pair string) (*lifecycle.Manager, error) {
	mgr, ok := ex.managers[pair]
	if !ok {
		return nil, fmt.Errorf("pair %s not found", pair)
	}
	return mgr, nil
}

// Pairs lists all listed trading pairs.
func (ex *Exchange) Pairs() []*market.Pair { return ex.registry.List() }

// Pair returns one pair's definition.
func (ex *Exchange) Pair(symbol string) (*market.Pair, error) { return ex.registry.Get(symbol) }

// PlaceOrder routes a submission to its pair and returns the new order id.
// The id -> pair mapping is written by the pair's id source before the id
// is visible anywhere.
func (ex *Exchange) PlaceOrder(pair string, req lifecycle.PlaceRequest) (uint64, error) {
	mgr, err := ex.manager(pair)
	if err != nil {
		return 0, err
	}
	return mgr.Place(req)
}

// CancelOrder cancels by order id; the pair is resolved internally.
func (ex *Exchange) CancelOrder(id uint64, requester common.Address) error {
	mgr, err := ex.managerFor(id)
	if err != nil {
		return err
	}
	return mgr.Cancel(id, requester)
}

// GetOrder returns a snapshot of any known order, resting or terminal.
func (ex *Exchange) GetOrder(id uint64) (orderbook.Order, error) {
	mgr, err := ex.managerFor(id)
	if err != nil {
		return orderbook.Order{}, err
	}
	o, ok := mgr.GetOrder(id)
	if !ok {
		return orderbook.Order{}, fmt.Errorf("%w: id %d", orderbook.ErrOrderNotFound, id)
	}
	return o, nil
}

func (ex *Exchange) managerFor(id uint64) (*lifecycle.Manager, error) {
	ex.mu.RLock()
	pair, ok := ex.orderPairs[id]
	ex.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: id %d", orderbook.ErrOrderNotFound, id)
	}
	return ex.manager(pair)
}

// BuyOrders returns a pair's open buy order ids in priority order.
func (ex *Exchange) BuyOrders(pair string) ([]uint64, error) {
	mgr, err := ex.manager(pair)
	if err != nil {
		return nil, err
	}
	return mgr.BuyOrders(), nil
}

// SellOrders returns a pair's open sell order ids in priority order.
func (ex *Exchange) SellOrders(pair string) ([]uint64, error) {
	mgr, err := ex.manager(pair)
	if err != nil {
		return nil, err
	}
	return mgr.SellOrders(), nil
}

// Depth returns aggregated levels for a pair, best first on both sides.
func (ex *Exchange) Depth(pair string) (bids, asks []orderbook.PriceLevel, err error) {
	mgr, err := ex.manager(pair)
	if err != nil {
		return nil, nil, err
	}
	bids, asks = mgr.Depth()
	return bids, asks, nil
}

// Quote prices a hypothetical taker read-only against a pair's book.
func (ex *Exchange) Quote(pair string, side orderbook.Side, baseQty decimal.Decimal) (decimal.Decimal, error) {
	mgr, err := ex.manager(pair)
	if err != nil {
		return decimal.Zero, err
	}
	return mgr.Quote(side, baseQty)
}

// RecentTrades returns a pair's most recent fills, newest first.
func (ex *Exchange) RecentTrades(pair string, n int) ([]orderbook.Fill, error) {
	mgr, err := ex.manager(pair)
	if err != nil {
		return nil, err
	}
	return mgr.RecentTrades(n), nil
}
