package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceLevel aggregates resting base quantity at one price.
type PriceLevel struct {
	Price   decimal.Decimal `json:"price"`
	BaseQty decimal.Decimal `json:"baseQty"`
	Orders  int             `json:"orders"`
}

// OrderBook holds all orders for one trading pair. The orders table is the
// single source of truth and is append-only: terminal orders stay in it as
// audit records, only the side indices shrink. Index entries are pointers
// into the table, never copies.
//
// The book is not safe for concurrent use on its own. The lifecycle manager
// serializes every operation against one pair behind a single lock, which
// is what makes price-time priority meaningful and keeps a crossed book
// invisible outside a matching call.
type OrderBook struct {
	pair          string
	priceDecimals int32

	bids *sideIndex
	asks *sideIndex

	orders map[uint64]*Order
}

func NewOrderBook(pair string, priceDecimals int32) *OrderBook {
	return &OrderBook{
		pair:          pair,
		priceDecimals: priceDecimals,
		bids:          newSideIndex(Buy, priceDecimals),
		asks:          newSideIndex(Sell, priceDecimals),
		orders:        make(map[uint64]*Order),
	}
}

func (b *OrderBook) Pair() string { return b.pair }

// Register adds an order to the authoritative table before matching. With
// sequential id allocation a duplicate is unreachable; the check is
// defensive and the caller must treat the error as fatal.
func (b *OrderBook) Register(o *Order) error {
	if _, exists := b.orders[o.ID]; exists {
		return fmt.Errorf("%w: id %d", ErrDuplicateOrderID, o.ID)
	}
	b.orders[o.ID] = o
	return nil
}

// Rest inserts a registered open order into its side index.
func (b *OrderBook) Rest(o *Order) {
	b.index(o.Side).Insert(o)
}

// Remove takes a resting order out of its index. An id that is not resting
// (already filled, cancelled, or never rested) yields ErrOrderNotFound and
// no state change.
func (b *OrderBook) Remove(id uint64) error {
	o, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	if !b.index(o.Side).Remove(id) {
		return fmt.Errorf("%w: id %d not resting", ErrOrderNotFound, id)
	}
	return nil
}

// Get returns the order record for id, resting or terminal.
func (b *OrderBook) Get(id uint64) (*Order, bool) {
	o, ok := b.orders[id]
	return o, ok
}

func (b *OrderBook) BestBid() (*Order, bool) { return b.bids.PeekBest() }
func (b *OrderBook) BestAsk() (*Order, bool) { return b.asks.PeekBest() }

// SnapshotBids returns open buy order ids, best price first, FIFO within a
// level, no duplicates.
func (b *OrderBook) SnapshotBids() []uint64 { return b.bids.Snapshot() }

// SnapshotAsks returns open sell order ids in priority order.
func (b *OrderBook) SnapshotAsks() []uint64 { return b.asks.Snapshot() }

// BidLevels aggregates remaining quantity per bid price, best first.
func (b *OrderBook) BidLevels() []PriceLevel { return b.levels(b.bids) }

// AskLevels aggregates remaining quantity per ask price, best first.
func (b *OrderBook) AskLevels() []PriceLevel { return b.levels(b.asks) }

func (b *OrderBook) levels(ix *sideIndex) []PriceLevel {
	out := make([]PriceLevel, 0, len(ix.levels))
	for _, key := range ix.sortedKeys() {
		lvl := PriceLevel{Price: decimal.New(key, -ix.priceDecimals), BaseQty: decimal.Zero}
		for _, o := range ix.levels[key] {
			lvl.BaseQty = lvl.BaseQty.Add(o.RemainingBase())
			lvl.Orders++
		}
		out = append(out, lvl)
	}
	return out
}

// OpenOrders reports the number of resting orders on both sides.
func (b *OrderBook) OpenOrders() int { return b.bids.Len() + b.asks.Len() }

func (b *OrderBook) index(side Side) *sideIndex {
	if side == Buy {
		return b.bids
	}
	return b.asks
}
