package orderbook

import (
	"github.com/shopspring/decimal"

	"github.com/ethereum/go-ethereum/common"
)

// Fill records one matched (maker, taker) pair. Fills produced by a single
// submission form an ordered list; downstream settlement replays them in
// exactly that order, keyed by Seq for idempotency.
type Fill struct {
	Pair     string          `json:"pair"`
	MakerID  uint64          `json:"makerId"`
	TakerID  uint64          `json:"takerId"`
	Maker    common.Address  `json:"maker"`
	Taker    common.Address  `json:"taker"`
	Price    decimal.Decimal `json:"price"`
	BaseQty  decimal.Decimal `json:"baseQty"`
	QuoteQty decimal.Decimal `json:"quoteQty"`
	Seq      uint64          `json:"seq"`
}

// MatchingEngine crosses an incoming order against the opposite side of one
// book. It runs synchronously to completion inside the pair's critical
// section; a half-applied match is never observable.
type MatchingEngine struct {
	book *OrderBook
}

func NewMatchingEngine(book *OrderBook) *MatchingEngine {
	return &MatchingEngine{book: book}
}

// Match fills taker against the book until it is exhausted or no longer
// crosses, then rests the residual for LIMIT orders. Execution always uses
// the resting order's price: the maker committed first and keeps the
// economic benefit of its rate.
//
// FOK orders are checked against available crossing depth up front and
// produce either a complete fill or nothing. IOC residuals do not rest.
// Cancelling unfilled IOC/FOK remainders is the caller's job (the status is
// left non-terminal so the lifecycle manager can emit the cancel event).
//
// nextSeq supplies the pair-local sequence for each fill and for the
// residual's fresh time priority.
func (e *MatchingEngine) Match(taker *Order, nextSeq func() uint64) []Fill {
	if taker.Type == FOK && !e.fillable(taker) {
		return nil
	}

	opp := e.book.index(taker.Side.Opposite())

	var fills []Fill
	for taker.RemainingBase().IsPositive() {
		maker, ok := opp.PeekBest()
		if !ok || !taker.crosses(maker) {
			break
		}

		baseQty := decimal.Min(taker.RemainingBase(), maker.RemainingBase())
		quoteQty := baseQty.Mul(maker.Price)

		// Both orders advance together; applyFill panics on overshoot, so a
		// one-sided credit cannot survive.
		maker.applyFill(baseQty, quoteQty)
		taker.applyFill(baseQty, quoteQty)

		fills = append(fills, Fill{
			Pair:     e.book.pair,
			MakerID:  maker.ID,
			TakerID:  taker.ID,
			Maker:    maker.Owner,
			Taker:    taker.Owner,
			Price:    maker.Price,
			BaseQty:  baseQty,
			QuoteQty: quoteQty,
			Seq:      nextSeq(),
		})

		if maker.Status == Filled {
			opp.Remove(maker.ID)
		}
		// A partially filled maker stays at the head of its level with its
		// original priority; it is not re-queued.
	}

	if taker.RemainingBase().IsPositive() && taker.Type == Limit {
		// Residual rests with fresh time priority.
		taker.Seq = nextSeq()
		e.book.Rest(taker)
	}

	return fills
}

// fillable reports whether crossing depth covers the taker's full size.
func (e *MatchingEngine) fillable(taker *Order) bool {
	need := taker.RemainingBase()
	opp := e.book.index(taker.Side.Opposite())
	opp.Walk(func(maker *Order) bool {
		if !taker.crosses(maker) {
			return false
		}
		need = need.Sub(maker.RemainingBase())
		return need.IsPositive()
	})
	return !need.IsPositive()
}

// Quote prices a hypothetical taker of baseQty against the current book
// without touching it: a buy walks the asks, a sell walks the bids. Returns
// the total quote amount at maker prices, or ErrInsufficientLiquidity when
// the book is too shallow.
func (e *MatchingEngine) Quote(side Side, baseQty decimal.Decimal) (decimal.Decimal, error) {
	if !baseQty.IsPositive() {
		return decimal.Zero, ErrInvalidOrderParams
	}
	opp := e.book.index(side.Opposite())

	remaining := baseQty
	total := decimal.Zero
	opp.Walk(func(maker *Order) bool {
		q := decimal.Min(remaining, maker.RemainingBase())
		total = total.Add(q.Mul(maker.Price))
		remaining = remaining.Sub(q)
		return remaining.IsPositive()
	})
	if remaining.IsPositive() {
		return decimal.Zero, ErrInsufficientLiquidity
	}
	return total, nil
}
