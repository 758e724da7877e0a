package orderbook

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// maxPriceKey bounds the shifted price so the int64 book key is exact.
var maxPriceKey = decimal.NewFromInt(math.MaxInt64)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the side a taker matches against.
func (s Side) Opposite() Side { return -s }

func ParseSide(s string) (Side, error) {
	switch s {
	case "buy", "BUY":
		return Buy, nil
	case "sell", "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: side %q", ErrInvalidOrderParams, s)
	}
}

// OrderType is a closed set so the matching loop's crossing test is total.
type OrderType int8

const (
	Limit OrderType = iota // rest residual quantity in the book
	IOC                    // immediate-or-cancel: residual is cancelled
	FOK                    // fill-or-kill: all-or-nothing against the book
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "LIMIT"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "unknown"
	}
}

func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "", "LIMIT", "limit":
		return Limit, nil
	case "IOC", "ioc":
		return IOC, nil
	case "FOK", "fok":
		return FOK, nil
	default:
		return 0, fmt.Errorf("%w: order type %q", ErrInvalidOrderParams, s)
	}
}

type Status int8

const (
	Open Status = iota
	PartiallyFilled
	Filled
	Cancelled
)

func (st Status) String() string {
	switch st {
	case Open:
		return "open"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further fills or cancellation can apply.
func (st Status) Terminal() bool { return st == Filled || st == Cancelled }

// Order is a resting or incoming limit order. Identity fields are immutable
// after construction; only the fill state and status mutate, and only under
// the owning pair's lifecycle lock.
//
// Orders carry both legs as submitted (AmountOffered is what the owner
// gives, AmountRequested what they want back). Prices from both sides are
// normalized onto a single axis, quote units per base unit:
//
//	buy:  price = AmountOffered / AmountRequested  (max the buyer pays)
//	sell: price = AmountRequested / AmountOffered  (min the seller takes)
//
// The ratio is truncated to the pair's price decimals so that the integer
// price key used for book ordering is exact. Crossing: buy.Price >= sell.Price.
type Order struct {
	ID    uint64         `json:"id"`
	Owner common.Address `json:"owner"`
	Pair  string         `json:"pair"`
	Side  Side           `json:"side"`
	Type  OrderType      `json:"type"`

	AmountOffered   decimal.Decimal `json:"amountOffered"`
	AmountRequested decimal.Decimal `json:"amountRequested"`

	// Price is quote per base, truncated to the pair's price decimals.
	Price decimal.Decimal `json:"price"`

	// Seq is the pair-local insertion sequence: the logical clock used for
	// time priority. Wall-clock time never participates in ordering.
	Seq uint64 `json:"seq"`

	// CreatedAt is informational only (unix milliseconds).
	CreatedAt int64 `json:"createdAt"`

	FilledBase  decimal.Decimal `json:"filledBase"`
	FilledQuote decimal.Decimal `json:"filledQuote"`
	Status      Status          `json:"status"`
}

// NewOrder builds an order and normalizes its price to the given number of
// decimals. Amount validation here is defensive; the lifecycle manager
// rejects bad parameters before an ID is ever allocated.
func NewOrder(id uint64, owner common.Address, pair string, side Side, typ OrderType, offered, requested decimal.Decimal, priceDecimals int32) (*Order, error) {
	if !offered.IsPositive() || !requested.IsPositive() {
		return nil, fmt.Errorf("%w: amounts must be positive", ErrInvalidOrderParams)
	}
	if side != Buy && side != Sell {
		return nil, fmt.Errorf("%w: side %d", ErrInvalidOrderParams, side)
	}

	var price decimal.Decimal
	if side == Buy {
		price = offered.Div(requested)
	} else {
		price = requested.Div(offered)
	}
	price = price.Truncate(priceDecimals)
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price rounds to zero at %d decimals", ErrInvalidOrderParams, priceDecimals)
	}
	// Shift/IntPart wraps past int64, which would hand a high-priced order a
	// garbage book key and break price priority.
	if price.Shift(priceDecimals).GreaterThan(maxPriceKey) {
		return nil, fmt.Errorf("%w: price %s exceeds range at %d decimals", ErrInvalidOrderParams, price, priceDecimals)
	}

	return &Order{
		ID:              id,
		Owner:           owner,
		Pair:            pair,
		Side:            side,
		Type:            typ,
		AmountOffered:   offered,
		AmountRequested: requested,
		Price:           price,
		FilledBase:      decimal.Zero,
		FilledQuote:     decimal.Zero,
		Status:          Open,
	}, nil
}

// BaseAmount is the order's total size on the base-asset axis.
func (o *Order) BaseAmount() decimal.Decimal {
	if o.Side == Buy {
		return o.AmountRequested
	}
	return o.AmountOffered
}

// RemainingBase is the unfilled size on the base-asset axis.
func (o *Order) RemainingBase() decimal.Decimal {
	return o.BaseAmount().Sub(o.FilledBase)
}

// priceKey scales the normalized price to an integer for book ordering.
// Exact because Price is truncated to the same number of decimals.
func (o *Order) priceKey(priceDecimals int32) int64 {
	return o.Price.Shift(priceDecimals).IntPart()
}

// crosses reports whether a taker at this order's price trades against
// maker. Equal prices cross.
func (o *Order) crosses(maker *Order) bool {
	if o.Side == Buy {
		return o.Price.GreaterThanOrEqual(maker.Price)
	}
	return o.Price.LessThanOrEqual(maker.Price)
}

// applyFill advances the fill state by baseQty/quoteQty and recomputes
// status. Panics if the fill would overshoot the order's size: quantities
// are clamped by the matching loop, so overshoot means book corruption.
func (o *Order) applyFill(baseQty, quoteQty decimal.Decimal) {
	next := o.FilledBase.Add(baseQty)
	if next.GreaterThan(o.BaseAmount()) {
		panic(fmt.Sprintf("orderbook: fill overshoot on order %d: %s > %s", o.ID, next, o.BaseAmount()))
	}
	o.FilledBase = next
	o.FilledQuote = o.FilledQuote.Add(quoteQty)
	if o.RemainingBase().IsZero() {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
}
