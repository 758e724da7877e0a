// Package events defines the lifecycle events the engine emits and the
// sinks that carry them out of process. Within one logical operation the
// emission order is part of the contract: sinks are invoked synchronously
// under the pair's serialization lock, so downstream consumers observe
// fills in matching order.
package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/meridian-dex/meridian/pkg/exchange/orderbook"
)

type Type string

const (
	TypeOrderPlaced    Type = "order_placed"
	TypeOrderFilled    Type = "order_filled"
	TypeOrderCancelled Type = "order_cancelled"
)

// Envelope wraps every outbound event. Seq is the pair-local sequence of
// the emitting operation; Time is informational wall clock (unix ms).
type Envelope struct {
	Type Type        `json:"type"`
	Pair string      `json:"pair"`
	Seq  uint64      `json:"seq"`
	Time int64       `json:"time"`
	Data interface{} `json:"data"`
}

// OrderPlaced is emitted once per accepted submission, before any fills.
type OrderPlaced struct {
	ID              uint64          `json:"id"`
	Owner           common.Address  `json:"owner"`
	Side            string          `json:"side"`
	OrderType       string          `json:"orderType"`
	Price           decimal.Decimal `json:"price"`
	AmountOffered   decimal.Decimal `json:"amountOffered"`
	AmountRequested decimal.Decimal `json:"amountRequested"`
	Timestamp       int64           `json:"timestamp"`
}

// OrderFilled is emitted once per matched (maker, taker) pair, in matching
// order. Fill.Seq doubles as the idempotent settlement token.
type OrderFilled struct {
	orderbook.Fill
}

// OrderCancelled is emitted when an order leaves the book unfilled or
// partially filled.
type OrderCancelled struct {
	ID    uint64         `json:"id"`
	Owner common.Address `json:"owner"`
}

// Sink consumes event envelopes. Publish is called synchronously inside
// the engine's critical section; implementations should be fast and must
// not call back into the engine.
type Sink interface {
	Publish(ev Envelope) error
	Close() error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Publish(Envelope) error { return nil }
func (NopSink) Close() error           { return nil }

// MultiSink fans one event out to several sinks in order. The first error
// is returned after all sinks ran; ordering per sink is preserved.
type MultiSink []Sink

func (m MultiSink) Publish(ev Envelope) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
