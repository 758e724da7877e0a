package lifecycle

import "github.com/meridian-dex/meridian/pkg/exchange/orderbook"

// Settlement is the capability the lifecycle manager uses to move balances
// for executed fills. It is injected rather than called inline from the
// matching loop, which keeps matching pure and independently testable.
//
// Custody is assumed verified before an order is accepted, so Settle must
// succeed for any fill the engine produces; fill.Seq is the idempotency
// token for safe retry on the far side. A non-nil error after matching has
// applied is a correctness breach, and the manager aborts the engine
// instance rather than leave one side credited.
type Settlement interface {
	Settle(fill orderbook.Fill) error
}

// NopSettlement is used when custody and transfer are handled entirely by
// the environment (balances pre-escrowed at submission).
type NopSettlement struct{}

func (NopSettlement) Settle(orderbook.Fill) error { return nil }
