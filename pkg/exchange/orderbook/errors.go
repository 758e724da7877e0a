package orderbook

import "errors"

// Sentinel errors shared by the book, the matching engine and the lifecycle
// manager. Callers test with errors.Is; wrapped messages carry context.
var (
	// ErrInvalidOrderParams rejects a submission before any state change.
	ErrInvalidOrderParams = errors.New("invalid order parameters")

	// ErrOrderNotFound covers lookups and index removals of unknown ids.
	// Removal of an id that is not resting is a tolerated no-op signal, not
	// a fatal condition: a cancel can race a fill that just emptied the order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotOwner rejects cancellation by anyone but the order's owner.
	ErrNotOwner = errors.New("requester is not the order owner")

	// ErrAlreadyTerminal rejects operations on filled or cancelled orders.
	ErrAlreadyTerminal = errors.New("order is already terminal")

	// ErrDuplicateOrderID means id allocation broke. Registering a duplicate
	// is unreachable in correct code; callers must treat it as fatal rather
	// than continue with a possibly corrupt book.
	ErrDuplicateOrderID = errors.New("duplicate order id")

	// ErrInsufficientLiquidity is returned by read-only quoting when the
	// book is too shallow. Matching itself never returns it.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)
