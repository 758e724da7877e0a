package lifecycle

import "github.com/meridian-dex/meridian/pkg/exchange/orderbook"

// OrderStore receives the latest state of every order the manager mutates.
// Writes happen inside the pair's critical section; failures are logged
// and do not roll back matching (the event log is the durable record).
type OrderStore interface {
	SaveOrder(o *orderbook.Order) error
}

// NopOrderStore drops order records, for tests and stateless runs.
type NopOrderStore struct{}

func (NopOrderStore) SaveOrder(*orderbook.Order) error { return nil }
