package orderbook

import (
	"errors"
	"testing"
)

func TestBookRegisterDuplicate(t *testing.T) {
	b := NewOrderBook("ETH-USDC", 8)
	o := restingOrder(t, 1, Buy, "200", "100")
	if err := b.Register(o); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := b.Register(o); !errors.Is(err, ErrDuplicateOrderID) {
		t.Fatalf("second Register err = %v, want ErrDuplicateOrderID", err)
	}
}

func TestBookRemove(t *testing.T) {
	b := NewOrderBook("ETH-USDC", 8)

	if err := b.Remove(7); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("Remove unknown id err = %v, want ErrOrderNotFound", err)
	}

	o := restingOrder(t, 1, Sell, "100", "200")
	if err := b.Register(o); err != nil {
		t.Fatalf("Register: %v", err)
	}
	b.Rest(o)

	if err := b.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// The record survives removal; only the resting index entry goes.
	if _, ok := b.Get(1); !ok {
		t.Fatal("Get after Remove should still find the record")
	}
	if err := b.Remove(1); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("Remove twice err = %v, want ErrOrderNotFound", err)
	}
	if b.OpenOrders() != 0 {
		t.Fatalf("OpenOrders = %d, want 0", b.OpenOrders())
	}
}

func TestBookSnapshotsAndBest(t *testing.T) {
	b := NewOrderBook("ETH-USDC", 8)
	for _, o := range []*Order{
		restingOrder(t, 1, Buy, "190", "100"), // bid 1.9
		restingOrder(t, 2, Buy, "200", "100"), // bid 2.0
		restingOrder(t, 3, Sell, "100", "210"), // ask 2.1
		restingOrder(t, 4, Sell, "100", "250"), // ask 2.5
	} {
		if err := b.Register(o); err != nil {
			t.Fatalf("Register(%d): %v", o.ID, err)
		}
		b.Rest(o)
	}

	bid, ok := b.BestBid()
	if !ok || !bid.Price.Equal(dec("2")) {
		t.Fatalf("best bid = %v", bid)
	}
	ask, ok := b.BestAsk()
	if !ok || !ask.Price.Equal(dec("2.1")) {
		t.Fatalf("best ask = %v", ask)
	}

	bids := b.SnapshotBids()
	if len(bids) != 2 || bids[0] != 2 || bids[1] != 1 {
		t.Fatalf("bid snapshot = %v, want [2 1]", bids)
	}
	asks := b.SnapshotAsks()
	if len(asks) != 2 || asks[0] != 3 || asks[1] != 4 {
		t.Fatalf("ask snapshot = %v, want [3 4]", asks)
	}

	seen := map[uint64]bool{}
	for _, id := range append(bids, asks...) {
		if seen[id] {
			t.Fatalf("id %d appears twice across snapshots", id)
		}
		seen[id] = true
	}
}

func TestBookLevelsAggregation(t *testing.T) {
	b := NewOrderBook("ETH-USDC", 8)
	for _, o := range []*Order{
		restingOrder(t, 1, Buy, "200", "100"), // 100 base at 2
		restingOrder(t, 2, Buy, "100", "50"),  // 50 base at 2
		restingOrder(t, 3, Buy, "150", "100"), // 100 base at 1.5
	} {
		if err := b.Register(o); err != nil {
			t.Fatalf("Register(%d): %v", o.ID, err)
		}
		b.Rest(o)
	}

	levels := b.BidLevels()
	if len(levels) != 2 {
		t.Fatalf("levels = %d, want 2", len(levels))
	}
	if !levels[0].Price.Equal(dec("2")) || !levels[0].BaseQty.Equal(dec("150")) || levels[0].Orders != 2 {
		t.Fatalf("top level = %+v", levels[0])
	}
	if !levels[1].Price.Equal(dec("1.5")) || !levels[1].BaseQty.Equal(dec("100")) || levels[1].Orders != 1 {
		t.Fatalf("second level = %+v", levels[1])
	}
}
