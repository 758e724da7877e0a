package orderbook

import (
	"container/heap"
	"fmt"
	"sort"
)

// sideIndex holds one side of the book in price-time priority: a price heap
// for O(1) best-level peek, a FIFO queue per price level (time priority is
// insertion order, which the caller drives by Seq), and an id index for
// O(1) cancellation lookups.
type sideIndex struct {
	side          Side
	priceDecimals int32

	prices priceHeap
	levels map[int64][]*Order
	byID   map[uint64]int64 // order id -> price key
}

func newSideIndex(side Side, priceDecimals int32) *sideIndex {
	var h priceHeap
	if side == Buy {
		h = &maxPriceHeap{}
	} else {
		h = &minPriceHeap{}
	}
	heap.Init(h)
	return &sideIndex{
		side:          side,
		priceDecimals: priceDecimals,
		prices:        h,
		levels:        make(map[int64][]*Order),
		byID:          make(map[uint64]int64),
	}
}

func (ix *sideIndex) Len() int { return len(ix.byID) }

// Insert rests an order at its price level. Inserting an id twice would
// split one order across two queue positions, so it aborts the process
// instead of corrupting the book.
func (ix *sideIndex) Insert(o *Order) {
	if _, dup := ix.byID[o.ID]; dup {
		panic(fmt.Sprintf("orderbook: %v: id %d on %s index", ErrDuplicateOrderID, o.ID, ix.side))
	}
	key := o.priceKey(ix.priceDecimals)
	if len(ix.levels[key]) == 0 {
		heap.Push(ix.prices, key)
	}
	ix.levels[key] = append(ix.levels[key], o)
	ix.byID[o.ID] = key
}

// PeekBest returns the order with the highest priority without removing it.
func (ix *sideIndex) PeekBest() (*Order, bool) {
	if ix.prices.Len() == 0 {
		return nil, false
	}
	level := ix.levels[ix.prices.Peek()]
	if len(level) == 0 {
		return nil, false
	}
	return level[0], true
}

// RemoveBest pops the highest-priority order.
func (ix *sideIndex) RemoveBest() (*Order, bool) {
	o, ok := ix.PeekBest()
	if !ok {
		return nil, false
	}
	ix.removeAt(ix.byID[o.ID], o.ID)
	return o, true
}

// Remove takes an order out of the index by id. Returns false when the id
// is not resting here; callers map that to ErrOrderNotFound.
func (ix *sideIndex) Remove(id uint64) bool {
	key, ok := ix.byID[id]
	if !ok {
		return false
	}
	return ix.removeAt(key, id)
}

func (ix *sideIndex) removeAt(key int64, id uint64) bool {
	level := ix.levels[key]
	for i, o := range level {
		if o.ID == id {
			ix.levels[key] = append(level[:i], level[i+1:]...)
			if len(ix.levels[key]) == 0 {
				delete(ix.levels, key)
				ix.removePrice(key)
			}
			delete(ix.byID, id)
			return true
		}
	}
	return false
}

// removePrice drops a now-empty price level from the heap. O(n) scan, but
// only runs when a level empties.
func (ix *sideIndex) removePrice(key int64) {
	for i := 0; i < ix.prices.Len(); i++ {
		switch h := ix.prices.(type) {
		case *maxPriceHeap:
			if (*h)[i] == key {
				heap.Remove(ix.prices, i)
				return
			}
		case *minPriceHeap:
			if (*h)[i] == key {
				heap.Remove(ix.prices, i)
				return
			}
		}
	}
}

// sortedKeys returns the level keys best-first.
func (ix *sideIndex) sortedKeys() []int64 {
	keys := make([]int64, 0, len(ix.levels))
	for k := range ix.levels {
		keys = append(keys, k)
	}
	if ix.side == Buy {
		sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })
	} else {
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	}
	return keys
}

// Walk visits resting orders best-first, FIFO within a level, until fn
// returns false.
func (ix *sideIndex) Walk(fn func(o *Order) bool) {
	for _, key := range ix.sortedKeys() {
		for _, o := range ix.levels[key] {
			if !fn(o) {
				return
			}
		}
	}
}

// Snapshot returns all resting order ids in priority order.
func (ix *sideIndex) Snapshot() []uint64 {
	ids := make([]uint64, 0, len(ix.byID))
	ix.Walk(func(o *Order) bool {
		ids = append(ids, o.ID)
		return true
	})
	return ids
}
