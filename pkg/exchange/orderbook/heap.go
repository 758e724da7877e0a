package orderbook

import "container/heap"

// priceHeap is the price-level ordering used by a side index: bids keep the
// highest price on top, asks the lowest. Manipulate through container/heap.
type priceHeap interface {
	heap.Interface
	Peek() int64
}

// maxPriceHeap orders bid price keys, highest first.
type maxPriceHeap []int64

func (h maxPriceHeap) Len() int           { return len(h) }
func (h maxPriceHeap) Less(i, j int) bool { return h[i] > h[j] }
func (h maxPriceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxPriceHeap) Push(x interface{}) {
	*h = append(*h, x.(int64))
}

func (h *maxPriceHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func (h *maxPriceHeap) Peek() int64 {
	if len(*h) == 0 {
		return 0
	}
	return (*h)[0]
}

// minPriceHeap orders ask price keys, lowest first.
type minPriceHeap []int64

func (h minPriceHeap) Len() int           { return len(h) }
func (h minPriceHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h minPriceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minPriceHeap) Push(x interface{}) {
	*h = append(*h, x.(int64))
}

func (h *minPriceHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func (h *minPriceHeap) Peek() int64 {
	if len(*h) == 0 {
		return 0
	}
	return (*h)[0]
}
