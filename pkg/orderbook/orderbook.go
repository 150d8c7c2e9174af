package orderbook

import (
	"container/heap"
	"math/rand"
)

// Book is a single-instrument limit order book with price-time priority
// matching and lazy cancellation. The active set owns order state; the two
// heaps hold entries that may be stale. A stale head is popped on inspection
// instead of being hunted down at cancel time, which keeps a partial-fill
// rewrite O(log n) and makes removing a decayed order a single map delete.
type Book struct {
	active map[uint64]*Order
	bids   *entryHeap
	asks   *entryHeap
	last   float64
	seq    uint64
}

func NewBook() *Book {
	return &Book{
		active: make(map[uint64]*Order),
		bids:   newEntryHeap(bidLess),
		asks:   newEntryHeap(askLess),
		last:   100.0,
	}
}

// LastTraded returns the price of the most recent fill, seeded to 100.
func (b *Book) LastTraded() float64 {
	return b.last
}

// ActiveCount returns the number of live resting orders.
func (b *Book) ActiveCount() int {
	return len(b.active)
}

// AddOrder crosses the incoming order against the opposite side and rests
// any residual quantity. Fills are returned in execution order; each fill
// executes at the resting order's price.
func (b *Book) AddOrder(o Order) []Trade {
	var trades []Trade

	contra := b.asks
	own := b.bids
	crosses := func(p float64) bool { return p <= o.Price }
	if o.Side == SELL {
		contra = b.bids
		own = b.asks
		crosses = func(p float64) bool { return p >= o.Price }
	}

	for o.Qty > 0 {
		top, ok := contra.Peek()
		if !ok {
			break
		}
		resting, live := b.active[top.id]
		if !live || resting.Qty != top.qty || resting.Price != top.price {
			heap.Pop(contra)
			continue
		}
		if !crosses(top.price) {
			break
		}

		fill := min(resting.Qty, o.Qty)
		trades = append(trades, Trade{Price: top.price, Qty: fill, Timestamp: o.Timestamp})
		b.last = top.price

		heap.Pop(contra)
		if resting.Qty > fill {
			resting.Qty -= fill
			b.push(contra, resting)
		} else {
			delete(b.active, top.id)
		}
		o.Qty -= fill
	}

	if o.Qty > 0 {
		rest := o
		b.active[rest.ID] = &rest
		b.push(own, &rest)
	}
	return trades
}

// Decay independently removes each active order with probability p.
// Heap entries of removed orders become stale and are reclaimed lazily.
func (b *Book) Decay(p float64, rng *rand.Rand) {
	if len(b.active) == 0 {
		return
	}
	var doomed []uint64
	for id := range b.active {
		if rng.Float64() < p {
			doomed = append(doomed, id)
		}
	}
	for _, id := range doomed {
		delete(b.active, id)
	}
}

// Mid returns the half-sum of the top bid and ask prices after cleaning
// stale heads, or fallback when either side is empty.
func (b *Book) Mid(fallback float64) float64 {
	ask, askOK := b.cleanTop(b.asks)
	bid, bidOK := b.cleanTop(b.bids)
	if !askOK || !bidOK {
		return fallback
	}
	return 0.5 * (ask.price + bid.price)
}

// Metrics returns the top-of-book spread and aggregated top-of-book
// quantity, or zeros when either side is empty.
func (b *Book) Metrics() (spread float64, liquidity int64) {
	ask, askOK := b.cleanTop(b.asks)
	bid, bidOK := b.cleanTop(b.bids)
	if !askOK || !bidOK {
		return 0, 0
	}
	return ask.price - bid.price, int64(ask.qty) + int64(bid.qty)
}

// TopBid returns the best live bid, cleaning stale heads first.
func (b *Book) TopBid() (price float64, qty uint32, ok bool) {
	e, ok := b.cleanTop(b.bids)
	if !ok {
		return 0, 0, false
	}
	return e.price, e.qty, true
}

// TopAsk returns the best live ask, cleaning stale heads first.
func (b *Book) TopAsk() (price float64, qty uint32, ok bool) {
	e, ok := b.cleanTop(b.asks)
	if !ok {
		return 0, 0, false
	}
	return e.price, e.qty, true
}

func (b *Book) push(h *entryHeap, o *Order) {
	b.seq++
	heap.Push(h, entry{
		price:     o.Price,
		timestamp: o.Timestamp,
		seq:       b.seq,
		id:        o.ID,
		qty:       o.Qty,
	})
}

func (b *Book) cleanTop(h *entryHeap) (entry, bool) {
	for {
		top, ok := h.Peek()
		if !ok {
			return entry{}, false
		}
		o, live := b.active[top.id]
		if live && o.Qty == top.qty && o.Price == top.price {
			return top, true
		}
		heap.Pop(h)
	}
}
