package orderbook

// entry is a snapshot of a resting order pushed onto a side heap.
// Entries are never removed eagerly; an entry is authoritative only while
// its id resolves in the active set to a record with the same price and
// quantity. Anything else is stale and reclaimed at the top.
type entry struct {
	price     float64
	timestamp float64
	seq       uint64 // monotone push counter, breaks timestamp ties
	id        uint64
	qty       uint32
}

// entryHeap implements heap.Interface over order entries.
type entryHeap struct {
	entries []entry
	less    func(a, b entry) bool
}

func newEntryHeap(less func(a, b entry) bool) *entryHeap {
	return &entryHeap{
		entries: []entry{},
		less:    less,
	}
}

func (h entryHeap) Len() int {
	return len(h.entries)
}

func (h entryHeap) Less(i, j int) bool {
	return h.less(h.entries[i], h.entries[j])
}

func (h entryHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *entryHeap) Push(x any) {
	h.entries = append(h.entries, x.(entry))
}

func (h *entryHeap) Pop() any {
	n := len(h.entries)
	e := h.entries[n-1]
	h.entries = h.entries[:n-1]
	return e
}

func (h *entryHeap) Peek() (entry, bool) {
	if len(h.entries) == 0 {
		return entry{}, false
	}
	return h.entries[0], true
}

func bidLess(a, b entry) bool {
	if a.price != b.price {
		return a.price > b.price
	}
	if a.timestamp != b.timestamp {
		return a.timestamp < b.timestamp
	}
	return a.seq < b.seq
}

func askLess(a, b entry) bool {
	if a.price != b.price {
		return a.price < b.price
	}
	if a.timestamp != b.timestamp {
		return a.timestamp < b.timestamp
	}
	return a.seq < b.seq
}
