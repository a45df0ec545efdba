package engine

import "github.com/google/btree"

// handle is a stable index into a book's order arena.
type handle int

// priceLevel is a FIFO queue of order handles resting at one price.
// Handles are popped from the front; the backing slice is reclaimed once
// the consumed prefix dominates it.
type priceLevel struct {
	price int64
	queue []handle
	head  int
}

func (l *priceLevel) push(h handle) {
	l.queue = append(l.queue, h)
}

// front returns the oldest handle still queued at this level.
func (l *priceLevel) front() (handle, bool) {
	if l.head >= len(l.queue) {
		return 0, false
	}
	return l.queue[l.head], true
}

func (l *priceLevel) pop() {
	if l.head >= len(l.queue) {
		return
	}
	l.head++
	if l.head == len(l.queue) {
		l.queue = l.queue[:0]
		l.head = 0
		return
	}
	if l.head >= 64 && l.head*2 >= len(l.queue) {
		n := copy(l.queue, l.queue[l.head:])
		l.queue = l.queue[:n]
		l.head = 0
	}
}

func (l *priceLevel) len() int {
	return len(l.queue) - l.head
}

// each calls fn for every queued handle in FIFO order.
func (l *priceLevel) each(fn func(handle)) {
	for _, h := range l.queue[l.head:] {
		fn(h)
	}
}

// retain keeps only the handles for which keep returns true, preserving
// their relative order, and returns the number removed.
func (l *priceLevel) retain(keep func(handle) bool) int {
	kept := l.queue[:0]
	removed := 0
	for _, h := range l.queue[l.head:] {
		if keep(h) {
			kept = append(kept, h)
		} else {
			removed++
		}
	}
	l.queue = kept
	l.head = 0
	return removed
}

// bidLess orders bid levels by price descending, so Min() is the best bid.
func bidLess(a, b *priceLevel) bool {
	return a.price > b.price
}

// askLess orders ask levels by price ascending, so Min() is the best ask.
func askLess(a, b *priceLevel) bool {
	return a.price < b.price
}

// levelTree holds one side of a book: price levels in priority order.
type levelTree struct {
	tree *btree.BTreeG[*priceLevel]
}

func newLevelTree(less btree.LessFunc[*priceLevel]) *levelTree {
	const degree = 32
	return &levelTree{tree: btree.NewG[*priceLevel](degree, less)}
}

// level returns the level at price, creating it if absent.
func (t *levelTree) level(price int64) *priceLevel {
	if l, ok := t.tree.Get(&priceLevel{price: price}); ok {
		return l
	}
	l := &priceLevel{price: price}
	t.tree.ReplaceOrInsert(l)
	return l
}

// best returns the highest-priority level.
func (t *levelTree) best() (*priceLevel, bool) {
	return t.tree.Min()
}

func (t *levelTree) remove(price int64) {
	t.tree.Delete(&priceLevel{price: price})
}

// walk visits levels best-first until fn returns false.
func (t *levelTree) walk(fn func(*priceLevel) bool) {
	t.tree.Ascend(fn)
}

func (t *levelTree) len() int {
	return t.tree.Len()
}
