package cache

// entry is a node of the recency list. The list is circular through a
// sentinel, so unlinking never has to special-case the ends.
type entry[K comparable, V any] struct {
	key        K
	value      V
	prev, next *entry[K, V]
}

// recency orders entries from most recently used (root.next) to least
// recently used (root.prev). It is not safe for concurrent use.
type recency[K comparable, V any] struct {
	root entry[K, V]
	n    int
}

func (l *recency[K, V]) init() {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.n = 0
}

func (l *recency[K, V]) len() int { return l.n }

func (l *recency[K, V]) insertFront(e *entry[K, V]) {
	e.prev = &l.root
	e.next = l.root.next
	l.root.next.prev = e
	l.root.next = e
	l.n++
}

func (l *recency[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
	l.n--
}

func (l *recency[K, V]) touch(e *entry[K, V]) {
	if l.root.next == e {
		return
	}
	l.unlink(e)
	l.insertFront(e)
}

// oldest returns the least recently used entry, or nil.
func (l *recency[K, V]) oldest() *entry[K, V] {
	if l.n == 0 {
		return nil
	}
	return l.root.prev
}

// each visits entries from most to least recently used until fn returns false.
func (l *recency[K, V]) each(fn func(e *entry[K, V]) bool) {
	for e := l.root.next; e != &l.root; {
		next := e.next
		if !fn(e) {
			return
		}
		e = next
	}
}
