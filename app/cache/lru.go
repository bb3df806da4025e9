package cache

import "container/list"

// evictionList tracks recency of cache keys. Front is most recently used.
type evictionList struct {
	order *list.List
	nodes map[string]*list.Element
}

func newEvictionList() *evictionList {
	return &evictionList{
		order: list.New(),
		nodes: make(map[string]*list.Element),
	}
}

// Touch marks a key as most recently used, inserting it if new
func (l *evictionList) Touch(key string) {
	if el, ok := l.nodes[key]; ok {
		l.order.MoveToFront(el)
		return
	}
	l.nodes[key] = l.order.PushFront(key)
}

// Remove drops a key from the list
func (l *evictionList) Remove(key string) {
	if el, ok := l.nodes[key]; ok {
		l.order.Remove(el)
		delete(l.nodes, key)
	}
}

// Oldest returns the least recently used key, removing it. Empty list
// returns "".
func (l *evictionList) Oldest() string {
	back := l.order.Back()
	if back == nil {
		return ""
	}
	key := back.Value.(string)
	l.order.Remove(back)
	delete(l.nodes, key)
	return key
}

func (l *evictionList) Len() int {
	return l.order.Len()
}
