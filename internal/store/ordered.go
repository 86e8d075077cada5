package store

import "github.com/amirphl/alertdesk/internal/alert"

// ordered is a map that remembers insertion order. Overwriting an existing
// key keeps its position.
type ordered[V any] struct {
	keys  []alert.Key
	items map[alert.Key]V
}

func newOrdered[V any]() *ordered[V] {
	return &ordered[V]{items: make(map[alert.Key]V)}
}

func (o *ordered[V]) put(k alert.Key, v V) bool {
	_, exists := o.items[k]
	o.items[k] = v
	if !exists {
		o.keys = append(o.keys, k)
	}
	return !exists
}

func (o *ordered[V]) get(k alert.Key) (V, bool) {
	v, ok := o.items[k]
	return v, ok
}

func (o *ordered[V]) remove(k alert.Key) bool {
	if _, ok := o.items[k]; !ok {
		return false
	}
	delete(o.items, k)
	for i, key := range o.keys {
		if key == k {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

func (o *ordered[V]) len() int {
	return len(o.keys)
}

func (o *ordered[V]) values() []V {
	out := make([]V, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.items[k])
	}
	return out
}

// evictOldest drops the first n entries and returns their keys.
func (o *ordered[V]) evictOldest(n int) []alert.Key {
	if n <= 0 {
		return nil
	}
	if n > len(o.keys) {
		n = len(o.keys)
	}
	evicted := make([]alert.Key, n)
	copy(evicted, o.keys[:n])
	for _, k := range evicted {
		delete(o.items, k)
	}
	o.keys = append([]alert.Key(nil), o.keys[n:]...)
	return evicted
}

// missingFrom lists the keys of o that other does not hold, in o's order.
func (o *ordered[V]) missingFrom(other *ordered[V]) []alert.Key {
	var out []alert.Key
	for _, k := range o.keys {
		if _, ok := other.items[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
