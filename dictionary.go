package propstore

import (
	"slices"
	"sync"
)

// Dictionary is an allow-list of key names. An empty Dictionary allows every key;
// a non-empty one allows exactly its members. Matching is exact: case and
// whitespace are significant. Dictionaries only restrict writes.
// The zero value is an empty Dictionary ready to use.
type Dictionary struct {
	mu      sync.RWMutex
	allowed map[string]struct{}
}

// NewDictionary creates a Dictionary holding keys.
func NewDictionary(keys ...string) *Dictionary {
	d := &Dictionary{allowed: make(map[string]struct{}, len(keys))}
	d.Add(keys...)
	return d
}

// Add admits keys. There is no way to remove a key once added.
func (d *Dictionary) Add(keys ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.allowed == nil {
		d.allowed = make(map[string]struct{}, len(keys))
	}
	for _, k := range keys {
		d.allowed[k] = struct{}{}
	}
}

// Allows reports whether key may be written.
// A nil or empty Dictionary allows everything.
func (d *Dictionary) Allows(key string) bool {
	if d == nil {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.allowed) == 0 {
		return true
	}
	_, ok := d.allowed[key]
	return ok
}

// Keys returns the members in sorted order.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.allowed))
	for k := range d.allowed {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.allowed)
}
