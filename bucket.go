package propstore

import (
	"maps"
	"slices"
	"sync"
)

// Delimiter separates a namespace from a key in the flat persisted form.
const Delimiter = ":"

// Bucket holds the encoded entries of one namespace.
//
// Entries are partitioned by the namespace prefix that wrote them. The home
// partition belongs to the namespace the bucket was created for; views derived
// with View.Derive write to their own partition of the same bucket, so each
// view only sees its own keys. Bucket methods address the home partition.
//
// All operations are safe for concurrent use.
type Bucket struct {
	home string
	ins  *instruments

	mu    sync.RWMutex
	parts map[string]map[string]string
	dict  *Dictionary
}

func newBucket(namespace string, ins *instruments) *Bucket {
	return &Bucket{
		home:  namespace,
		ins:   ins,
		parts: make(map[string]map[string]string),
	}
}

// Namespace returns the namespace the bucket was created for.
func (b *Bucket) Namespace() string { return b.home }

// SetDictionary replaces the allow-list. Keys already stored are kept
// even if the new dictionary would not admit them.
func (b *Bucket) SetDictionary(d *Dictionary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dict = d
}

// AddToDictionary admits keys, creating the dictionary on first use.
func (b *Bucket) AddToDictionary(keys ...string) {
	b.mu.Lock()
	if b.dict == nil {
		b.dict = NewDictionary()
	}
	d := b.dict
	b.mu.Unlock()
	d.Add(keys...)
}

// Dictionary returns the attached dictionary, or nil.
func (b *Bucket) Dictionary() *Dictionary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dict
}

// Set stores an encoded value and returns the previous one, if any.
// The empty key and keys outside a non-empty dictionary fail with ErrKeyRejected;
// in that case nothing is written.
func (b *Bucket) Set(key, encoded string) (string, bool, error) {
	return b.setIn(b.home, key, encoded)
}

func (b *Bucket) Get(key string) (string, bool) {
	return b.getIn(b.home, key)
}

// Remove deletes key and reports whether it was present.
func (b *Bucket) Remove(key string) bool {
	return b.removeIn(b.home, key)
}

// Keys returns the bare keys of the home partition, sorted.
func (b *Bucket) Keys() []string {
	return b.keysIn(b.home)
}

func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.parts[b.home])
}

func (b *Bucket) setIn(ns, key, encoded string) (string, bool, error) {
	if key == "" {
		b.ins.keyRejected(ns, key, "empty key")
		return "", false, &KeyError{Namespace: ns, Key: key, Reason: "empty key"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dict.Allows(key) {
		b.ins.keyRejected(ns, key, "not in dictionary")
		return "", false, &KeyError{Namespace: ns, Key: key, Reason: "not in dictionary"}
	}

	part, ok := b.parts[ns]
	if !ok {
		part = make(map[string]string)
		b.parts[ns] = part
	}
	prev, existed := part[key]
	part[key] = encoded
	return prev, existed, nil
}

// put writes without consulting the dictionary. It is used when restoring
// persisted entries, since dictionaries are not part of the persisted form.
func (b *Bucket) put(ns, key, encoded string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	part, ok := b.parts[ns]
	if !ok {
		part = make(map[string]string)
		b.parts[ns] = part
	}
	part[key] = encoded
}

func (b *Bucket) getIn(ns, key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.parts[ns][key]
	return v, ok
}

func (b *Bucket) removeIn(ns, key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	part := b.parts[ns]
	if _, ok := part[key]; !ok {
		return false
	}
	delete(part, key)
	return true
}

func (b *Bucket) keysIn(ns string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := slices.Collect(maps.Keys(b.parts[ns]))
	slices.Sort(keys)
	return keys
}

func (b *Bucket) entriesIn(ns string) map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.parts[ns])
}

// flatten copies every partition into dst under qualified keys.
func (b *Bucket) flatten(dst map[string]string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ns, part := range b.parts {
		for k, v := range part {
			dst[QualifiedKey(ns, k)] = v
		}
	}
}

func (b *Bucket) clone(ins *instruments) *Bucket {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c := newBucket(b.home, ins)
	for ns, part := range b.parts {
		c.parts[ns] = maps.Clone(part)
	}
	if b.dict != nil {
		c.dict = NewDictionary(b.dict.Keys()...)
	}
	return c
}
