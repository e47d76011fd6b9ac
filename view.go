package propstore

import (
	"fmt"
	"math"
	"strings"
)

// QualifiedKey joins a namespace and a bare key into the flat form "namespace:key".
func QualifiedKey(namespace, key string) string {
	return namespace + Delimiter + key
}

// SplitKey splits a qualified key at the first Delimiter.
// Keys may contain the delimiter; namespaces may not.
func SplitKey(qualified string) (namespace, key string, err error) {
	ns, k, ok := strings.Cut(qualified, Delimiter)
	if !ok || ns == "" || k == "" {
		return "", "", fmt.Errorf("%w: %q is not of the form namespace%skey", ErrMalformedEntry, qualified, Delimiter)
	}
	return ns, k, nil
}

// View is a namespace-scoped accessor over a Bucket. Keys passed to a View are
// bare; the namespace is implied.
//
// The empty key plays the role of a missing key: setters ignore it without
// error, getters return the default and HasKey reports false. Writes outside
// the bucket's dictionary fail with ErrKeyRejected.
type View struct {
	namespace string
	bucket    *Bucket
}

// Derive returns a view over the same bucket under another namespace prefix.
// Both views share entries storage and dictionary but each sees only the keys
// written under its own prefix. Deriving does not claim namespace.
func (v *View) Derive(namespace string) (*View, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	return &View{namespace: namespace, bucket: v.bucket}, nil
}

func (v *View) Namespace() string { return v.namespace }

// Bucket returns the backing bucket.
func (v *View) Bucket() *Bucket { return v.bucket }

// SetDictionary attaches d to the backing bucket.
func (v *View) SetDictionary(d *Dictionary) { v.bucket.SetDictionary(d) }

// AddToDictionary admits keys for writing.
func (v *View) AddToDictionary(keys ...string) { v.bucket.AddToDictionary(keys...) }

func (v *View) SetInt(key string, value int) error         { return Set(v, key, value) }
func (v *View) SetInt64(key string, value int64) error     { return Set(v, key, value) }
func (v *View) SetFloat64(key string, value float64) error { return Set(v, key, value) }
func (v *View) SetBool(key string, value bool) error       { return Set(v, key, value) }
func (v *View) SetString(key string, value string) error   { return Set(v, key, value) }

func (v *View) GetInt(key string, def int) int             { return Get(v, key, def) }
func (v *View) GetInt64(key string, def int64) int64       { return Get(v, key, def) }
func (v *View) GetFloat64(key string, def float64) float64 { return Get(v, key, def) }
func (v *View) GetBool(key string, def bool) bool          { return Get(v, key, def) }
func (v *View) GetString(key string, def string) string    { return Get(v, key, def) }

// Set encodes value and stores it under key. An int outside the 32-bit range
// fails with ErrValueOutOfRange.
func Set[T Primitive](v *View, key string, value T) error {
	if key == "" {
		return nil
	}
	if x, ok := any(value).(int); ok && (x < math.MinInt32 || x > math.MaxInt32) {
		return fmt.Errorf("%w: %d does not fit an int, use SetInt64", ErrValueOutOfRange, x)
	}
	_, _, err := v.bucket.setIn(v.namespace, key, Encode(value))
	return err
}

// Get returns the value under key decoded as T, or def when the key is empty,
// absent, or holds text that does not decode as T.
func Get[T Primitive](v *View, key string, def T) T {
	raw, ok := v.Lookup(key)
	if !ok {
		return def
	}
	out, err := Decode[T](raw)
	if err != nil {
		return def
	}
	return out
}

// Lookup returns the raw encoded value under key.
func (v *View) Lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	return v.bucket.getIn(v.namespace, key)
}

func (v *View) HasKey(key string) bool {
	_, ok := v.Lookup(key)
	return ok
}

// Remove deletes key and reports whether it was present.
func (v *View) Remove(key string) bool {
	if key == "" {
		return false
	}
	return v.bucket.removeIn(v.namespace, key)
}

// Keys returns the bare keys visible under this view's namespace, sorted.
func (v *View) Keys() []string {
	return v.bucket.keysIn(v.namespace)
}

// Entries returns a copy of this namespace's encoded entries.
func (v *View) Entries() map[string]string {
	e := v.bucket.entriesIn(v.namespace)
	if e == nil {
		e = make(map[string]string)
	}
	return e
}

// Format renders the entries as "key=value" pairs in key order joined by sep.
func (v *View) Format(sep string) string {
	entries := v.Entries()
	var sb strings.Builder
	for i, k := range sortedKeys(entries) {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(entries[k])
	}
	return sb.String()
}

func (v *View) String() string {
	return v.namespace + "{" + v.Format(", ") + "}"
}
