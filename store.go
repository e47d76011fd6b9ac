package propstore

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v4"
)

// Option customizes Store behavior.
type Option func(*Store)

// WithDriver specifies the backend used by Load and Save.
func WithDriver(d Driver) Option {
	return func(s *Store) {
		if d != nil {
			s.driver = d
		}
	}
}

// WithLogger specifies a logger for operation logging.
// If not provided, a no-op logger is used (no logging).
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.ins.logger = logger
		}
	}
}

// WithLogTag sets a tag prefix for all log messages.
// Useful for identifying the source of logs in multi-store scenarios.
func WithLogTag(tag string) Option {
	return func(s *Store) {
		s.ins.logTag = tag
	}
}

// WithMetrics registers the store's Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Store) {
		if reg != nil {
			s.ins.metrics = newMetrics(reg)
		}
	}
}

// Store is a registry of namespaced buckets. Each namespace can be claimed
// exactly once for the lifetime of the store; there is no release.
//
// A Store is safe for concurrent use.
type Store struct {
	claimed *xsync.Map[string, struct{}]
	buckets *xsync.Map[string, *Bucket]
	driver  Driver
	ins     *instruments
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		claimed: xsync.NewMap[string, struct{}](),
		buckets: xsync.NewMap[string, *Bucket](),
		ins:     &instruments{logger: defaultLogger},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateNamespace reports whether ns can be used as a namespace name.
// Namespaces are non-empty and may not contain Delimiter.
func ValidateNamespace(ns string) error {
	if ns == "" || strings.Contains(ns, Delimiter) {
		return ErrInvalidNamespace
	}
	return nil
}

// Claim grants the caller exclusive ownership of namespace and returns a View
// over its bucket. Only the first claim of a namespace succeeds; every later
// claim, from any goroutine, fails with ErrNamespaceAlreadyClaimed.
//
// A bucket restored by Load before the claim is handed out with its entries.
func (s *Store) Claim(namespace string) (*View, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	// LoadOrStore is the single test-and-set; losing callers never touch the bucket map.
	if _, loaded := s.claimed.LoadOrStore(namespace, struct{}{}); loaded {
		s.ins.claim(namespace, false)
		return nil, &ClaimError{Namespace: namespace}
	}

	b := s.bucket(namespace)
	s.ins.claim(namespace, true)
	return &View{namespace: namespace, bucket: b}, nil
}

// IsClaimed reports whether namespace has been claimed.
func (s *Store) IsClaimed(namespace string) bool {
	_, ok := s.claimed.Load(namespace)
	return ok
}

// Namespaces returns the names of all buckets, claimed or not, sorted.
func (s *Store) Namespaces() []string {
	names := make([]string, 0, s.buckets.Size())
	s.buckets.Range(func(ns string, _ *Bucket) bool {
		names = append(names, ns)
		return true
	})
	slices.Sort(names)
	return names
}

func (s *Store) bucket(namespace string) *Bucket {
	b, _ := s.buckets.LoadOrCompute(namespace, func() (*Bucket, bool) {
		return newBucket(namespace, s.ins), false
	})
	return b
}

// Snapshot returns every entry of every bucket keyed by its qualified key
// ("namespace:key"). Buckets are visited in name order, so when a derived view
// wrote a prefix that also has its own bucket, the later bucket wins.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string)
	for _, ns := range s.Namespaces() {
		if b, ok := s.buckets.Load(ns); ok {
			b.flatten(out)
		}
	}
	return out
}

// Restore merges qualified entries into the store. Unknown namespaces get new
// buckets without a dictionary; existing buckets, claimed or not, are updated in
// place. Claim state is never changed. On a malformed key nothing is written.
func (s *Store) Restore(entries map[string]string) error {
	type triple struct{ ns, key, value string }
	parsed := make([]triple, 0, len(entries))
	for qk, v := range entries {
		ns, key, err := SplitKey(qk)
		if err != nil {
			return err
		}
		parsed = append(parsed, triple{ns, key, v})
	}
	for _, t := range parsed {
		s.bucket(t.ns).put(t.ns, t.key, t.value)
	}
	return nil
}

// Clone returns an independent deep copy of the store's buckets and dictionaries.
// The copy starts with no claims, so callers can snapshot a store before a
// destructive operation and claim namespaces from the copy.
func (s *Store) Clone() *Store {
	c := &Store{
		claimed: xsync.NewMap[string, struct{}](),
		buckets: xsync.NewMap[string, *Bucket](),
		driver:  s.driver,
		ins:     s.ins,
	}
	s.buckets.Range(func(ns string, b *Bucket) bool {
		c.buckets.Store(ns, b.clone(c.ins))
		return true
	})
	return c
}

// Load reads the configured driver and merges its entries with Restore.
func (s *Store) Load(ctx context.Context) error {
	if s.driver == nil {
		return ErrNoDriver
	}
	entries, err := s.driver.Load(ctx)
	if err == nil {
		err = s.Restore(entries)
	}
	if err != nil {
		err = wrapPersist("load", err)
	}
	s.ins.persisted(ctx, "load", len(entries), err)
	return err
}

// Save writes a Snapshot through the configured driver.
func (s *Store) Save(ctx context.Context) error {
	if s.driver == nil {
		return ErrNoDriver
	}
	snap := s.Snapshot()
	err := s.driver.Save(ctx, snap)
	if err != nil {
		err = wrapPersist("save", err)
	}
	s.ins.persisted(ctx, "save", len(snap), err)
	return err
}

func sortedKeys(m map[string]string) []string {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}
