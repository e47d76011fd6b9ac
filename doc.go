// Package propstore provides a namespaced, type-checked property store.
//
// # Overview
//
// A Store maps namespace names to Buckets of string-encoded values. Callers
// claim a namespace to obtain a View over its bucket; a namespace can be
// claimed exactly once for the lifetime of the Store, even under concurrent
// claims. Views read and write typed primitives (int, int64, float64, bool,
// string), which are kept in a canonical text form shared with the persisted
// document.
//
// # Quick Start
//
//	store := propstore.New()
//
//	ns, err := store.Claim("NS1")
//	if err != nil {
//	    // errors.Is(err, propstore.ErrNamespaceAlreadyClaimed)
//	}
//	_ = ns.SetInt("INT", 1322)
//	_ = ns.SetString("STRING", "hey")
//
//	ns.GetInt("INT", -1)     // 1322
//	ns.GetInt("missing", -1) // -1
//	ns.GetInt("STRING", -1)  // -1, the text does not decode as an int
//
// # Dictionaries
//
// A bucket may carry a Dictionary. When it is non-empty, only its members may
// be written; other keys fail with ErrKeyRejected and nothing is stored. Reads
// are never restricted.
//
//	ns.AddToDictionary("SUPERKEY")
//	err = ns.SetInt("notindictionary", 12) // errors.Is(err, propstore.ErrKeyRejected)
//
// # Empty keys
//
// The empty key is treated as absent: setters silently ignore it, getters
// return the default, and HasKey reports false. Bucket.Set, the lower-level
// write path, rejects it with ErrKeyRejected.
//
// # Persistence
//
// Store.Write and Store.Read exchange a flat document of qualified keys
// ("namespace:key") and encoded values, either as java.util.Properties XML or
// YAML. Store.Save and Store.Load do the same through a Driver: Memory,
// FileDriver, or the SQLite driver in the sqlitedriver package. Dictionaries
// are not persisted.
//
//	store := propstore.New(propstore.WithDriver(propstore.NewFileDriver("props.xml", propstore.DocumentOptions{})))
//	if err := store.Load(ctx); err != nil {
//	    var pe *propstore.PersistError
//	    // errors.As(err, &pe)
//	}
//
// # Thread Safety
//
// All Store, Bucket and View operations are safe for concurrent use.
package propstore
