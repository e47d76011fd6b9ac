package propstore

import (
	"errors"
	"fmt"
)

var (
	ErrKeyRejected             = errors.New("propstore: key rejected")
	ErrNamespaceAlreadyClaimed = errors.New("propstore: namespace already claimed")
	ErrInvalidNamespace        = errors.New("propstore: invalid namespace")
	ErrMalformedEntry          = errors.New("propstore: malformed entry")
	ErrNoDriver                = errors.New("propstore: no driver configured")
	ErrValueOutOfRange         = errors.New("propstore: value out of range")
	ErrUnencodable             = errors.New("propstore: text cannot be represented in the persisted form")
)

// KeyError reports a write that a bucket refused.
// It matches ErrKeyRejected with errors.Is.
type KeyError struct {
	Namespace string
	Key       string
	Reason    string
}

func (e *KeyError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("propstore: key %q rejected: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("propstore: key %q in namespace %q rejected: %s", e.Key, e.Namespace, e.Reason)
}

func (e *KeyError) Unwrap() error { return ErrKeyRejected }

// ClaimError reports a second claim on a namespace.
// It matches ErrNamespaceAlreadyClaimed with errors.Is.
type ClaimError struct {
	Namespace string
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("propstore: namespace %q has already been claimed by another caller", e.Namespace)
}

func (e *ClaimError) Unwrap() error { return ErrNamespaceAlreadyClaimed }

// PersistError wraps a failure while reading or writing the persisted form.
// Op is one of "read", "write", "load" or "save".
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("propstore: %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
