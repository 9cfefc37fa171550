// Package store provides the namespaced key-value persistence layer shared
// by the ledger and restock services. Records are opaque JSON documents; all
// validation happens above this layer.
package store

import "context"

// Entry is one record returned by a prefix scan.
type Entry struct {
	Namespace string
	Key       string
	Record    []byte
}

// Store is a namespaced key-value store. Put overwrites the whole record and
// is all-or-nothing. ScanPrefix returns every record whose namespace starts
// with the given prefix, in insertion order.
type Store interface {
	Get(ctx context.Context, namespace, key string) (record []byte, ok bool, err error)
	Put(ctx context.Context, namespace, key string, record []byte) error
	Delete(ctx context.Context, namespace, key string) (ok bool, err error)
	ScanPrefix(ctx context.Context, namespacePrefix string) ([]Entry, error)
}
