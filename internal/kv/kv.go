// Package kv defines the minimal key-value contract the service persists through.
// The engine behind it is an external concern; the rest of the code only ever
// sees get/set/mget/del over opaque values.
package kv

// Store is the persistence collaborator contract. A missing key is reported as
// a nil value, not an error. Writes are last-write-wins; no transactions are
// assumed.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	// MGet returns one entry per requested key, nil for keys that are absent.
	MGet(keys []string) ([][]byte, error)
	Del(key string) error
	Close() error
}
