package store

import "sync"

// keyPool provides reusable byte slices for building database keys.
var keyPool = sync.Pool{
	New: func() any {
		// Prefix, "idx:", index name and a 21 character nanoid fit comfortably.
		return make([]byte, 0, 128)
	},
}

// buildKey concatenates prefix and suffix into a pooled buffer.
// Callers must call releaseKey when done with the key.
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	return append(buf, suffix...)
}

// buildIndexKey builds "<prefix>idx:<name>:<value>" into a pooled buffer.
// Callers must call releaseKey when done with the key.
func buildIndexKey(prefix, indexName, value string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	buf = append(buf, "idx:"...)
	buf = append(buf, indexName...)
	buf = append(buf, ':')
	return append(buf, value...)
}

// releaseKey returns a key buffer to the pool. The slice must not be used
// afterwards. Pooled keys are for lookups only: txn.Set and txn.Delete keep
// a reference to their key until the transaction commits.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
