package store

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkwellpress/inkwell/internal/errors"
)

// Entity provides generic CRUD operations for a record type stored as JSON
// under a key prefix.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index is a unique secondary index. keyGen may return no keys, in which
// case the record is not indexed.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates an Entity for records under prefix.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix}
}

// WithIndex adds a unique secondary index.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// Create stores a new record. It returns ErrAlreadyExists if id or any of
// its index keys is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", e.kind(), err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		lookup := buildKey(e.prefix, id)
		_, err := txn.Get(lookup)
		releaseKey(lookup)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		if err := e.checkIndexes(txn, record, nil); err != nil {
			return err
		}
		if err := txn.Set(e.key(id), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		return e.writeIndexes(txn, id, record)
	})
}

// Get retrieves a record by ID. It returns ErrNotFound if absent.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record T
	err := e.store.db.View(func(txn *badger.Txn) error {
		key := buildKey(e.prefix, id)
		defer releaseKey(key)

		return e.read(txn, key, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByIndex retrieves the record holding value in the named index.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record T
	err := e.store.db.View(func(txn *badger.Txn) error {
		idxKey := buildIndexKey(e.prefix, indexName, value)
		defer releaseKey(idxKey)

		item, err := txn.Get(idxKey)
		if err != nil {
			return notFound(err)
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		key := buildKey(e.prefix, string(id))
		defer releaseKey(key)
		return e.read(txn, key, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Update replaces an existing record and moves its index keys.
// It returns ErrNotFound if the record does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", e.kind(), err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		key := e.key(id)

		var old T
		if err := e.read(txn, key, &old); err != nil {
			return err
		}
		if err := e.deleteIndexes(txn, &old); err != nil {
			return err
		}
		if err := e.checkIndexes(txn, record, &old); err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		return e.writeIndexes(txn, id, record)
	})
}

// Delete removes a record and its index keys. Deleting a missing record is
// not an error.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		key := e.key(id)

		var old T
		if err := e.read(txn, key, &old); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if err := e.deleteIndexes(txn, &old); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// List returns an iterator over all records in key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				if strings.HasPrefix(string(it.Item().Key()[len(e.prefix):]), "idx:") {
					continue
				}

				var record T
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &record)
				}); err != nil {
					yield(nil, err)
					return err
				}
				if !yield(&record, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

func (e *Entity[T]) read(txn *badger.Txn, key []byte, dest *T) error {
	item, err := txn.Get(key)
	if err != nil {
		return notFound(err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, dest); err != nil {
			return fmt.Errorf("failed to unmarshal %s record: %w", e.kind(), err)
		}
		return nil
	})
}

// checkIndexes fails if record would take an index key held by another
// record. Keys also held by old are free.
func (e *Entity[T]) checkIndexes(txn *badger.Txn, record, old *T) error {
	for _, idx := range e.indexes {
		var held []string
		if old != nil {
			held = idx.keyGen(old)
		}
		for _, value := range idx.keyGen(record) {
			if slices.Contains(held, value) {
				continue
			}
			idxKey := buildIndexKey(e.prefix, idx.name, value)
			_, err := txn.Get(idxKey)
			releaseKey(idxKey)
			if err == nil {
				return errors.Wrapf(ErrAlreadyExists, errors.CodeConflict, "%s %s %q is taken", e.kind(), idx.name, value)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) writeIndexes(txn *badger.Txn, id string, record *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(record) {
			if err := txn.Set(e.indexKey(idx.name, value), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) deleteIndexes(txn *badger.Txn, record *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(record) {
			if err := txn.Delete(e.indexKey(idx.name, value)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}

// key and indexKey allocate; Set and Delete hold their key until commit.
func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

func (e *Entity[T]) kind() string {
	return strings.TrimSuffix(e.prefix, ":")
}
