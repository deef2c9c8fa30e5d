// Package kvstore implements the persistent KV store (C8): a durable,
// process-safe key->value map used to hold each hook's last-seen
// serialised payload between polls. An embedded buntdb B-tree backs the
// store — the "ad-hoc shelf-style store" the original relied on is not
// essential given the expected cardinality of hooks (tens at most, per
// Design Notes).
package kvstore

import (
	"os"

	"github.com/tidwall/buntdb"
)

// Store is a durable, file-backed key->value map. Open it for the
// duration of one polling pass and Close it before releasing control.
type Store struct {
	db *buntdb.DB
}

// Open opens (creating if necessary) the store at path and ensures its
// mode carries no group/other read bit, matching §4.8.
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the store handle.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the raw stored value for key, or ok=false if absent.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	err = s.db.View(func(tx *buntdb.Tx) error {
		v, getErr := tx.Get(key)
		if getErr == buntdb.ErrNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		value, ok = v, true
		return nil
	})
	return
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, value, nil)
		return err
	})
}

// Delete removes key, treating an already-absent key as success.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
}
