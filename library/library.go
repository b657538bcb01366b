// Package library persists named transformation specs in a local
// key-value store, so a service or CLI can save a spec once and apply
// it by name later.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var specsBucket = []byte("specs")

// Store is a durable map from spec name to spec document.
type Store struct {
	filename string
	db       *bolt.DB
}

// NewStore makes a Store for the given file.  Call Open before use.
func NewStore(filename string) *Store {
	return &Store{filename: filename}
}

// Open opens the backing file, creating it (and the specs bucket) if
// needed.
func (s *Store) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}
	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(specsBucket)
		return err
	}); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

// Close closes the backing file.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores spec under name, overwriting any previous version.
func (s *Store) Put(ctx context.Context, name string, spec interface{}) error {
	bs, err := json.Marshal(&spec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(specsBucket).Put([]byte(name), bs)
	})
}

// Get fetches the spec stored under name.
func (s *Store) Get(ctx context.Context, name string) (interface{}, error) {
	var spec interface{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(specsBucket).Get([]byte(name))
		if bs == nil {
			return fmt.Errorf("no spec named %q", name)
		}
		return json.Unmarshal(bs, &spec)
	})
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// Names lists the stored spec names in key order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	names := make([]string, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(specsBucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Delete removes the spec stored under name.  Removing an unknown
// name is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(specsBucket).Delete([]byte(name))
	})
}
