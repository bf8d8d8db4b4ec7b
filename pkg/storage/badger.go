package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage organization.
// Using single-byte prefixes for efficiency.
const (
	prefixIndividual = byte(0x01) // 0x01 + individualID -> JSON(Individual)
	prefixFamily     = byte(0x02) // 0x02 + familyID -> JSON(Family)
)

// BadgerStore is a persistent record store backed by BadgerDB.
//
// Features:
//   - ACID transactions for all operations
//   - Persistent storage to disk (or memory-only for tests)
//   - Thread-safe concurrent access
//   - Automatic crash recovery
//
// Key Structure:
//   - Individuals: 0x01 + individualID -> JSON(Individual)
//   - Families:    0x02 + familyID    -> JSON(Family)
//
// Example:
//
//	store, err := storage.NewBadgerStore(storage.BadgerOptions{DataDir: "./data"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex // protects closed
	closed bool
}

// BadgerOptions configures the BadgerDB record store.
type BadgerOptions struct {
	// DataDir is the directory for data files. Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode. Useful for testing;
	// data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool

	// Logger for BadgerDB internal logging. nil silences it.
	Logger badger.Logger
}

// NewBadgerStore opens (creating if necessary) a persistent record store.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	badgerOpts.InMemory = opts.InMemory
	badgerOpts.SyncWrites = opts.SyncWrites
	badgerOpts.Logger = opts.Logger
	if opts.InMemory {
		badgerOpts.Dir = ""
		badgerOpts.ValueDir = ""
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func individualKey(id IndividualID) []byte {
	return append([]byte{prefixIndividual}, id...)
}

func familyKey(id FamilyID) []byte {
	return append([]byte{prefixFamily}, id...)
}

// PutIndividual inserts or replaces an individual record.
func (s *BadgerStore) PutIndividual(indi *Individual) error {
	if indi == nil || indi.ID == "" {
		return ErrInvalidID
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(indi)
	if err != nil {
		return fmt.Errorf("marshal individual %s: %w", indi.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(individualKey(indi.ID), data)
	})
}

// PutFamily inserts or replaces a family record.
func (s *BadgerStore) PutFamily(fam *Family) error {
	if fam == nil || fam.ID == "" {
		return ErrInvalidID
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(fam)
	if err != nil {
		return fmt.Errorf("marshal family %s: %w", fam.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(familyKey(fam.ID), data)
	})
}

// GetIndividual returns the individual with the given id, or ErrNotFound.
func (s *BadgerStore) GetIndividual(id IndividualID) (*Individual, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var indi Individual
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(individualKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &indi)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &indi, nil
}

// GetFamily returns the family with the given id, or ErrNotFound.
func (s *BadgerStore) GetFamily(id FamilyID) (*Family, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var fam Family
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(familyKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &fam)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fam, nil
}

// Individuals returns all individual records, ordered by key.
func (s *BadgerStore) Individuals() ([]*Individual, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []*Individual
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{prefixIndividual}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var indi Individual
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &indi)
			})
			if err != nil {
				return err
			}
			out = append(out, &indi)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Families returns all family records, ordered by key.
func (s *BadgerStore) Families() ([]*Family, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []*Family
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{prefixFamily}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var fam Family
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &fam)
			})
			if err != nil {
				return err
			}
			out = append(out, &fam)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IndividualCount returns the number of individual records.
func (s *BadgerStore) IndividualCount() (int64, error) {
	return s.countPrefix(prefixIndividual)
}

// FamilyCount returns the number of family records.
func (s *BadgerStore) FamilyCount() (int64, error) {
	return s.countPrefix(prefixFamily)
}

func (s *BadgerStore) countPrefix(prefix byte) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		p := []byte{prefix}
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close shuts down the underlying BadgerDB instance.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}
