// Package store persists snapshots of suspended evaluations in a bbolt
// database, keyed by sequence number.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"sandvm/pkg/snapshot"
)

const bucketSnapshots = "snapshots"

var ErrNoSnapshot = errors.New("no such snapshot")

// Entry is one stored snapshot together with its sequence number.
type Entry struct {
	Seq      int
	Snapshot snapshot.Snapshot
}

type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSnapshots))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores snap under the next sequence number and returns it.
func (s *Store) Put(snap snapshot.Snapshot) (int, error) {
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return 0, err
	}

	var seq uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketSnapshots))
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), data)
	})
	return int(seq), err
}

// Get returns the snapshot stored under seq.
func (s *Store) Get(seq int) (snapshot.Snapshot, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSnapshots)).Get(marshalSeq(uint64(seq)))
		if v == nil {
			return fmt.Errorf("%w: %d", ErrNoSnapshot, seq)
		}
		// v is only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return snapshot.Unmarshal(data)
}

// List returns every stored snapshot in sequence order.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketSnapshots)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			snap, err := snapshot.Unmarshal(v)
			if err != nil {
				return fmt.Errorf("snapshot %d: %w", unmarshalSeq(k), err)
			}
			entries = append(entries, Entry{Seq: int(unmarshalSeq(k)), Snapshot: snap})
		}
		return nil
	})
	return entries, err
}

// Delete removes the snapshot stored under seq. Deleting a missing snapshot is not an error.
func (s *Store) Delete(seq int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Delete(marshalSeq(uint64(seq)))
	})
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
