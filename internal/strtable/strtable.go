// Package strtable implements StringStore: the content-addressed string
// table backing TermCodec's Big* variants. Every entry is refcounted —
// inserting the same string from two different quads bumps the count
// instead of writing a duplicate, and the string is only actually removed
// once its count drops to zero — so that deleting one quad never breaks a
// string another surviving quad still points to by hash.
//
// Refcounts are maintained with Badger's native MergeOperator rather than a
// read-modify-write transaction: Insert/Remove submit a signed delta, and
// Badger folds concurrent deltas for the same hash associatively, so
// concurrent writers referencing or releasing the same string never race
// each other's refcount update.
package strtable

import (
	"encoding/binary"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/singleflight"
)

// mergeWindow bounds how long a MergeOperator batches pending deltas for a
// given hash before folding them into the stored value. Kept short because
// StringStore creates one MergeOperator per call rather than holding a
// long-lived one per hash (the keyspace is effectively unbounded, one
// background goroutine per distinct string ever seen is not viable).
const mergeWindow = 10 * time.Millisecond

// StringStore maps a content hash to the string it was computed from, with
// an associative refcount merged in alongside it.
type StringStore struct {
	db    *badger.DB
	group singleflight.Group
}

func NewStringStore(db *badger.DB) *StringStore {
	return &StringStore{db: db}
}

// Insert records one more reference to content under hash. Safe to call
// concurrently for the same hash from independent transactions: the
// refcount delta is applied via merge, not a read-modify-write.
func (s *StringStore) Insert(hash []byte, content string) error {
	op := s.db.GetMergeOperator(hash, mergeRefcount, mergeWindow)
	defer op.Stop()

	if err := op.Add(encodeEntry(1, content)); err != nil {
		return fmt.Errorf("strtable: insert %x: %w", hash, err)
	}
	return nil
}

// Remove drops one reference to the string stored under hash, deleting the
// entry outright once the refcount reaches zero.
func (s *StringStore) Remove(hash []byte) error {
	op := s.db.GetMergeOperator(hash, mergeRefcount, mergeWindow)
	merged, err := op.Get()
	if err != nil && err != badger.ErrKeyNotFound {
		op.Stop()
		return fmt.Errorf("strtable: remove %x: %w", hash, err)
	}
	if err := op.Add(encodeEntry(-1, "")); err != nil {
		op.Stop()
		return fmt.Errorf("strtable: remove %x: %w", hash, err)
	}
	merged, err = op.Get()
	op.Stop()
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return fmt.Errorf("strtable: remove %x: %w", hash, err)
	}

	count, _ := decodeEntry(merged)
	if count <= 0 {
		return s.db.Update(func(txn *badger.Txn) error {
			err := txn.Delete(hash)
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		})
	}
	return nil
}

// Get resolves hash to its interned string. Concurrent duplicate lookups
// for the same hash are collapsed into a single Badger read.
func (s *StringStore) Get(hash []byte) (string, bool, error) {
	v, err, _ := s.group.Do(string(hash), func() (interface{}, error) {
		var value []byte
		err := s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get(hash)
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				value = append([]byte{}, val...)
				return nil
			})
		})
		return value, err
	})
	if err == badger.ErrKeyNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("strtable: get %x: %w", hash, err)
	}
	_, content := decodeEntry(v.([]byte))
	return content, true, nil
}

// Contains reports whether hash currently has a non-zero refcount.
func (s *StringStore) Contains(hash []byte) (bool, error) {
	_, ok, err := s.Get(hash)
	return ok, err
}

// encodeEntry packs a refcount delta and (optionally empty) content into
// the merge operator's wire format: 8-byte big-endian signed delta,
// followed by the content bytes. An empty content means "apply the delta,
// keep whatever content is already stored" (used by Remove, which never
// needs to resupply the string).
func encodeEntry(delta int64, content string) []byte {
	buf := make([]byte, 8+len(content))
	binary.BigEndian.PutUint64(buf[:8], uint64(delta)) // #nosec G115 -- signed/unsigned bit-pattern round trip
	copy(buf[8:], content)
	return buf
}

func decodeEntry(buf []byte) (count int64, content string) {
	if len(buf) < 8 {
		return 0, ""
	}
	count = int64(binary.BigEndian.Uint64(buf[:8])) // #nosec G115
	return count, string(buf[8:])
}

// mergeRefcount folds two entries: refcounts add, and the incoming
// content (if non-empty) wins, so a Remove's empty-content delta never
// clobbers the string a prior Insert recorded.
func mergeRefcount(existing, incoming []byte) []byte {
	existingCount, existingContent := decodeEntry(existing)
	incomingCount, incomingContent := decodeEntry(incoming)

	content := existingContent
	if incomingContent != "" {
		content = incomingContent
	}
	return encodeEntry(existingCount+incomingCount, content)
}
