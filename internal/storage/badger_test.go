package storage

import (
	"bytes"
	"testing"
)

func TestBadgerStorageSetGetDelete(t *testing.T) {
	s, err := NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()

	txn, err := s.Begin(true)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := txn.Set(TableSPO, []byte("key1"), []byte("value1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn, err = s.Begin(false)
	if err != nil {
		t.Fatalf("begin read: %v", err)
	}
	defer txn.Rollback()

	val, err := txn.Get(TableSPO, []byte("key1"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(val, []byte("value1")) {
		t.Errorf("expected value1, got %s", val)
	}

	if _, err := txn.Get(TablePOS, []byte("key1")); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for a different table, got %v", err)
	}
}

func TestBadgerStorageScanIsPrefixIsolated(t *testing.T) {
	s, err := NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()

	txn, err := s.Begin(true)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := txn.Set(TableSPO, []byte("a"), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := txn.Set(TableSPO, []byte("b"), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := txn.Set(TablePOS, []byte("a"), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	txn, err = s.Begin(false)
	if err != nil {
		t.Fatalf("begin read: %v", err)
	}
	defer txn.Rollback()

	it, err := txn.Scan(TableSPO, nil, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys in spo table, got %v", keys)
	}
}

func TestBadgerTransactionReadOnlyRejectsWrites(t *testing.T) {
	s, err := NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()

	txn, err := s.Begin(false)
	if err != nil {
		t.Fatalf("begin read: %v", err)
	}
	defer txn.Rollback()

	if err := txn.Set(TableSPO, []byte("key"), []byte("value")); err != ErrTransactionRO {
		t.Errorf("expected ErrTransactionRO, got %v", err)
	}
}
