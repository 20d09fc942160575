package storage

import "errors"

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
)

// Storage is the interface for the underlying ordered key-value engine
// IndexedStore is built on.
type Storage interface {
	// Begin starts a new transaction. Read-only transactions see a
	// consistent snapshot for their whole lifetime.
	Begin(writable bool) (Transaction, error)

	Close() error

	// Sync flushes writes to stable storage.
	Sync() error
}

// Transaction represents a database transaction with snapshot isolation.
type Transaction interface {
	Get(table Table, key []byte) ([]byte, error)
	Set(table Table, key, value []byte) error
	Delete(table Table, key []byte) error

	// Scan iterates, in key order, over the keys within table that begin
	// with start; a nil start covers the whole table. A non-nil end stops
	// the scan before the first key >= end.
	Scan(table Table, start, end []byte) (Iterator, error)

	Commit() error
	Rollback() error
}

// Iterator iterates over key-value pairs within one table.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Close() error
}

// Table is a logical column family within the single underlying engine,
// implemented as a one-byte key prefix.
type Table byte

const (
	// TableID2Str is the content-addressed string table: StrHash -> string
	// payload, value-prefixed with an 8-byte big-endian refcount maintained by the
	// string table's merge operator.
	TableID2Str Table = iota

	// Default-graph-only indexes (3 permutations); populated only for
	// quads whose graph is the default graph, so default-graph-only scans
	// never need to filter out named-graph rows.
	TableSPO
	TablePOS
	TableOSP

	// Full quad indexes (6 permutations), covering every graph including
	// the default graph.
	TableSPOG
	TablePOSG
	TableOSPG
	TableGSPO
	TableGPOS
	TableGOSP

	// TableGraphs is the set of distinct named graph names currently in
	// use (an empty named graph still created by CREATE/LOAD INTO is
	// recorded here with no matching quads).
	TableGraphs

	TableCount
)

func (t Table) String() string {
	switch t {
	case TableID2Str:
		return "id2str"
	case TableSPO:
		return "spo"
	case TablePOS:
		return "pos"
	case TableOSP:
		return "osp"
	case TableSPOG:
		return "spog"
	case TablePOSG:
		return "posg"
	case TableOSPG:
		return "ospg"
	case TableGSPO:
		return "gspo"
	case TableGPOS:
		return "gpos"
	case TableGOSP:
		return "gosp"
	case TableGraphs:
		return "graphs"
	default:
		return "unknown"
	}
}

// TablePrefix returns the one-byte namespace prefix for a table.
func TablePrefix(table Table) []byte { return []byte{byte(table)} }

// PrefixKey prepends a table's namespace prefix to key.
func PrefixKey(table Table, key []byte) []byte {
	prefix := TablePrefix(table)
	out := make([]byte, len(prefix)+len(key))
	copy(out, prefix)
	copy(out[len(prefix):], key)
	return out
}
