// Package store implements TripleStore: the six-plus-three ordered-index
// engine that turns a Storage (an ordered key-value byte-range scanner) into
// a quad store with pattern matching. Every quad is written into whichever
// of the nine permutation indexes apply to it (three default-graph-only
// permutations plus six all-graph permutations), so that any bound subset of
// {subject, predicate, object, graph} can be answered by a single ordered
// range scan instead of a full-table filter.
package store

import (
	"fmt"

	"github.com/quadstore/trigo/internal/codec"
	"github.com/quadstore/trigo/internal/storage"
	"github.com/quadstore/trigo/internal/strtable"
	"github.com/quadstore/trigo/pkg/rdf"
)

// TripleStore is the quad store built over a Storage engine. It owns term
// encoding/decoding and string interning; callers never see an EncodedTerm.
type TripleStore struct {
	storage storage.Storage
	strings *strtable.StringStore
	encoder *codec.Encoder
	decoder *codec.Decoder
}

// NewTripleStore wires a Storage engine and its companion string table into
// a ready-to-use quad store.
func NewTripleStore(store storage.Storage, strings *strtable.StringStore) *TripleStore {
	return &TripleStore{
		storage: store,
		strings: strings,
		encoder: codec.NewEncoder(),
		decoder: codec.NewDecoder(),
	}
}

func (s *TripleStore) Close() error { return s.storage.Close() }

// InsertTriple inserts a triple into the default graph.
func (s *TripleStore) InsertTriple(t *rdf.Triple) error {
	return s.InsertQuad(rdf.NewQuad(t.Subject, t.Predicate, t.Object, rdf.NewDefaultGraph()))
}

// InsertQuad inserts a single quad in its own transaction.
func (s *TripleStore) InsertQuad(q *rdf.Quad) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return fmt.Errorf("store: begin insert transaction: %w", err)
	}
	if err := s.insertQuadInTxn(txn, q); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit()
}

// InsertQuadsBatch inserts every quad in one transaction, so a caller
// loading a large document (LOAD, INSERT DATA) pays for one commit instead
// of one per quad.
func (s *TripleStore) InsertQuadsBatch(quads []*rdf.Quad) error {
	if len(quads) == 0 {
		return nil
	}
	txn, err := s.storage.Begin(true)
	if err != nil {
		return fmt.Errorf("store: begin batch insert transaction: %w", err)
	}
	for _, q := range quads {
		if err := s.insertQuadInTxn(txn, q); err != nil {
			txn.Rollback()
			return err
		}
	}
	return txn.Commit()
}

func (s *TripleStore) insertQuadInTxn(txn storage.Transaction, q *rdf.Quad) error {
	subj, subjStr, err := s.encoder.EncodeTerm(q.Subject)
	if err != nil {
		return fmt.Errorf("store: encode subject: %w", err)
	}
	pred, predStr, err := s.encoder.EncodeTerm(q.Predicate)
	if err != nil {
		return fmt.Errorf("store: encode predicate: %w", err)
	}
	obj, objStr, err := s.encoder.EncodeTerm(q.Object)
	if err != nil {
		return fmt.Errorf("store: encode object: %w", err)
	}
	graph, graphStr, err := s.encoder.EncodeTerm(q.Graph)
	if err != nil {
		return fmt.Errorf("store: encode graph: %w", err)
	}

	for _, pair := range []struct {
		enc codec.EncodedTerm
		str *string
	}{{subj, subjStr}, {pred, predStr}, {obj, objStr}, {graph, graphStr}} {
		if pair.str != nil {
			if err := s.strings.Insert(pair.enc.Payload(), *pair.str); err != nil {
				return fmt.Errorf("store: intern term string: %w", err)
			}
		}
	}

	_, isDefaultGraph := q.Graph.(*rdf.DefaultGraph)
	if isDefaultGraph {
		if err := setIndex(txn, storage.TableSPO, subj, pred, obj); err != nil {
			return err
		}
		if err := setIndex(txn, storage.TablePOS, pred, obj, subj); err != nil {
			return err
		}
		if err := setIndex(txn, storage.TableOSP, obj, subj, pred); err != nil {
			return err
		}
	} else {
		if err := txn.Set(storage.TableGraphs, graph[:], nil); err != nil {
			return fmt.Errorf("store: record graph name: %w", err)
		}
	}

	if err := setIndex(txn, storage.TableSPOG, subj, pred, obj, graph); err != nil {
		return err
	}
	if err := setIndex(txn, storage.TablePOSG, pred, obj, subj, graph); err != nil {
		return err
	}
	if err := setIndex(txn, storage.TableOSPG, obj, subj, pred, graph); err != nil {
		return err
	}
	if err := setIndex(txn, storage.TableGSPO, graph, subj, pred, obj); err != nil {
		return err
	}
	if err := setIndex(txn, storage.TableGPOS, graph, pred, obj, subj); err != nil {
		return err
	}
	if err := setIndex(txn, storage.TableGOSP, graph, obj, subj, pred); err != nil {
		return err
	}
	return nil
}

func setIndex(txn storage.Transaction, table storage.Table, terms ...codec.EncodedTerm) error {
	key := codec.EncodeQuadKey(terms...)
	if err := txn.Set(table, key, nil); err != nil {
		return fmt.Errorf("store: write %s index: %w", table, err)
	}
	return nil
}

// DeleteTriple deletes a triple from the default graph.
func (s *TripleStore) DeleteTriple(t *rdf.Triple) error {
	return s.DeleteQuad(rdf.NewQuad(t.Subject, t.Predicate, t.Object, rdf.NewDefaultGraph()))
}

// DeleteQuad deletes a single quad in its own transaction. Deleting a quad
// that isn't present is not an error (SPARQL DELETE DATA semantics).
func (s *TripleStore) DeleteQuad(q *rdf.Quad) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return fmt.Errorf("store: begin delete transaction: %w", err)
	}
	if err := s.deleteQuadInTxn(txn, q); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit()
}

// DeleteQuadsBatch deletes every quad in one transaction.
func (s *TripleStore) DeleteQuadsBatch(quads []*rdf.Quad) error {
	if len(quads) == 0 {
		return nil
	}
	txn, err := s.storage.Begin(true)
	if err != nil {
		return fmt.Errorf("store: begin batch delete transaction: %w", err)
	}
	for _, q := range quads {
		if err := s.deleteQuadInTxn(txn, q); err != nil {
			txn.Rollback()
			return err
		}
	}
	return txn.Commit()
}

func (s *TripleStore) deleteQuadInTxn(txn storage.Transaction, q *rdf.Quad) error {
	subj, subjStr, err := s.encoder.EncodeTerm(q.Subject)
	if err != nil {
		return fmt.Errorf("store: encode subject: %w", err)
	}
	pred, predStr, err := s.encoder.EncodeTerm(q.Predicate)
	if err != nil {
		return fmt.Errorf("store: encode predicate: %w", err)
	}
	obj, objStr, err := s.encoder.EncodeTerm(q.Object)
	if err != nil {
		return fmt.Errorf("store: encode object: %w", err)
	}
	graph, graphStr, err := s.encoder.EncodeTerm(q.Graph)
	if err != nil {
		return fmt.Errorf("store: encode graph: %w", err)
	}

	if _, err := txn.Get(storage.TableSPOG, codec.EncodeQuadKey(subj, pred, obj, graph)); err == storage.ErrNotFound {
		return nil
	} else if err != nil {
		return fmt.Errorf("store: lookup quad: %w", err)
	}

	_, isDefaultGraph := q.Graph.(*rdf.DefaultGraph)
	if isDefaultGraph {
		if err := delIndex(txn, storage.TableSPO, subj, pred, obj); err != nil {
			return err
		}
		if err := delIndex(txn, storage.TablePOS, pred, obj, subj); err != nil {
			return err
		}
		if err := delIndex(txn, storage.TableOSP, obj, subj, pred); err != nil {
			return err
		}
	}

	if err := delIndex(txn, storage.TableSPOG, subj, pred, obj, graph); err != nil {
		return err
	}
	if err := delIndex(txn, storage.TablePOSG, pred, obj, subj, graph); err != nil {
		return err
	}
	if err := delIndex(txn, storage.TableOSPG, obj, subj, pred, graph); err != nil {
		return err
	}
	if err := delIndex(txn, storage.TableGSPO, graph, subj, pred, obj); err != nil {
		return err
	}
	if err := delIndex(txn, storage.TableGPOS, graph, pred, obj, subj); err != nil {
		return err
	}
	if err := delIndex(txn, storage.TableGOSP, graph, obj, subj, pred); err != nil {
		return err
	}

	for _, pair := range []struct {
		enc codec.EncodedTerm
		str *string
	}{{subj, subjStr}, {pred, predStr}, {obj, objStr}, {graph, graphStr}} {
		if pair.str != nil {
			if err := s.strings.Remove(pair.enc.Payload()); err != nil {
				return fmt.Errorf("store: release term string: %w", err)
			}
		}
	}
	return nil
}

func delIndex(txn storage.Transaction, table storage.Table, terms ...codec.EncodedTerm) error {
	key := codec.EncodeQuadKey(terms...)
	if err := txn.Delete(table, key); err != nil {
		return fmt.Errorf("store: delete %s index entry: %w", table, err)
	}
	return nil
}

// ContainsQuad reports whether q is currently stored.
func (s *TripleStore) ContainsQuad(q *rdf.Quad) (bool, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return false, fmt.Errorf("store: begin read transaction: %w", err)
	}
	defer txn.Rollback()

	subj, _, err := s.encoder.EncodeTerm(q.Subject)
	if err != nil {
		return false, err
	}
	pred, _, err := s.encoder.EncodeTerm(q.Predicate)
	if err != nil {
		return false, err
	}
	obj, _, err := s.encoder.EncodeTerm(q.Object)
	if err != nil {
		return false, err
	}
	graph, _, err := s.encoder.EncodeTerm(q.Graph)
	if err != nil {
		return false, err
	}

	key := codec.EncodeQuadKey(subj, pred, obj, graph)
	_, err = txn.Get(storage.TableSPOG, key)
	if err == storage.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: lookup quad: %w", err)
	}
	return true, nil
}

// Count returns the total number of stored quads across every graph.
func (s *TripleStore) Count() (int64, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return 0, fmt.Errorf("store: begin read transaction: %w", err)
	}
	defer txn.Rollback()

	it, err := txn.Scan(storage.TableSPOG, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("store: scan spog table: %w", err)
	}
	defer it.Close()

	var count int64
	for it.Next() {
		count++
	}
	return count, nil
}
