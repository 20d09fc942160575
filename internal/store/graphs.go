package store

import (
	"fmt"

	"github.com/quadstore/trigo/internal/codec"
	"github.com/quadstore/trigo/internal/storage"
	"github.com/quadstore/trigo/pkg/rdf"
)

// CreateGraph records g as an existing, possibly empty, named graph.
// Creating a graph that already has quads or was already recorded is not
// itself an error; SPARQL CREATE's "error if exists" behavior is the
// update layer's job, checked via GraphExists before calling this.
func (s *TripleStore) CreateGraph(g *rdf.NamedNode) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return fmt.Errorf("store: begin create-graph transaction: %w", err)
	}

	encoded, _, err := s.encoder.EncodeTerm(g)
	if err != nil {
		txn.Rollback()
		return fmt.Errorf("store: encode graph name: %w", err)
	}
	if err := txn.Set(storage.TableGraphs, encoded[:], nil); err != nil {
		txn.Rollback()
		return fmt.Errorf("store: record graph name: %w", err)
	}
	return txn.Commit()
}

// GraphExists reports whether g has been recorded, either because a quad
// was inserted into it or because it was CREATEd or LOADed explicitly.
func (s *TripleStore) GraphExists(g *rdf.NamedNode) (bool, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return false, fmt.Errorf("store: begin read transaction: %w", err)
	}
	defer txn.Rollback()

	encoded, _, err := s.encoder.EncodeTerm(g)
	if err != nil {
		return false, fmt.Errorf("store: encode graph name: %w", err)
	}

	_, err = txn.Get(storage.TableGraphs, encoded[:])
	if err == storage.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: lookup graph name: %w", err)
	}
	return true, nil
}

// ListGraphs returns every named graph currently recorded, in no
// particular order.
func (s *TripleStore) ListGraphs() ([]*rdf.NamedNode, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("store: begin read transaction: %w", err)
	}
	defer txn.Rollback()

	it, err := txn.Scan(storage.TableGraphs, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("store: scan graphs table: %w", err)
	}
	defer it.Close()

	var graphs []*rdf.NamedNode
	for it.Next() {
		var encoded codec.EncodedTerm
		copy(encoded[:], it.Key())

		term, err := s.decodeTerm(txn, encoded)
		if err != nil {
			return nil, fmt.Errorf("store: decode graph name: %w", err)
		}
		named, ok := term.(*rdf.NamedNode)
		if !ok {
			continue
		}
		graphs = append(graphs, named)
	}
	return graphs, nil
}

// DropGraph removes every quad in g along with g's own record in GRAPHS,
// so a later GraphExists(g) reports false.
func (s *TripleStore) DropGraph(g *rdf.NamedNode) error {
	if err := s.ClearGraph(g); err != nil {
		return err
	}

	txn, err := s.storage.Begin(true)
	if err != nil {
		return fmt.Errorf("store: begin drop-graph transaction: %w", err)
	}
	encoded, _, err := s.encoder.EncodeTerm(g)
	if err != nil {
		txn.Rollback()
		return fmt.Errorf("store: encode graph name: %w", err)
	}
	if err := txn.Delete(storage.TableGraphs, encoded[:]); err != nil {
		txn.Rollback()
		return fmt.Errorf("store: remove graph name: %w", err)
	}
	return txn.Commit()
}

// ClearGraph removes every quad stored in g but keeps its GRAPHS record,
// so the graph still exists afterward, just empty.
func (s *TripleStore) ClearGraph(g *rdf.NamedNode) error {
	quads, err := s.collectGraphQuads(g)
	if err != nil {
		return err
	}
	return s.DeleteQuadsBatch(quads)
}

// ClearDefaultGraph removes every quad stored in the store's own default
// graph, implementing CLEAR DEFAULT.
func (s *TripleStore) ClearDefaultGraph() error {
	quads, err := s.collectGraphQuads(rdf.NewDefaultGraph())
	if err != nil {
		return err
	}
	return s.DeleteQuadsBatch(quads)
}

// ClearAll removes every quad in every graph, default and named, and
// drops every recorded named graph, implementing CLEAR ALL / DROP ALL.
func (s *TripleStore) ClearAll() error {
	if err := s.ClearDefaultGraph(); err != nil {
		return err
	}

	graphs, err := s.ListGraphs()
	if err != nil {
		return err
	}
	for _, g := range graphs {
		if err := s.DropGraph(g); err != nil {
			return err
		}
	}
	return nil
}

// collectGraphQuads gathers every quad currently stored under graph g.
func (s *TripleStore) collectGraphQuads(g rdf.Term) ([]*rdf.Quad, error) {
	pattern := &Pattern{
		Subject:   NewVariable("s"),
		Predicate: NewVariable("p"),
		Object:    NewVariable("o"),
		Graph:     g,
	}
	iter, err := s.Query(pattern)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var quads []*rdf.Quad
	for iter.Next() {
		q, err := iter.Quad()
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}
