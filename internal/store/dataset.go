package store

import (
	"fmt"

	"github.com/quadstore/trigo/pkg/rdf"
)

// DatasetView scopes TripleStore.Query to the graphs named by a query's
// FROM / FROM NAMED clauses, so the same quads_for_pattern contract a plain
// TripleStore offers can be filtered down to an active default graph set
// (unioned) and an active named graph set without touching the underlying
// Badger transactions directly. An empty DefaultGraphs leaves the implicit
// default graph as the store's own physical default graph; an empty
// NamedGraphs leaves GRAPH ?var free to range over every named graph the
// store holds, matching plain TripleStore.Query's existing behavior.
type DatasetView struct {
	store         *TripleStore
	DefaultGraphs []*rdf.NamedNode
	NamedGraphs   []*rdf.NamedNode
}

// NewDatasetView builds a view over store scoped to the graphs a query's
// FROM / FROM NAMED clauses declared.
func NewDatasetView(store *TripleStore, defaultGraphs, namedGraphs []*rdf.NamedNode) *DatasetView {
	return &DatasetView{store: store, DefaultGraphs: defaultGraphs, NamedGraphs: namedGraphs}
}

// Query matches pattern against the active dataset instead of the whole
// store.
func (v *DatasetView) Query(pattern *Pattern) (QuadIterator, error) {
	if pattern.Graph == nil {
		if len(v.DefaultGraphs) == 0 {
			return v.store.Query(pattern)
		}
		return v.queryGraphs(pattern, v.DefaultGraphs)
	}

	if isVariable(pattern.Graph) {
		if len(v.NamedGraphs) == 0 {
			return v.store.Query(pattern)
		}
		return v.queryGraphs(pattern, v.NamedGraphs)
	}

	if len(v.NamedGraphs) > 0 {
		if bound, ok := pattern.Graph.(*rdf.NamedNode); ok && !v.containsNamedGraph(bound) {
			return &emptyQuadIterator{}, nil
		}
	}
	return v.store.Query(pattern)
}

func (v *DatasetView) containsNamedGraph(g *rdf.NamedNode) bool {
	for _, n := range v.NamedGraphs {
		if n.IRI == g.IRI {
			return true
		}
	}
	return false
}

// queryGraphs runs pattern once per graph in graphs, each time with Graph
// bound to that graph, and concatenates the results in order.
func (v *DatasetView) queryGraphs(pattern *Pattern, graphs []*rdf.NamedNode) (QuadIterator, error) {
	iterators := make([]QuadIterator, 0, len(graphs))
	for _, g := range graphs {
		scoped := &Pattern{
			Subject:   pattern.Subject,
			Predicate: pattern.Predicate,
			Object:    pattern.Object,
			Graph:     g,
		}
		iter, err := v.store.Query(scoped)
		if err != nil {
			for _, prior := range iterators {
				prior.Close()
			}
			return nil, err
		}
		iterators = append(iterators, iter)
	}
	return &concatQuadIterator{iterators: iterators}, nil
}

// concatQuadIterator chains several QuadIterators end to end, closing each
// as it is exhausted.
type concatQuadIterator struct {
	iterators []QuadIterator
	index     int
}

func (it *concatQuadIterator) Next() bool {
	for it.index < len(it.iterators) {
		if it.iterators[it.index].Next() {
			return true
		}
		it.iterators[it.index].Close()
		it.index++
	}
	return false
}

func (it *concatQuadIterator) Quad() (*rdf.Quad, error) {
	if it.index >= len(it.iterators) {
		return nil, fmt.Errorf("store: concat iterator exhausted")
	}
	return it.iterators[it.index].Quad()
}

func (it *concatQuadIterator) Close() error {
	var firstErr error
	for ; it.index < len(it.iterators); it.index++ {
		if err := it.iterators[it.index].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// emptyQuadIterator never yields anything; used when a query names a
// concrete graph outside its own FROM NAMED set.
type emptyQuadIterator struct{}

func (emptyQuadIterator) Next() bool { return false }

func (emptyQuadIterator) Quad() (*rdf.Quad, error) {
	return nil, fmt.Errorf("store: empty iterator has no current quad")
}

func (emptyQuadIterator) Close() error { return nil }
