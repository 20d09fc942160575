package store

import (
	"testing"

	"github.com/quadstore/trigo/pkg/rdf"
)

func seedDatasetFixture(t *testing.T, s *TripleStore) {
	t.Helper()
	alice := rdf.NewNamedNode("http://example.org/alice")
	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	g1 := rdf.NewNamedNode("http://example.org/g1")
	g2 := rdf.NewNamedNode("http://example.org/g2")

	quads := []*rdf.Quad{
		rdf.NewQuad(alice, name, rdf.NewLiteral("default"), rdf.NewDefaultGraph()),
		rdf.NewQuad(alice, name, rdf.NewLiteral("in g1"), g1),
		rdf.NewQuad(alice, name, rdf.NewLiteral("in g2"), g2),
	}
	if err := s.InsertQuadsBatch(quads); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestDatasetViewNoClausesFallsThroughToStore(t *testing.T) {
	s := newTestStore(t)
	seedDatasetFixture(t, s)

	view := NewDatasetView(s, nil, nil)
	it, err := view.Query(&Pattern{Subject: NewVariable("s"), Predicate: NewVariable("p"), Object: NewVariable("o")})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got := collectQuads(t, it)
	if len(got) != 1 {
		t.Fatalf("expected 1 default-graph quad with no FROM clauses, got %d", len(got))
	}
}

func TestDatasetViewScopesDefaultGraph(t *testing.T) {
	s := newTestStore(t)
	seedDatasetFixture(t, s)

	g1 := rdf.NewNamedNode("http://example.org/g1")
	g2 := rdf.NewNamedNode("http://example.org/g2")
	view := NewDatasetView(s, []*rdf.NamedNode{g1, g2}, nil)

	it, err := view.Query(&Pattern{Subject: NewVariable("s"), Predicate: NewVariable("p"), Object: NewVariable("o")})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got := collectQuads(t, it)
	if len(got) != 2 {
		t.Fatalf("expected 2 quads unioned from FROM g1/g2, got %d", len(got))
	}
}

func TestDatasetViewScopesNamedGraphVariable(t *testing.T) {
	s := newTestStore(t)
	seedDatasetFixture(t, s)

	g1 := rdf.NewNamedNode("http://example.org/g1")
	view := NewDatasetView(s, nil, []*rdf.NamedNode{g1})

	it, err := view.Query(&Pattern{
		Subject:   NewVariable("s"),
		Predicate: NewVariable("p"),
		Object:    NewVariable("o"),
		Graph:     NewVariable("g"),
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got := collectQuads(t, it)
	if len(got) != 1 {
		t.Fatalf("expected 1 quad from GRAPH ?g restricted to FROM NAMED g1, got %d", len(got))
	}
}

func TestDatasetViewRejectsUnlistedNamedGraph(t *testing.T) {
	s := newTestStore(t)
	seedDatasetFixture(t, s)

	g1 := rdf.NewNamedNode("http://example.org/g1")
	g2 := rdf.NewNamedNode("http://example.org/g2")
	view := NewDatasetView(s, nil, []*rdf.NamedNode{g1})

	it, err := view.Query(&Pattern{
		Subject:   NewVariable("s"),
		Predicate: NewVariable("p"),
		Object:    NewVariable("o"),
		Graph:     g2,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got := collectQuads(t, it)
	if len(got) != 0 {
		t.Fatalf("expected 0 quads for a graph outside FROM NAMED, got %d", len(got))
	}
}
