package store

import (
	"testing"

	"github.com/quadstore/trigo/pkg/rdf"
)

func TestCreateAndListGraphs(t *testing.T) {
	s := newTestStore(t)
	g1 := rdf.NewNamedNode("http://example.org/g1")

	exists, err := s.GraphExists(g1)
	if err != nil {
		t.Fatalf("graph exists: %v", err)
	}
	if exists {
		t.Fatalf("expected g1 not to exist yet")
	}

	if err := s.CreateGraph(g1); err != nil {
		t.Fatalf("create graph: %v", err)
	}
	exists, err = s.GraphExists(g1)
	if err != nil {
		t.Fatalf("graph exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected g1 to exist after CreateGraph")
	}

	graphs, err := s.ListGraphs()
	if err != nil {
		t.Fatalf("list graphs: %v", err)
	}
	if len(graphs) != 1 || graphs[0].IRI != g1.IRI {
		t.Fatalf("unexpected graph list: %+v", graphs)
	}
}

func TestClearGraphKeepsRecordDropRemovesIt(t *testing.T) {
	s := newTestStore(t)
	g1 := rdf.NewNamedNode("http://example.org/g1")
	alice := rdf.NewNamedNode("http://example.org/alice")
	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")

	if err := s.InsertQuad(rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), g1)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.ClearGraph(g1); err != nil {
		t.Fatalf("clear graph: %v", err)
	}
	exists, err := s.GraphExists(g1)
	if err != nil {
		t.Fatalf("graph exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected g1 to still be recorded after ClearGraph")
	}

	it, err := s.Query(&Pattern{Subject: NewVariable("s"), Predicate: NewVariable("p"), Object: NewVariable("o"), Graph: g1})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(collectQuads(t, it)) != 0 {
		t.Fatalf("expected no quads left in g1 after ClearGraph")
	}

	if err := s.DropGraph(g1); err != nil {
		t.Fatalf("drop graph: %v", err)
	}
	exists, err = s.GraphExists(g1)
	if err != nil {
		t.Fatalf("graph exists: %v", err)
	}
	if exists {
		t.Fatalf("expected g1 to be gone after DropGraph")
	}
}

func TestClearAllRemovesDefaultAndNamedGraphs(t *testing.T) {
	s := newTestStore(t)
	alice := rdf.NewNamedNode("http://example.org/alice")
	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	g1 := rdf.NewNamedNode("http://example.org/g1")

	if err := s.InsertQuad(rdf.NewQuad(alice, name, rdf.NewLiteral("default"), rdf.NewDefaultGraph())); err != nil {
		t.Fatalf("insert default: %v", err)
	}
	if err := s.InsertQuad(rdf.NewQuad(alice, name, rdf.NewLiteral("g1"), g1)); err != nil {
		t.Fatalf("insert g1: %v", err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("clear all: %v", err)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 triples after ClearAll, got %d", count)
	}
	graphs, err := s.ListGraphs()
	if err != nil {
		t.Fatalf("list graphs: %v", err)
	}
	if len(graphs) != 0 {
		t.Fatalf("expected no named graphs left after ClearAll, got %+v", graphs)
	}
}
