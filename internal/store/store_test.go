package store

import (
	"testing"

	"github.com/quadstore/trigo/internal/storage"
	"github.com/quadstore/trigo/internal/strtable"
	"github.com/quadstore/trigo/pkg/rdf"
)

func newTestStore(t *testing.T) *TripleStore {
	t.Helper()
	badgerStorage, err := storage.NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { badgerStorage.Close() })
	return NewTripleStore(badgerStorage, strtable.NewStringStore(badgerStorage.DB()))
}

func collectQuads(t *testing.T, it QuadIterator) []*rdf.Quad {
	t.Helper()
	defer it.Close()
	var quads []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			t.Fatalf("quad: %v", err)
		}
		quads = append(quads, q)
	}
	return quads
}

func TestBatchInsertAndQuery(t *testing.T) {
	s := newTestStore(t)

	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	knows := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")
	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")

	quads := []*rdf.Quad{
		rdf.NewQuad(alice, knows, bob, rdf.NewDefaultGraph()),
		rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), rdf.NewDefaultGraph()),
		rdf.NewQuad(bob, name, rdf.NewLiteral("Bob"), rdf.NewDefaultGraph()),
	}
	if err := s.InsertQuadsBatch(quads); err != nil {
		t.Fatalf("batch insert: %v", err)
	}

	it, err := s.Query(&Pattern{Subject: alice, Predicate: NewVariable("p"), Object: NewVariable("o")})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got := collectQuads(t, it)
	if len(got) != 2 {
		t.Fatalf("expected 2 quads for alice, got %d", len(got))
	}
}

func TestBatchInsertAndQuerySpecificValues(t *testing.T) {
	s := newTestStore(t)

	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	carol := rdf.NewNamedNode("http://example.org/carol")
	knows := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")

	quads := []*rdf.Quad{
		rdf.NewQuad(alice, knows, bob, rdf.NewDefaultGraph()),
		rdf.NewQuad(bob, knows, carol, rdf.NewDefaultGraph()),
		rdf.NewQuad(carol, knows, alice, rdf.NewDefaultGraph()),
	}
	if err := s.InsertQuadsBatch(quads); err != nil {
		t.Fatalf("batch insert: %v", err)
	}

	it, err := s.Query(&Pattern{Subject: NewVariable("s"), Predicate: knows, Object: carol})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got := collectQuads(t, it)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 quad matching ?s knows carol, got %d", len(got))
	}
	gotSubject, ok := got[0].Subject.(*rdf.NamedNode)
	if !ok || gotSubject.IRI != bob.IRI {
		t.Fatalf("expected bob as subject, got %v", got[0].Subject)
	}
}

func TestBatchDeleteAndQuery(t *testing.T) {
	s := newTestStore(t)

	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	knows := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")
	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")

	quads := []*rdf.Quad{
		rdf.NewQuad(alice, knows, bob, rdf.NewDefaultGraph()),
		rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), rdf.NewDefaultGraph()),
	}
	if err := s.InsertQuadsBatch(quads); err != nil {
		t.Fatalf("batch insert: %v", err)
	}
	if err := s.DeleteQuadsBatch(quads[:1]); err != nil {
		t.Fatalf("batch delete: %v", err)
	}

	it, err := s.Query(&Pattern{Subject: alice, Predicate: NewVariable("p"), Object: NewVariable("o")})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got := collectQuads(t, it)
	if len(got) != 1 {
		t.Fatalf("expected 1 remaining quad for alice after delete, got %d", len(got))
	}
}

func TestContainsQuad(t *testing.T) {
	s := newTestStore(t)

	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	knows := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")

	q := rdf.NewQuad(alice, knows, bob, rdf.NewDefaultGraph())

	ok, err := s.ContainsQuad(q)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if ok {
		t.Fatalf("expected quad to be absent before insert")
	}

	if err := s.InsertQuad(q); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err = s.ContainsQuad(q)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !ok {
		t.Fatalf("expected quad to be present after insert")
	}

	if err := s.DeleteQuad(q); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ok, err = s.ContainsQuad(q)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if ok {
		t.Fatalf("expected quad to be absent after delete")
	}
}

// TestStringInterningSurvivesSharedReference checks that deleting one quad
// whose object shares an interned string with another surviving quad does
// not erase the string the surviving quad still depends on to decode.
func TestStringInterningSurvivesSharedReference(t *testing.T) {
	s := newTestStore(t)

	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")
	name := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")

	// A literal long enough to force the hash-fallback encoding path (not a
	// small native type), shared by both quads below.
	shared := rdf.NewLiteral("this is a shared string value that exceeds the inline fast-path width")

	q1 := rdf.NewQuad(alice, name, shared, rdf.NewDefaultGraph())
	q2 := rdf.NewQuad(bob, name, shared, rdf.NewDefaultGraph())

	if err := s.InsertQuad(q1); err != nil {
		t.Fatalf("insert q1: %v", err)
	}
	if err := s.InsertQuad(q2); err != nil {
		t.Fatalf("insert q2: %v", err)
	}

	if err := s.DeleteQuad(q1); err != nil {
		t.Fatalf("delete q1: %v", err)
	}

	it, err := s.Query(&Pattern{Subject: bob, Predicate: name, Object: NewVariable("o")})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got := collectQuads(t, it)
	if len(got) != 1 {
		t.Fatalf("expected bob's quad to survive, got %d quads", len(got))
	}
	gotObj, ok := got[0].Object.(*rdf.Literal)
	if !ok {
		t.Fatalf("expected literal object, got %T", got[0].Object)
	}
	if gotObj.Value != shared.Value {
		t.Fatalf("expected shared string %q to still resolve, got %q", shared.Value, gotObj.Value)
	}
}
