package update

import (
	"testing"

	"github.com/quadstore/trigo/internal/sparql/parser"
	"github.com/quadstore/trigo/internal/storage"
	"github.com/quadstore/trigo/internal/store"
	"github.com/quadstore/trigo/internal/strtable"
	"github.com/quadstore/trigo/pkg/rdf"
)

func newTestStore(t *testing.T) *store.TripleStore {
	t.Helper()
	badgerStorage, err := storage.NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { badgerStorage.Close() })
	return store.NewTripleStore(badgerStorage, strtable.NewStringStore(badgerStorage.DB()))
}

func mustParseUpdate(t *testing.T, text string) *parser.UpdateRequest {
	t.Helper()
	p := parser.NewParser(text)
	query, err := p.Parse()
	if err != nil {
		t.Fatalf("parse update %q: %v", text, err)
	}
	if query.QueryType != parser.QueryTypeUpdate || query.Update == nil {
		t.Fatalf("expected update request, got query type %v", query.QueryType)
	}
	return query.Update
}

func countAll(t *testing.T, s *store.TripleStore) int {
	t.Helper()
	it, err := s.Query(&store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: store.NewVariable("p"),
		Object:    store.NewVariable("o"),
		Graph:     store.NewVariable("g"),
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer it.Close()
	n := 0
	for it.Next() {
		n++
	}
	return n
}

func TestInsertData(t *testing.T) {
	s := newTestStore(t)
	exec := NewExecutor(s)

	req := mustParseUpdate(t, `
		INSERT DATA {
			<http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" .
			<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .
		}
	`)
	if err := exec.Execute(req); err != nil {
		t.Fatalf("execute insert data: %v", err)
	}

	if got := countAll(t, s); got != 2 {
		t.Fatalf("expected 2 quads after insert, got %d", got)
	}
}

func TestInsertDataIntoNamedGraph(t *testing.T) {
	s := newTestStore(t)
	exec := NewExecutor(s)

	req := mustParseUpdate(t, `
		INSERT DATA {
			GRAPH <http://example.org/g1> {
				<http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" .
			}
		}
	`)
	if err := exec.Execute(req); err != nil {
		t.Fatalf("execute insert data: %v", err)
	}

	exists, err := s.GraphExists(rdf.NewNamedNode("http://example.org/g1"))
	if err != nil {
		t.Fatalf("graph exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected graph g1 to be recorded after a quad was inserted into it")
	}
}

func TestDeleteData(t *testing.T) {
	s := newTestStore(t)
	exec := NewExecutor(s)

	if err := exec.Execute(mustParseUpdate(t, `
		INSERT DATA { <http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" . }
	`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := exec.Execute(mustParseUpdate(t, `
		DELETE DATA { <http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" . }
	`)); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got := countAll(t, s); got != 0 {
		t.Fatalf("expected 0 quads after delete, got %d", got)
	}
}

func TestDeleteDataSkipsBlankNodes(t *testing.T) {
	s := newTestStore(t)
	exec := NewExecutor(s)

	req := mustParseUpdate(t, `DELETE DATA { _:b0 <http://xmlns.com/foaf/0.1/name> "Alice" . }`)
	if err := exec.Execute(req); err != nil {
		t.Fatalf("delete data with blank node should be a silent no-op, got error: %v", err)
	}
}

func TestDeleteInsertWhere(t *testing.T) {
	s := newTestStore(t)
	exec := NewExecutor(s)

	if err := exec.Execute(mustParseUpdate(t, `
		INSERT DATA {
			<http://example.org/alice> <http://xmlns.com/foaf/0.1/age> "30" .
			<http://example.org/bob> <http://xmlns.com/foaf/0.1/age> "25" .
		}
	`)); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	req := mustParseUpdate(t, `
		DELETE { ?person <http://xmlns.com/foaf/0.1/age> ?age }
		INSERT { ?person <http://xmlns.com/foaf/0.1/ageKnown> "true" }
		WHERE { ?person <http://xmlns.com/foaf/0.1/age> ?age }
	`)
	if err := exec.Execute(req); err != nil {
		t.Fatalf("execute delete/insert where: %v", err)
	}

	it, err := s.Query(&store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: rdf.NewNamedNode("http://xmlns.com/foaf/0.1/age"),
		Object:    store.NewVariable("o"),
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer it.Close()
	if it.Next() {
		t.Fatalf("expected no remaining age quads after DELETE/INSERT WHERE")
	}

	it2, err := s.Query(&store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: rdf.NewNamedNode("http://xmlns.com/foaf/0.1/ageKnown"),
		Object:    store.NewVariable("o"),
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer it2.Close()
	n := 0
	for it2.Next() {
		n++
	}
	if n != 2 {
		t.Fatalf("expected 2 ageKnown quads, got %d", n)
	}
}

func TestDeleteWhereShorthand(t *testing.T) {
	s := newTestStore(t)
	exec := NewExecutor(s)

	if err := exec.Execute(mustParseUpdate(t, `
		INSERT DATA { <http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" . }
	`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := mustParseUpdate(t, `DELETE WHERE { ?s <http://xmlns.com/foaf/0.1/name> ?o }`)
	if err := exec.Execute(req); err != nil {
		t.Fatalf("delete where: %v", err)
	}
	if got := countAll(t, s); got != 0 {
		t.Fatalf("expected 0 quads after DELETE WHERE, got %d", got)
	}
}

func TestClearAndCreateAndDrop(t *testing.T) {
	s := newTestStore(t)
	exec := NewExecutor(s)

	g := rdf.NewNamedNode("http://example.org/g1")

	if err := exec.Execute(mustParseUpdate(t, `CREATE GRAPH <http://example.org/g1>`)); err != nil {
		t.Fatalf("create: %v", err)
	}
	exists, err := s.GraphExists(g)
	if err != nil || !exists {
		t.Fatalf("expected graph to exist after CREATE, exists=%v err=%v", exists, err)
	}

	if err := exec.Execute(mustParseUpdate(t, `CREATE GRAPH <http://example.org/g1>`)); err == nil {
		t.Fatalf("expected non-SILENT CREATE of an existing graph to error")
	}
	if err := exec.Execute(mustParseUpdate(t, `CREATE SILENT GRAPH <http://example.org/g1>`)); err != nil {
		t.Fatalf("expected SILENT CREATE of an existing graph to succeed, got %v", err)
	}

	if err := exec.Execute(mustParseUpdate(t, `
		INSERT DATA { GRAPH <http://example.org/g1> { <http://example.org/a> <http://example.org/p> "1" . } }
	`)); err != nil {
		t.Fatalf("insert into g1: %v", err)
	}

	if err := exec.Execute(mustParseUpdate(t, `CLEAR GRAPH <http://example.org/g1>`)); err != nil {
		t.Fatalf("clear: %v", err)
	}
	exists, err = s.GraphExists(g)
	if err != nil || !exists {
		t.Fatalf("expected graph to still exist after CLEAR, exists=%v err=%v", exists, err)
	}

	if err := exec.Execute(mustParseUpdate(t, `DROP GRAPH <http://example.org/g1>`)); err != nil {
		t.Fatalf("drop: %v", err)
	}
	exists, err = s.GraphExists(g)
	if err != nil || exists {
		t.Fatalf("expected graph to be gone after DROP, exists=%v err=%v", exists, err)
	}

	if err := exec.Execute(mustParseUpdate(t, `DROP GRAPH <http://example.org/g1>`)); err == nil {
		t.Fatalf("expected non-SILENT DROP of a missing graph to error")
	}
	if err := exec.Execute(mustParseUpdate(t, `DROP SILENT GRAPH <http://example.org/g1>`)); err != nil {
		t.Fatalf("expected SILENT DROP of a missing graph to succeed, got %v", err)
	}
}

func TestClearDefault(t *testing.T) {
	s := newTestStore(t)
	exec := NewExecutor(s)

	if err := exec.Execute(mustParseUpdate(t, `
		INSERT DATA { <http://example.org/a> <http://example.org/p> "1" . }
	`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := exec.Execute(mustParseUpdate(t, `CLEAR DEFAULT`)); err != nil {
		t.Fatalf("clear default: %v", err)
	}
	if got := countAll(t, s); got != 0 {
		t.Fatalf("expected 0 quads after CLEAR DEFAULT, got %d", got)
	}
}
