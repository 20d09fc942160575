package parser

import "testing"

func parseUpdateRequest(t *testing.T, text string) *UpdateRequest {
	t.Helper()
	p := NewParser(text)
	query, err := p.Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	if query.QueryType != QueryTypeUpdate || query.Update == nil {
		t.Fatalf("expected an update request for %q, got query type %v", text, query.QueryType)
	}
	return query.Update
}

func TestParseInsertData(t *testing.T) {
	req := parseUpdateRequest(t, `
		INSERT DATA {
			<http://example.org/alice> <http://xmlns.com/foaf/0.1/name> "Alice" .
		}
	`)
	if len(req.Operations) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(req.Operations))
	}
	op, ok := req.Operations[0].(*InsertDataOp)
	if !ok {
		t.Fatalf("expected *InsertDataOp, got %T", req.Operations[0])
	}
	if len(op.Quads) != 1 {
		t.Fatalf("expected 1 quad, got %d", len(op.Quads))
	}
}

func TestParseDeleteInsertWhere(t *testing.T) {
	req := parseUpdateRequest(t, `
		DELETE { ?s ?p ?o }
		INSERT { ?s ?p "replaced" }
		WHERE { ?s ?p ?o }
	`)
	op, ok := req.Operations[0].(*DeleteInsertOp)
	if !ok {
		t.Fatalf("expected *DeleteInsertOp, got %T", req.Operations[0])
	}
	if len(op.DeleteTemplate) != 1 || len(op.InsertTemplate) != 1 {
		t.Fatalf("expected one delete and one insert quad, got %d/%d", len(op.DeleteTemplate), len(op.InsertTemplate))
	}
	if op.Where == nil {
		t.Fatalf("expected a WHERE pattern")
	}
}

func TestParseLoad(t *testing.T) {
	req := parseUpdateRequest(t, `LOAD SILENT <http://example.org/data.ttl> INTO GRAPH <http://example.org/g1>`)
	op, ok := req.Operations[0].(*LoadOp)
	if !ok {
		t.Fatalf("expected *LoadOp, got %T", req.Operations[0])
	}
	if !op.Silent {
		t.Fatalf("expected SILENT to be set")
	}
	if op.Source.IRI != "http://example.org/data.ttl" {
		t.Fatalf("unexpected source: %s", op.Source.IRI)
	}
	if op.Into == nil || op.Into.IRI != "http://example.org/g1" {
		t.Fatalf("unexpected into graph: %v", op.Into)
	}
}

func TestParseClearCreateDrop(t *testing.T) {
	req := parseUpdateRequest(t, `CLEAR SILENT DEFAULT`)
	clearOp, ok := req.Operations[0].(*ClearOp)
	if !ok {
		t.Fatalf("expected *ClearOp, got %T", req.Operations[0])
	}
	if !clearOp.Silent || clearOp.Target.Kind != GraphTargetDefault {
		t.Fatalf("unexpected clear op: %+v", clearOp)
	}

	req = parseUpdateRequest(t, `CREATE GRAPH <http://example.org/g1>`)
	createOp, ok := req.Operations[0].(*CreateOp)
	if !ok {
		t.Fatalf("expected *CreateOp, got %T", req.Operations[0])
	}
	if createOp.Silent || createOp.Graph.IRI != "http://example.org/g1" {
		t.Fatalf("unexpected create op: %+v", createOp)
	}

	req = parseUpdateRequest(t, `DROP GRAPH <http://example.org/g1>`)
	dropOp, ok := req.Operations[0].(*DropOp)
	if !ok {
		t.Fatalf("expected *DropOp, got %T", req.Operations[0])
	}
	if dropOp.Target.Kind != GraphTargetIRI || dropOp.Target.IRI.IRI != "http://example.org/g1" {
		t.Fatalf("unexpected drop op: %+v", dropOp)
	}
}

func TestParseMultipleOperations(t *testing.T) {
	req := parseUpdateRequest(t, `
		INSERT DATA { <http://example.org/a> <http://example.org/p> "1" . } ;
		INSERT DATA { <http://example.org/b> <http://example.org/p> "2" . }
	`)
	if len(req.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(req.Operations))
	}
}
