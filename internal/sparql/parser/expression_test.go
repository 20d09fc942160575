package parser

import "testing"

func TestParseFilterPopulatesExpression(t *testing.T) {
	p := NewParser(`SELECT ?x WHERE { ?x <http://example.org/age> ?age . FILTER(?age > 18) }`)
	query, err := p.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(query.Select.Where.Filters) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(query.Select.Where.Filters))
	}
	filter := query.Select.Where.Filters[0]
	if filter.Expression == nil {
		t.Fatalf("expected filter expression to be populated, got nil")
	}
	bin, ok := filter.Expression.(*BinaryExpression)
	if !ok {
		t.Fatalf("expected *BinaryExpression, got %T", filter.Expression)
	}
	if bin.Operator != OpGreaterThan {
		t.Fatalf("expected greater-than operator, got %v", bin.Operator)
	}
}

func TestParseFilterExists(t *testing.T) {
	p := NewParser(`SELECT ?x WHERE { ?x <http://example.org/p> ?o . FILTER EXISTS { ?x <http://example.org/q> ?z } }`)
	query, err := p.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	filter := query.Select.Where.Filters[0]
	exists, ok := filter.Expression.(*ExistsExpression)
	if !ok {
		t.Fatalf("expected *ExistsExpression, got %T", filter.Expression)
	}
	if exists.Not {
		t.Fatalf("expected Not to be false for FILTER EXISTS")
	}
}

func TestParseFilterNotExists(t *testing.T) {
	p := NewParser(`SELECT ?x WHERE { ?x <http://example.org/p> ?o . FILTER NOT EXISTS { ?x <http://example.org/q> ?z } }`)
	query, err := p.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	filter := query.Select.Where.Filters[0]
	exists, ok := filter.Expression.(*ExistsExpression)
	if !ok {
		t.Fatalf("expected *ExistsExpression, got %T", filter.Expression)
	}
	if !exists.Not {
		t.Fatalf("expected Not to be true for FILTER NOT EXISTS")
	}
}

func TestParseBindPopulatesExpression(t *testing.T) {
	p := NewParser(`SELECT ?y WHERE { ?x <http://example.org/age> ?age . BIND(?age + 1 AS ?y) }`)
	query, err := p.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(query.Select.Where.Binds) != 1 {
		t.Fatalf("expected 1 bind, got %d", len(query.Select.Where.Binds))
	}
	bind := query.Select.Where.Binds[0]
	if bind.Expression == nil {
		t.Fatalf("expected bind expression to be populated, got nil")
	}
	if bind.Variable == nil || bind.Variable.Name != "y" {
		t.Fatalf("unexpected bind variable: %+v", bind.Variable)
	}
}

func TestParseInExpression(t *testing.T) {
	p := NewParser(`SELECT ?x WHERE { ?x <http://example.org/p> ?o . FILTER(?o IN (1, 2, 3)) }`)
	query, err := p.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	in, ok := query.Select.Where.Filters[0].Expression.(*InExpression)
	if !ok {
		t.Fatalf("expected *InExpression, got %T", query.Select.Where.Filters[0].Expression)
	}
	if in.Not {
		t.Fatalf("expected Not to be false for IN")
	}
	if len(in.Values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(in.Values))
	}
}

func TestParseDatasetClauses(t *testing.T) {
	p := NewParser(`SELECT ?x FROM <http://example.org/g1> FROM NAMED <http://example.org/g2> WHERE { ?x ?p ?o }`)
	query, err := p.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(query.Select.Dataset) != 2 {
		t.Fatalf("expected 2 dataset clauses, got %d", len(query.Select.Dataset))
	}
	if query.Select.Dataset[0].Named {
		t.Fatalf("expected first clause to be a plain FROM")
	}
	if !query.Select.Dataset[1].Named {
		t.Fatalf("expected second clause to be a FROM NAMED")
	}
}

func TestParseDescribe(t *testing.T) {
	p := NewParser(`DESCRIBE <http://example.org/alice>`)
	query, err := p.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if query.QueryType != QueryTypeDescribe || query.Describe == nil {
		t.Fatalf("expected a describe query, got type %v", query.QueryType)
	}
}
