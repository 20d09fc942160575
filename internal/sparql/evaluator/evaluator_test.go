package evaluator

import (
	"testing"

	"github.com/quadstore/trigo/internal/sparql/parser"
	"github.com/quadstore/trigo/internal/store"
	"github.com/quadstore/trigo/pkg/rdf"
)

type fakeMatcher struct {
	exists bool
	err    error
}

func (m *fakeMatcher) PatternExists(pattern *parser.GraphPattern, binding *store.Binding) (bool, error) {
	return m.exists, m.err
}

func TestEvaluateExistsWithoutMatcherErrors(t *testing.T) {
	e := NewEvaluator()
	expr := &parser.ExistsExpression{Pattern: parser.GraphPattern{}}
	if _, err := e.Evaluate(expr, store.NewBinding()); err == nil {
		t.Fatalf("expected an error evaluating EXISTS without a matcher")
	}
}

func TestEvaluateExists(t *testing.T) {
	e := NewEvaluatorWithMatcher(&fakeMatcher{exists: true})
	expr := &parser.ExistsExpression{Pattern: parser.GraphPattern{}}
	result, err := e.Evaluate(expr, store.NewBinding())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	lit, ok := result.(*rdf.Literal)
	if !ok || lit.Value != "true" {
		t.Fatalf("expected boolean literal true, got %v", result)
	}
}

func TestEvaluateNotExists(t *testing.T) {
	e := NewEvaluatorWithMatcher(&fakeMatcher{exists: true})
	expr := &parser.ExistsExpression{Not: true, Pattern: parser.GraphPattern{}}
	result, err := e.Evaluate(expr, store.NewBinding())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	lit, ok := result.(*rdf.Literal)
	if !ok || lit.Value != "false" {
		t.Fatalf("expected boolean literal false, got %v", result)
	}
}
