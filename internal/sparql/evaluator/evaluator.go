package evaluator

import (
	"fmt"

	"github.com/quadstore/trigo/internal/sparql/parser"
	"github.com/quadstore/trigo/internal/store"
	"github.com/quadstore/trigo/pkg/rdf"
)

// ExistsMatcher runs a graph pattern against the store under an outer
// binding and reports whether it has at least one solution compatible with
// that binding. *executor.Executor implements this by planning and running
// pattern as an ad-hoc sub-query.
type ExistsMatcher interface {
	PatternExists(pattern *parser.GraphPattern, binding *store.Binding) (bool, error)
}

// Evaluator evaluates SPARQL expressions against bindings
type Evaluator struct {
	matcher ExistsMatcher // nil unless constructed via NewEvaluatorWithMatcher
}

// NewEvaluator creates a new expression evaluator. EXISTS/NOT EXISTS
// expressions fail to evaluate against an Evaluator built this way; use
// NewEvaluatorWithMatcher when the filter being evaluated may contain them.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// NewEvaluatorWithMatcher creates an expression evaluator able to resolve
// EXISTS/NOT EXISTS by delegating pattern matching to matcher.
func NewEvaluatorWithMatcher(matcher ExistsMatcher) *Evaluator {
	return &Evaluator{matcher: matcher}
}

// Evaluate evaluates an expression against a binding and returns the result term
// Returns (result, error) where error is nil on success
// If the expression cannot be evaluated (type error, unbound variable, etc.), returns an error
func (e *Evaluator) Evaluate(expr parser.Expression, binding *store.Binding) (rdf.Term, error) {
	if expr == nil {
		return nil, fmt.Errorf("cannot evaluate nil expression")
	}

	switch ex := expr.(type) {
	case *parser.BinaryExpression:
		return e.evaluateBinaryExpression(ex, binding)
	case *parser.UnaryExpression:
		return e.evaluateUnaryExpression(ex, binding)
	case *parser.VariableExpression:
		return e.evaluateVariableExpression(ex, binding)
	case *parser.LiteralExpression:
		return e.evaluateLiteralExpression(ex, binding)
	case *parser.FunctionCallExpression:
		return e.evaluateFunctionCall(ex, binding)
	case *parser.ExistsExpression:
		return e.evaluateExistsExpression(ex, binding)
	case *parser.InExpression:
		return e.evaluateInExpression(ex, binding)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", expr)
	}
}

// evaluateVariableExpression evaluates a variable reference
func (e *Evaluator) evaluateVariableExpression(expr *parser.VariableExpression, binding *store.Binding) (rdf.Term, error) {
	if expr.Variable == nil {
		return nil, fmt.Errorf("variable expression has nil variable")
	}

	// Special case for COUNT(*) which uses variable name "*"
	if expr.Variable.Name == "*" {
		return nil, fmt.Errorf("* is not a valid variable reference in expressions")
	}

	// Look up variable in binding
	value, exists := binding.Vars[expr.Variable.Name]
	if !exists {
		return nil, fmt.Errorf("unbound variable: ?%s", expr.Variable.Name)
	}

	return value, nil
}

// evaluateLiteralExpression evaluates a literal constant
func (e *Evaluator) evaluateLiteralExpression(expr *parser.LiteralExpression, binding *store.Binding) (rdf.Term, error) {
	if expr.Literal == nil {
		return nil, fmt.Errorf("literal expression has nil literal")
	}
	return expr.Literal, nil
}

// evaluateExistsExpression evaluates EXISTS or NOT EXISTS by asking the
// matcher whether expr.Pattern has any solution compatible with binding.
// This is a simplification of full correlated EXISTS evaluation: it checks
// binding-compatibility on shared variable names rather than substituting
// binding's values into the pattern before planning it, the same
// approximation documented for MINUS's compatibility check.
func (e *Evaluator) evaluateExistsExpression(expr *parser.ExistsExpression, binding *store.Binding) (rdf.Term, error) {
	if e.matcher == nil {
		return nil, fmt.Errorf("EXISTS/NOT EXISTS requires an evaluator constructed with NewEvaluatorWithMatcher")
	}

	exists, err := e.matcher.PatternExists(&expr.Pattern, binding)
	if err != nil {
		return nil, fmt.Errorf("evaluate EXISTS pattern: %w", err)
	}

	if expr.Not {
		return rdf.NewBooleanLiteral(!exists), nil
	}
	return rdf.NewBooleanLiteral(exists), nil
}

// evaluateInExpression evaluates IN or NOT IN.
// x IN (e1, e2, ...) is equivalent to (x = e1) || (x = e2) || ...
// x NOT IN (e1, e2, ...) is equivalent to !((x = e1) || (x = e2) || ...)
func (e *Evaluator) evaluateInExpression(expr *parser.InExpression, binding *store.Binding) (rdf.Term, error) {
	leftValue, err := e.Evaluate(expr.Expression, binding)
	if err != nil {
		return nil, err
	}

	found := false
	for _, valueExpr := range expr.Values {
		rightValue, err := e.Evaluate(valueExpr, binding)
		if err != nil {
			// If evaluation fails for any value, skip it (SPARQL semantics)
			continue
		}

		if leftValue.Equals(rightValue) {
			found = true
			break
		}
	}

	if expr.Not {
		return rdf.NewBooleanLiteral(!found), nil
	}
	return rdf.NewBooleanLiteral(found), nil
}
