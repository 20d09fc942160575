package executor

import (
	"fmt"
	"sort"

	"github.com/quadstore/trigo/internal/sparql/evaluator"
	"github.com/quadstore/trigo/internal/sparql/optimizer"
	"github.com/quadstore/trigo/internal/sparql/parser"
	"github.com/quadstore/trigo/internal/store"
	"github.com/quadstore/trigo/pkg/rdf"
)

// Executor executes SPARQL queries using the Volcano iterator model
type Executor struct {
	store   *store.TripleStore
	dataset *store.DatasetView // set per Execute call from the query's FROM/FROM NAMED clauses
}

// NewExecutor creates a new query executor
func NewExecutor(store *store.TripleStore) *Executor {
	return &Executor{
		store: store,
	}
}

// Execute executes an optimized query
func (e *Executor) Execute(query *optimizer.OptimizedQuery) (QueryResult, error) {
	e.dataset = store.NewDatasetView(e.store, datasetGraphs(datasetClausesOf(query.Original), false), datasetGraphs(datasetClausesOf(query.Original), true))

	switch query.Original.QueryType {
	case parser.QueryTypeSelect:
		return e.executeSelect(query)
	case parser.QueryTypeAsk:
		return e.executeAsk(query)
	case parser.QueryTypeConstruct:
		return e.executeConstruct(query)
	case parser.QueryTypeDescribe:
		return e.executeDescribe(query)
	default:
		return nil, fmt.Errorf("unsupported query type")
	}
}

// queryPattern runs pattern against the active dataset view, falling back
// to the whole store when Execute hasn't set one up (e.g. a direct
// Executor method call outside of Execute, as some tests do).
func (e *Executor) queryPattern(pattern *store.Pattern) (store.QuadIterator, error) {
	if e.dataset != nil {
		return e.dataset.Query(pattern)
	}
	return e.store.Query(pattern)
}

// datasetClausesOf extracts a query's FROM/FROM NAMED clauses regardless of
// which query form carries them.
func datasetClausesOf(query *parser.Query) []*parser.DatasetClause {
	switch query.QueryType {
	case parser.QueryTypeSelect:
		if query.Select != nil {
			return query.Select.Dataset
		}
	case parser.QueryTypeConstruct:
		if query.Construct != nil {
			return query.Construct.Dataset
		}
	case parser.QueryTypeAsk:
		if query.Ask != nil {
			return query.Ask.Dataset
		}
	case parser.QueryTypeDescribe:
		if query.Describe != nil {
			return query.Describe.Dataset
		}
	}
	return nil
}

// datasetGraphs filters clauses down to the default-graph (named=false) or
// named-graph (named=true) IRIs they declared.
func datasetGraphs(clauses []*parser.DatasetClause, named bool) []*rdf.NamedNode {
	var graphs []*rdf.NamedNode
	for _, clause := range clauses {
		if clause.Named == named {
			graphs = append(graphs, clause.IRI)
		}
	}
	return graphs
}

// QueryResult represents the result of a query
type QueryResult interface {
	resultType()
}

// SelectResult represents the result of a SELECT query
type SelectResult struct {
	Variables []*parser.Variable
	Bindings  []*store.Binding
}

func (r *SelectResult) resultType() {}

// AskResult represents the result of an ASK query
type AskResult struct {
	Result bool
}

func (r *AskResult) resultType() {}

// ConstructResult represents the result of a CONSTRUCT or DESCRIBE query
type ConstructResult struct {
	Triples []*Triple
}

func (r *ConstructResult) resultType() {}

// Triple is an instantiated result triple, serialized term-by-term so
// callers (the CLI, the HTTP result formatter) don't need to depend on the
// rdf package just to render a CONSTRUCT/DESCRIBE result.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// Term is one position of a result Triple.
type Term struct {
	Type  string // "iri", "blank", "literal"
	Value string
}

// executeSelect executes a SELECT query
func (e *Executor) executeSelect(query *optimizer.OptimizedQuery) (*SelectResult, error) {
	// Create iterator from plan
	iter, err := e.createIterator(query.Plan)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	// Collect all bindings
	var bindings []*store.Binding
	for iter.Next() {
		binding := iter.Binding()
		// Clone to avoid mutation
		bindings = append(bindings, binding.Clone())
	}

	return &SelectResult{
		Variables: query.Original.Select.Variables,
		Bindings:  bindings,
	}, nil
}

// executeAsk executes an ASK query
func (e *Executor) executeAsk(query *optimizer.OptimizedQuery) (*AskResult, error) {
	// Create iterator from plan
	iter, err := e.createIterator(query.Plan)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	// Check if there's at least one result
	result := iter.Next()

	return &AskResult{Result: result}, nil
}

// executeConstruct executes a CONSTRUCT query by instantiating its template
// once per binding the WHERE clause produces, deduplicating the result.
func (e *Executor) executeConstruct(query *optimizer.OptimizedQuery) (*ConstructResult, error) {
	constructPlan, ok := query.Plan.(*optimizer.ConstructPlan)
	if !ok {
		return nil, fmt.Errorf("expected ConstructPlan")
	}

	iter, err := e.createIterator(constructPlan.Input)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var triples []*Triple
	seen := make(map[string]bool)

	for iter.Next() {
		binding := iter.Binding()
		for _, pattern := range constructPlan.Template {
			triple, err := e.instantiateTriplePattern(pattern, binding)
			if err != nil {
				// Patterns referencing a variable this binding left unbound
				// simply contribute no triple for this solution.
				continue
			}

			key := triple.Subject.Value + "|" + triple.Predicate.Value + "|" + triple.Object.Value
			if !seen[key] {
				seen[key] = true
				triples = append(triples, triple)
			}
		}
	}

	return &ConstructResult{Triples: triples}, nil
}

// executeDescribe executes a DESCRIBE query, returning the Concise Bounded
// Description (every triple with the resource as subject) for each resource
// named explicitly or produced by the WHERE clause.
func (e *Executor) executeDescribe(query *optimizer.OptimizedQuery) (*ConstructResult, error) {
	describePlan, ok := query.Plan.(*optimizer.DescribePlan)
	if !ok {
		return nil, fmt.Errorf("expected DescribePlan")
	}

	var resources []rdf.Term

	if describePlan.Input != nil {
		iter, err := e.createIterator(describePlan.Input)
		if err != nil {
			return nil, err
		}
		defer iter.Close()

		seen := make(map[string]bool)
		for iter.Next() {
			binding := iter.Binding()
			for _, term := range binding.Vars {
				namedNode, ok := term.(*rdf.NamedNode)
				if !ok || seen[namedNode.IRI] {
					continue
				}
				seen[namedNode.IRI] = true
				resources = append(resources, namedNode)
			}
		}
	}
	for _, resource := range describePlan.Resources {
		resources = append(resources, resource)
	}

	var triples []*Triple
	seenTriples := make(map[string]bool)

	for _, resource := range resources {
		pattern := &store.Pattern{
			Subject:   resource,
			Predicate: store.NewVariable("p"),
			Object:    store.NewVariable("o"),
		}

		iter, err := e.queryPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("describe: query resource %s: %w", resource.String(), err)
		}

		for iter.Next() {
			quad, err := iter.Quad()
			if err != nil {
				iter.Close()
				return nil, fmt.Errorf("describe: read quad: %w", err)
			}

			triple := &Triple{
				Subject:   Term{Type: "iri", Value: quad.Subject.String()},
				Predicate: Term{Type: "iri", Value: quad.Predicate.String()},
				Object:    e.rdfTermToExecutorTerm(quad.Object),
			}

			key := triple.Subject.Value + "|" + triple.Predicate.Value + "|" + triple.Object.Value
			if !seenTriples[key] {
				seenTriples[key] = true
				triples = append(triples, triple)
			}
		}
		iter.Close()
	}

	return &ConstructResult{Triples: triples}, nil
}

// rdfTermToExecutorTerm converts a resolved rdf.Term into the executor's
// serialization-friendly Term shape.
func (e *Executor) rdfTermToExecutorTerm(term rdf.Term) Term {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return Term{Type: "iri", Value: t.IRI}
	case *rdf.BlankNode:
		return Term{Type: "blank", Value: t.ID}
	case *rdf.Literal:
		return Term{Type: "literal", Value: t.Value}
	default:
		return Term{Type: "literal", Value: term.String()}
	}
}

// instantiateTriplePattern substitutes binding into every position of a
// CONSTRUCT template pattern.
func (e *Executor) instantiateTriplePattern(pattern *parser.TriplePattern, binding *store.Binding) (*Triple, error) {
	subject, err := e.instantiateTerm(pattern.Subject, binding)
	if err != nil {
		return nil, err
	}
	predicate, err := e.instantiateTerm(pattern.Predicate, binding)
	if err != nil {
		return nil, err
	}
	object, err := e.instantiateTerm(pattern.Object, binding)
	if err != nil {
		return nil, err
	}
	return &Triple{Subject: subject, Predicate: predicate, Object: object}, nil
}

// instantiateTerm resolves one TriplePattern position against a binding.
func (e *Executor) instantiateTerm(termOrVar parser.TermOrVariable, binding *store.Binding) (Term, error) {
	if termOrVar.IsVariable() {
		value, found := binding.Vars[termOrVar.Variable.Name]
		if !found {
			return Term{}, fmt.Errorf("unbound variable: %s", termOrVar.Variable.Name)
		}
		return e.rdfTermToExecutorTerm(value), nil
	}
	return e.rdfTermToExecutorTerm(termOrVar.Term), nil
}

// createIterator creates an iterator from a query plan
func (e *Executor) createIterator(plan optimizer.QueryPlan) (store.BindingIterator, error) {
	switch p := plan.(type) {
	case *optimizer.ScanPlan:
		return e.createScanIterator(p)
	case *optimizer.JoinPlan:
		return e.createJoinIterator(p)
	case *optimizer.FilterPlan:
		return e.createFilterIterator(p)
	case *optimizer.ProjectionPlan:
		return e.createProjectionIterator(p)
	case *optimizer.LimitPlan:
		return e.createLimitIterator(p)
	case *optimizer.OffsetPlan:
		return e.createOffsetIterator(p)
	case *optimizer.DistinctPlan:
		return e.createDistinctIterator(p)
	case *optimizer.GraphPlan:
		return e.createGraphIterator(p)
	case *optimizer.BindPlan:
		return e.createBindIterator(p)
	case *optimizer.OptionalPlan:
		return e.createOptionalIterator(p)
	case *optimizer.UnionPlan:
		return e.createUnionIterator(p)
	case *optimizer.MinusPlan:
		return e.createMinusIterator(p)
	case *optimizer.OrderByPlan:
		return e.createOrderByIterator(p)
	default:
		return nil, fmt.Errorf("unsupported plan type: %T", plan)
	}
}

// createScanIterator creates an iterator for scanning a triple pattern
func (e *Executor) createScanIterator(plan *optimizer.ScanPlan) (store.BindingIterator, error) {
	// Convert parser triple pattern to store pattern
	pattern := &store.Pattern{
		Subject:   e.convertTermOrVariable(plan.Pattern.Subject),
		Predicate: e.convertTermOrVariable(plan.Pattern.Predicate),
		Object:    e.convertTermOrVariable(plan.Pattern.Object),
	}

	// Execute pattern query against the active dataset view
	quadIter, err := e.queryPattern(pattern)
	if err != nil {
		return nil, err
	}

	return &scanIterator{
		quadIter: quadIter,
		pattern:  plan.Pattern,
		binding:  store.NewBinding(),
	}, nil
}

// createJoinIterator creates an iterator for join operations
func (e *Executor) createJoinIterator(plan *optimizer.JoinPlan) (store.BindingIterator, error) {
	left, err := e.createIterator(plan.Left)
	if err != nil {
		return nil, err
	}

	switch plan.Type {
	case optimizer.JoinTypeNestedLoop:
		return &nestedLoopJoinIterator{
			left:         left,
			rightPlan:    plan.Right,
			executor:     e,
			currentLeft:  nil,
			currentRight: nil,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported join type: %v", plan.Type)
	}
}

// createFilterIterator creates an iterator for filter operations
func (e *Executor) createFilterIterator(plan *optimizer.FilterPlan) (store.BindingIterator, error) {
	input, err := e.createIterator(plan.Input)
	if err != nil {
		return nil, err
	}

	return &filterIterator{
		input:     input,
		filter:    plan.Filter,
		evaluator: evaluator.NewEvaluatorWithMatcher(e),
	}, nil
}

// createProjectionIterator creates an iterator for projection operations
func (e *Executor) createProjectionIterator(plan *optimizer.ProjectionPlan) (store.BindingIterator, error) {
	input, err := e.createIterator(plan.Input)
	if err != nil {
		return nil, err
	}

	return &projectionIterator{
		input:     input,
		variables: plan.Variables,
	}, nil
}

// createLimitIterator creates an iterator for LIMIT operations
func (e *Executor) createLimitIterator(plan *optimizer.LimitPlan) (store.BindingIterator, error) {
	input, err := e.createIterator(plan.Input)
	if err != nil {
		return nil, err
	}

	return &limitIterator{
		input: input,
		limit: plan.Limit,
		count: 0,
	}, nil
}

// createOffsetIterator creates an iterator for OFFSET operations
func (e *Executor) createOffsetIterator(plan *optimizer.OffsetPlan) (store.BindingIterator, error) {
	input, err := e.createIterator(plan.Input)
	if err != nil {
		return nil, err
	}

	return &offsetIterator{
		input:   input,
		offset:  plan.Offset,
		skipped: 0,
	}, nil
}

// createDistinctIterator creates an iterator for DISTINCT operations
func (e *Executor) createDistinctIterator(plan *optimizer.DistinctPlan) (store.BindingIterator, error) {
	input, err := e.createIterator(plan.Input)
	if err != nil {
		return nil, err
	}

	return &distinctIterator{
		input: input,
		seen:  make(map[string]bool),
	}, nil
}

// convertTermOrVariable converts a parser term/variable to store format
func (e *Executor) convertTermOrVariable(tov parser.TermOrVariable) interface{} {
	if tov.IsVariable() {
		return store.NewVariable(tov.Variable.Name)
	}
	return tov.Term
}

// scanIterator implements BindingIterator for scanning
type scanIterator struct {
	quadIter store.QuadIterator
	pattern  *parser.TriplePattern
	binding  *store.Binding
}

func (it *scanIterator) Next() bool {
	if !it.quadIter.Next() {
		return false
	}

	quad, err := it.quadIter.Quad()
	if err != nil {
		return false
	}

	// Bind variables
	it.binding = store.NewBinding()

	if it.pattern.Subject.IsVariable() {
		it.binding.Vars[it.pattern.Subject.Variable.Name] = quad.Subject
	}
	if it.pattern.Predicate.IsVariable() {
		it.binding.Vars[it.pattern.Predicate.Variable.Name] = quad.Predicate
	}
	if it.pattern.Object.IsVariable() {
		it.binding.Vars[it.pattern.Object.Variable.Name] = quad.Object
	}

	return true
}

func (it *scanIterator) Binding() *store.Binding {
	return it.binding
}

func (it *scanIterator) Close() error {
	return it.quadIter.Close()
}

// nestedLoopJoinIterator implements nested loop join
type nestedLoopJoinIterator struct {
	left         store.BindingIterator
	rightPlan    optimizer.QueryPlan
	executor     *Executor
	currentLeft  *store.Binding
	currentRight store.BindingIterator
	result       *store.Binding
}

func (it *nestedLoopJoinIterator) Next() bool {
	for {
		// If we have a right iterator, try to get next from it
		if it.currentRight != nil {
			if it.currentRight.Next() {
				rightBinding := it.currentRight.Binding()

				// Merge bindings
				merged := it.mergeBindings(it.currentLeft, rightBinding)
				if merged != nil {
					it.result = merged
					return true
				}
				continue
			}
			// Right exhausted, close it
			_ = it.currentRight.Close() // #nosec G104 - close error doesn't affect iteration logic
			it.currentRight = nil
		}

		// Get next from left
		if !it.left.Next() {
			return false
		}

		it.currentLeft = it.left.Binding()

		// Create a new right iterator from the unchanged right plan; pairs
		// that disagree with the left binding are dropped when merged
		rightIter, err := it.executor.createIterator(it.rightPlan)
		if err != nil {
			return false
		}
		it.currentRight = rightIter
	}
}

func (it *nestedLoopJoinIterator) Binding() *store.Binding {
	return it.result
}

func (it *nestedLoopJoinIterator) Close() error {
	if it.currentRight != nil {
		_ = it.currentRight.Close() // #nosec G104 - right close error less critical than left close error
	}
	return it.left.Close()
}

// mergeBindings merges two bindings, returns nil if incompatible
func (it *nestedLoopJoinIterator) mergeBindings(left, right *store.Binding) *store.Binding {
	result := left.Clone()

	for varName, term := range right.Vars {
		if existingTerm, exists := result.Vars[varName]; exists {
			// Check compatibility
			if !existingTerm.Equals(term) {
				return nil
			}
		} else {
			result.Vars[varName] = term
		}
	}

	return result
}

// filterIterator implements filter operations
type filterIterator struct {
	input     store.BindingIterator
	filter    *parser.Filter
	evaluator *evaluator.Evaluator
}

func (it *filterIterator) Next() bool {
	for it.input.Next() {
		binding := it.input.Binding()

		if it.filter.Expression == nil {
			return true
		}

		result, err := it.evaluator.Evaluate(it.filter.Expression, binding)
		if err != nil {
			continue
		}

		lit, ok := result.(*rdf.Literal)
		if !ok {
			continue
		}

		if lit.Datatype != nil && lit.Datatype.IRI == "http://www.w3.org/2001/XMLSchema#boolean" {
			if lit.Value == "true" || lit.Value == "1" {
				return true
			}
		}
	}
	return false
}

func (it *filterIterator) Binding() *store.Binding {
	return it.input.Binding()
}

func (it *filterIterator) Close() error {
	return it.input.Close()
}

// projectionIterator implements projection operations
type projectionIterator struct {
	input     store.BindingIterator
	variables []*parser.Variable
}

func (it *projectionIterator) Next() bool {
	return it.input.Next()
}

func (it *projectionIterator) Binding() *store.Binding {
	if it.variables == nil {
		// SELECT *
		return it.input.Binding()
	}

	// Project only selected variables
	binding := store.NewBinding()
	inputBinding := it.input.Binding()

	for _, variable := range it.variables {
		if term, exists := inputBinding.Vars[variable.Name]; exists {
			binding.Vars[variable.Name] = term
		}
	}

	return binding
}

func (it *projectionIterator) Close() error {
	return it.input.Close()
}

// limitIterator implements LIMIT operations
type limitIterator struct {
	input store.BindingIterator
	limit int
	count int
}

func (it *limitIterator) Next() bool {
	if it.count >= it.limit {
		return false
	}

	if it.input.Next() {
		it.count++
		return true
	}

	return false
}

func (it *limitIterator) Binding() *store.Binding {
	return it.input.Binding()
}

func (it *limitIterator) Close() error {
	return it.input.Close()
}

// offsetIterator implements OFFSET operations
type offsetIterator struct {
	input   store.BindingIterator
	offset  int
	skipped int
}

func (it *offsetIterator) Next() bool {
	// Skip initial rows
	for it.skipped < it.offset {
		if !it.input.Next() {
			return false
		}
		it.skipped++
	}

	return it.input.Next()
}

func (it *offsetIterator) Binding() *store.Binding {
	return it.input.Binding()
}

func (it *offsetIterator) Close() error {
	return it.input.Close()
}

// distinctIterator implements DISTINCT operations
type distinctIterator struct {
	input store.BindingIterator
	seen  map[string]bool
}

func (it *distinctIterator) Next() bool {
	for it.input.Next() {
		binding := it.input.Binding()
		key := it.bindingKey(binding)

		if !it.seen[key] {
			it.seen[key] = true
			return true
		}
	}
	return false
}

func (it *distinctIterator) Binding() *store.Binding {
	return it.input.Binding()
}

func (it *distinctIterator) Close() error {
	return it.input.Close()
}

// bindingKey creates a unique key for a binding
func (it *distinctIterator) bindingKey(binding *store.Binding) string {
	// Simple string concatenation for now
	// TODO: Implement better hashing
	names := make([]string, 0, len(binding.Vars))
	for varName := range binding.Vars {
		names = append(names, varName)
	}
	sort.Strings(names)
	key := ""
	for _, varName := range names {
		key += varName + "=" + binding.Vars[varName].String() + ";"
	}
	return key
}

// createGraphIterator creates an iterator for a GRAPH pattern, constraining
// every scan beneath it to the named graph.
func (e *Executor) createGraphIterator(plan *optimizer.GraphPlan) (store.BindingIterator, error) {
	graphExec := &graphExecutor{base: e, graph: plan.Graph}
	return graphExec.createIterator(plan.Input)
}

// graphExecutor wraps an Executor and threads a graph constraint into every
// scan it creates, recursing through joins the same way the base executor does.
type graphExecutor struct {
	base  *Executor
	graph *parser.GraphTerm
}

func (ge *graphExecutor) createIterator(plan optimizer.QueryPlan) (store.BindingIterator, error) {
	switch p := plan.(type) {
	case *optimizer.ScanPlan:
		return ge.createGraphScanIterator(p)
	case *optimizer.JoinPlan:
		left, err := ge.createIterator(p.Left)
		if err != nil {
			return nil, err
		}
		return &graphJoinIterator{
			left:      left,
			rightPlan: p.Right,
			graphExec: ge,
		}, nil
	default:
		return ge.base.createIterator(plan)
	}
}

func (ge *graphExecutor) createGraphScanIterator(plan *optimizer.ScanPlan) (store.BindingIterator, error) {
	pattern := &store.Pattern{
		Subject:   ge.base.convertTermOrVariable(plan.Pattern.Subject),
		Predicate: ge.base.convertTermOrVariable(plan.Pattern.Predicate),
		Object:    ge.base.convertTermOrVariable(plan.Pattern.Object),
		Graph:     ge.convertGraphTerm(ge.graph),
	}

	quadIter, err := ge.base.queryPattern(pattern)
	if err != nil {
		return nil, err
	}

	return &scanIterator{
		quadIter: quadIter,
		pattern:  plan.Pattern,
		binding:  store.NewBinding(),
	}, nil
}

func (ge *graphExecutor) convertGraphTerm(graphTerm *parser.GraphTerm) any {
	if graphTerm.Variable != nil {
		return store.NewVariable(graphTerm.Variable.Name)
	}
	return graphTerm.IRI
}

// graphJoinIterator is nestedLoopJoinIterator's counterpart for GRAPH
// patterns: the right side is built through the graph-constrained executor
// rather than the base one, so nested scans stay within the named graph.
type graphJoinIterator struct {
	left         store.BindingIterator
	rightPlan    optimizer.QueryPlan
	graphExec    *graphExecutor
	currentLeft  *store.Binding
	currentRight store.BindingIterator
	result       *store.Binding
}

func (it *graphJoinIterator) Next() bool {
	for {
		if it.currentRight != nil {
			if it.currentRight.Next() {
				merged := it.mergeBindings(it.currentLeft, it.currentRight.Binding())
				if merged != nil {
					it.result = merged
					return true
				}
				continue
			}
			_ = it.currentRight.Close()
			it.currentRight = nil
		}

		if !it.left.Next() {
			return false
		}
		it.currentLeft = it.left.Binding()

		rightIter, err := it.graphExec.createIterator(it.rightPlan)
		if err != nil {
			return false
		}
		it.currentRight = rightIter
	}
}

func (it *graphJoinIterator) Binding() *store.Binding {
	return it.result
}

func (it *graphJoinIterator) Close() error {
	if it.currentRight != nil {
		_ = it.currentRight.Close()
	}
	return it.left.Close()
}

func (it *graphJoinIterator) mergeBindings(left, right *store.Binding) *store.Binding {
	result := left.Clone()
	for varName, term := range right.Vars {
		if existingTerm, exists := result.Vars[varName]; exists {
			if !existingTerm.Equals(term) {
				return nil
			}
		} else {
			result.Vars[varName] = term
		}
	}
	return result
}

// createBindIterator creates an iterator for BIND operations
func (e *Executor) createBindIterator(plan *optimizer.BindPlan) (store.BindingIterator, error) {
	input, err := e.createIterator(plan.Input)
	if err != nil {
		return nil, err
	}

	return &bindIterator{
		input:      input,
		expression: plan.Expression,
		variable:   plan.Variable,
		evaluator:  evaluator.NewEvaluatorWithMatcher(e),
	}, nil
}

// bindIterator implements BIND operations (variable assignment)
type bindIterator struct {
	input      store.BindingIterator
	expression parser.Expression
	variable   *parser.Variable
	evaluator  *evaluator.Evaluator
}

func (it *bindIterator) Next() bool {
	return it.input.Next()
}

func (it *bindIterator) Binding() *store.Binding {
	inputBinding := it.input.Binding()

	result, err := it.evaluator.Evaluate(it.expression, inputBinding)
	if err != nil {
		// BIND failures drop only the bound variable, per SPARQL semantics;
		// the rest of the solution still flows through.
		return inputBinding
	}

	extendedBinding := inputBinding.Clone()
	extendedBinding.Vars[it.variable.Name] = result
	return extendedBinding
}

func (it *bindIterator) Close() error {
	return it.input.Close()
}

// createOptionalIterator creates an iterator for OPTIONAL operations (left outer join)
func (e *Executor) createOptionalIterator(plan *optimizer.OptionalPlan) (store.BindingIterator, error) {
	left, err := e.createIterator(plan.Left)
	if err != nil {
		return nil, err
	}

	return &optionalIterator{
		left:      left,
		rightPlan: plan.Right,
		executor:  e,
	}, nil
}

// optionalIterator implements OPTIONAL patterns (left outer join)
type optionalIterator struct {
	left         store.BindingIterator
	rightPlan    optimizer.QueryPlan
	executor     *Executor
	currentLeft  *store.Binding
	currentRight store.BindingIterator
	result       *store.Binding
	hasMatch     bool
}

func (it *optionalIterator) Next() bool {
	for {
		if it.currentRight != nil {
			if it.currentRight.Next() {
				merged := it.mergeBindings(it.currentLeft, it.currentRight.Binding())
				if merged != nil {
					it.hasMatch = true
					it.result = merged
					return true
				}
				continue
			}
			_ = it.currentRight.Close()
			it.currentRight = nil

			if !it.hasMatch {
				it.result = it.currentLeft
				return true
			}
		}

		if !it.left.Next() {
			return false
		}
		it.currentLeft = it.left.Binding()
		it.hasMatch = false

		rightIter, err := it.executor.createIterator(it.rightPlan)
		if err != nil {
			// If the right side can't be built, OPTIONAL semantics still
			// require returning the left binding alone.
			it.result = it.currentLeft
			return true
		}
		it.currentRight = rightIter
	}
}

func (it *optionalIterator) Binding() *store.Binding {
	return it.result
}

func (it *optionalIterator) Close() error {
	if it.currentRight != nil {
		_ = it.currentRight.Close()
	}
	return it.left.Close()
}

func (it *optionalIterator) mergeBindings(left, right *store.Binding) *store.Binding {
	result := left.Clone()
	for varName, term := range right.Vars {
		if existingTerm, exists := result.Vars[varName]; exists {
			if !existingTerm.Equals(term) {
				return nil
			}
		} else {
			result.Vars[varName] = term
		}
	}
	return result
}

// createUnionIterator creates an iterator for UNION operations (alternation)
func (e *Executor) createUnionIterator(plan *optimizer.UnionPlan) (store.BindingIterator, error) {
	left, err := e.createIterator(plan.Left)
	if err != nil {
		return nil, err
	}

	right, err := e.createIterator(plan.Right)
	if err != nil {
		_ = left.Close()
		return nil, err
	}

	return &unionIterator{left: left, right: right}, nil
}

// unionIterator implements UNION patterns (alternation)
type unionIterator struct {
	left     store.BindingIterator
	right    store.BindingIterator
	leftDone bool
}

func (it *unionIterator) Next() bool {
	if !it.leftDone {
		if it.left.Next() {
			return true
		}
		it.leftDone = true
	}
	return it.right.Next()
}

func (it *unionIterator) Binding() *store.Binding {
	if !it.leftDone {
		return it.left.Binding()
	}
	return it.right.Binding()
}

func (it *unionIterator) Close() error {
	_ = it.left.Close()
	return it.right.Close()
}

// createMinusIterator creates an iterator for MINUS operations (set difference)
func (e *Executor) createMinusIterator(plan *optimizer.MinusPlan) (store.BindingIterator, error) {
	left, err := e.createIterator(plan.Left)
	if err != nil {
		return nil, err
	}

	return &minusIterator{left: left, rightPlan: plan.Right, executor: e}, nil
}

// minusIterator implements MINUS patterns (set difference)
type minusIterator struct {
	left      store.BindingIterator
	rightPlan optimizer.QueryPlan
	executor  *Executor
}

func (it *minusIterator) Next() bool {
	for it.left.Next() {
		leftBinding := it.left.Binding()

		rightIter, err := it.executor.createIterator(it.rightPlan)
		if err != nil {
			return true
		}

		hasMatch := false
		for rightIter.Next() {
			if it.isCompatible(leftBinding, rightIter.Binding()) {
				hasMatch = true
				break
			}
		}
		_ = rightIter.Close()

		if !hasMatch {
			return true
		}
	}
	return false
}

func (it *minusIterator) Binding() *store.Binding {
	return it.left.Binding()
}

func (it *minusIterator) Close() error {
	return it.left.Close()
}

// isCompatible reports whether two bindings share no conflicting variable values.
func (it *minusIterator) isCompatible(left, right *store.Binding) bool {
	return bindingsCompatible(left, right)
}

// bindingsCompatible reports whether two bindings agree on every variable
// name they share, the standard SPARQL notion of compatible solutions.
func bindingsCompatible(left, right *store.Binding) bool {
	for varName, leftTerm := range left.Vars {
		if rightTerm, exists := right.Vars[varName]; exists {
			if !leftTerm.Equals(rightTerm) {
				return false
			}
		}
	}
	return true
}

// PatternExists implements evaluator.ExistsMatcher: it plans pattern as a
// standalone graph pattern and reports whether any of its solutions are
// compatible with binding. This approximates correlated EXISTS evaluation
// (substituting binding into pattern before planning it) with a
// binding-compatibility check, the same simplification createMinusIterator
// already relies on for MINUS.
func (e *Executor) PatternExists(pattern *parser.GraphPattern, binding *store.Binding) (bool, error) {
	opt := optimizer.NewOptimizer(&optimizer.Statistics{})
	plan, err := opt.OptimizeGraphPattern(pattern)
	if err != nil {
		return false, fmt.Errorf("plan EXISTS pattern: %w", err)
	}

	iter, err := e.createIterator(plan)
	if err != nil {
		return false, fmt.Errorf("execute EXISTS pattern: %w", err)
	}
	defer iter.Close()

	for iter.Next() {
		if bindingsCompatible(binding, iter.Binding()) {
			return true, nil
		}
	}
	return false, nil
}

// createOrderByIterator creates an iterator for ORDER BY operations
func (e *Executor) createOrderByIterator(plan *optimizer.OrderByPlan) (store.BindingIterator, error) {
	input, err := e.createIterator(plan.Input)
	if err != nil {
		return nil, err
	}

	return &orderByIterator{input: input, orderBy: plan.OrderBy}, nil
}

// orderByIterator implements ORDER BY operations by materializing and
// sorting every solution once the input is exhausted.
type orderByIterator struct {
	input       store.BindingIterator
	orderBy     []*parser.OrderCondition
	bindings    []*store.Binding
	position    int
	initialized bool
}

func (it *orderByIterator) Next() bool {
	if !it.initialized {
		it.initialized = true

		for it.input.Next() {
			it.bindings = append(it.bindings, it.input.Binding().Clone())
		}

		it.sortBindings()
	}

	if it.position >= len(it.bindings) {
		return false
	}
	it.position++
	return true
}

func (it *orderByIterator) Binding() *store.Binding {
	if it.position > 0 && it.position <= len(it.bindings) {
		return it.bindings[it.position-1]
	}
	return store.NewBinding()
}

func (it *orderByIterator) Close() error {
	return it.input.Close()
}

func (it *orderByIterator) sortBindings() {
	if len(it.orderBy) == 0 {
		return
	}

	for i := 0; i < len(it.bindings); i++ {
		for j := i + 1; j < len(it.bindings); j++ {
			if it.shouldSwap(it.bindings[i], it.bindings[j]) {
				it.bindings[i], it.bindings[j] = it.bindings[j], it.bindings[i]
			}
		}
	}
}

// shouldSwap reports whether binding a should sort after binding b.
func (it *orderByIterator) shouldSwap(a, b *store.Binding) bool {
	for _, condition := range it.orderBy {
		cmp := it.compareByCondition(a, b, condition)
		if cmp != 0 {
			if !condition.Ascending {
				cmp = -cmp
			}
			return cmp > 0
		}
	}
	return false
}

// compareByCondition compares two bindings on a single ORDER BY condition.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
func (it *orderByIterator) compareByCondition(a, b *store.Binding, condition *parser.OrderCondition) int {
	varExpr, ok := condition.Expression.(*parser.VariableExpression)
	if !ok {
		// TODO: evaluate full expressions once ORDER BY supports them
		return 0
	}

	varName := varExpr.Variable.Name
	aVal, aExists := a.Vars[varName]
	bVal, bExists := b.Vars[varName]

	if !aExists && !bExists {
		return 0
	}
	if !aExists {
		return -1
	}
	if !bExists {
		return 1
	}

	return it.compareTerms(aVal, bVal)
}

// compareTerms orders two terms lexically by their string form.
// TODO: implement full SPARQL ORDER BY term ordering (type-then-value).
func (it *orderByIterator) compareTerms(a, b rdf.Term) int {
	aStr := a.String()
	bStr := b.String()

	switch {
	case aStr < bStr:
		return -1
	case aStr > bStr:
		return 1
	default:
		return 0
	}
}
