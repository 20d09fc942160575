// Package update executes SPARQL 1.1 Update requests against a TripleStore:
// INSERT DATA, DELETE DATA, DELETE/INSERT WHERE and its shorthands, LOAD,
// CLEAR, CREATE and DROP.
package update

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/quadstore/trigo/internal/sparql/executor"
	"github.com/quadstore/trigo/internal/sparql/optimizer"
	"github.com/quadstore/trigo/internal/sparql/parser"
	"github.com/quadstore/trigo/internal/store"
	"github.com/quadstore/trigo/pkg/rdf"
)

// Executor runs the operations of an UpdateRequest in order against store,
// using executor/optimizer to plan and run the WHERE pattern of
// DELETE/INSERT WHERE operations.
type Executor struct {
	store *store.TripleStore
}

// NewExecutor creates an update executor over store.
func NewExecutor(store *store.TripleStore) *Executor {
	return &Executor{store: store}
}

// Execute runs every operation in req in order. Operations are not
// transactional across each other: each one commits on its own, and the
// first failing operation stops the request with its error, leaving the
// effects of earlier operations in place.
func (e *Executor) Execute(req *parser.UpdateRequest) error {
	for i, op := range req.Operations {
		if err := e.executeOperation(op); err != nil {
			return fmt.Errorf("update: operation %d: %w", i, err)
		}
	}
	return nil
}

func (e *Executor) executeOperation(op parser.UpdateOperation) error {
	switch o := op.(type) {
	case *parser.InsertDataOp:
		return e.executeInsertData(o)
	case *parser.DeleteDataOp:
		return e.executeDeleteData(o)
	case *parser.DeleteInsertOp:
		return e.executeDeleteInsert(o)
	case *parser.LoadOp:
		return e.executeLoad(o)
	case *parser.ClearOp:
		return silent(o.Silent, e.executeClear(o))
	case *parser.CreateOp:
		return silent(o.Silent, e.executeCreate(o))
	case *parser.DropOp:
		return silent(o.Silent, e.executeDrop(o))
	default:
		return fmt.Errorf("unsupported update operation: %T", op)
	}
}

// silent swallows err when the operation carried the SILENT modifier.
func silent(isSilent bool, err error) error {
	if isSilent {
		return nil
	}
	return err
}

// executeInsertData implements INSERT DATA { quads }. Every quad must be
// ground, with blank nodes scoped to this single operation: the same
// label used twice resolves to the same node, but a label reused in a
// later operation gets a fresh one.
func (e *Executor) executeInsertData(op *parser.InsertDataOp) error {
	alloc := newBlankNodeAllocator()
	quads := make([]*rdf.Quad, 0, len(op.Quads))
	for _, qd := range op.Quads {
		quad, err := groundQuad(qd, alloc)
		if err != nil {
			return fmt.Errorf("insert data: %w", err)
		}
		quads = append(quads, quad)
	}
	return e.store.InsertQuadsBatch(quads)
}

// executeDeleteData implements DELETE DATA { quads }. A quad naming a
// blank node can never match a stored quad (fresh blank nodes never
// coincide with anything previously inserted), so it is simply dropped
// from the batch rather than treated as an error.
func (e *Executor) executeDeleteData(op *parser.DeleteDataOp) error {
	alloc := newBlankNodeAllocator()
	quads := make([]*rdf.Quad, 0, len(op.Quads))
	for _, qd := range op.Quads {
		quad, err := groundQuad(qd, alloc)
		if err != nil {
			return fmt.Errorf("delete data: %w", err)
		}
		if hasBlankNode(quad) {
			continue
		}
		quads = append(quads, quad)
	}
	return e.store.DeleteQuadsBatch(quads)
}

// groundQuad resolves qd's subject/predicate/object/graph to concrete RDF
// terms. A DATA block never contains a variable; a TermOrVariable that
// turns out to be a variable is rejected.
func groundQuad(qd *parser.QuadData, alloc *blankNodeAllocator) (*rdf.Quad, error) {
	s, err := groundTerm(qd.Subject, alloc)
	if err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	p, err := groundTerm(qd.Predicate, alloc)
	if err != nil {
		return nil, fmt.Errorf("predicate: %w", err)
	}
	o, err := groundTerm(qd.Object, alloc)
	if err != nil {
		return nil, fmt.Errorf("object: %w", err)
	}
	g := rdf.Term(rdf.NewDefaultGraph())
	if qd.Graph != nil {
		if qd.Graph.Variable != nil {
			return nil, fmt.Errorf("graph name must be a ground IRI, got variable ?%s", qd.Graph.Variable.Name)
		}
		g = qd.Graph.IRI
	}
	return rdf.NewQuad(s, p, o, g), nil
}

func groundTerm(t parser.TermOrVariable, alloc *blankNodeAllocator) (rdf.Term, error) {
	if t.IsVariable() {
		return nil, fmt.Errorf("must be ground, got variable ?%s", t.Variable.Name)
	}
	if bnode, ok := t.Term.(*rdf.BlankNode); ok {
		return alloc.resolve(bnode.ID), nil
	}
	return t.Term, nil
}

func hasBlankNode(q *rdf.Quad) bool {
	_, s := q.Subject.(*rdf.BlankNode)
	_, p := q.Predicate.(*rdf.BlankNode)
	_, o := q.Object.(*rdf.BlankNode)
	return s || p || o
}

// blankNodeAllocator maps a blank node label, as written in the update
// text, to a single fresh identifier for the lifetime of one operation.
// The same label resolves to the same node within the operation; two
// operations never share an allocator, so "_:x" in one INSERT DATA block
// never collides with "_:x" in another.
type blankNodeAllocator struct {
	ids map[string]*rdf.BlankNode
}

func newBlankNodeAllocator() *blankNodeAllocator {
	return &blankNodeAllocator{ids: make(map[string]*rdf.BlankNode)}
}

func (a *blankNodeAllocator) resolve(label string) *rdf.BlankNode {
	if node, ok := a.ids[label]; ok {
		return node
	}
	node := rdf.NewBlankNode(uuid.NewString())
	a.ids[label] = node
	return node
}

// runSelectAll plans and executes pattern as a SELECT * query, returning
// one binding per solution. It is the mechanism DELETE/INSERT WHERE uses
// to drive its template instantiation.
func runSelectAll(s *store.TripleStore, pattern *parser.GraphPattern, dataset []*parser.DatasetClause) ([]*store.Binding, error) {
	query := &parser.Query{
		QueryType: parser.QueryTypeSelect,
		Select: &parser.SelectQuery{
			Variables: nil, // SELECT *
			Dataset:   dataset,
			Where:     pattern,
		},
	}

	opt := optimizer.NewOptimizer(&optimizer.Statistics{})
	plan, err := opt.Optimize(query)
	if err != nil {
		return nil, fmt.Errorf("plan WHERE clause: %w", err)
	}

	exec := executor.NewExecutor(s)
	result, err := exec.Execute(plan)
	if err != nil {
		return nil, fmt.Errorf("execute WHERE clause: %w", err)
	}

	selectResult, ok := result.(*executor.SelectResult)
	if !ok {
		return nil, fmt.Errorf("execute WHERE clause: expected SelectResult, got %T", result)
	}
	return selectResult.Bindings, nil
}
