package update

import (
	"github.com/quadstore/trigo/internal/sparql/parser"
	"github.com/quadstore/trigo/internal/store"
	"github.com/quadstore/trigo/pkg/rdf"
)

// executeDeleteInsert implements DELETE { ... } INSERT { ... } [USING ...]
// WHERE { ... } and its DELETE WHERE / INSERT WHERE shorthands. Every
// solution of Where instantiates DeleteTemplate and InsertTemplate once;
// an instantiated quad left with an unbound variable is dropped, and an
// instantiated DELETE quad still carrying a blank node is dropped too,
// since DELETE only ever removes ground quads a prior INSERT put there.
func (e *Executor) executeDeleteInsert(op *parser.DeleteInsertOp) error {
	bindings, err := runSelectAll(e.store, op.Where, e.effectiveDataset(op))
	if err != nil {
		return err
	}

	var toDelete []*rdf.Quad
	for _, binding := range bindings {
		for _, qd := range op.DeleteTemplate {
			quad, ok := instantiateQuad(qd, binding, op.With, nil)
			if !ok || hasBlankNode(quad) {
				continue
			}
			toDelete = append(toDelete, quad)
		}
	}
	if len(toDelete) > 0 {
		if err := e.store.DeleteQuadsBatch(toDelete); err != nil {
			return err
		}
	}

	var toInsert []*rdf.Quad
	for _, binding := range bindings {
		alloc := newBlankNodeAllocator()
		for _, qd := range op.InsertTemplate {
			quad, ok := instantiateQuad(qd, binding, op.With, alloc)
			if !ok {
				continue
			}
			toInsert = append(toInsert, quad)
		}
	}
	if len(toInsert) > 0 {
		if err := e.store.InsertQuadsBatch(toInsert); err != nil {
			return err
		}
	}
	return nil
}

// effectiveDataset builds the FROM/FROM NAMED set the WHERE clause runs
// under: USING/USING NAMED clauses when present, otherwise WITH's default
// graph override, otherwise the store's own default dataset.
func (e *Executor) effectiveDataset(op *parser.DeleteInsertOp) []*parser.DatasetClause {
	if len(op.Using) > 0 {
		return op.Using
	}
	if op.With != nil {
		return []*parser.DatasetClause{{IRI: op.With, Named: false}}
	}
	return nil
}

// instantiateQuad substitutes binding's values into qd's subject,
// predicate and object, falling back to withGraph (WITH's default-graph
// override, or the store's physical default graph when nil) when qd
// names no explicit graph. alloc allocates a fresh blank node per label
// the first time it's seen, or leaves a template blank node literal if
// alloc is nil (used for DELETE templates, where a leftover blank node
// just means the quad can never match anything stored).
func instantiateQuad(qd *parser.QuadData, binding *store.Binding, withGraph *rdf.NamedNode, alloc *blankNodeAllocator) (*rdf.Quad, bool) {
	s, ok := instantiateTerm(qd.Subject, binding, alloc)
	if !ok {
		return nil, false
	}
	p, ok := instantiateTerm(qd.Predicate, binding, alloc)
	if !ok {
		return nil, false
	}
	o, ok := instantiateTerm(qd.Object, binding, alloc)
	if !ok {
		return nil, false
	}

	var g rdf.Term
	switch {
	case qd.Graph != nil && qd.Graph.IRI != nil:
		g = qd.Graph.IRI
	case qd.Graph != nil && qd.Graph.Variable != nil:
		value, exists := binding.Vars[qd.Graph.Variable.Name]
		if !exists {
			return nil, false
		}
		g = value
	case withGraph != nil:
		g = withGraph
	default:
		g = rdf.NewDefaultGraph()
	}

	return rdf.NewQuad(s, p, o, g), true
}

func instantiateTerm(t parser.TermOrVariable, binding *store.Binding, alloc *blankNodeAllocator) (rdf.Term, bool) {
	if t.IsVariable() {
		value, exists := binding.Vars[t.Variable.Name]
		if !exists {
			return nil, false
		}
		return value, true
	}
	if bnode, ok := t.Term.(*rdf.BlankNode); ok && alloc != nil {
		return alloc.resolve(bnode.ID), true
	}
	return t.Term, true
}
