package update

import (
	"fmt"

	"github.com/quadstore/trigo/internal/sparql/parser"
)

// executeClear implements CLEAR [SILENT] target, removing every quad a
// target names but leaving any named graph record itself in place.
func (e *Executor) executeClear(op *parser.ClearOp) error {
	switch op.Target.Kind {
	case parser.GraphTargetDefault:
		return e.store.ClearDefaultGraph()
	case parser.GraphTargetAll:
		return e.store.ClearAll()
	case parser.GraphTargetNamed:
		graphs, err := e.store.ListGraphs()
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := e.store.ClearGraph(g); err != nil {
				return err
			}
		}
		return nil
	case parser.GraphTargetIRI:
		return e.store.ClearGraph(op.Target.IRI)
	default:
		return fmt.Errorf("clear: unknown graph target")
	}
}

// executeCreate implements CREATE [SILENT] GRAPH <iri>. Non-SILENT CREATE
// against a graph that already exists is an error.
func (e *Executor) executeCreate(op *parser.CreateOp) error {
	exists, err := e.store.GraphExists(op.Graph)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("create: graph already exists: %s", op.Graph.IRI)
	}
	return e.store.CreateGraph(op.Graph)
}

// executeDrop implements DROP [SILENT] target. Non-SILENT DROP against an
// IRI target that doesn't exist is an error; DEFAULT/NAMED/ALL never
// error since they always name something, even if empty.
func (e *Executor) executeDrop(op *parser.DropOp) error {
	switch op.Target.Kind {
	case parser.GraphTargetDefault:
		return e.store.ClearDefaultGraph()
	case parser.GraphTargetAll:
		return e.store.ClearAll()
	case parser.GraphTargetNamed:
		graphs, err := e.store.ListGraphs()
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := e.store.DropGraph(g); err != nil {
				return err
			}
		}
		return nil
	case parser.GraphTargetIRI:
		exists, err := e.store.GraphExists(op.Target.IRI)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("drop: graph does not exist: %s", op.Target.IRI.IRI)
		}
		return e.store.DropGraph(op.Target.IRI)
	default:
		return fmt.Errorf("drop: unknown graph target")
	}
}
