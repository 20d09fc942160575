package parser

import (
	"fmt"

	"github.com/quadstore/trigo/pkg/rdf"
)

// parseUpdate parses a SPARQL Update request: one or more ';'-separated
// update operations. Later operations may declare their own PREFIX/BASE
// overrides, which take effect for the rest of the request.
func (p *Parser) parseUpdate() (*UpdateRequest, error) {
	req := &UpdateRequest{}

	for {
		p.skipWhitespace()
		if p.pos >= p.length {
			break
		}

		op, err := p.parseUpdateOperation()
		if err != nil {
			return nil, err
		}
		req.Operations = append(req.Operations, op)

		p.skipWhitespace()
		if p.peek() != ';' {
			break
		}
		p.advance()

		for {
			p.skipWhitespace()
			if p.matchKeyword("PREFIX") {
				if err := p.skipPrefix(); err != nil {
					return nil, err
				}
			} else if p.matchKeyword("BASE") {
				if err := p.skipBase(); err != nil {
					return nil, err
				}
			} else {
				break
			}
		}
	}

	return req, nil
}

func (p *Parser) parseUpdateOperation() (UpdateOperation, error) {
	p.skipWhitespace()
	switch {
	case p.matchKeyword("INSERT"):
		return p.parseInsertOperation()
	case p.matchKeyword("DELETE"):
		return p.parseDeleteOperation()
	case p.matchKeyword("LOAD"):
		return p.parseLoadOperation()
	case p.matchKeyword("CLEAR"):
		return p.parseClearOperation()
	case p.matchKeyword("CREATE"):
		return p.parseCreateOperation()
	case p.matchKeyword("DROP"):
		return p.parseDropOperation()
	case p.matchKeyword("WITH"):
		return p.parseWithOperation()
	default:
		return nil, fmt.Errorf("expected an update operation (INSERT, DELETE, LOAD, CLEAR, CREATE, DROP, WITH)")
	}
}

// parseInsertOperation parses INSERT DATA { ... } and the INSERT-only form
// of DELETE/INSERT WHERE (INSERT { template } [USING ...] WHERE { pattern }).
func (p *Parser) parseInsertOperation() (UpdateOperation, error) {
	p.skipWhitespace()
	if p.matchKeyword("DATA") {
		quads, err := p.parseQuadDataBlock()
		if err != nil {
			return nil, err
		}
		return &InsertDataOp{Quads: quads}, nil
	}

	insertTemplate, err := p.parseQuadDataBlock()
	if err != nil {
		return nil, err
	}
	using, err := p.parseUsingClauses()
	if err != nil {
		return nil, err
	}
	if !p.matchKeyword("WHERE") {
		return nil, fmt.Errorf("expected WHERE after INSERT template")
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	return &DeleteInsertOp{InsertTemplate: insertTemplate, Using: using, Where: where}, nil
}

// parseDeleteOperation parses DELETE DATA { ... }, DELETE WHERE { ... }, and
// the full DELETE { ... } [INSERT { ... }] [USING ...] WHERE { ... } form.
func (p *Parser) parseDeleteOperation() (UpdateOperation, error) {
	p.skipWhitespace()
	if p.matchKeyword("DATA") {
		quads, err := p.parseQuadDataBlock()
		if err != nil {
			return nil, err
		}
		return &DeleteDataOp{Quads: quads}, nil
	}

	if p.matchKeyword("WHERE") {
		pattern, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		return &DeleteInsertOp{DeleteTemplate: quadDataFromPattern(pattern), Where: pattern}, nil
	}

	deleteTemplate, err := p.parseQuadDataBlock()
	if err != nil {
		return nil, err
	}

	using, err := p.parseUsingClauses()
	if err != nil {
		return nil, err
	}

	var insertTemplate []*QuadData
	if p.matchKeyword("INSERT") {
		insertTemplate, err = p.parseQuadDataBlock()
		if err != nil {
			return nil, err
		}
		moreUsing, err := p.parseUsingClauses()
		if err != nil {
			return nil, err
		}
		using = append(using, moreUsing...)
	}

	if !p.matchKeyword("WHERE") {
		return nil, fmt.Errorf("expected WHERE in DELETE operation")
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}

	return &DeleteInsertOp{
		DeleteTemplate: deleteTemplate,
		InsertTemplate: insertTemplate,
		Using:          using,
		Where:          where,
	}, nil
}

// parseWithOperation parses WITH <iri> [DELETE {...}] [INSERT {...}]
// [USING ...] WHERE { ... }, which scopes the default graph of the
// DELETE/INSERT templates and the WHERE pattern to the named IRI.
func (p *Parser) parseWithOperation() (UpdateOperation, error) {
	p.skipWhitespace()
	iri, err := p.parseIRI()
	if err != nil {
		return nil, fmt.Errorf("expected IRI after WITH: %w", err)
	}
	with := rdf.NewNamedNode(iri)

	var deleteTemplate, insertTemplate []*QuadData

	if p.matchKeyword("DELETE") {
		deleteTemplate, err = p.parseQuadDataBlock()
		if err != nil {
			return nil, err
		}
	}
	if p.matchKeyword("INSERT") {
		insertTemplate, err = p.parseQuadDataBlock()
		if err != nil {
			return nil, err
		}
	}

	using, err := p.parseUsingClauses()
	if err != nil {
		return nil, err
	}

	if !p.matchKeyword("WHERE") {
		return nil, fmt.Errorf("expected WHERE in WITH operation")
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}

	return &DeleteInsertOp{
		With:           with,
		DeleteTemplate: deleteTemplate,
		InsertTemplate: insertTemplate,
		Using:          using,
		Where:          where,
	}, nil
}

// parseLoadOperation parses LOAD [SILENT] <iri> [INTO GRAPH <iri>].
func (p *Parser) parseLoadOperation() (UpdateOperation, error) {
	silent := p.matchKeyword("SILENT")
	p.skipWhitespace()
	source, err := p.parseIRI()
	if err != nil {
		return nil, fmt.Errorf("expected IRI after LOAD: %w", err)
	}

	op := &LoadOp{Source: rdf.NewNamedNode(source), Silent: silent}

	p.skipWhitespace()
	if p.matchKeyword("INTO") {
		p.skipWhitespace()
		if !p.matchKeyword("GRAPH") {
			return nil, fmt.Errorf("expected GRAPH after INTO in LOAD")
		}
		p.skipWhitespace()
		into, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		op.Into = rdf.NewNamedNode(into)
	}

	return op, nil
}

// parseClearOperation parses CLEAR [SILENT] target.
func (p *Parser) parseClearOperation() (UpdateOperation, error) {
	silent := p.matchKeyword("SILENT")
	target, err := p.parseGraphRefAll()
	if err != nil {
		return nil, err
	}
	return &ClearOp{Target: target, Silent: silent}, nil
}

// parseCreateOperation parses CREATE [SILENT] GRAPH <iri>.
func (p *Parser) parseCreateOperation() (UpdateOperation, error) {
	silent := p.matchKeyword("SILENT")
	p.skipWhitespace()
	if !p.matchKeyword("GRAPH") {
		return nil, fmt.Errorf("expected GRAPH after CREATE")
	}
	p.skipWhitespace()
	iri, err := p.parseIRI()
	if err != nil {
		return nil, err
	}
	return &CreateOp{Graph: rdf.NewNamedNode(iri), Silent: silent}, nil
}

// parseDropOperation parses DROP [SILENT] target.
func (p *Parser) parseDropOperation() (UpdateOperation, error) {
	silent := p.matchKeyword("SILENT")
	target, err := p.parseGraphRefAll()
	if err != nil {
		return nil, err
	}
	return &DropOp{Target: target, Silent: silent}, nil
}

// parseGraphRefAll parses the GraphRefAll production: GRAPH <iri>, DEFAULT,
// NAMED, or ALL, as used by CLEAR and DROP.
func (p *Parser) parseGraphRefAll() (GraphTarget, error) {
	p.skipWhitespace()
	if p.matchKeyword("DEFAULT") {
		return GraphTarget{Kind: GraphTargetDefault}, nil
	}
	if p.matchKeyword("NAMED") {
		return GraphTarget{Kind: GraphTargetNamed}, nil
	}
	if p.matchKeyword("ALL") {
		return GraphTarget{Kind: GraphTargetAll}, nil
	}
	if p.matchKeyword("GRAPH") {
		p.skipWhitespace()
	}
	if p.peek() != '<' {
		return GraphTarget{}, fmt.Errorf("expected a graph IRI, DEFAULT, NAMED, or ALL")
	}
	iri, err := p.parseIRI()
	if err != nil {
		return GraphTarget{}, err
	}
	return GraphTarget{Kind: GraphTargetIRI, IRI: rdf.NewNamedNode(iri)}, nil
}

// parseUsingClauses parses zero or more USING [NAMED] <iri> clauses.
func (p *Parser) parseUsingClauses() ([]*DatasetClause, error) {
	var clauses []*DatasetClause
	for {
		p.skipWhitespace()
		if !p.matchKeyword("USING") {
			break
		}
		named := p.matchKeyword("NAMED")
		p.skipWhitespace()
		iri, err := p.parseIRI()
		if err != nil {
			return nil, fmt.Errorf("expected IRI after USING: %w", err)
		}
		clauses = append(clauses, &DatasetClause{IRI: rdf.NewNamedNode(iri), Named: named})
	}
	return clauses, nil
}

// parseQuadDataBlock parses a "{ quad quad ... }" block as used by
// INSERT DATA, DELETE DATA, and DELETE/INSERT templates: plain triple
// patterns in the implicit graph, plus GRAPH <g> { ... } groups.
func (p *Parser) parseQuadDataBlock() ([]*QuadData, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, fmt.Errorf("expected '{' to start a quad block")
	}
	p.advance()

	var quads []*QuadData
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}

		if p.matchKeyword("GRAPH") {
			p.skipWhitespace()
			graphTerm := &GraphTerm{}
			switch {
			case p.peek() == '<':
				iri, err := p.parseIRI()
				if err != nil {
					return nil, err
				}
				graphTerm.IRI = rdf.NewNamedNode(iri)
			case p.peek() == '?' || p.peek() == '$':
				variable, err := p.parseVariable()
				if err != nil {
					return nil, err
				}
				graphTerm.Variable = variable
			default:
				return nil, fmt.Errorf("expected IRI or variable after GRAPH in quad block")
			}

			p.skipWhitespace()
			if p.peek() != '{' {
				return nil, fmt.Errorf("expected '{' after GRAPH in quad block")
			}
			p.advance()

			for {
				p.skipWhitespace()
				if p.peek() == '}' {
					p.advance()
					break
				}
				triple, err := p.parseTriplePattern()
				if err != nil {
					return nil, err
				}
				quads = append(quads, &QuadData{
					Subject:   triple.Subject,
					Predicate: triple.Predicate,
					Object:    triple.Object,
					Graph:     graphTerm,
				})
				p.skipWhitespace()
				if p.peek() == '.' {
					p.advance()
				}
			}
			continue
		}

		triple, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		quads = append(quads, &QuadData{
			Subject:   triple.Subject,
			Predicate: triple.Predicate,
			Object:    triple.Object,
		})

		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}

	return quads, nil
}

// quadDataFromPattern flattens a graph pattern parsed for DELETE WHERE's
// shorthand into the quad template DELETE WHERE both matches and removes.
func quadDataFromPattern(pattern *GraphPattern) []*QuadData {
	var quads []*QuadData
	for _, triple := range pattern.Patterns {
		quads = append(quads, &QuadData{
			Subject:   triple.Subject,
			Predicate: triple.Predicate,
			Object:    triple.Object,
		})
	}
	for _, child := range pattern.Children {
		if child.Type != GraphPatternTypeGraph {
			continue
		}
		for _, triple := range child.Patterns {
			quads = append(quads, &QuadData{
				Subject:   triple.Subject,
				Predicate: triple.Predicate,
				Object:    triple.Object,
				Graph:     child.Graph,
			})
		}
	}
	return quads
}
