package rdf

import (
	"encoding/json"
	"fmt"
	"io"

	ld "github.com/piprate/json-gold/ld"
)

// JSONLDParser parses JSON-LD documents into quads using json-gold's
// expansion/RDF-conversion algorithm (the teacher's hand-rolled @id/@type
// walker only covered a handful of shapes; json-gold implements the real
// JSON-LD 1.1 algorithm, including @graph, @list, @set, @reverse, and
// remote/embedded @context processing).
//
// Conversion goes through N-Quads text rather than json-gold's internal
// RDFDataset/Node types: ToRDF is asked to emit "application/nquads"
// directly, and the result is handed to the existing NQuadsParser. That
// keeps exactly one N-Quads grammar in this package instead of two.
type JSONLDParser struct {
	processor *ld.JsonLdProcessor
}

func NewJSONLDParser() *JSONLDParser {
	return &JSONLDParser{processor: ld.NewJsonLdProcessor()}
}

func (p *JSONLDParser) ContentType() string { return "application/ld+json" }

func (p *JSONLDParser) Parse(reader io.Reader) ([]*Quad, error) {
	var doc interface{}
	if err := json.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, fmt.Errorf("rdf: decode json-ld document: %w", err)
	}

	options := ld.NewJsonLdOptions("")
	options.Format = "application/nquads"

	result, err := p.processor.ToRDF(doc, options)
	if err != nil {
		return nil, fmt.Errorf("rdf: expand json-ld to rdf: %w", err)
	}

	nquads, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("rdf: unexpected json-ld ToRDF result type %T", result)
	}

	quads, err := NewNQuadsParser(nquads).Parse()
	if err != nil {
		return nil, fmt.Errorf("rdf: parse json-ld rdf output: %w", err)
	}
	return quads, nil
}

// SerializeQuadsJSONLD converts quads into an expanded (uncompacted) JSON-LD
// document via json-gold's FromRDF, reusing the existing N-Quads canonical serializer as the bridge
// into json-gold rather than building quads out of its Node/RDFDataset types
// by hand.
func SerializeQuadsJSONLD(quads []*Quad) (interface{}, error) {
	nquads := SerializeQuadsCanonical(quads)

	processor := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.Format = "application/nquads"

	expanded, err := processor.FromRDF(nquads, options)
	if err != nil {
		return nil, fmt.Errorf("rdf: convert rdf to json-ld: %w", err)
	}
	return expanded, nil
}
