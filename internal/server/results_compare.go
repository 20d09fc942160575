package server

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/quadstore/trigo/pkg/rdf"
)

// expectedResultsXML is the SPARQL XML results format, used here only to
// read a W3C test suite's expected-results fixture, not to serve queries
// (FormatSelectResultsXML/FormatAskResultXML in results.go produce it).
type expectedResultsXML struct {
	Head    xmlHead    `xml:"head"`
	Results xmlResults `xml:"results"`
	Boolean *bool      `xml:"boolean"`
}

type xmlHead struct {
	Variables []xmlVariable `xml:"variable"`
}

type xmlVariable struct {
	Name string `xml:"name,attr"`
}

type xmlResults struct {
	Results []xmlResult `xml:"result"`
}

type xmlResult struct {
	Bindings []xmlBinding `xml:"binding"`
}

type xmlBinding struct {
	Name    string     `xml:"name,attr"`
	URI     *string    `xml:"uri"`
	Literal *xmlLiteral `xml:"literal"`
	BNode   *string    `xml:"bnode"`
}

type xmlLiteral struct {
	Value    string `xml:",chardata"`
	Lang     string `xml:"lang,attr,omitempty"`
	Datatype string `xml:"datatype,attr,omitempty"`
}

// ParseXMLResults parses a SPARQL XML results document.
func ParseXMLResults(r io.Reader) (*expectedResultsXML, error) {
	var results expectedResultsXML
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to parse XML results: %w", err)
	}
	return &results, nil
}

// ToBindings converts parsed XML results into variable-name-to-term maps.
func (r *expectedResultsXML) ToBindings() ([]map[string]rdf.Term, error) {
	if r.Boolean != nil {
		return nil, fmt.Errorf("ASK queries not supported for binding comparison")
	}

	var bindings []map[string]rdf.Term

	for _, result := range r.Results.Results {
		binding := make(map[string]rdf.Term)

		for _, b := range result.Bindings {
			var term rdf.Term

			switch {
			case b.URI != nil:
				term = rdf.NewNamedNode(*b.URI)
			case b.BNode != nil:
				term = rdf.NewBlankNode(*b.BNode)
			case b.Literal != nil:
				switch {
				case b.Literal.Lang != "":
					term = rdf.NewLiteralWithLanguage(b.Literal.Value, b.Literal.Lang)
				case b.Literal.Datatype != "":
					term = rdf.NewLiteralWithDatatype(b.Literal.Value, rdf.NewNamedNode(b.Literal.Datatype))
				default:
					term = rdf.NewLiteral(b.Literal.Value)
				}
			default:
				return nil, fmt.Errorf("binding %s has no value", b.Name)
			}

			binding[b.Name] = term
		}

		bindings = append(bindings, binding)
	}

	return bindings, nil
}

// CompareResults reports whether two binding sets are equal, ignoring order.
func CompareResults(expected, actual []map[string]rdf.Term) bool {
	if len(expected) != len(actual) {
		return false
	}

	sortBindings := func(bindings []map[string]rdf.Term) []string {
		var strs []string
		for _, binding := range bindings {
			strs = append(strs, bindingToString(binding))
		}
		sort.Strings(strs)
		return strs
	}

	expectedStrs := sortBindings(expected)
	actualStrs := sortBindings(actual)

	for i := range expectedStrs {
		if expectedStrs[i] != actualStrs[i] {
			return false
		}
	}

	return true
}

// bindingToString builds a canonical, order-independent representation of a
// binding for use as a comparison/sort key.
func bindingToString(binding map[string]rdf.Term) string {
	var vars []string
	for v := range binding {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	var str string
	for i, v := range vars {
		if i > 0 {
			str += "|"
		}
		str += v + "=" + binding[v].String()
	}
	return str
}
