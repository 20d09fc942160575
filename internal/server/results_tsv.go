package server

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quadstore/trigo/internal/sparql/executor"
	"github.com/quadstore/trigo/pkg/rdf"
)

// SPARQL TSV Results Format
// https://www.w3.org/TR/sparql11-results-csv-tsv/

// FormatSelectResultsTSV converts a SELECT result to SPARQL TSV format.
func FormatSelectResultsTSV(result *executor.SelectResult) ([]byte, error) {
	var builder strings.Builder

	bnodeMap := createBlankNodeMappingTSV(result)

	var varNames []string
	if result.Variables == nil {
		varSet := make(map[string]bool)
		for _, binding := range result.Bindings {
			for varName := range binding.Vars {
				if !varSet[varName] {
					varSet[varName] = true
					varNames = append(varNames, varName)
				}
			}
		}
		sort.Strings(varNames)
	} else {
		for _, v := range result.Variables {
			varNames = append(varNames, v.Name)
		}
	}

	for i, varName := range varNames {
		if i > 0 {
			builder.WriteString("\t")
		}
		builder.WriteString("?")
		builder.WriteString(varName)
	}
	builder.WriteString("\n")

	for _, binding := range result.Bindings {
		for i, varName := range varNames {
			if i > 0 {
				builder.WriteString("\t")
			}
			if term, ok := binding.Vars[varName]; ok {
				builder.WriteString(termToTSVValue(term, bnodeMap))
			}
		}
		builder.WriteString("\n")
	}

	return []byte(builder.String()), nil
}

// FormatAskResultTSV converts an ASK result to SPARQL TSV format.
func FormatAskResultTSV(result *executor.AskResult) ([]byte, error) {
	var builder strings.Builder

	builder.WriteString("?result\n")
	if result.Result {
		builder.WriteString("true")
	} else {
		builder.WriteString("false")
	}
	builder.WriteString("\n")

	return []byte(builder.String()), nil
}

// createBlankNodeMappingTSV canonicalizes blank node IDs to b0, b1, ... in
// order of first appearance, per the W3C TSV test expectations.
func createBlankNodeMappingTSV(result *executor.SelectResult) map[string]string {
	bnodeMap := make(map[string]string)
	counter := 0

	for _, binding := range result.Bindings {
		for _, term := range binding.Vars {
			if bn, ok := term.(*rdf.BlankNode); ok {
				if _, exists := bnodeMap[bn.ID]; !exists {
					bnodeMap[bn.ID] = fmt.Sprintf("b%d", counter)
					counter++
				}
			}
		}
	}

	return bnodeMap
}

func termToTSVValue(term rdf.Term, bnodeMap map[string]string) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return "<" + t.IRI + ">"

	case *rdf.BlankNode:
		if canonical, ok := bnodeMap[t.ID]; ok {
			return "_:" + canonical
		}
		return "_:" + t.ID

	case *rdf.Literal:
		if t.Language != "" {
			escaped := escapeTSVString(t.Value)
			return "\"" + escaped + "\"@" + t.Language
		} else if t.Datatype != nil {
			datatypeIRI := t.Datatype.IRI

			if datatypeIRI == "http://www.w3.org/2001/XMLSchema#integer" ||
				datatypeIRI == "http://www.w3.org/2001/XMLSchema#decimal" ||
				datatypeIRI == "http://www.w3.org/2001/XMLSchema#double" {
				if datatypeIRI == "http://www.w3.org/2001/XMLSchema#double" {
					return formatDoubleTSV(t.Value)
				}
				return t.Value
			}

			escaped := escapeTSVString(t.Value)
			return "\"" + escaped + "\"^^<" + datatypeIRI + ">"
		}
		escaped := escapeTSVString(t.Value)
		return "\"" + escaped + "\""

	default:
		return term.String()
	}
}

// formatDoubleTSV normalizes a double's lexical form to lowercase e notation
// with an explicit decimal point.
func formatDoubleTSV(value string) string {
	value = strings.ReplaceAll(value, "E+", "e")
	value = strings.ReplaceAll(value, "E-", "e-")
	value = strings.ReplaceAll(value, "E", "e")
	value = strings.ReplaceAll(value, "e+", "e")

	if strings.Contains(value, "e") {
		parts := strings.Split(value, "e")
		if len(parts) == 2 {
			mantissa := parts[0]
			exponent := parts[1]

			if !strings.Contains(mantissa, ".") {
				mantissa += ".0"
			}

			isNegative := strings.HasPrefix(exponent, "-")
			if isNegative {
				exponent = exponent[1:]
			}
			exponent = strings.TrimLeft(exponent, "0")
			if exponent == "" {
				exponent = "0"
			}
			if isNegative {
				exponent = "-" + exponent
			}

			value = mantissa + "e" + exponent
		}
	}

	return value
}

// escapeTSVString escapes tabs, newlines, carriage returns, quotes, and
// backslashes per the SPARQL TSV results format.
func escapeTSVString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
