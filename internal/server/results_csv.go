package server

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/quadstore/trigo/internal/sparql/executor"
	"github.com/quadstore/trigo/pkg/rdf"
)

// SPARQL CSV Results Format
// https://www.w3.org/TR/sparql11-results-csv-tsv/

// FormatSelectResultsCSV converts a SELECT result to SPARQL CSV format.
func FormatSelectResultsCSV(result *executor.SelectResult) ([]byte, error) {
	var builder strings.Builder
	w := csv.NewWriter(&builder)

	bnodeMap := createBlankNodeMapping(result)

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

	if err := w.Write(varNames); err != nil {
		return nil, err
	}

	for _, binding := range result.Bindings {
		row := make([]string, len(varNames))
		for i, varName := range varNames {
			if term, ok := binding.Vars[varName]; ok {
				row[i] = termToCSVValue(term, bnodeMap)
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return []byte(builder.String()), nil
}

// FormatAskResultCSV converts an ASK result to SPARQL CSV format.
func FormatAskResultCSV(result *executor.AskResult) ([]byte, error) {
	var builder strings.Builder
	w := csv.NewWriter(&builder)

	if err := w.Write([]string{"result"}); err != nil {
		return nil, err
	}

	value := "false"
	if result.Result {
		value = "true"
	}
	if err := w.Write([]string{value}); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return []byte(builder.String()), nil
}

// createBlankNodeMapping canonicalizes blank node IDs to a, b, c, ... (then
// b0, b1, ... past z) in order of first appearance, so output is stable
// regardless of the store's internal blank node labels.
func createBlankNodeMapping(result *executor.SelectResult) map[string]string {
	bnodeMap := make(map[string]string)
	counter := 0

	for _, binding := range result.Bindings {
		for _, term := range binding.Vars {
			if bn, ok := term.(*rdf.BlankNode); ok {
				if _, exists := bnodeMap[bn.ID]; !exists {
					var label string
					if counter < 26 {
						label = string(rune('a' + counter))
					} else {
						label = fmt.Sprintf("b%d", counter-26)
					}
					bnodeMap[bn.ID] = label
					counter++
				}
			}
		}
	}

	return bnodeMap
}

func termToCSVValue(term rdf.Term, bnodeMap map[string]string) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return t.IRI

	case *rdf.BlankNode:
		if canonical, ok := bnodeMap[t.ID]; ok {
			return "_:" + canonical
		}
		return "_:" + t.ID

	case *rdf.Literal:
		if t.Language != "" {
			return t.Value + "@" + t.Language
		}
		if t.Datatype != nil && t.Datatype.IRI == "http://www.w3.org/2001/XMLSchema#double" {
			return formatDouble(t.Value)
		}
		return t.Value

	default:
		return term.String()
	}
}

// formatDouble normalizes a double's lexical form to uppercase E notation
// with an explicit decimal point, matching the W3C result format examples.
func formatDouble(value string) string {
	value = strings.ReplaceAll(value, "e+", "E")
	value = strings.ReplaceAll(value, "e-", "E-")
	value = strings.ReplaceAll(value, "e", "E")

	if strings.Contains(value, "E") {
		parts := strings.Split(value, "E")
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

			value = mantissa + "E" + exponent
		}
	}

	return value
}
