package parser

import (
	"fmt"

	"github.com/quadstore/trigo/pkg/rdf"
)

// parseExpression parses a full SPARQL expression, following the standard
// precedence climb: conditional-or binds loosest, unary binds tightest.
func (p *Parser) parseExpression() (Expression, error) {
	return p.parseConditionalOrExpression()
}

func (p *Parser) parseConditionalOrExpression() (Expression, error) {
	left, err := p.parseConditionalAndExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.matchLiteral("||") {
			break
		}
		right, err := p.parseConditionalAndExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpOr, Right: right}
	}
	return left, nil
}

func (p *Parser) parseConditionalAndExpression() (Expression, error) {
	left, err := p.parseRelationalExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.matchLiteral("&&") {
			break
		}
		right, err := p.parseRelationalExpression()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Left: left, Operator: OpAnd, Right: right}
	}
	return left, nil
}

// parseRelationalExpression handles the comparison operators and the
// IN / NOT IN membership test. SPARQL grammar only allows one relational
// operator per expression (no chained comparisons), so this does not loop.
func (p *Parser) parseRelationalExpression() (Expression, error) {
	left, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()

	if p.matchKeyword("NOT") {
		p.skipWhitespace()
		if !p.matchKeyword("IN") {
			return nil, fmt.Errorf("expected IN after NOT in expression")
		}
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &InExpression{Expression: left, Values: values, Not: true}, nil
	}

	if p.matchKeyword("IN") {
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &InExpression{Expression: left, Values: values, Not: false}, nil
	}

	var op Operator
	matched := true
	switch {
	case p.matchLiteral("!="):
		op = OpNotEqual
	case p.matchLiteral("<="):
		op = OpLessThanOrEqual
	case p.matchLiteral(">="):
		op = OpGreaterThanOrEqual
	case p.matchLiteral("="):
		op = OpEqual
	case p.matchLiteral("<"):
		op = OpLessThan
	case p.matchLiteral(">"):
		op = OpGreaterThan
	default:
		matched = false
	}
	if !matched {
		return left, nil
	}

	right, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}
	return &BinaryExpression{Left: left, Operator: op, Right: right}, nil
}

// parseExpressionList parses the "( expr, expr, ... )" list used by IN/NOT IN.
func (p *Parser) parseExpressionList() ([]Expression, error) {
	p.skipWhitespace()
	if p.peek() != '(' {
		return nil, fmt.Errorf("expected '(' to start expression list")
	}
	p.advance()

	var values []Expression
	for {
		p.skipWhitespace()
		if p.peek() == ')' {
			p.advance()
			break
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		values = append(values, expr)

		p.skipWhitespace()
		if p.peek() == ',' {
			p.advance()
			continue
		}
		if p.peek() == ')' {
			p.advance()
			break
		}
		return nil, fmt.Errorf("expected ',' or ')' in expression list")
	}
	return values, nil
}

func (p *Parser) parseAdditiveExpression() (Expression, error) {
	left, err := p.parseMultiplicativeExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		ch := p.peek()
		if ch == '+' {
			p.advance()
			right, err := p.parseMultiplicativeExpression()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpAdd, Right: right}
			continue
		}
		if ch == '-' {
			p.advance()
			right, err := p.parseMultiplicativeExpression()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpSubtract, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseMultiplicativeExpression() (Expression, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		ch := p.peek()
		if ch == '*' {
			p.advance()
			right, err := p.parseUnaryExpression()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpMultiply, Right: right}
			continue
		}
		if ch == '/' {
			p.advance()
			right, err := p.parseUnaryExpression()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpression{Left: left, Operator: OpDivide, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseUnaryExpression() (Expression, error) {
	p.skipWhitespace()
	switch p.peek() {
	case '!':
		p.advance()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: OpNot, Operand: operand}, nil
	case '+':
		p.advance()
		return p.parseUnaryExpression()
	case '-':
		// Distinguish unary minus from a negative numeric literal: either
		// reading is valid, so just fold it into a subtraction from zero.
		p.advance()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &BinaryExpression{
			Left:     &LiteralExpression{Literal: rdf.NewIntegerLiteral(0)},
			Operator: OpSubtract,
			Right:    operand,
		}, nil
	}
	return p.parsePrimaryExpression()
}

// parsePrimaryExpression parses the innermost expression forms: parenthesized
// expressions, EXISTS/NOT EXISTS, built-in and regular function calls,
// variables and literals.
func (p *Parser) parsePrimaryExpression() (Expression, error) {
	p.skipWhitespace()
	ch := p.peek()

	if ch == '(' {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' to close parenthesized expression")
		}
		p.advance()
		return expr, nil
	}

	if ch == '?' || ch == '$' {
		variable, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &VariableExpression{Variable: variable}, nil
	}

	if ch == '"' || ch == '\'' {
		literal, err := p.parseRDFLiteral()
		if err != nil {
			return nil, err
		}
		return &LiteralExpression{Literal: literal}, nil
	}

	if ch >= '0' && ch <= '9' || ch == '.' {
		literal, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &LiteralExpression{Literal: literal}, nil
	}

	if p.matchKeyword("true") {
		return &LiteralExpression{Literal: rdf.NewBooleanLiteral(true)}, nil
	}
	if p.matchKeyword("false") {
		return &LiteralExpression{Literal: rdf.NewBooleanLiteral(false)}, nil
	}

	if p.matchKeyword("NOT") {
		p.skipWhitespace()
		if p.matchKeyword("EXISTS") {
			pattern, err := p.parseGraphPattern()
			if err != nil {
				return nil, err
			}
			return &ExistsExpression{Not: true, Pattern: *pattern}, nil
		}
		return nil, fmt.Errorf("expected EXISTS after NOT in expression")
	}

	if p.matchKeyword("EXISTS") {
		pattern, err := p.parseGraphPattern()
		if err != nil {
			return nil, err
		}
		return &ExistsExpression{Not: false, Pattern: *pattern}, nil
	}

	if expr, ok, err := p.tryParseBuiltInCall(); ok || err != nil {
		return expr, err
	}

	if ch == '<' {
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return p.finishFunctionCallOrIRI(rdf.NewNamedNode(iri))
	}

	if ch == ':' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		iri, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		return p.finishFunctionCallOrIRI(rdf.NewNamedNode(iri))
	}

	return nil, fmt.Errorf("unexpected character in expression: %c", ch)
}

// finishFunctionCallOrIRI consumes a trailing "(args)" after an IRI, turning
// it into a FunctionCallExpression; bare IRIs (e.g. a datatype IRI passed to
// a cast) are returned as a LiteralExpression wrapping an IRI-valued term.
func (p *Parser) finishFunctionCallOrIRI(iri *rdf.NamedNode) (Expression, error) {
	p.skipWhitespace()
	if p.peek() != '(' {
		return &LiteralExpression{Literal: iri}, nil
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return &FunctionCallExpression{Function: iri.IRI, Arguments: args}, nil
}

// parseArgList parses a parenthesized, comma-separated argument list,
// tolerating the DISTINCT modifier some aggregate forms allow.
func (p *Parser) parseArgList() ([]Expression, error) {
	p.skipWhitespace()
	if p.peek() != '(' {
		return nil, fmt.Errorf("expected '(' to start argument list")
	}
	p.advance()
	p.skipWhitespace()
	p.matchKeyword("DISTINCT")

	var args []Expression
	p.skipWhitespace()
	if p.peek() == '*' {
		p.advance()
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' after '*' in argument list")
		}
		p.advance()
		return nil, nil
	}
	if p.peek() == ')' {
		p.advance()
		return nil, nil
	}
	for {
		p.skipWhitespace()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, expr)

		p.skipWhitespace()
		if p.peek() == ',' {
			p.advance()
			continue
		}
		if p.peek() == ')' {
			p.advance()
			break
		}
		return nil, fmt.Errorf("expected ',' or ')' in argument list")
	}
	return args, nil
}

// builtInCalls lists the keyword-form functions recognized directly by the
// grammar (as opposed to prefixed-name function calls).
var builtInCalls = []string{
	"STR", "LANG", "LANGMATCHES", "DATATYPE", "BOUND", "IRI", "URI",
	"BNODE", "RAND", "ABS", "CEIL", "FLOOR", "ROUND", "CONCAT",
	"STRLEN", "UCASE", "LCASE", "ENCODE_FOR_URI", "CONTAINS",
	"STRSTARTS", "STRENDS", "STRBEFORE", "STRAFTER", "YEAR", "MONTH",
	"DAY", "HOURS", "MINUTES", "SECONDS", "TIMEZONE", "TZ", "NOW",
	"UUID", "STRUUID", "MD5", "SHA1", "SHA256", "SHA384", "SHA512",
	"COALESCE", "IF", "STRLANG", "STRDT", "SAMETERM", "ISIRI",
	"ISURI", "ISBLANK", "ISLITERAL", "ISNUMERIC", "REGEX", "SUBSTR",
	"REPLACE",
}

// tryParseBuiltInCall recognizes one of the fixed built-in function names
// and parses its argument list. Returns ok=false (and leaves the cursor
// untouched) when the upcoming token isn't a built-in name.
func (p *Parser) tryParseBuiltInCall() (Expression, bool, error) {
	p.skipWhitespace()
	savedPos := p.pos

	for _, name := range builtInCalls {
		if p.matchKeyword(name) {
			args, err := p.parseArgList()
			if err != nil {
				return nil, true, err
			}
			return &FunctionCallExpression{Function: name, Arguments: args}, true, nil
		}
		p.pos = savedPos
	}
	return nil, false, nil
}

// parseRDFLiteral parses a quoted string literal with an optional
// "@lang" language tag or "^^<iri>" datatype suffix.
func (p *Parser) parseRDFLiteral() (*rdf.Literal, error) {
	base, err := p.parseStringLiteral()
	if err != nil {
		return nil, err
	}

	if p.peek() == '@' {
		p.advance()
		lang := p.readWhile(func(ch byte) bool {
			return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
				(ch >= '0' && ch <= '9') || ch == '-'
		})
		return rdf.NewLiteralWithLanguage(base.Value, lang), nil
	}

	if p.peek() == '^' && p.pos+1 < p.length && p.input[p.pos+1] == '^' {
		p.advance()
		p.advance()
		var datatypeIRI string
		if p.peek() == '<' {
			datatypeIRI, err = p.parseIRI()
		} else {
			datatypeIRI, err = p.parsePrefixedName()
		}
		if err != nil {
			return nil, fmt.Errorf("expected datatype IRI after '^^': %w", err)
		}
		return rdf.NewLiteralWithDatatype(base.Value, rdf.NewNamedNode(datatypeIRI)), nil
	}

	return base, nil
}

// matchLiteral consumes exactly the given literal text (no word-boundary
// check), used for symbolic operators like "||", "&&", "!=".
func (p *Parser) matchLiteral(s string) bool {
	if p.pos+len(s) > p.length {
		return false
	}
	if p.input[p.pos:p.pos+len(s)] != s {
		return false
	}
	p.pos += len(s)
	return true
}
