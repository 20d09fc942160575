package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/quadstore/trigo/pkg/rdf"
	"github.com/zeebo/xxh3"
	"golang.org/x/text/language"
)

// LangTagDiagnostic receives a non-fatal warning when a language tag fails
// BCP-47 validation. The tag is still encoded as given — TermCodec never
// rejects a literal over a malformed tag, it just reports the fact. Nil by
// default (silent).
var LangTagDiagnostic func(tag string, err error)

// Encoder turns rdf.Term values into EncodedTerm keys. Terms whose value
// doesn't fit inline are also handed back as a string for the caller to
// intern in the string table (content-addressed, refcounted there).
type Encoder struct{}

func NewEncoder() *Encoder { return &Encoder{} }

// hash128 computes the 128-bit xxh3 content hash used for every Big*/hashed
// variant and for IRIs and non-numeric blank node IDs.
func hash128(s string) [16]byte {
	h := xxh3.Hash128([]byte(s))
	var out [16]byte
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

// EncodeTerm encodes a term. The returned *string, when non-nil, must be
// interned (by its content hash) in the string table for DecodeTerm to be
// able to reverse the encoding later.
func (e *Encoder) EncodeTerm(term rdf.Term) (EncodedTerm, *string, error) {
	var zero EncodedTerm
	switch t := term.(type) {
	case *rdf.NamedNode:
		return e.encodeNamedNode(t)
	case *rdf.BlankNode:
		return e.encodeBlankNode(t)
	case *rdf.Literal:
		return e.encodeLiteral(t)
	case *rdf.DefaultGraph:
		return e.encodeDefaultGraph(), nil, nil
	case *rdf.QuotedTriple:
		return e.encodeQuotedTriple(t)
	default:
		return zero, nil, fmt.Errorf("codec: unsupported term type %T", term)
	}
}

func (e *Encoder) encodeNamedNode(n *rdf.NamedNode) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	enc[0] = byte(TagNamedNode)
	h := hash128(n.IRI)
	copy(enc[1:], h[:])
	return enc, &n.IRI, nil
}

func (e *Encoder) encodeBlankNode(b *rdf.BlankNode) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	if num, err := strconv.ParseUint(b.ID, 10, 64); err == nil {
		enc[0] = byte(TagBlankNodeNumeric)
		binary.BigEndian.PutUint64(enc[1:9], num)
		return enc, nil, nil
	}
	enc[0] = byte(TagBlankNodeHash)
	h := hash128(b.ID)
	copy(enc[1:], h[:])
	return enc, &b.ID, nil
}

func (e *Encoder) encodeLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	if lit.Datatype != nil {
		var enc EncodedTerm
		var s *string
		var err error
		switch lit.Datatype.IRI {
		case rdf.XSDBoolean.IRI:
			enc, s, err = e.encodeBoolean(lit)
		case rdf.XSDInteger.IRI:
			enc, s, err = e.encodeInteger(lit)
		case rdf.XSDDecimal.IRI:
			enc, s, err = e.encodeFloat64(lit, TagDecimalLiteral)
		case rdf.XSDFloat.IRI:
			enc, s, err = e.encodeFloat64(lit, TagFloatLiteral)
		case rdf.XSDDouble.IRI:
			enc, s, err = e.encodeFloat64(lit, TagDoubleLiteral)
		case rdf.XSDDateTime.IRI:
			enc, s, err = e.encodeDateTime(lit)
		case rdf.XSDDate.IRI:
			enc, s, err = e.encodeDate(lit)
		case rdf.XSDTime.IRI, rdf.XSDGYear.IRI, rdf.XSDGYearMonth.IRI,
			rdf.XSDGMonthDay.IRI, rdf.XSDGDay.IRI, rdf.XSDGMonth.IRI:
			// Parse failure on these falls through to the generic typed
			// literal below, per the fast-path-with-fallback contract.
			if enc, ok := e.tryEncodeGregorian(lit); ok {
				return enc, nil, nil
			}
			return e.encodeTypedLiteral(lit)
		case rdf.XSDDuration.IRI, rdf.XSDYearMonthDur.IRI, rdf.XSDDayTimeDur.IRI:
			if enc, ok := e.tryEncodeDuration(lit); ok {
				return enc, nil, nil
			}
			return e.encodeTypedLiteral(lit)
		default:
			return e.encodeTypedLiteral(lit)
		}
		// A native parse failure keeps the literal's lexical form as a
		// generic typed literal, so a malformed value is never rejected.
		if err != nil {
			return e.encodeTypedLiteral(lit)
		}
		return enc, s, nil
	}
	if lit.Language != "" {
		return e.encodeLangString(lit)
	}
	return e.encodeString(lit)
}

func (e *Encoder) encodeString(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	if len(lit.Value) <= MaxInlineStringSize {
		enc[0] = byte(TagStringInline)
		copy(enc[1:], []byte(lit.Value))
		return enc, nil, nil
	}
	enc[0] = byte(TagStringHash)
	h := hash128(lit.Value)
	copy(enc[1:], h[:])
	return enc, &lit.Value, nil
}

func (e *Encoder) encodeLangString(lit *rdf.Literal) (EncodedTerm, *string, error) {
	if _, err := language.Parse(lit.Language); err != nil && LangTagDiagnostic != nil {
		LangTagDiagnostic(lit.Language, err)
	}
	combined := lit.Value + "@" + lit.Language
	if lit.Direction != "" {
		combined += "--" + lit.Direction
	}

	var enc EncodedTerm
	if len(combined) <= MaxInlineStringSize {
		enc[0] = byte(TagLangStringInline)
		copy(enc[1:], []byte(combined))
		return enc, nil, nil
	}
	enc[0] = byte(TagLangStringHash)
	h := hash128(combined)
	copy(enc[1:], h[:])
	return enc, &combined, nil
}

func (e *Encoder) encodeTypedLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	enc[0] = byte(TagTypedLiteralHash)
	combined := lit.Value + "^^" + lit.Datatype.IRI
	h := hash128(combined)
	copy(enc[1:], h[:])
	return enc, &combined, nil
}

func (e *Encoder) encodeBoolean(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	value, err := strconv.ParseBool(lit.Value)
	if err != nil {
		return enc, nil, fmt.Errorf("codec: invalid xsd:boolean %q: %w", lit.Value, err)
	}
	enc[0] = byte(TagBooleanLiteral)
	if value {
		enc[1] = 1
	}
	return enc, nil, nil
}

func (e *Encoder) encodeInteger(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	value, err := strconv.ParseInt(strings.TrimSpace(lit.Value), 10, 64)
	if err != nil {
		return enc, nil, fmt.Errorf("codec: invalid xsd:integer %q: %w", lit.Value, err)
	}
	enc[0] = byte(TagIntegerLiteral)
	binary.BigEndian.PutUint64(enc[1:9], uint64(value)) // #nosec G115 -- bit-pattern round trip, reversed by DecodeTerm
	return enc, nil, nil
}

func (e *Encoder) encodeFloat64(lit *rdf.Literal, tag Tag) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	value, err := strconv.ParseFloat(strings.TrimSpace(lit.Value), 64)
	if err != nil {
		return enc, nil, fmt.Errorf("codec: invalid numeric literal %q: %w", lit.Value, err)
	}
	enc[0] = byte(tag)
	binary.BigEndian.PutUint64(enc[1:9], math.Float64bits(value))
	return enc, nil, nil
}

func (e *Encoder) encodeDateTime(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	trimmed := strings.TrimSpace(lit.Value)
	t, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05", trimmed)
		if err != nil {
			return enc, nil, fmt.Errorf("codec: invalid xsd:dateTime %q: %w", lit.Value, err)
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	enc[0] = byte(TagDateTimeLiteral)
	binary.BigEndian.PutUint64(enc[1:9], uint64(t.UnixNano())) // #nosec G115
	return enc, nil, nil
}

func (e *Encoder) encodeDate(lit *rdf.Literal) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	t, err := time.Parse("2006-01-02", strings.TrimSpace(lit.Value))
	if err != nil {
		return enc, nil, fmt.Errorf("codec: invalid xsd:date %q: %w", lit.Value, err)
	}
	enc[0] = byte(TagDateLiteral)
	days := t.Unix() / 86400
	binary.BigEndian.PutUint64(enc[1:9], uint64(days)) // #nosec G115
	return enc, nil, nil
}

// tryEncodeGregorian attempts the fixed-width fast path for xsd:time and the
// partial-date family (gYear, gYearMonth, gMonthDay, gDay, gMonth). Each is
// encoded as a signed offset (nanoseconds-of-day for time, else a calendar
// count) so comparison-by-value matches comparison-by-bytes.
func (e *Encoder) tryEncodeGregorian(lit *rdf.Literal) (EncodedTerm, bool) {
	var enc EncodedTerm
	v := strings.TrimSpace(lit.Value)

	switch lit.Datatype.IRI {
	case rdf.XSDTime.IRI:
		t, err := time.Parse("15:04:05", v)
		if err != nil {
			return enc, false
		}
		enc[0] = byte(TagTimeLiteral)
		seconds := t.Hour()*3600 + t.Minute()*60 + t.Second()
		binary.BigEndian.PutUint64(enc[1:9], uint64(int64(seconds)*1e9+int64(t.Nanosecond()))) // #nosec G115
		return enc, true
	case rdf.XSDGYear.IRI:
		t, err := time.Parse("2006", v)
		if err != nil {
			return enc, false
		}
		enc[0] = byte(TagGYearLiteral)
		binary.BigEndian.PutUint64(enc[1:9], uint64(int64(t.Year()))) // #nosec G115
		return enc, true
	case rdf.XSDGYearMonth.IRI:
		t, err := time.Parse("2006-01", v)
		if err != nil {
			return enc, false
		}
		enc[0] = byte(TagGYearMonthLiteral)
		binary.BigEndian.PutUint64(enc[1:9], uint64(int64(t.Year())*12+int64(t.Month())-1)) // #nosec G115
		return enc, true
	case rdf.XSDGMonthDay.IRI:
		t, err := time.Parse("--01-02", v)
		if err != nil {
			return enc, false
		}
		enc[0] = byte(TagGMonthDayLiteral)
		binary.BigEndian.PutUint64(enc[1:9], uint64(int64(t.Month())*100+int64(t.Day()))) // #nosec G115
		return enc, true
	case rdf.XSDGDay.IRI:
		t, err := time.Parse("---02", v)
		if err != nil {
			return enc, false
		}
		enc[0] = byte(TagGDayLiteral)
		binary.BigEndian.PutUint64(enc[1:9], uint64(int64(t.Day()))) // #nosec G115
		return enc, true
	case rdf.XSDGMonth.IRI:
		t, err := time.Parse("--01", v)
		if err != nil {
			return enc, false
		}
		enc[0] = byte(TagGMonthLiteral)
		binary.BigEndian.PutUint64(enc[1:9], uint64(int64(t.Month()))) // #nosec G115
		return enc, true
	default:
		return enc, false
	}
}

// tryEncodeDuration encodes the three XSD duration datatypes as a signed
// (months, nanoseconds) pair packed into the payload: months in bytes 1-4,
// nanoseconds in bytes 5-12. xsd:yearMonthDuration only ever sets months;
// xsd:dayTimeDuration only ever sets nanoseconds; plain xsd:duration may set
// both.
func (e *Encoder) tryEncodeDuration(lit *rdf.Literal) (EncodedTerm, bool) {
	months, nanos, ok := parseXSDDuration(lit.Value)
	if !ok {
		return EncodedTerm{}, false
	}
	var enc EncodedTerm
	switch lit.Datatype.IRI {
	case rdf.XSDYearMonthDur.IRI:
		enc[0] = byte(TagYearMonthDurationLiteral)
	case rdf.XSDDayTimeDur.IRI:
		enc[0] = byte(TagDayTimeDurationLiteral)
	default:
		enc[0] = byte(TagDurationLiteral)
	}
	binary.BigEndian.PutUint32(enc[1:5], uint32(months)) // #nosec G115
	binary.BigEndian.PutUint64(enc[5:13], uint64(nanos))  // #nosec G115
	return enc, true
}

// parseXSDDuration parses the xsd:duration lexical grammar
// "-?PnYnMnDTnHnMnS" into (months, nanoseconds). It rejects fractional
// years/months (not expressible as an integer month count).
func parseXSDDuration(s string) (months int32, nanos int64, ok bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, 0, false
	}
	sign := int64(1)
	if strings.HasPrefix(v, "-") {
		sign = -1
		v = v[1:]
	}
	if !strings.HasPrefix(v, "P") {
		return 0, 0, false
	}
	v = v[1:]

	datePart, timePart, hasTime := strings.Cut(v, "T")

	readComponent := func(s string, unit byte) (int64, string, bool) {
		idx := strings.IndexByte(s, unit)
		if idx < 0 {
			return 0, s, true
		}
		n, err := strconv.ParseInt(s[:idx], 10, 64)
		if err != nil {
			return 0, s, false
		}
		return n, s[idx+1:], true
	}

	years, datePart, ok1 := readComponent(datePart, 'Y')
	monthsPart, datePart, ok2 := readComponent(datePart, 'M')
	days, _, ok3 := readComponent(datePart, 'D')
	if !ok1 || !ok2 || !ok3 {
		return 0, 0, false
	}

	var hours, mins, secs int64
	var ok4, ok5, ok6 = true, true, true
	if hasTime {
		hours, timePart, ok4 = readComponent(timePart, 'H')
		mins, timePart, ok5 = readComponent(timePart, 'M')
		secs, _, ok6 = readComponent(timePart, 'S')
	}
	if !ok4 || !ok5 || !ok6 {
		return 0, 0, false
	}

	totalMonths := sign * (years*12 + monthsPart)
	totalNanos := sign * (((days*24+hours)*3600 + mins*60 + secs) * int64(time.Second))
	return int32(totalMonths), totalNanos, true
}

func (e *Encoder) encodeDefaultGraph() EncodedTerm {
	var enc EncodedTerm
	enc[0] = byte(TagDefaultGraph)
	return enc
}

func (e *Encoder) encodeQuotedTriple(qt *rdf.QuotedTriple) (EncodedTerm, *string, error) {
	// RDF-star nesting is encoded by content hash of the canonical string
	// form rather than recursively embedding the three child EncodedTerms:
	// a quoted triple containing another quoted triple has unbounded depth,
	// which a fixed 16-byte payload cannot hold without external storage
	// either way, so this keeps the lookup path uniform (one string-table
	// round trip) instead of a special recursive case. Decoding does not
	// reverse this: DecodeTerm returns an error for TagQuotedTriple.
	var enc EncodedTerm
	enc[0] = byte(TagQuotedTriple)
	serialized := qt.String()
	h := hash128(serialized)
	copy(enc[1:], h[:])
	return enc, &serialized, nil
}

// EncodeQuadKey concatenates encoded terms into a single index key.
func EncodeQuadKey(terms ...EncodedTerm) []byte {
	out := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, t := range terms {
		out = append(out, t[:]...)
	}
	return out
}
