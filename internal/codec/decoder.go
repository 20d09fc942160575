package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/quadstore/trigo/pkg/rdf"
)

// Decoder reverses Encoder's output. Variants tagged as needing a string
// lookup (see Tag.needsStringLookup) require the caller to resolve the
// content hash against the string table first and pass the result in.
type Decoder struct{}

func NewDecoder() *Decoder { return &Decoder{} }

// NeedsStringLookup reports whether decoding enc requires a prior string
// table resolution. Callers use this to avoid an unnecessary lookup on the
// fast-path native encodings.
func NeedsStringLookup(enc EncodedTerm) bool { return enc.Tag().needsStringLookup() }

// DecodeTerm reconstructs an rdf.Term from its encoded form. stringValue
// must be supplied whenever NeedsStringLookup(enc) is true; it is the
// content previously interned for this hash.
func (d *Decoder) DecodeTerm(enc EncodedTerm, stringValue *string) (rdf.Term, error) {
	tag := enc.Tag()

	if tag.needsStringLookup() && stringValue == nil {
		return nil, fmt.Errorf("codec: missing string table entry for tag %d", tag)
	}

	switch tag {
	case TagNamedNode:
		return rdf.NewNamedNode(*stringValue), nil

	case TagBlankNodeNumeric:
		num := binary.BigEndian.Uint64(enc[1:9])
		return rdf.NewBlankNode(strconv.FormatUint(num, 10)), nil

	case TagBlankNodeHash:
		return rdf.NewBlankNode(*stringValue), nil

	case TagDefaultGraph:
		return rdf.NewDefaultGraph(), nil

	case TagStringInline:
		end := 1
		for end < EncodedTermSize && enc[end] != 0 {
			end++
		}
		return rdf.NewLiteral(string(enc[1:end])), nil

	case TagStringHash:
		return rdf.NewLiteral(*stringValue), nil

	case TagLangStringInline:
		end := 1
		for end < EncodedTermSize && enc[end] != 0 {
			end++
		}
		return decodeLangStringCombined(string(enc[1:end])), nil

	case TagLangStringHash:
		return decodeLangStringCombined(*stringValue), nil

	case TagTypedLiteralHash:
		return decodeTypedCombined(*stringValue)

	case TagBooleanLiteral:
		return rdf.NewBooleanLiteral(enc[1] != 0), nil

	case TagIntegerLiteral:
		value := int64(binary.BigEndian.Uint64(enc[1:9])) // #nosec G115
		return rdf.NewIntegerLiteral(value), nil

	case TagDecimalLiteral:
		value := math.Float64frombits(binary.BigEndian.Uint64(enc[1:9]))
		return rdf.NewDecimalLiteral(value), nil

	case TagFloatLiteral:
		value := math.Float64frombits(binary.BigEndian.Uint64(enc[1:9]))
		return rdf.NewFloatLiteral(float32(value)), nil

	case TagDoubleLiteral:
		value := math.Float64frombits(binary.BigEndian.Uint64(enc[1:9]))
		return rdf.NewDoubleLiteral(value), nil

	case TagDateTimeLiteral:
		nanos := int64(binary.BigEndian.Uint64(enc[1:9])) // #nosec G115
		return rdf.NewDateTimeLiteral(time.Unix(0, nanos).UTC()), nil

	case TagDateLiteral:
		days := int64(binary.BigEndian.Uint64(enc[1:9])) // #nosec G115
		t := time.Unix(days*86400, 0).UTC()
		return rdf.NewLiteralWithDatatype(t.Format("2006-01-02"), rdf.XSDDate), nil

	case TagTimeLiteral:
		total := int64(binary.BigEndian.Uint64(enc[1:9])) // #nosec G115
		return rdf.NewLiteralWithDatatype(formatTimeOfDay(total), rdf.XSDTime), nil

	case TagGYearLiteral:
		year := int64(binary.BigEndian.Uint64(enc[1:9])) // #nosec G115
		return rdf.NewLiteralWithDatatype(fmt.Sprintf("%04d", year), rdf.XSDGYear), nil

	case TagGYearMonthLiteral:
		packed := int64(binary.BigEndian.Uint64(enc[1:9])) // #nosec G115
		year, month := packed/12, packed%12+1
		return rdf.NewLiteralWithDatatype(fmt.Sprintf("%04d-%02d", year, month), rdf.XSDGYearMonth), nil

	case TagGMonthDayLiteral:
		packed := int64(binary.BigEndian.Uint64(enc[1:9])) // #nosec G115
		month, day := packed/100, packed%100
		return rdf.NewLiteralWithDatatype(fmt.Sprintf("--%02d-%02d", month, day), rdf.XSDGMonthDay), nil

	case TagGDayLiteral:
		day := int64(binary.BigEndian.Uint64(enc[1:9])) // #nosec G115
		return rdf.NewLiteralWithDatatype(fmt.Sprintf("---%02d", day), rdf.XSDGDay), nil

	case TagGMonthLiteral:
		month := int64(binary.BigEndian.Uint64(enc[1:9])) // #nosec G115
		return rdf.NewLiteralWithDatatype(fmt.Sprintf("--%02d", month), rdf.XSDGMonth), nil

	case TagDurationLiteral, TagYearMonthDurationLiteral, TagDayTimeDurationLiteral:
		months := int32(binary.BigEndian.Uint32(enc[1:5])) // #nosec G115
		nanos := int64(binary.BigEndian.Uint64(enc[5:13]))  // #nosec G115
		datatype := rdf.XSDDuration
		if tag == TagYearMonthDurationLiteral {
			datatype = rdf.XSDYearMonthDur
		} else if tag == TagDayTimeDurationLiteral {
			datatype = rdf.XSDDayTimeDur
		}
		return rdf.NewLiteralWithDatatype(formatXSDDuration(months, nanos), datatype), nil

	case TagQuotedTriple:
		return nil, fmt.Errorf("codec: quoted triples cannot be decoded by DecodeTerm")

	default:
		return nil, fmt.Errorf("codec: unknown tag %d", tag)
	}
}

func decodeLangStringCombined(combined string) rdf.Term {
	atIdx := strings.LastIndexByte(combined, '@')
	if atIdx < 0 {
		return rdf.NewLiteral(combined)
	}
	value := combined[:atIdx]
	rest := combined[atIdx+1:]
	if dash := strings.Index(rest, "--"); dash >= 0 {
		return rdf.NewLiteralWithLanguageAndDirection(value, rest[:dash], rest[dash+2:])
	}
	return rdf.NewLiteralWithLanguage(value, rest)
}

func decodeTypedCombined(combined string) (rdf.Term, error) {
	idx := strings.LastIndex(combined, "^^")
	if idx < 0 {
		return nil, fmt.Errorf("codec: malformed typed literal string %q", combined)
	}
	return rdf.NewLiteralWithDatatype(combined[:idx], rdf.NewNamedNode(combined[idx+2:])), nil
}

func formatTimeOfDay(totalNanos int64) string {
	secs := totalNanos / int64(time.Second)
	nanos := totalNanos % int64(time.Second)
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if nanos == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%09d", h, m, s, nanos)
}

func formatXSDDuration(months int32, nanos int64) string {
	sign := ""
	if months < 0 || nanos < 0 {
		sign = "-"
		months, nanos = -months, -nanos
	}
	years, restMonths := months/12, months%12
	secs := nanos / int64(time.Second)
	days, secs := secs/86400, secs%86400
	hours, secs := secs/3600, secs%3600
	mins, secs := secs/60, secs%60

	var b strings.Builder
	b.WriteString(sign)
	b.WriteByte('P')
	if years != 0 {
		fmt.Fprintf(&b, "%dY", years)
	}
	if restMonths != 0 {
		fmt.Fprintf(&b, "%dM", restMonths)
	}
	if days != 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours != 0 || mins != 0 || secs != 0 {
		b.WriteByte('T')
		if hours != 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if mins != 0 {
			fmt.Fprintf(&b, "%dM", mins)
		}
		if secs != 0 {
			fmt.Fprintf(&b, "%dS", secs)
		}
	}
	if b.Len() == 1 {
		b.WriteString("0D")
	}
	return b.String()
}
