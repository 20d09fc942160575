// Package codec implements TermCodec: the bijection between rdf.Term and
// the fixed-width EncodedTerm used as index key material. It decides, for
// every term it is handed, whether the term's payload fits inline or needs
// a content-addressed lookup in the string table, and recognizes the native
// XSD datatypes that get a fixed-width binary fast path instead of falling
// through to the generic typed-literal hash.
package codec

// EncodedTermSize is the on-disk width of an EncodedTerm: one tag byte plus
// a 16-byte payload slot shared by hashes, inline string bytes, and native
// numeric encodings. Every quad key is a concatenation of these, so keeping
// the width fixed is what lets IndexedStore do prefix scans by simple byte
// slicing.
const EncodedTermSize = 17

// MaxInlineStringSize is the largest string (in bytes) that can live inside
// the 16-byte payload instead of being content-hashed into the string
// table.
const MaxInlineStringSize = 16

// EncodedTerm is the fixed-width encoding of an rdf.Term: a tag byte
// discriminating the variant, followed by a 16-byte payload.
type EncodedTerm [EncodedTermSize]byte

// Tag returns the term-kind discriminator stored in the first byte.
func (e EncodedTerm) Tag() Tag { return Tag(e[0]) }

// Payload returns the 16-byte variant payload.
func (e EncodedTerm) Payload() []byte { return e[1:] }

// Tag discriminates the concrete EncodedTerm variant. Values below 100 are
// hash-or-inline string variants; values at or above 100 are native
// fixed-width encodings of an XSD datatype family.
type Tag byte

const (
	TagNamedNode Tag = iota + 1
	TagBlankNodeNumeric
	TagBlankNodeHash
	TagDefaultGraph
	TagQuotedTriple

	TagStringInline
	TagStringHash
	TagLangStringInline
	TagLangStringHash
	TagTypedLiteralHash // any datatype IRI without a native fast path

	TagBooleanLiteral Tag = iota + 100
	TagIntegerLiteral
	TagDecimalLiteral
	TagFloatLiteral
	TagDoubleLiteral
	TagDateTimeLiteral
	TagDateLiteral
	TagTimeLiteral
	TagGYearLiteral
	TagGYearMonthLiteral
	TagGMonthDayLiteral
	TagGDayLiteral
	TagGMonthLiteral
	TagDurationLiteral
	TagYearMonthDurationLiteral
	TagDayTimeDurationLiteral
)

// needsStringLookup reports whether decoding this tag requires a value
// previously handed back by the encoder (to be stored in the string table
// keyed by its content hash).
func (t Tag) needsStringLookup() bool {
	switch t {
	case TagNamedNode, TagBlankNodeHash, TagStringHash, TagLangStringHash,
		TagTypedLiteralHash, TagQuotedTriple:
		return true
	default:
		return false
	}
}
