package store

import (
	"fmt"

	"github.com/quadstore/trigo/internal/codec"
	"github.com/quadstore/trigo/internal/storage"
	"github.com/quadstore/trigo/pkg/rdf"
)

// Pattern is a triple or quad pattern. Each position holds either an
// rdf.Term (bound) or a *Variable (unbound). A nil Graph matches the default
// graph only.
type Pattern struct {
	Subject   interface{}
	Predicate interface{}
	Object    interface{}
	Graph     interface{}
}

// Variable names an unbound pattern position.
type Variable struct {
	Name string
}

func NewVariable(name string) *Variable { return &Variable{Name: name} }

func (v *Variable) String() string { return "?" + v.Name }

func isVariable(v interface{}) bool {
	_, ok := v.(*Variable)
	return ok
}

// Binding maps variable names to the terms a solution assigned them.
type Binding struct {
	Vars map[string]rdf.Term
}

func NewBinding() *Binding {
	return &Binding{Vars: make(map[string]rdf.Term)}
}

func (b *Binding) Clone() *Binding {
	clone := NewBinding()
	for k, v := range b.Vars {
		clone.Vars[k] = v
	}
	return clone
}

// QuadIterator iterates over quads matching a pattern, in index order.
type QuadIterator interface {
	Next() bool
	Quad() (*rdf.Quad, error)
	Close() error
}

// BindingIterator iterates over variable bindings produced by plan
// execution (scans, joins, filters, projections, ...).
type BindingIterator interface {
	Next() bool
	Binding() *Binding
	Close() error
}

// Query matches pattern against the store, choosing the narrowest index
// whose leading key columns are all bound and scanning only the range that
// prefix covers.
func (s *TripleStore) Query(pattern *Pattern) (QuadIterator, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("store: begin query transaction: %w", err)
	}

	table, keyPattern := s.selectIndex(pattern)

	prefix, err := s.buildScanPrefix(pattern, keyPattern)
	if err != nil {
		txn.Rollback()
		return nil, err
	}

	it, err := txn.Scan(table, prefix, nil)
	if err != nil {
		txn.Rollback()
		return nil, fmt.Errorf("store: scan %s: %w", table, err)
	}

	return &quadIterator{
		store:      s,
		txn:        txn,
		it:         it,
		keyPattern: keyPattern,
	}, nil
}

// selectIndex picks the table whose key order puts every bound position
// before the first unbound one, preferring the default-graph-only indexes
// when the graph position is unbound (the common case: most patterns don't
// name a graph, and those indexes are a third the size of the full-quad
// ones). keyPattern[i] is the canonical S=0/P=1/O=2/G=3 slot occupied by the
// i-th component of that table's key.
func (s *TripleStore) selectIndex(pattern *Pattern) (storage.Table, []int) {
	sBound := !isVariable(pattern.Subject)
	pBound := !isVariable(pattern.Predicate)
	oBound := !isVariable(pattern.Object)
	gBound := pattern.Graph != nil && !isVariable(pattern.Graph)

	if !gBound {
		switch {
		case sBound && pBound:
			return storage.TableSPO, []int{0, 1, 2}
		case pBound && oBound:
			return storage.TablePOS, []int{1, 2, 0}
		case oBound && sBound:
			return storage.TableOSP, []int{2, 0, 1}
		case sBound:
			return storage.TableSPO, []int{0, 1, 2}
		case pBound:
			return storage.TablePOS, []int{1, 2, 0}
		case oBound:
			return storage.TableOSP, []int{2, 0, 1}
		default:
			return storage.TableSPO, []int{0, 1, 2}
		}
	}

	switch {
	case sBound && pBound:
		return storage.TableGSPO, []int{3, 0, 1, 2}
	case pBound && oBound:
		return storage.TableGPOS, []int{3, 1, 2, 0}
	case oBound && sBound:
		return storage.TableGOSP, []int{3, 2, 0, 1}
	case sBound:
		return storage.TableGSPO, []int{3, 0, 1, 2}
	case pBound:
		return storage.TableGPOS, []int{3, 1, 2, 0}
	case oBound:
		return storage.TableGOSP, []int{3, 2, 0, 1}
	default:
		return storage.TableGSPO, []int{3, 0, 1, 2}
	}
}

// buildScanPrefix encodes the pattern's leading bound positions (in the
// chosen index's key order) into the literal byte prefix Scan should seek
// to, stopping at the first variable.
func (s *TripleStore) buildScanPrefix(pattern *Pattern, keyPattern []int) ([]byte, error) {
	positions := make([]interface{}, 4)
	positions[0] = pattern.Subject
	positions[1] = pattern.Predicate
	positions[2] = pattern.Object
	if pattern.Graph != nil {
		positions[3] = pattern.Graph
	} else {
		positions[3] = rdf.NewDefaultGraph()
	}

	var prefix []byte
	for _, idx := range keyPattern {
		if idx >= len(positions) {
			break
		}
		term := positions[idx]
		if isVariable(term) {
			break
		}
		rdfTerm, ok := term.(rdf.Term)
		if !ok {
			return nil, fmt.Errorf("store: pattern position %d is neither an rdf.Term nor a Variable", idx)
		}
		encoded, _, err := s.encoder.EncodeTerm(rdfTerm)
		if err != nil {
			return nil, fmt.Errorf("store: encode pattern term: %w", err)
		}
		prefix = append(prefix, encoded[:]...)
	}
	return prefix, nil
}

// quadIterator walks a Scan result, reassembling each row's key into a quad.
type quadIterator struct {
	store      *TripleStore
	txn        storage.Transaction
	it         storage.Iterator
	keyPattern []int
	closed     bool
}

func (qi *quadIterator) Next() bool {
	if qi.closed {
		return false
	}
	return qi.it.Next()
}

func (qi *quadIterator) Quad() (*rdf.Quad, error) {
	if qi.closed {
		return nil, fmt.Errorf("store: iterator already closed")
	}

	key := qi.it.Key()
	if len(key) < len(qi.keyPattern)*codec.EncodedTermSize {
		return nil, fmt.Errorf("store: short index key: %d bytes for %d terms", len(key), len(qi.keyPattern))
	}

	terms := make([]codec.EncodedTerm, len(qi.keyPattern))
	for i := range qi.keyPattern {
		offset := i * codec.EncodedTermSize
		copy(terms[i][:], key[offset:offset+codec.EncodedTermSize])
	}

	// keyPattern[i] tells us which canonical S=0/P=1/O=2/G=3 slot the i-th
	// key segment belongs to; invert it to fill positions in that order.
	positions := make([]codec.EncodedTerm, 4)
	for i, idx := range qi.keyPattern {
		positions[idx] = terms[i]
	}

	subject, err := qi.store.decodeTerm(qi.txn, positions[0])
	if err != nil {
		return nil, fmt.Errorf("store: decode subject: %w", err)
	}
	predicate, err := qi.store.decodeTerm(qi.txn, positions[1])
	if err != nil {
		return nil, fmt.Errorf("store: decode predicate: %w", err)
	}
	object, err := qi.store.decodeTerm(qi.txn, positions[2])
	if err != nil {
		return nil, fmt.Errorf("store: decode object: %w", err)
	}

	var graph rdf.Term
	if len(qi.keyPattern) > 3 {
		graph, err = qi.store.decodeTerm(qi.txn, positions[3])
		if err != nil {
			return nil, fmt.Errorf("store: decode graph: %w", err)
		}
	} else {
		graph = rdf.NewDefaultGraph()
	}

	return rdf.NewQuad(subject, predicate, object, graph), nil
}

func (qi *quadIterator) Close() error {
	if qi.closed {
		return nil
	}
	qi.closed = true
	qi.it.Close()
	return qi.txn.Rollback()
}

// decodeTerm reverses EncodeTerm, resolving the string table when the tag
// requires it.
func (s *TripleStore) decodeTerm(_ storage.Transaction, encoded codec.EncodedTerm) (rdf.Term, error) {
	var stringValue *string
	if codec.NeedsStringLookup(encoded) {
		str, ok, err := s.strings.Get(encoded.Payload())
		if err != nil {
			return nil, fmt.Errorf("store: resolve interned string: %w", err)
		}
		if ok {
			stringValue = &str
		}
	}
	return s.decoder.DecodeTerm(encoded, stringValue)
}
