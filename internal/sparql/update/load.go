package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/quadstore/trigo/internal/sparql/parser"
	"github.com/quadstore/trigo/pkg/rdf"
)

// loadTimeout bounds how long LOAD waits on a remote document.
const loadTimeout = 30 * time.Second

var loadClient = &http.Client{Timeout: loadTimeout}

// executeLoad implements LOAD [SILENT] <iri> [INTO GRAPH <g>]: it fetches
// Source over HTTP, parses the body according to its Content-Type and
// inserts the resulting quads into Into, or the default graph when Into
// is nil. SILENT turns any failure along the way, fetch, decompress or
// parse, into a no-op instead of an error.
func (e *Executor) executeLoad(op *parser.LoadOp) error {
	quads, err := e.fetchAndParse(op.Source)
	if err != nil {
		if op.Silent {
			return nil
		}
		return fmt.Errorf("load %s: %w", op.Source.IRI, err)
	}

	if op.Into != nil {
		for _, q := range quads {
			q.Graph = op.Into
		}
	}

	if err := e.store.InsertQuadsBatch(quads); err != nil {
		if op.Silent {
			return nil
		}
		return fmt.Errorf("load %s: %w", op.Source.IRI, err)
	}
	return nil
}

func (e *Executor) fetchAndParse(source *rdf.NamedNode) ([]*rdf.Quad, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.IRI, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// Accept-Encoding is set explicitly so the transport hands back the raw
	// compressed body instead of transparently decompressing it; gzip
	// bodies are then inflated with klauspost/compress below.
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "text/turtle, application/n-triples, application/n-quads, application/trig, application/rdf+xml, application/ld+json")

	resp, err := loadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}

	body := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("decompress body: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/turtle"
	}
	parser, err := rdf.NewParser(contentType)
	if err != nil {
		return nil, fmt.Errorf("select parser: %w", err)
	}

	quads, err := parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}
	return quads, nil
}
