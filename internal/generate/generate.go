// Package generate drives codec generation over a loaded database: it builds
// a MessageCodec per message, aggregates the exclusion diagnostics, and
// fingerprints the database so generated artifacts can name the input they
// came from.
package generate

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash"

	"github.com/y0rk9s/cangen/internal/codec"
	"github.com/y0rk9s/cangen/internal/dbc"
	"github.com/y0rk9s/cangen/internal/names"
)

// Result is the product of one generation run.
type Result struct {
	// Database is the input the result was generated from.
	Database *dbc.Database
	// Messages holds one codec per emitted message, in database order.
	Messages []codec.MessageCodec
	// Diagnostics lists every signal or message excluded from the result.
	Diagnostics []codec.Diagnostic
	// Fingerprint identifies the database content; it changes whenever any
	// codec-relevant part of the database changes.
	Fingerprint uint64
}

// Generate builds codecs for every message in db. Generation never fails for
// an individual signal: unsupported signals are excluded with a diagnostic
// and the rest of the message is still emitted. A message whose normalized
// name collides with an earlier message's is excluded whole.
func Generate(db *dbc.Database) *Result {
	res := &Result{
		Database:    db,
		Fingerprint: fingerprint(db),
	}

	seen := map[string]bool{}
	for _, m := range db.Messages {
		name := names.Snake(m.Name)
		if seen[name] {
			res.Diagnostics = append(res.Diagnostics, codec.Diagnostic{Message: m.Name, Reason: codec.DuplicateIdent})
			continue
		}
		seen[name] = true

		mc := codec.New(m, names.Snake)
		res.Messages = append(res.Messages, mc)
		res.Diagnostics = append(res.Diagnostics, mc.Excluded...)
	}
	return res
}

// fingerprint hashes the codec-relevant database content: message identity
// and every signal's layout. Documentation metadata is left out so comment
// edits do not churn generated banners.
func fingerprint(db *dbc.Database) uint64 {
	b := strings.Builder{}
	for _, m := range db.Messages {
		fmt.Fprintf(&b, "%s/%d/%d;", m.Name, m.ID, m.ByteLength)
		for _, s := range m.Signals {
			fmt.Fprintf(&b, "%s:%d|%d@%v%v;", s.Name, s.StartBit, s.BitLength, s.Order, s.Signed)
		}
	}
	return xxhash.Sum64String(b.String())
}
