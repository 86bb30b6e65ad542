// Package cangen generates fixed-layout encode/decode source from CAN DBC
// databases. The cmd/cangen binary is the usual entry point; this package
// re-exports the types alternate front ends need to drive generation
// directly and inspect its diagnostics.
package cangen

import (
	"github.com/y0rk9s/cangen/internal/codec"
	"github.com/y0rk9s/cangen/internal/dbc"
	"github.com/y0rk9s/cangen/internal/generate"
)

// Database is a parsed DBC database.
type Database = dbc.Database

// Parse reads DBC content into a Database.
var Parse = dbc.Parse

// Result is the product of one generation run.
type Result = generate.Result

// Generate builds codecs for every message in a database. Unsupported
// signals are excluded and reported in Result.Diagnostics.
var Generate = generate.Generate

// MessageCodec is the generated codec of one message. It is directly
// executable via its Encode and Decode methods.
type MessageCodec = codec.MessageCodec

// Record holds decoded field values keyed by normalized field name.
type Record = codec.Record

// Diagnostic records one excluded signal or message.
type Diagnostic = codec.Diagnostic

// ErrInsufficientBuffer is returned by MessageCodec.Encode and Decode when
// the supplied buffer is smaller than the message's byte length.
var ErrInsufficientBuffer = codec.ErrInsufficientBuffer
