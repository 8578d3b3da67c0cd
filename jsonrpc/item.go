package jsonrpc

import (
	"fmt"
)

// Version is the only protocol version the dispatcher accepts.
const Version = "2.0"

// ID is the tri-state JSON-RPC request identifier.
//
// The protocol distinguishes three cases: an id that was never given (a
// notification), an explicit null id, and a concrete value. Collapsing the
// first two into a single nil would lose the notification-detection
// invariant, so absence is tracked separately from the value.
type ID struct {
	value any
	given bool
}

// NewID returns an ID that was present on the wire. v may be nil for an
// explicit null id.
func NewID(v any) ID {
	return ID{value: v, given: true}
}

// Given reports whether the id key was present at all.
func (id ID) Given() bool { return id.given }

// Value returns the id value; nil both for an explicit null and for an
// absent id. Use Given to tell the two apart.
func (id ID) Value() any { return id.value }

// RequestContext is the unit of work handed to the dispatcher.
//
// It is built once per inbound call by the transport and is read-only for
// the duration of dispatch.
type RequestContext struct {
	// CID is the correlation id of the originating call, used for logs and
	// diagnostics. It is unrelated to the JSON-RPC request id.
	CID string

	// OrigMessage is the raw message as received, kept only so that
	// diagnostics can quote exactly what the caller sent.
	OrigMessage []byte

	// Message is the decoded message: one request object (map) or an
	// ordered batch ([]any of maps).
	Message any
}

// Item describes an individual JSON-RPC request or notification.
type Item struct {
	JSONRPC string
	Method  string
	Params  any
	ID      ID

	// NeedsResponse is derived from the id once, at parse time, and is
	// never recomputed: an item with no id is a notification and must not
	// be answered on success.
	NeedsResponse bool
}

// ParseItem builds an Item from one decoded request object.
//
// No validation happens here. Missing or ill-typed keys produce zero values
// that the dispatcher classifies with protocol-level error codes; raising at
// construction time would bypass the per-item error envelopes.
func ParseItem(raw map[string]any) Item {
	var item Item

	switch v := raw["jsonrpc"].(type) {
	case string:
		item.JSONRPC = v
	case nil:
	default:
		// Preserve whatever was sent so diagnostics can quote it.
		item.JSONRPC = fmt.Sprint(v)
	}

	if m, ok := raw["method"].(string); ok {
		item.Method = m
	}
	item.Params = raw["params"]

	if v, ok := raw["id"]; ok {
		item.ID = NewID(v)
	}
	item.NeedsResponse = item.ID.Given()

	return item
}

// Serialize returns the request-shaped representation of the item. The
// response path uses ItemResponse instead; this exists for callers that need
// to echo the request itself.
func (i Item) Serialize() map[string]any {
	return map[string]any{
		"jsonrpc": i.JSONRPC,
		"method":  i.Method,
		"params":  i.Params,
		"id":      i.ID.Value(),
	}
}
