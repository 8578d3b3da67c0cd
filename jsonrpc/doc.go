// Package jsonrpc implements the JSON-RPC 2.0 request dispatcher at the core
// of the gateway.
//
// This package implements the server-side handling rules of the JSON-RPC 2.0
// specification (https://www.jsonrpc.org/specification): single requests,
// batches, notifications, and the reserved error-code range.
//
// The dispatcher is deliberately transport-agnostic. The transport decodes
// raw bytes into a value (one object or an array of objects), wraps it in a
// RequestContext together with a correlation id, and calls Handler.Handle.
// The dispatcher validates each item, consults its method whitelist, invokes
// the backend through the Invoker collaborator, and returns ready-to-encode
// envelopes. It never writes to the network and never panics: every failure
// is contained per item and converted into an error envelope.
//
// # Basic Usage
//
//	h := jsonrpc.NewHandler("orders", []string{"orders.Create"}, invoker, log)
//
//	out := h.Handle(ctx, jsonrpc.RequestContext{
//		CID:         cid,
//		OrigMessage: body,
//		Message:     decoded,
//	})
//
// out is one envelope (map), an ordered slice of envelopes for a batch, or
// nil when the lone item was a successful notification.
//
// # Error codes
//
// Standard codes are defined as constants:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
//   - CodeGeneric (-32000)
//
// Failures that are not a recognized *Error are reported to clients with
// CodeGeneric and a fixed message; internal error text is logged, never sent.
package jsonrpc
