package jsonrpc

// ItemResponse is the response to one request item.
//
// A response is created per item, populated by exactly one of SetResult or
// SetError, serialized once, and not reused. The two setters are mutually
// exclusive by construction: whichever runs last wins, and the dispatcher
// only ever runs one of them.
type ItemResponse struct {
	id        ID
	cid       string
	result    any
	errCtx    *ErrorCtx
	hasResult bool
}

// NewItemResponse creates an empty response bound to a correlation id. The
// request id starts out as "not given" and is filled in by SetID as soon as
// parsing makes it known, so that even failures echo the caller's id.
func NewItemResponse(cid string) *ItemResponse {
	return &ItemResponse{cid: cid}
}

// SetID records the request id to echo back.
func (r *ItemResponse) SetID(id ID) {
	r.id = id
}

// SetResult marks the item as succeeded. A nil result is a valid result;
// success is tracked separately from the value so that results like 0,
// false or null are not mistaken for failures.
func (r *ItemResponse) SetResult(v any) {
	r.result = v
	r.hasResult = true
	r.errCtx = nil
}

// SetError marks the item as failed.
func (r *ItemResponse) SetError(e *ErrorCtx) {
	r.errCtx = e
	r.hasResult = false
	r.result = nil
}

// Serialize returns the response envelope. Exactly one of result or error is
// present; a response that was never populated serializes as the generic
// failure rather than an envelope with neither.
func (r *ItemResponse) Serialize() map[string]any {
	out := map[string]any{
		"jsonrpc": Version,
		"id":      r.id.Value(),
	}

	switch {
	case r.hasResult:
		out["result"] = r.result
	case r.errCtx != nil:
		out["error"] = r.errCtx.Serialize()
	default:
		out["error"] = (&ErrorCtx{CID: r.cid, Code: CodeGeneric, Message: genericMessage}).Serialize()
	}

	return out
}
