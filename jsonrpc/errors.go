package jsonrpc

// Error codes from the JSON-RPC 2.0 reserved range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeGeneric is the implementation-defined fallback for any failure
	// that is not a recognized *Error.
	CodeGeneric = -32000
)

// genericMessage is the only message ever sent to clients for unrecognized
// failures. Internal error text is logged, not returned.
const genericMessage = "Message could not be handled"

// Error is a protocol-level JSON-RPC failure with a fixed numeric code.
//
// The dispatcher matches failures against this type with errors.As: a
// recognized *Error has its code and message copied into the error envelope,
// anything else falls back to CodeGeneric. Collaborators (the invoker in
// particular) may return *Error values to control the client-visible code.
type Error struct {
	Code    int
	CID     string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "jsonrpc: error: <nil>"
	}
	return e.Message
}

// NewParseError reports that the original message could not be decoded.
// Decoding happens upstream, so this is raised by the transport rather than
// the dispatcher itself.
func NewParseError(cid, message string) *Error {
	return &Error{Code: CodeParseError, CID: cid, Message: message}
}

// NewInvalidRequest reports a protocol version mismatch.
func NewInvalidRequest(cid, message string) *Error {
	return &Error{Code: CodeInvalidRequest, CID: cid, Message: message}
}

// NewMethodNotFound reports a method outside the handler's whitelist.
func NewMethodNotFound(cid, message string) *Error {
	return &Error{Code: CodeMethodNotFound, CID: cid, Message: message}
}

// NewInternalError reports an unexpected failure inside the backend
// invocation.
func NewInternalError(cid, message string) *Error {
	return &Error{Code: CodeInternalError, CID: cid, Message: message}
}

// ErrorCtx is the client-visible error payload of a failed item. One
// instance belongs to exactly one ItemResponse and is never shared across
// batch items.
type ErrorCtx struct {
	CID     string
	Code    int
	Message string
}

// Serialize returns the wire shape {code, message, data: {ctx: {cid}}}.
func (e *ErrorCtx) Serialize() map[string]any {
	return map[string]any{
		"code":    e.Code,
		"message": e.Message,
		"data": map[string]any{
			"ctx": map[string]any{
				"cid": e.CID,
			},
		},
	}
}
