package jsonrpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Invoker executes one backend operation.
//
// A failure is reported by returning an error. Errors of type *Error keep
// their code and message in the client-visible envelope; any other error is
// treated as opaque and mapped to the generic fallback.
type Invoker interface {
	Invoke(ctx context.Context, method string, params any) (any, error)
}

// InvokerFunc adapts a function to an Invoker.
type InvokerFunc func(ctx context.Context, method string, params any) (any, error)

func (f InvokerFunc) Invoke(ctx context.Context, method string, params any) (any, error) {
	return f(ctx, method, params)
}

// Handler dispatches JSON-RPC requests for one configured channel.
//
// A Handler holds no mutable state: the whitelist is fixed at construction
// and the invoker is the only collaborator, so a single Handler is safe for
// concurrent use across independent RequestContexts without locking.
type Handler struct {
	name      string
	whitelist map[string]struct{}
	invoker   Invoker
	log       zerolog.Logger
}

// NewHandler creates a dispatcher for the named channel. whitelist is the
// full set of method names this channel may invoke; everything else is
// answered with CodeMethodNotFound.
func NewHandler(name string, whitelist []string, invoker Invoker, log zerolog.Logger) *Handler {
	set := make(map[string]struct{}, len(whitelist))
	for _, m := range whitelist {
		set[m] = struct{}{}
	}
	return &Handler{
		name:      name,
		whitelist: set,
		invoker:   invoker,
		log:       log,
	}
}

// Name returns the channel name this handler was configured with.
func (h *Handler) Name() string { return h.name }

// CanHandle reports whether method is in the channel whitelist.
func (h *Handler) CanHandle(method string) bool {
	_, ok := h.whitelist[method]
	return ok
}

// Handle dispatches one decoded message.
//
// For a batch it returns a []any positionally aligned with the input: each
// entry is either an envelope or nil where a successful notification
// suppressed its output. For a single request it returns one envelope, or
// nil when the item was a successful notification. Batch items are handled
// sequentially in input order and in strict isolation: one item failing
// never disturbs its siblings.
func (h *Handler) Handle(ctx context.Context, rc RequestContext) any {
	if items, ok := rc.Message.([]any); ok {
		out := make([]any, len(items))
		for i, item := range items {
			if resp := h.handleOneItem(ctx, rc.CID, item, rc.OrigMessage); resp != nil {
				out[i] = resp
			}
		}
		return out
	}

	if resp := h.handleOneItem(ctx, rc.CID, rc.Message, rc.OrigMessage); resp != nil {
		return resp
	}
	return nil
}

// handleOneItem runs the per-item protocol: parse, check version, check
// authorization, invoke, classify the outcome.
//
// It is the containment boundary for the item: no error or panic escapes.
// Successful notifications return nil. Failures always return an envelope,
// even when the id looked absent, because a failure may occur before the
// notification status is trustworthy.
func (h *Handler) handleOneItem(ctx context.Context, cid string, message any, orig []byte) (resp map[string]any) {
	out := NewItemResponse(cid)

	defer func() {
		if r := recover(); r != nil {
			h.logFailure(cid, orig, fmt.Errorf("panic: %v", r))
			out.SetError(&ErrorCtx{CID: cid, Code: CodeGeneric, Message: genericMessage})
			resp = out.Serialize()
		}
	}()

	serialized, err := func() (map[string]any, error) {
		raw, ok := message.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("request item is %T, not an object", message)
		}

		item := ParseItem(raw)

		// Record the id now so that failures below still echo it.
		out.SetID(item.ID)

		if item.JSONRPC != Version {
			return nil, NewInvalidRequest(cid, fmt.Sprintf("Unsupported JSON-RPC version `%s` in `%s`", item.JSONRPC, orig))
		}

		if !h.CanHandle(item.Method) {
			return nil, NewMethodNotFound(cid, fmt.Sprintf("Method not supported `%s` in `%s`", item.Method, orig))
		}

		result, err := h.invoker.Invoke(ctx, item.Method, item.Params)
		if err != nil {
			return nil, err
		}

		out.SetResult(result)

		if item.NeedsResponse {
			return out.Serialize(), nil
		}
		return nil, nil
	}()

	if err == nil {
		return serialized
	}

	h.logFailure(cid, orig, err)

	errCtx := &ErrorCtx{CID: cid}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		errCtx.Code = rpcErr.Code
		errCtx.Message = rpcErr.Message
	} else {
		errCtx.Code = CodeGeneric
		errCtx.Message = genericMessage
	}

	out.SetError(errCtx)
	return out.Serialize()
}

func (h *Handler) logFailure(cid string, orig []byte, err error) {
	h.log.Warn().
		Str("cid", cid).
		Str("channel", h.name).
		Str("orig_message", string(orig)).
		Err(err).
		Msg("JSON-RPC request failed")
}
