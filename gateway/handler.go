package gateway

import (
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rpcgate/rpcgate/channel"
	"github.com/rpcgate/rpcgate/jsonrpc"
)

// defaultMaxBodyBytes bounds the request body we will read for one message.
const defaultMaxBodyBytes = 1 << 20

// Handler serves one channel over HTTP.
//
// The handler owns the transport concerns: method and content-type checks,
// body limits, wire decoding and encoding, correlation ids and the processor
// chain. Everything at the protocol level is delegated to the dispatcher.
type Handler struct {
	ch         channel.Channel
	rpc        *jsonrpc.Handler
	codec      codec
	processors []Processor
	log        zerolog.Logger
	maxBody    int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithProcessors appends middleware processors to the chain.
func WithProcessors(processors ...Processor) Option {
	return func(h *Handler) {
		h.processors = append(h.processors, processors...)
	}
}

// WithMaxBodyBytes overrides the request body limit.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		h.maxBody = n
	}
}

// NewHandler creates the HTTP handler for one channel, dispatching to
// invoker.
func NewHandler(ch channel.Channel, invoker jsonrpc.Invoker, log zerolog.Logger, opts ...Option) (*Handler, error) {
	c, err := codecFor(ch.Format())
	if err != nil {
		return nil, err
	}

	h := &Handler{
		ch:      ch,
		rpc:     jsonrpc.NewHandler(ch.Name, ch.ServiceWhitelist, invoker, log),
		codec:   c,
		log:     log,
		maxBody: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

var _ http.Handler = (*Handler)(nil)

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cid := NewCID()
	r = r.WithContext(WithCID(r.Context(), cid))

	if err := runChain(h.processors, w, r, h.serve); err != nil {
		writeError(w, err)
	}
}

// serve is the final stage of the processor chain.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	cid := CIDFromContext(r.Context())

	if !h.ch.IsActive {
		return Error(http.StatusNotFound, "channel is inactive", nil)
	}
	if r.Method != http.MethodPost {
		return Error(http.StatusMethodNotAllowed, "POST required", nil)
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, h.codec.ContentType()) {
		return Error(http.StatusUnsupportedMediaType, "unsupported content type "+ct, nil)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		return Error(http.StatusBadRequest, "failed to read request body", err)
	}
	if int64(len(body)) > h.maxBody {
		return Error(http.StatusRequestEntityTooLarge, "request body too large", nil)
	}

	message, err := h.codec.Decode(body)
	if len(body) == 0 || err != nil {
		// Undecodable input still gets a protocol answer: the parse
		// error envelope with a null id, since no id could be read.
		h.log.Warn().
			Str("cid", cid).
			Str("channel", h.ch.Name).
			Err(err).
			Msg("request body could not be decoded")
		return h.render(w, parseErrorEnvelope(cid))
	}

	if items, ok := message.([]any); ok && len(items) == 0 {
		out := jsonrpc.NewItemResponse(cid)
		out.SetError(&jsonrpc.ErrorCtx{
			CID:     cid,
			Code:    jsonrpc.CodeInvalidRequest,
			Message: "Invalid request - empty batch",
		})
		return h.render(w, out.Serialize())
	}

	result := h.rpc.Handle(r.Context(), jsonrpc.RequestContext{
		CID:         cid,
		OrigMessage: body,
		Message:     message,
	})

	// Notifications that succeeded produce no envelope at all.
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	if batch, ok := result.([]any); ok {
		answered := make([]any, 0, len(batch))
		for _, entry := range batch {
			if entry != nil {
				answered = append(answered, entry)
			}
		}
		if len(answered) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}
		return h.render(w, answered)
	}

	return h.render(w, result)
}

// render encodes v in the channel's wire format. Dispatched envelopes are
// always HTTP 200: success or failure is carried inside the envelope, not in
// the status code.
func (h *Handler) render(w http.ResponseWriter, v any) error {
	buf, err := h.codec.Encode(v)
	if err != nil {
		return Error(http.StatusInternalServerError, "failed to encode response", err)
	}
	w.Header().Set("Content-Type", h.codec.ContentType())
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(buf)
	return err
}

func parseErrorEnvelope(cid string) map[string]any {
	out := jsonrpc.NewItemResponse(cid)
	out.SetError(&jsonrpc.ErrorCtx{
		CID:     cid,
		Code:    jsonrpc.CodeParseError,
		Message: "Parsing error",
	})
	return out.Serialize()
}

// NewMux builds an http.ServeMux routing every configured channel at its URL
// path. All channels share the invoker and the processor chain.
func NewMux(cfg *channel.Config, invoker jsonrpc.Invoker, log zerolog.Logger, processors ...Processor) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	for _, ch := range cfg.Channels {
		h, err := NewHandler(ch, invoker, log, WithProcessors(processors...))
		if err != nil {
			return nil, err
		}
		mux.Handle(ch.URLPath, h)
	}
	return mux, nil
}
