// Package registry maps JSON-RPC method names to Go methods on registered
// receivers and invokes them through reflection.
//
// A receiver is registered under a namespace; each exported method becomes a
// callable named "<namespace>.<lower-cased method>". Reflection metadata is
// extracted once at registration time so that per-call dispatch is a map
// lookup plus a reflect.Call.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rpcgate/rpcgate/jsonrpc"
)

var (
	ctxType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// boundMethod caches the reflection metadata for one registered method.
type boundMethod struct {
	receiver reflect.Value
	fn       reflect.Value
	takesCtx bool
	argTypes []reflect.Type
	hasValue bool
	hasError bool
}

// Registry dispatches method names to registered receivers.
//
// Registration normally happens at startup, invocation on every request, so
// the method table is guarded by an RWMutex with reads on the hot path.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]*boundMethod
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{methods: make(map[string]*boundMethod)}
}

var _ jsonrpc.Invoker = (*Registry)(nil)

// Register binds every exported method of receiver under namespace. Method
// names are lower-cased, so a receiver method Add becomes "<namespace>.add".
//
// A method is eligible when it is exported, not variadic, optionally takes a
// leading context.Context, and returns nothing, an error, a value, or a value
// and an error. Ineligible methods are skipped. Register panics on a name
// collision or when no method is eligible: both are programming errors that
// should surface at startup, not at request time.
func (r *Registry) Register(namespace string, receiver any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv := reflect.ValueOf(receiver)
	rt := rv.Type()

	bound := 0
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if !isExported(m.Name) {
			continue
		}

		bm, ok := bind(rv, m)
		if !ok {
			continue
		}

		name := namespace + "." + strings.ToLower(m.Name)
		if _, present := r.methods[name]; present {
			panic("registry: method name collision: " + name)
		}
		r.methods[name] = bm
		bound++
	}

	if bound == 0 {
		panic(fmt.Sprintf("registry: type %s has no callable exported methods", rt))
	}
}

// bind validates a method signature and extracts its call metadata.
func bind(receiver reflect.Value, m reflect.Method) (*boundMethod, bool) {
	mt := m.Type
	if mt.IsVariadic() {
		return nil, false
	}

	bm := &boundMethod{
		receiver: receiver,
		fn:       m.Func,
	}

	// In(0) is the receiver itself.
	first := 1
	if mt.NumIn() > 1 && mt.In(1) == ctxType {
		bm.takesCtx = true
		first = 2
	}
	for i := first; i < mt.NumIn(); i++ {
		bm.argTypes = append(bm.argTypes, mt.In(i))
	}

	switch mt.NumOut() {
	case 0:
	case 1:
		if mt.Out(0) == errorType {
			bm.hasError = true
		} else {
			bm.hasValue = true
		}
	case 2:
		if mt.Out(1) != errorType {
			return nil, false
		}
		bm.hasValue = true
		bm.hasError = true
	default:
		return nil, false
	}

	return bm, true
}

// Methods returns the registered method names, in no particular order.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.methods))
	for name := range r.methods {
		out = append(out, name)
	}
	return out
}

// Invoke looks up method and calls it with params.
//
// Params may be nil (a zero-argument call), a []any of positional arguments,
// or a map[string]any bound to a single struct or map argument. Failures are
// reported as *jsonrpc.Error values so the dispatcher can map them to
// protocol error codes.
func (r *Registry) Invoke(ctx context.Context, method string, params any) (any, error) {
	r.mu.RLock()
	bm, ok := r.methods[method]
	r.mu.RUnlock()

	if !ok {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "method not found: " + method}
	}

	args, err := buildArgs(bm, params)
	if err != nil {
		return nil, err
	}

	return call(ctx, bm, args)
}

// buildArgs converts the decoded params value into the reflect.Value argument
// list the method expects.
func buildArgs(bm *boundMethod, params any) ([]reflect.Value, error) {
	switch p := params.(type) {
	case nil:
		if len(bm.argTypes) != 0 {
			return nil, &jsonrpc.Error{
				Code:    jsonrpc.CodeInvalidParams,
				Message: fmt.Sprintf("expected %d params, got none", len(bm.argTypes)),
			}
		}
		return nil, nil

	case []any:
		if len(p) != len(bm.argTypes) {
			return nil, &jsonrpc.Error{
				Code:    jsonrpc.CodeInvalidParams,
				Message: fmt.Sprintf("expected %d params, got %d", len(bm.argTypes), len(p)),
			}
		}
		args := make([]reflect.Value, len(p))
		for i, raw := range p {
			v, err := decodeArg(raw, bm.argTypes[i])
			if err != nil {
				return nil, &jsonrpc.Error{
					Code:    jsonrpc.CodeInvalidParams,
					Message: fmt.Sprintf("param %d: %v", i, err),
				}
			}
			args[i] = v
		}
		return args, nil

	case map[string]any:
		if len(bm.argTypes) != 1 {
			return nil, &jsonrpc.Error{
				Code:    jsonrpc.CodeInvalidParams,
				Message: fmt.Sprintf("named params need a single argument, method takes %d", len(bm.argTypes)),
			}
		}
		v, err := decodeArg(p, bm.argTypes[0])
		if err != nil {
			return nil, &jsonrpc.Error{
				Code:    jsonrpc.CodeInvalidParams,
				Message: fmt.Sprintf("params: %v", err),
			}
		}
		return []reflect.Value{v}, nil

	default:
		return nil, &jsonrpc.Error{
			Code:    jsonrpc.CodeInvalidParams,
			Message: fmt.Sprintf("params must be an array or object, got %T", params),
		}
	}
}

// decodeArg converts one decoded wire value into target type t via a JSON
// round trip. The round trip keeps number coercion (float64 into int fields)
// and struct tag handling consistent with how the body itself was decoded.
func decodeArg(raw any, t reflect.Type) (reflect.Value, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return reflect.Value{}, err
	}
	v := reflect.New(t)
	if err := json.Unmarshal(buf, v.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return v.Elem(), nil
}

// call performs the reflect.Call with panic containment.
func call(ctx context.Context, bm *boundMethod, args []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &jsonrpc.Error{
				Code:    jsonrpc.CodeInternalError,
				Message: "internal error",
			}
		}
	}()

	in := make([]reflect.Value, 0, 2+len(args))
	in = append(in, bm.receiver)
	if bm.takesCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}
	in = append(in, args...)

	outs := bm.fn.Call(in)

	if bm.hasError {
		if e := outs[len(outs)-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
	}
	if bm.hasValue {
		return outs[0].Interface(), nil
	}
	return nil, nil
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
