// Package gateway exposes configured channels over HTTP.
//
// Each channel becomes one http.Handler that decodes the request body with
// the channel's wire codec, runs the JSON-RPC dispatcher and renders the
// envelope back in the same format. Processors can be chained as middleware
// to intercept requests before dispatch.
package gateway

import (
	"errors"
	"net/http"
)

// HTTPError is a client-visible error that maps directly to an HTTP status
// code. It is used for transport-level failures that happen before dispatch;
// protocol-level failures travel as JSON-RPC error envelopes instead.
type HTTPError struct {
	Status int
	// Message is a short, human-readable description suitable for an HTTP error body.
	Message string
	Cause   error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "gateway: error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Error creates a new HTTPError.
func Error(status int, message string, err error) error {
	// Avoid double-wrapping.
	var he *HTTPError
	if errors.As(err, &he) {
		return err
	}
	return &HTTPError{Status: status, Message: message, Cause: err}
}

// Processor is middleware-style logic that runs before dispatch.
//
// Protocol:
//   - Processors MUST call next(...), unless they intend to
//     short-circuit the request.
//   - Processors MUST NOT call w.WriteHeader(...).
//   - Processors MUST NOT write to the response body.
//
// Error handling:
//   - If any processor returns a non-nil error, the chain stops immediately
//     and that error is translated to an HTTP error response.
type Processor interface {
	Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error

func (f ProcessorFunc) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	return f(w, r, next)
}

// runChain calls each processor in order, ending with final.
func runChain(processors []Processor, w http.ResponseWriter, r *http.Request, final func(w http.ResponseWriter, r *http.Request) error) error {
	var run func(i int, w2 http.ResponseWriter, r2 *http.Request) error
	run = func(i int, w2 http.ResponseWriter, r2 *http.Request) error {
		if i < 0 || i > len(processors) {
			// Sanity check failure.
			return errors.New("gateway: invalid processor index")
		} else if i < len(processors) {
			if processors[i] == nil {
				return errors.New("gateway: nil processor")
			}
			return processors[i].Process(w2, r2, func(w3 http.ResponseWriter, r3 *http.Request) error {
				return run(i+1, w3, r3)
			})
		}
		return final(w2, r2)
	}
	return run(0, w, r)
}

// writeError translates a chain error into an HTTP error response.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := ""

	var he *HTTPError
	if errors.As(err, &he) && he != nil {
		if he.Status >= 100 {
			status = he.Status
		}
		if he.Message == "" {
			message = http.StatusText(status)
		} else {
			message = he.Message
		}
	} else {
		message = err.Error()
	}
	http.Error(w, message, status)
}
