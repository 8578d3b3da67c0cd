package gateway

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RequestLogProcessor logs one line per request with the correlation id, so
// transport logs and dispatcher logs can be joined on cid.
type RequestLogProcessor struct {
	log zerolog.Logger
}

// NewRequestLogProcessor creates a request logging processor.
func NewRequestLogProcessor(log zerolog.Logger) *RequestLogProcessor {
	return &RequestLogProcessor{log: log}
}

var _ Processor = (*RequestLogProcessor)(nil)

// statusWriter records the status code written downstream.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Process implements Processor.
func (p *RequestLogProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	sw := &statusWriter{ResponseWriter: w}
	start := time.Now()

	err := next(sw, r)

	p.log.Info().
		Str("cid", CIDFromContext(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", sw.status).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("request")
	return err
}
