package gateway

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/rpcgate/rpcgate/secret"
	"github.com/rpcgate/rpcgate/store"
)

// APIKeyProcessor rejects requests that do not present the expected API key
// in the configured header.
type APIKeyProcessor struct {
	header string
	key    []byte
}

// NewAPIKeyProcessor creates a processor checking header against key.
func NewAPIKeyProcessor(header, key string) *APIKeyProcessor {
	if header == "" {
		header = store.DefaultSecurityHeader
	}
	return &APIKeyProcessor{header: header, key: []byte(key)}
}

var _ Processor = (*APIKeyProcessor)(nil)

// Process implements Processor. The comparison is constant-time.
func (p *APIKeyProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	got := []byte(r.Header.Get(p.header))
	if len(got) == 0 || subtle.ConstantTimeCompare(got, p.key) != 1 {
		return Error(http.StatusUnauthorized, "invalid or missing API key", nil)
	}
	return next(w, r)
}

// APIKeyFromStore loads the named security definition, opens its sealed
// secret and returns a processor enforcing it.
func APIKeyFromStore(ctx context.Context, s *store.Store, codec *secret.Codec, name string) (*APIKeyProcessor, error) {
	def, err := s.GetSecurityDef(ctx, name)
	if err != nil {
		return nil, err
	}

	var key string
	if err := codec.Open(def.Name, def.SealedSecret, &key); err != nil {
		return nil, err
	}
	return NewAPIKeyProcessor(def.Header, key), nil
}
