// Package secret seals and opens security-definition secrets at rest.
//
// Secrets stored alongside channel configuration (API keys in particular) are
// never written in the clear. A Codec seals a value with an AEAD under a
// named key and binds the ciphertext to the owning security definition, so a
// sealed value copied between definitions fails to open.
//
// Format: [keyID] "." [sealed_b64]
// where sealed = nonce || AEAD.Seal(nil, nonce, plaintext, aad)
// and aad = "secret:" + definition name.
// Key rotation: keys contains all accepted keys; keyID selects the current
// sealing key.
package secret

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrFormat  = errors.New("invalid sealed secret format")
	ErrInvalid = errors.New("invalid sealed secret")
	ErrConfig  = errors.New("invalid secret codec configuration")
)

// maxSealedLen bounds the amount of stored data we will decode and allocate
// for one sealed value.
const maxSealedLen = 16384

// KeySize is the key length in bytes for the default AEAD.
const KeySize = chacha20poly1305.KeySize

// Codec seals and opens secret values.
type Codec struct {
	keyID   string
	keys    map[string][]byte
	newAEAD func(key []byte) (cipher.AEAD, error)
}

// Option configures a Codec.
type Option func(*Codec)

// WithAEAD configures a custom AEAD factory (e.g. AES-GCM).
func WithAEAD(f func(key []byte) (cipher.AEAD, error)) Option {
	return func(c *Codec) {
		c.newAEAD = f
	}
}

// NewCodec creates a codec sealing under keys[keyID] and opening under any
// key in keys. The default AEAD is XChaCha20-Poly1305.
func NewCodec(keyID string, keys map[string][]byte, opts ...Option) (*Codec, error) {
	c := &Codec{
		keyID:   keyID,
		keys:    keys,
		newAEAD: chacha20poly1305.NewX,
	}
	for _, opt := range opts {
		opt(c)
	}

	if keys == nil {
		return nil, fmt.Errorf("%w: keys must not be nil", ErrConfig)
	}
	if _, ok := keys[keyID]; !ok {
		return nil, fmt.Errorf("%w: keyID %q not found in keys", ErrConfig, keyID)
	}
	for id, k := range keys {
		if _, err := c.newAEAD(k); err != nil {
			return nil, fmt.Errorf("%w: key %s: %v", ErrConfig, id, err)
		}
	}
	return c, nil
}

// aad binds a sealed value to its security definition.
func aad(name string) []byte {
	return []byte("secret:" + name)
}

// Seal marshals v and seals it under the codec's current key, bound to the
// security definition name.
func (c *Codec) Seal(name string, v any) (string, error) {
	if c == nil {
		return "", ErrConfig
	}

	plain, err := cbor.Marshal(v)
	if err != nil {
		return "", err
	}

	aead, err := c.newAEAD(c.keys[c.keyID])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, plain, aad(name))
	return c.keyID + "." + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open unseals value for the named security definition into v. The key is
// selected by the keyID prefix, so values sealed under rotated-out keys still
// open as long as the key remains in the accepted set.
func (c *Codec) Open(name, value string, v any) error {
	if c == nil {
		return ErrConfig
	}
	if len(value) == 0 || len(value) > maxSealedLen {
		return ErrFormat
	}

	keyID, sealedB64, ok := strings.Cut(value, ".")
	if !ok || keyID == "" || sealedB64 == "" {
		return ErrFormat
	}
	key, ok := c.keys[keyID]
	if !ok {
		return ErrInvalid
	}

	sealed, err := base64.RawURLEncoding.DecodeString(sealedB64)
	if err != nil {
		return ErrFormat
	}

	aead, err := c.newAEAD(key)
	if err != nil {
		return err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return ErrFormat
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, aad(name))
	if err != nil {
		return ErrInvalid
	}

	return cbor.Unmarshal(plain, v)
}
