package gateway

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/rpcgate/rpcgate/channel"
)

// codec is one wire format a channel can speak. Decode must produce the
// generic message shapes the dispatcher works with: map[string]any for
// objects and []any for batches.
type codec interface {
	ContentType() string
	Decode(buf []byte) (any, error)
	Encode(v any) ([]byte, error)
}

// cborDecMode decodes CBOR maps as map[string]any so that dispatch sees the
// same message shapes regardless of wire format.
var cborDecMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Decode(buf []byte) (any, error) {
	var v any
	if err := json.Unmarshal(buf, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (jsonCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

type cborCodec struct{}

func (cborCodec) ContentType() string { return "application/cbor" }

func (cborCodec) Decode(buf []byte) (any, error) {
	var v any
	if err := cborDecMode.Unmarshal(buf, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (cborCodec) Encode(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

// codecFor returns the codec for a channel data format.
func codecFor(format string) (codec, error) {
	switch format {
	case "", channel.FormatJSON:
		return jsonCodec{}, nil
	case channel.FormatCBOR:
		return cborCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown data format %q", format)
	}
}
