package jsonrpc

import (
	"encoding/json"
	"testing"
)

func decodeObject(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", s, err)
	}
	return v
}

func TestParseItemIDTriState(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantGiven     bool
		wantValue     any
		needsResponse bool
	}{
		{"ValueID", `{"jsonrpc":"2.0","method":"m","id":7}`, true, float64(7), true},
		{"StringID", `{"jsonrpc":"2.0","method":"m","id":"abc"}`, true, "abc", true},
		{"NullID", `{"jsonrpc":"2.0","method":"m","id":null}`, true, nil, true},
		{"AbsentID", `{"jsonrpc":"2.0","method":"m"}`, false, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := ParseItem(decodeObject(t, tt.body))
			if item.ID.Given() != tt.wantGiven {
				t.Errorf("got Given %v, want %v", item.ID.Given(), tt.wantGiven)
			}
			if item.ID.Value() != tt.wantValue {
				t.Errorf("got Value %v, want %v", item.ID.Value(), tt.wantValue)
			}
			if item.NeedsResponse != tt.needsResponse {
				t.Errorf("got NeedsResponse %v, want %v", item.NeedsResponse, tt.needsResponse)
			}
		})
	}
}

func TestParseItemNeverFails(t *testing.T) {
	// Malformed input flows forward so the dispatcher can classify it with
	// protocol error codes instead of construction-time failures.
	tests := []struct {
		name string
		body string
	}{
		{"Empty", `{}`},
		{"NumericVersion", `{"jsonrpc":2.0,"method":"m","id":1}`},
		{"NonStringMethod", `{"jsonrpc":"2.0","method":42,"id":1}`},
		{"OnlyParams", `{"params":[1,2,3]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := ParseItem(decodeObject(t, tt.body))
			if item.NeedsResponse != item.ID.Given() {
				t.Error("NeedsResponse must mirror id presence")
			}
		})
	}
}

func TestParseItemNonStringVersionPreserved(t *testing.T) {
	item := ParseItem(decodeObject(t, `{"jsonrpc":1.0,"method":"m","id":1}`))
	if item.JSONRPC == "" {
		t.Error("non-string version should be preserved for diagnostics")
	}
	if item.JSONRPC == Version {
		t.Errorf("got version %q, want a mismatch", item.JSONRPC)
	}
}

func TestItemSerializeShape(t *testing.T) {
	item := ParseItem(decodeObject(t, `{"jsonrpc":"2.0","method":"a.b","params":{"x":1},"id":3}`))
	out := item.Serialize()

	if out["jsonrpc"] != "2.0" || out["method"] != "a.b" {
		t.Errorf("unexpected serialization: %v", out)
	}
	if out["id"] != float64(3) {
		t.Errorf("got id %v, want 3", out["id"])
	}
	if _, ok := out["params"]; !ok {
		t.Error("params missing from serialization")
	}
}

func TestErrorCtxSerialize(t *testing.T) {
	e := &ErrorCtx{CID: "cid-1", Code: CodeMethodNotFound, Message: "nope"}
	out := e.Serialize()

	if out["code"] != CodeMethodNotFound || out["message"] != "nope" {
		t.Errorf("unexpected error payload: %v", out)
	}
	data := out["data"].(map[string]any)
	ctx := data["ctx"].(map[string]any)
	if ctx["cid"] != "cid-1" {
		t.Errorf("got cid %v, want cid-1", ctx["cid"])
	}
}

func TestItemResponseExactlyOneOutcome(t *testing.T) {
	r := NewItemResponse("cid-1")
	r.SetID(NewID(float64(1)))
	r.SetError(&ErrorCtx{CID: "cid-1", Code: CodeGeneric, Message: "failed"})
	r.SetResult("ok")

	out := r.Serialize()
	if _, ok := out["error"]; ok {
		t.Error("error present after SetResult")
	}
	if out["result"] != "ok" {
		t.Errorf("got result %v, want ok", out["result"])
	}
}

func TestItemResponseFalsyResults(t *testing.T) {
	// Zero-ish results are still successes; the envelope must carry the
	// result key, not an error.
	for _, result := range []any{0, false, nil, ""} {
		r := NewItemResponse("cid-1")
		r.SetResult(result)
		out := r.Serialize()

		if _, ok := out["error"]; ok {
			t.Errorf("result %v produced an error envelope", result)
		}
		if v, ok := out["result"]; !ok || v != result {
			t.Errorf("got result %v (present=%v), want %v", v, ok, result)
		}
	}
}

func TestItemResponseUnpopulatedIsGenericError(t *testing.T) {
	out := NewItemResponse("cid-1").Serialize()
	errObj, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got %v", out)
	}
	if errObj["code"] != CodeGeneric {
		t.Errorf("got code %v, want %d", errObj["code"], CodeGeneric)
	}
}
