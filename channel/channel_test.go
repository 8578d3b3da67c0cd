package channel

import (
	"strings"
	"testing"
)

const sampleConfig = `
channels:
  - name: orders
    url_path: /rpc/orders
    service_whitelist:
      - orders.create
      - orders.get
  - name: inventory
    url_path: /rpc/inventory
    is_active: false
    data_format: cbor
    security: inventory-key
    service_whitelist:
      - inventory.check
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	orders, ok := cfg.Get("orders")
	if !ok {
		t.Fatal("channel orders missing")
	}
	if !orders.IsActive {
		t.Error("is_active must default to true")
	}
	if orders.Format() != FormatJSON {
		t.Errorf("got format %q, want json default", orders.Format())
	}
	if orders.Security != "" {
		t.Errorf("got security %q, want none", orders.Security)
	}

	inv, ok := cfg.Get("inventory")
	if !ok {
		t.Fatal("channel inventory missing")
	}
	if inv.IsActive {
		t.Error("explicit is_active false was overridden")
	}
	if inv.Format() != FormatCBOR {
		t.Errorf("got format %q, want cbor", inv.Format())
	}
	if len(inv.ServiceWhitelist) != 1 || inv.ServiceWhitelist[0] != "inventory.check" {
		t.Errorf("unexpected whitelist %v", inv.ServiceWhitelist)
	}
}

func TestParseEnvExpansion(t *testing.T) {
	t.Setenv("ORDERS_PATH", "/rpc/orders-v2")
	t.Setenv("ORDERS_KEY", "orders-key")

	cfg, err := Parse([]byte(`
channels:
  - name: orders
    url_path: ${ORDERS_PATH}
    security: ${ORDERS_KEY}
    service_whitelist: [orders.create]
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ch := cfg.Channels[0]
	if ch.URLPath != "/rpc/orders-v2" {
		t.Errorf("got url_path %q, want expansion applied", ch.URLPath)
	}
	if ch.Security != "orders-key" {
		t.Errorf("got security %q, want orders-key", ch.Security)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			"MissingName",
			"channels:\n  - url_path: /rpc/x\n",
			"no name",
		},
		{
			"MissingPath",
			"channels:\n  - name: x\n",
			"url_path is required",
		},
		{
			"RelativePath",
			"channels:\n  - name: x\n    url_path: rpc/x\n",
			"must start with /",
		},
		{
			"UnknownFormat",
			"channels:\n  - name: x\n    url_path: /rpc/x\n    data_format: xml\n",
			"unknown data_format",
		},
		{
			"DuplicateName",
			"channels:\n  - name: x\n    url_path: /rpc/a\n  - name: x\n    url_path: /rpc/b\n",
			"duplicate channel name",
		},
		{
			"DuplicatePath",
			"channels:\n  - name: a\n    url_path: /rpc/x\n  - name: b\n    url_path: /rpc/x\n",
			"duplicate url_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.config))
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetUnknownChannel(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := cfg.Get("nope"); ok {
		t.Error("Get must report unknown channels")
	}
}
