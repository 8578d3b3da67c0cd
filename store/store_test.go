package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rpcgate/rpcgate/channel"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testChannel(name string) channel.Channel {
	return channel.Channel{
		Name:             name,
		URLPath:          "/rpc/" + name,
		IsActive:         true,
		DataFormat:       channel.FormatJSON,
		ServiceWhitelist: []string{name + ".get", name + ".create"},
	}
}

func TestChannelCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.CreateChannel(ctx, testChannel("orders"))
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}
	if rec.ID == 0 {
		t.Error("created record has no id")
	}
	if rec.CreatedAt == "" || rec.CreatedAt != rec.UpdatedAt {
		t.Errorf("unexpected timestamps: %q / %q", rec.CreatedAt, rec.UpdatedAt)
	}

	got, err := s.GetChannel(ctx, "orders")
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}
	if got.URLPath != "/rpc/orders" || !got.IsActive {
		t.Errorf("unexpected channel %+v", got.Channel)
	}
	if len(got.ServiceWhitelist) != 2 || got.ServiceWhitelist[0] != "orders.get" {
		t.Errorf("whitelist did not round-trip: %v", got.ServiceWhitelist)
	}

	edited := testChannel("orders")
	edited.IsActive = false
	edited.Security = "orders-key"
	if err := s.EditChannel(ctx, edited); err != nil {
		t.Fatalf("EditChannel failed: %v", err)
	}

	got, err = s.GetChannel(ctx, "orders")
	if err != nil {
		t.Fatalf("GetChannel after edit failed: %v", err)
	}
	if got.IsActive {
		t.Error("edit did not persist is_active")
	}
	if got.Security != "orders-key" {
		t.Errorf("got security %q, want orders-key", got.Security)
	}

	if err := s.DeleteChannel(ctx, "orders"); err != nil {
		t.Fatalf("DeleteChannel failed: %v", err)
	}
	if _, err := s.GetChannel(ctx, "orders"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after delete", err)
	}
}

func TestChannelNotFoundPaths(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetChannel(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetChannel: got %v, want ErrNotFound", err)
	}
	if err := s.EditChannel(ctx, testChannel("nope")); !errors.Is(err, ErrNotFound) {
		t.Errorf("EditChannel: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteChannel(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteChannel: got %v, want ErrNotFound", err)
	}
}

func TestCreateChannelRejectsDuplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateChannel(ctx, testChannel("orders")); err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}
	if _, err := s.CreateChannel(ctx, testChannel("orders")); err == nil {
		t.Error("duplicate name must be rejected")
	}
}

func TestCreateChannelValidates(t *testing.T) {
	s := openTestStore(t)

	bad := testChannel("orders")
	bad.URLPath = "no-slash"
	if _, err := s.CreateChannel(context.Background(), bad); err == nil {
		t.Error("invalid channel must be rejected before insert")
	}
}

func TestSecurityDefCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	def, err := s.CreateSecurityDef(ctx, SecurityDef{Name: "orders-key", SealedSecret: "k1.abc"})
	if err != nil {
		t.Fatalf("CreateSecurityDef failed: %v", err)
	}
	if def.Header != DefaultSecurityHeader {
		t.Errorf("got header %q, want default %q", def.Header, DefaultSecurityHeader)
	}

	got, err := s.GetSecurityDef(ctx, "orders-key")
	if err != nil {
		t.Fatalf("GetSecurityDef failed: %v", err)
	}
	if got.SealedSecret != "k1.abc" {
		t.Errorf("sealed secret did not round-trip: %q", got.SealedSecret)
	}

	if err := s.DeleteSecurityDef(ctx, "orders-key"); err != nil {
		t.Fatalf("DeleteSecurityDef failed: %v", err)
	}
	if _, err := s.GetSecurityDef(ctx, "orders-key"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after delete", err)
	}
}

func TestCreateSecurityDefValidates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateSecurityDef(ctx, SecurityDef{SealedSecret: "k1.abc"}); err == nil {
		t.Error("missing name must be rejected")
	}
	if _, err := s.CreateSecurityDef(ctx, SecurityDef{Name: "x"}); err == nil {
		t.Error("missing sealed secret must be rejected")
	}
}

func TestExportConfig(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"orders", "inventory"} {
		if _, err := s.CreateChannel(ctx, testChannel(name)); err != nil {
			t.Fatalf("CreateChannel %q failed: %v", name, err)
		}
	}

	cfg, err := s.ExportConfig(ctx)
	if err != nil {
		t.Fatalf("ExportConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("exported configuration is invalid: %v", err)
	}
	if len(cfg.Channels) != 2 {
		t.Errorf("got %d channels, want 2", len(cfg.Channels))
	}
	if _, ok := cfg.Get("inventory"); !ok {
		t.Error("exported configuration missing channel inventory")
	}
}
