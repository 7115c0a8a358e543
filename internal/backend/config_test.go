package backend

import (
	"context"
	"testing"

	"github.com/merosu1777-dotcom/gas-management-app/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "ledger.db",
	}
	cfg, err := FromAppConfig(appCfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "ledger.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "bogus"}); err == nil {
		t.Fatal("expected error for unknown backend type")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil app config")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory ok", Config{Type: MemoryBackend}, false},
		{"sqlite needs path", Config{Type: SQLiteBackend}, true},
		{"sqlite ok", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sheets needs spreadsheet", Config{Type: SheetsBackend}, true},
		{"sheets ok", Config{Type: SheetsBackend, GoogleSpreadsheetID: "sheet-id"}, false},
		{"invalid type", Config{Type: "bogus"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() err=%v, wantErr=%v", err, c.wantErr)
			}
		})
	}
}

func TestFactoryCreatesMemoryBackend(t *testing.T) {
	factory := NewFactory(nil)
	result, err := factory.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if result.Backend == nil {
		t.Fatal("expected backend instance")
	}
	if result.Receipts != nil {
		t.Fatal("receipts should be disabled by default")
	}
	if result.Cleanup != nil {
		t.Fatal("memory backend needs no cleanup")
	}
}
