package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
version: "1"
api:
  baseURL: http://localhost:8080
auth:
  jwtSecret: dev-secret
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mode != "dev" || cfg.Port != "8443" {
		t.Fatalf("unexpected mode/port: %q %q", cfg.Mode, cfg.Port)
	}
	if cfg.Ledger.LoanDays != 14 || cfg.Ledger.CurrencySymbol != "$" {
		t.Fatalf("unexpected ledger defaults: %+v", cfg.Ledger)
	}
	if cfg.Ledger.Fine().String() != "5" {
		t.Fatalf("want fine 5, got %s", cfg.Ledger.Fine())
	}
	if cfg.API.Timeout != 10*time.Second || cfg.Auth.SessionTTL != 8*time.Hour {
		t.Fatalf("unexpected durations: %v %v", cfg.API.Timeout, cfg.Auth.SessionTTL)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path != "libdesk.db" {
		t.Fatalf("unexpected db defaults: %+v", cfg.DB)
	}
}

func TestLoadConfigFileValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
auth:
  jwtSecret: dev-secret
timezone: Asia/Colombo
ledger:
  loanDays: 21
  finePerDay: "2.50"
  restockOnReturn: true
api:
  baseURL: http://backend:8080
  timeout: 3s
database:
  driver: mysql
  host: db
  port: 3306
  user: desk
  dbname: libdesk
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Ledger.LoanDays != 21 || cfg.Ledger.Fine().String() != "2.5" || !cfg.Ledger.RestockOnReturn {
		t.Fatalf("unexpected ledger: %+v", cfg.Ledger)
	}
	if cfg.API.Timeout != 3*time.Second || cfg.API.BaseURL != "http://backend:8080" {
		t.Fatalf("unexpected api: %+v", cfg.API)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Asia/Colombo" {
		t.Fatalf("unexpected location %v %v", loc, err)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LIBDESK_PORT", "9000")
	t.Setenv("LIBDESK_API_BASE_URL", "http://override:1")
	t.Setenv("LIBDESK_CORS_ALLOW_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("LIBDESK_RESTOCK_ON_RETURN", "true")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9000" || cfg.API.BaseURL != "http://override:1" || !cfg.Ledger.RestockOnReturn {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if got := strings.Join(cfg.CORS.AllowOrigins, "|"); got != "http://a.test|http://b.test" {
		t.Fatalf("unexpected origins %q", got)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing base url", "auth:\n  jwtSecret: x\n", "api.baseURL"},
		{"missing secret", "api:\n  baseURL: http://x\n", "jwtSecret"},
		{"bad mode", minimalConfig + "mode: staging\n", "mode"},
		{"short release secret", minimalConfig + "mode: release\n", "32 bytes"},
		{"bad fine", minimalConfig + "ledger:\n  finePerDay: five\n", "finePerDay"},
		{"negative fine", minimalConfig + "ledger:\n  finePerDay: \"-1\"\n", "finePerDay"},
		{"bad driver", minimalConfig + "database:\n  driver: postgres\n", "driver"},
		{"mysql without host", minimalConfig + "database:\n  driver: mysql\n", "mysql"},
		{"bad timezone", minimalConfig + "timezone: Mars/Base\n", "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("want error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	conn, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Exec(`CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatal(err)
	}

	ctx := t.Context()
	wantErr := os.ErrInvalid
	err = RunInTx(ctx, conn, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("want %v, got %v", wantErr, err)
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("insert should have been rolled back, found %d rows", n)
	}
}

func TestRunInTxRollsBackOnPanic(t *testing.T) {
	conn, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Exec(`CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic was swallowed")
			}
		}()
		_ = RunInTx(t.Context(), conn, func(ctx context.Context, tx DBTX) error {
			if _, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("found %d rows after panic", n)
	}
}
