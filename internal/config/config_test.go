package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	cfg.Server.Addr = ""
	cfg.Database.Host = ""
	cfg.Archive.Enabled = true // without an s3 bucket

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"log_level", "server: addr", "database: host", "archive: s3.bucket"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateDSNSkipsHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Database.DSN = "postgres://u:p@db.internal:5432/marketd"
	cfg.Database.Host = ""
	cfg.Database.Port = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dsn config should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKETD_SERVER_ADDR", ":9090")
	t.Setenv("MARKETD_DATABASE_PASSWORD", "hunter2")
	t.Setenv("MARKETD_AUTH_MAX_SKEW", "90s")
	t.Setenv("MARKETD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MARKETD_DATABASE_RUN_MIGRATIONS", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %s, want :9090", cfg.Server.Addr)
	}
	if cfg.Database.Password != "hunter2" {
		t.Errorf("password not overridden")
	}
	if cfg.Auth.MaxSkew.Duration != 90*time.Second {
		t.Errorf("max_skew = %v, want 90s", cfg.Auth.MaxSkew.Duration)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors_origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Database.RunMigrations {
		t.Error("run_migrations should be overridden to false")
	}
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "hunter2"
	cfg.Redis.Password = "hunter3"
	cfg.S3.SecretKey = "hunter4"
	cfg.Auth.OpsKeyHash = "salt$hash"

	red := Redacted(&cfg)

	for name, v := range map[string]string{
		"database password": red.Database.Password,
		"redis password":    red.Redis.Password,
		"s3 secret key":     red.S3.SecretKey,
		"ops key hash":      red.Auth.OpsKeyHash,
	} {
		if v != "***" {
			t.Errorf("%s = %q, want ***", name, v)
		}
	}
	// Original untouched.
	if cfg.Database.Password != "hunter2" {
		t.Error("redaction mutated the original config")
	}
}
