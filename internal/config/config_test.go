package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
port: "8080"
environment: production
logLevel: debug
databaseDriver: sqlite
databaseDSN: "file:test.db"
jwtSecret: "secret"
uploadDir: uploads
storageBackend: local
maxUploadBytes: 1048576
maxUploadFiles: 3
allowedMimes:
  - application/pdf
redisAddr: "localhost:6379"
loginRateLimitPerMinute: 20
trustedProxyCidrs:
  - 10.0.0.0/8
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Environment != "production" || cfg.LogLevel != "debug" {
		t.Fatalf("base fields wrong: %+v", cfg)
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.DatabaseDSN != "file:test.db" {
		t.Fatalf("database fields wrong: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 1048576 || cfg.MaxUploadFiles != 3 {
		t.Fatalf("upload limits wrong: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AllowedMimes, []string{"application/pdf"}) {
		t.Fatalf("allowedMimes = %v", cfg.AllowedMimes)
	}
	if cfg.LoginRateLimitPerMinute != 20 {
		t.Fatalf("rate limit = %d", cfg.LoginRateLimitPerMinute)
	}
	if !reflect.DeepEqual(cfg.TrustedProxyCIDRs, []string{"10.0.0.0/8"}) {
		t.Fatalf("trustedProxyCidrs = %v", cfg.TrustedProxyCIDRs)
	}
	if cfg.IsDevelopment() {
		t.Fatal("production config reported as development")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("ALLOWED_MIMES", "image/png, image/jpeg")
	t.Setenv("MAX_UPLOAD_FILES", "7")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("PORT override ignored: %q", cfg.Port)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("APP_ENV override ignored")
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("JWT_SECRET override ignored: %q", cfg.JWTSecret)
	}
	if !reflect.DeepEqual(cfg.AllowedMimes, []string{"image/png", "image/jpeg"}) {
		t.Fatalf("ALLOWED_MIMES override wrong: %v", cfg.AllowedMimes)
	}
	if cfg.MaxUploadFiles != 7 {
		t.Fatalf("MAX_UPLOAD_FILES override wrong: %d", cfg.MaxUploadFiles)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing port",
			yaml:    "databaseDriver: sqlite\ndatabaseDSN: x\njwtSecret: s\n",
			wantErr: "port",
		},
		{
			name:    "missing dsn",
			yaml:    "port: \"8080\"\ndatabaseDriver: sqlite\njwtSecret: s\n",
			wantErr: "databaseDSN",
		},
		{
			name:    "bad driver",
			yaml:    "port: \"8080\"\ndatabaseDriver: oracle\ndatabaseDSN: x\njwtSecret: s\n",
			wantErr: "databaseDriver",
		},
		{
			name:    "missing secret",
			yaml:    "port: \"8080\"\ndatabaseDriver: sqlite\ndatabaseDSN: x\n",
			wantErr: "jwtSecret",
		},
		{
			name:    "minio without endpoint",
			yaml:    "port: \"8080\"\ndatabaseDriver: sqlite\ndatabaseDSN: x\njwtSecret: s\nstorageBackend: minio\n",
			wantErr: "minio",
		},
		{
			name:    "bad backend",
			yaml:    "port: \"8080\"\ndatabaseDriver: sqlite\ndatabaseDSN: x\njwtSecret: s\nstorageBackend: ftp\n",
			wantErr: "storageBackend",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("want error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing config file should fail")
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a ,, b ,c ")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV = %v, want %v", got, want)
	}
}
