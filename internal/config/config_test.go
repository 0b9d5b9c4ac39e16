package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsLeaveBackendsUnconfigured(t *testing.T) {
	cfg := load(func(string) string { return "" })

	if cfg.Addr != ":8787" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" || cfg.AdminEmail != "" {
		t.Fatalf("expected unconfigured backends by default, got %+v", cfg)
	}
	if cfg.UploadFolder != "cognetex/team" {
		t.Fatalf("expected default upload folder, got %q", cfg.UploadFolder)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("expected 12h session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.CloudinaryConfigured() {
		t.Fatal("expected cloudinary to be unconfigured")
	}
}

func TestLoadPrefersEnvironmentOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cognetex.yaml")
	contents := "admin_email: file@cognetex.test\napi_addr: \":9000\"\ns3_use_ssl: false\ncognetex_session_ttl_seconds: 60\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("COGNETEX_CONFIG", path)
	t.Setenv("API_ADDR", ":7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("expected env addr to win, got %q", cfg.Addr)
	}
	if cfg.AdminEmail != "file@cognetex.test" {
		t.Fatalf("expected admin email from file, got %q", cfg.AdminEmail)
	}
	if cfg.S3UseSSL {
		t.Fatal("expected s3_use_ssl=false from file")
	}
	if cfg.SessionTTL != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", cfg.SessionTTL)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("admin_email: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("COGNETEX_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCloudinaryConfigured(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"signed", Config{CloudinaryCloudName: "demo", CloudinaryAPIKey: "k", CloudinaryAPISecret: "s"}, true},
		{"preset", Config{CloudinaryCloudName: "demo", CloudinaryUploadPreset: "team"}, true},
		{"missing secret", Config{CloudinaryCloudName: "demo", CloudinaryAPIKey: "k"}, false},
		{"missing cloud", Config{CloudinaryAPIKey: "k", CloudinaryAPISecret: "s"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.CloudinaryConfigured(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
