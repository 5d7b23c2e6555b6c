package config

import (
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CLOUDFLARE_API_TOKEN", "token")
	t.Setenv("CLOUDFLARE_ZONE_ID", "zone123")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acct456")
	t.Setenv("REDIRECT_LIST_ID", "list789")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if cfg.SubmissionsDir != "domains" {
		t.Errorf("SubmissionsDir = %q, want %q", cfg.SubmissionsDir, "domains")
	}
	if cfg.PageSize != 500 {
		t.Errorf("PageSize = %d, want 500", cfg.PageSize)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
	if len(cfg.Blocklist) != 0 {
		t.Errorf("Blocklist = %v, want empty", cfg.Blocklist)
	}
	if cfg.Archive.Enabled() {
		t.Error("Archive.Enabled() = true without endpoint or bucket")
	}
}

func TestFromEnvMissingRequired(t *testing.T) {
	t.Setenv("CLOUDFLARE_API_TOKEN", "token")
	t.Setenv("CLOUDFLARE_ZONE_ID", "")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "")
	t.Setenv("REDIRECT_LIST_ID", "list789")

	_, err := FromEnv()
	if err == nil {
		t.Fatal("expected error for missing configuration")
	}
	msg := err.Error()
	for _, want := range []string{"CLOUDFLARE_ZONE_ID", "CLOUDFLARE_ACCOUNT_ID"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
	if strings.Contains(msg, "CLOUDFLARE_API_TOKEN") {
		t.Errorf("error %q mentions a variable that was set", msg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ROOT_DOMAIN", "Example.COM.")
	t.Setenv("SUBDOMAINS_DIR", "subs")
	t.Setenv("DNS_PAGE_SIZE", "100")
	t.Setenv("SYNC_CONCURRENCY", "2")
	t.Setenv("BLOCKED_KEYWORDS", "casino, phish ,,bet")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if cfg.RootDomain != "example.com" {
		t.Errorf("RootDomain = %q, want %q", cfg.RootDomain, "example.com")
	}
	if cfg.SubmissionsDir != "subs" {
		t.Errorf("SubmissionsDir = %q, want %q", cfg.SubmissionsDir, "subs")
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize = %d, want 100", cfg.PageSize)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Concurrency)
	}
	want := []string{"casino", "phish", "bet"}
	if len(cfg.Blocklist) != len(want) {
		t.Fatalf("Blocklist = %v, want %v", cfg.Blocklist, want)
	}
	for i := range want {
		if cfg.Blocklist[i] != want[i] {
			t.Errorf("Blocklist[%d] = %q, want %q", i, cfg.Blocklist[i], want[i])
		}
	}
}

func TestFromEnvPageSizeClamp(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"above provider max", "1000", 500},
		{"zero", "0", 500},
		{"negative", "-5", 500},
		{"garbage", "lots", 500},
		{"valid", "250", 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("DNS_PAGE_SIZE", tt.value)
			cfg, err := FromEnv()
			if err != nil {
				t.Fatalf("FromEnv returned error: %v", err)
			}
			if cfg.PageSize != tt.want {
				t.Errorf("PageSize = %d, want %d", cfg.PageSize, tt.want)
			}
		})
	}
}

func TestArchiveConfigEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MINIO_ENDPOINT", "minio.internal:9000")
	t.Setenv("MINIO_BUCKET", "dns-archives")
	t.Setenv("MINIO_SSL", "false")
	t.Setenv("AWS_VAULT", "dns-cold")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if !cfg.Archive.Enabled() {
		t.Error("Archive.Enabled() = false with endpoint and bucket set")
	}
	if cfg.Archive.UseSSL {
		t.Error("UseSSL = true, want false")
	}
	if !cfg.Archive.GlacierEnabled() {
		t.Error("GlacierEnabled() = false with vault set")
	}
	if cfg.Archive.GlacierRegion != "us-east-1" {
		t.Errorf("GlacierRegion = %q, want default us-east-1", cfg.Archive.GlacierRegion)
	}
}

func TestParseBlocklist(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"single", "casino", []string{"casino"}},
		{"trims and drops empties", " a ,, b ,", []string{"a", "b"}},
		{"case preserved", "Casino", []string{"Casino"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBlocklist(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseBlocklist(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
