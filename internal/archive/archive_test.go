package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/minio/madmin-go/v3"

	"subsync/internal/config"
)

func TestNewRequiresConfiguration(t *testing.T) {
	if _, err := New(config.ArchiveConfig{}, nil); err == nil {
		t.Fatal("expected error for unconfigured archive storage")
	}

	// Endpoint alone is not enough.
	if _, err := New(config.ArchiveConfig{Endpoint: "localhost:9000"}, nil); err == nil {
		t.Fatal("expected error when bucket is missing")
	}

	store, err := New(config.ArchiveConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "dns-archives",
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store == nil {
		t.Fatal("New returned nil store")
	}
	if store.GlacierEnabled() {
		t.Error("glacier should be disabled without a vault")
	}
}

func TestNewGlacierEnabled(t *testing.T) {
	store, err := New(config.ArchiveConfig{
		Endpoint:     "localhost:9000",
		AccessKey:    "test",
		SecretKey:    "test",
		Bucket:       "dns-archives",
		GlacierVault: "dns-cold",
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !store.GlacierEnabled() {
		t.Error("glacier should be enabled when a vault is configured")
	}
}

func TestObjectKey(t *testing.T) {
	exported := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		bucketPath string
		format     string
		expected   string
	}{
		{
			name:     "json default",
			format:   "json",
			expected: "snapshots/example.com-20240102-150405.json",
		},
		{
			name:     "yaml",
			format:   "yaml",
			expected: "snapshots/example.com-20240102-150405.yaml",
		},
		{
			name:     "yml maps to yaml extension",
			format:   "yml",
			expected: "snapshots/example.com-20240102-150405.yaml",
		},
		{
			name:     "empty format falls back to json",
			format:   "",
			expected: "snapshots/example.com-20240102-150405.json",
		},
		{
			name:       "bucket path prefix",
			bucketPath: "production",
			format:     "json",
			expected:   "production/snapshots/example.com-20240102-150405.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objectKey(tt.bucketPath, "example.com", exported, tt.format)
			if got != tt.expected {
				t.Errorf("objectKey() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("yaml"); got != "application/yaml" {
		t.Errorf("contentType(yaml) = %q", got)
	}
	if got := contentType("YML"); got != "application/yaml" {
		t.Errorf("contentType(YML) = %q", got)
	}
	if got := contentType("json"); got != "application/json" {
		t.Errorf("contentType(json) = %q", got)
	}
	if got := contentType(""); got != "application/json" {
		t.Errorf("contentType(empty) = %q", got)
	}
}

func TestUsagePercent(t *testing.T) {
	tests := []struct {
		name     string
		disks    []madmin.Disk
		expected float64
		wantErr  bool
	}{
		{
			name: "single disk half full",
			disks: []madmin.Disk{
				{TotalSpace: 1000, UsedSpace: 500},
			},
			expected: 50,
		},
		{
			name: "aggregates across disks",
			disks: []madmin.Disk{
				{TotalSpace: 1000, UsedSpace: 900},
				{TotalSpace: 1000, UsedSpace: 100},
			},
			expected: 50,
		},
		{
			name:    "zero capacity is an error",
			disks:   []madmin.Disk{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := usagePercent(tt.disks)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("usagePercent: %v", err)
			}
			if got != tt.expected {
				t.Errorf("usagePercent() = %.1f, want %.1f", got, tt.expected)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	long := strings.Repeat("a", 40)
	if got := shortID(long); got != strings.Repeat("a", 12)+"..." {
		t.Errorf("shortID(long) = %q", got)
	}
	if got := shortID("short"); got != "short" {
		t.Errorf("shortID(short) = %q", got)
	}
}
