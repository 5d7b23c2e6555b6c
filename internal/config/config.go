// Package config assembles the immutable runtime configuration for a sync run.
// Values come from the process environment (optionally seeded by a .env file
// and the viper config file loaded at startup); the resulting Config is built
// once and passed by reference into the components that need it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// DefaultSubmissionsDir is where submission files live unless SUBDOMAINS_DIR
// says otherwise.
const DefaultSubmissionsDir = "domains"

const (
	defaultPageSize    = 500
	defaultConcurrency = 4
	maxPageSize        = 500
)

// Config carries everything a run needs. Required fields are validated before
// any network call is made.
type Config struct {
	// Cloudflare credentials and identifiers. All four are required.
	APIToken       string
	ZoneID         string
	AccountID      string
	RedirectListID string

	// RootDomain is the shared parent domain. When empty it is resolved from
	// the zone details at the start of a run.
	RootDomain string

	// SubmissionsDir holds one <subdomain>.json file per requested subdomain.
	SubmissionsDir string

	// Blocklist entries are matched as case-sensitive substrings of the label.
	Blocklist []string

	// PageSize for DNS record listing, clamped to the provider maximum of 500.
	PageSize int

	// Concurrency bounds the mutation worker pool. 1 means sequential.
	Concurrency int

	Archive ArchiveConfig
}

// ArchiveConfig configures the optional pre-apply snapshot upload. The feature
// is off unless an endpoint and bucket are present.
type ArchiveConfig struct {
	Endpoint          string
	AccessKey         string
	SecretKey         string
	Bucket            string
	BucketPath        string
	UseSSL            bool
	CapacityThreshold float64

	// Cold tier. Optional even when the S3 side is configured.
	GlacierVault     string
	GlacierRegion    string
	GlacierAccountID string
	AWSAccessKey     string
	AWSSecretKey     string
}

// Enabled reports whether snapshot archival is configured at all.
func (a ArchiveConfig) Enabled() bool {
	return a.Endpoint != "" && a.Bucket != ""
}

// GlacierEnabled reports whether the cold tier is configured.
func (a ArchiveConfig) GlacierEnabled() bool {
	return a.GlacierVault != ""
}

// FromEnv builds a Config from the environment and validates the required
// identifiers. Missing required values are reported together so a broken CI
// secret set shows up as one actionable error.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIToken:       lookup("CLOUDFLARE_API_TOKEN"),
		ZoneID:         lookup("CLOUDFLARE_ZONE_ID"),
		AccountID:      lookup("CLOUDFLARE_ACCOUNT_ID"),
		RedirectListID: lookup("REDIRECT_LIST_ID"),
		RootDomain:     strings.TrimSuffix(strings.ToLower(lookup("ROOT_DOMAIN")), "."),
		SubmissionsDir: lookupDefault("SUBDOMAINS_DIR", DefaultSubmissionsDir),
		Blocklist:      ParseBlocklist(lookup("BLOCKED_KEYWORDS")),
		PageSize:       lookupInt("DNS_PAGE_SIZE", defaultPageSize),
		Concurrency:    lookupInt("SYNC_CONCURRENCY", defaultConcurrency),
		Archive: ArchiveConfig{
			Endpoint:          lookup("MINIO_ENDPOINT"),
			AccessKey:         lookup("MINIO_ACCESS_KEY"),
			SecretKey:         lookup("MINIO_SECRET_KEY"),
			Bucket:            lookup("MINIO_BUCKET"),
			BucketPath:        lookup("MINIO_BUCKET_PATH"),
			UseSSL:            lookupBool("MINIO_SSL", true),
			CapacityThreshold: lookupFloat("MINIO_CAPACITY_THRESHOLD", 0),
			GlacierVault:      lookup("AWS_VAULT"),
			GlacierRegion:     lookupDefault("AWS_REGION", "us-east-1"),
			GlacierAccountID:  lookupDefault("AWS_ACCOUNT_ID", "-"),
			AWSAccessKey:      lookup("AWS_ACCESS_KEY"),
			AWSSecretKey:      lookup("AWS_SECRET_ACCESS_KEY"),
		},
	}

	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the four identifiers that must exist before any network
// activity. Everything else has a workable default.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.APIToken) == "" {
		missing = append(missing, "CLOUDFLARE_API_TOKEN")
	}
	if strings.TrimSpace(c.ZoneID) == "" {
		missing = append(missing, "CLOUDFLARE_ZONE_ID")
	}
	if strings.TrimSpace(c.AccountID) == "" {
		missing = append(missing, "CLOUDFLARE_ACCOUNT_ID")
	}
	if strings.TrimSpace(c.RedirectListID) == "" {
		missing = append(missing, "REDIRECT_LIST_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ParseBlocklist splits the comma-separated keyword string. Entries keep their
// case: matching is case-sensitive against already-lowercased labels.
func ParseBlocklist(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// lookup prefers the live environment and falls back to the viper config file
// loaded by the root command.
func lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return viper.GetString(key)
}

func lookupDefault(key, fallback string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return fallback
}

func lookupInt(key string, fallback int) int {
	v := lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func lookupBool(key string, fallback bool) bool {
	v := lookup(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func lookupFloat(key string, fallback float64) float64 {
	v := lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
