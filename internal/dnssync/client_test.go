package dnssync

import (
	"net/http"
	"strings"
	"testing"

	cloudflare "github.com/cloudflare/cloudflare-go"

	"subsync/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		APIToken:       "token",
		ZoneID:         "zone123",
		AccountID:      "acct456",
		RedirectListID: "list789",
		PageSize:       500,
	}
}

func TestNewClientRequiresConfiguration(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Fatal("expected error for nil configuration")
	}

	cfg := validConfig()
	cfg.RedirectListID = ""
	_, err := NewClient(cfg)
	if err == nil {
		t.Fatal("expected error for missing list identifier")
	}
	if !strings.Contains(err.Error(), "REDIRECT_LIST_ID") {
		t.Fatalf("error %q does not name the missing variable", err)
	}
}

func TestNewClientClampsPageSize(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, 500},
		{"negative", -1, 500},
		{"above provider max", 750, 500},
		{"valid", 200, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.PageSize = tt.in
			client, err := NewClient(cfg)
			if err != nil {
				t.Fatalf("NewClient returned error: %v", err)
			}
			if client.pageSize != tt.want {
				t.Fatalf("pageSize = %d, want %d", client.pageSize, tt.want)
			}
		})
	}
}

func TestToCreateParams(t *testing.T) {
	ten := uint16(10)
	desired := DesiredRecord{
		Subdomain: "mail",
		Kind:      KindMX,
		Content:   "mx.example.org",
		Proxied:   false,
		Priority:  &ten,
		Owner:     "alice",
	}
	ch := Change{Action: ActionCreate, FQDN: "mail.example.com", Kind: "MX", Desired: &desired}

	params := toCreateParams(ch)

	if params.Type != "MX" || params.Name != "mail.example.com" || params.Content != "mx.example.org" {
		t.Fatalf("unexpected params %+v", params)
	}
	if params.TTL != automaticTTL {
		t.Fatalf("TTL = %d, want the automatic sentinel %d", params.TTL, automaticTTL)
	}
	if params.Priority == nil || *params.Priority != 10 {
		t.Fatalf("priority not carried: %+v", params.Priority)
	}
	if params.Proxied == nil || *params.Proxied {
		t.Fatalf("proxied not carried: %+v", params.Proxied)
	}
	if params.Comment != "Managed: alice" {
		t.Fatalf("comment = %q", params.Comment)
	}
}

func TestToCreateParamsOmitsPriorityWhenUnset(t *testing.T) {
	desired := DesiredRecord{Subdomain: "foo", Kind: KindA, Content: "1.2.3.4", Proxied: true, Owner: "bob"}
	params := toCreateParams(Change{Action: ActionCreate, FQDN: "foo.example.com", Kind: "A", Desired: &desired})

	if params.Priority != nil {
		t.Fatalf("priority should stay unset, got %v", *params.Priority)
	}
	if params.Proxied == nil || !*params.Proxied {
		t.Fatalf("proxied lost: %+v", params.Proxied)
	}
}

func TestToUpdateParams(t *testing.T) {
	desired := DesiredRecord{Subdomain: "foo", Kind: KindA, Content: "1.2.3.4", Proxied: true, Owner: "alice"}
	live := LiveRecord{ID: "rec-1", Name: "foo.example.com", Kind: "A", Content: "9.9.9.9"}
	ch := Change{Action: ActionUpdate, FQDN: "foo.example.com", Kind: "A", Desired: &desired, Live: &live}

	params := toUpdateParams(ch)

	if params.ID != "rec-1" {
		t.Fatalf("update must address the live record id, got %q", params.ID)
	}
	if params.TTL != automaticTTL {
		t.Fatalf("TTL = %d, want %d", params.TTL, automaticTTL)
	}
	if params.Comment == nil || *params.Comment != "Managed: alice" {
		t.Fatalf("comment not carried: %v", params.Comment)
	}
}

func TestToListItemPolicy(t *testing.T) {
	item := toListItem(RedirectRule{Source: "blog.example.com", Target: "https://example.org/blog"})

	if item.Redirect == nil {
		t.Fatal("list item is missing the redirect payload")
	}
	r := item.Redirect
	if r.SourceUrl != "blog.example.com" || r.TargetUrl != "https://example.org/blog" {
		t.Fatalf("unexpected rule %+v", r)
	}
	if r.StatusCode == nil || *r.StatusCode != http.StatusFound {
		t.Fatalf("status code must be 302, got %v", r.StatusCode)
	}
	if r.SubpathMatching == nil || !*r.SubpathMatching {
		t.Fatal("subpath matching must be enabled")
	}
	if r.PreserveQueryString == nil || !*r.PreserveQueryString {
		t.Fatal("query string preservation must be enabled")
	}
	if r.IncludeSubdomains == nil || *r.IncludeSubdomains {
		t.Fatal("subdomain inclusion must be disabled")
	}
	if r.PreservePathSuffix == nil || *r.PreservePathSuffix {
		t.Fatal("path suffix preservation must be disabled")
	}
}

func TestFromAPIRecord(t *testing.T) {
	ten := uint16(10)
	proxied := true
	rec := cloudflare.DNSRecord{
		ID:       "rec-1",
		Type:     "MX",
		Name:     "mail.example.com",
		Content:  "mx.example.org",
		TTL:      300,
		Priority: &ten,
		Proxied:  &proxied,
		Comment:  "Managed: alice",
	}

	live := fromAPIRecord(rec)

	if live.ID != "rec-1" || live.Kind != "MX" || live.Content != "mx.example.org" {
		t.Fatalf("unexpected record %+v", live)
	}
	if !live.Proxied {
		t.Fatal("proxied flag lost")
	}
	if live.Priority == nil || *live.Priority != 10 {
		t.Fatalf("priority lost: %v", live.Priority)
	}
	if !live.Ownership.Managed || live.Ownership.Owner != "alice" {
		t.Fatalf("ownership not parsed: %+v", live.Ownership)
	}
}

func TestFromAPIRecordDefaults(t *testing.T) {
	live := fromAPIRecord(cloudflare.DNSRecord{ID: "rec-2", Type: "TXT", Name: "foo.example.com", Content: "x"})

	if live.Proxied {
		t.Fatal("nil proxied must map to false")
	}
	if live.Priority != nil {
		t.Fatal("nil priority must stay nil")
	}
	if live.Ownership.Managed {
		t.Fatal("record without the marker must be unmanaged")
	}
}

func TestZoneCandidates(t *testing.T) {
	candidates := ZoneCandidates("www.foo.example.co.uk.")
	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}
	if candidates[0] != "example.co.uk" {
		t.Fatalf("registrable domain should come first, got %v", candidates)
	}
	found := false
	for _, c := range candidates {
		if c == "foo.example.co.uk" {
			found = true
		}
	}
	if !found {
		t.Fatalf("full host missing from candidates %v", candidates)
	}

	if got := ZoneCandidates("   "); got != nil {
		t.Fatalf("blank host should yield nil, got %v", got)
	}
}
