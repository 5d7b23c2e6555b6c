package dnssync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	cloudflare "github.com/cloudflare/cloudflare-go"
	"golang.org/x/net/publicsuffix"

	"subsync/internal/config"
)

// ErrLiveFetch marks a failed live-state listing. Reconciling against a
// partial snapshot could delete valid records, so callers must treat this as
// fatal for the whole run.
var ErrLiveFetch = errors.New("live record fetch failed")

// automaticTTL is the provider sentinel for an automatic TTL. Every write
// uses it; per-record TTLs are not part of the intent format.
const automaticTTL = 1

// redirectStatusCode is fixed for every rule: a temporary redirect.
const redirectStatusCode = http.StatusFound

// Client wraps the Cloudflare API with the zone- and account-scoped calls the
// reconciler needs.
type Client struct {
	api      *cloudflare.API
	zone     *cloudflare.ResourceContainer
	account  *cloudflare.ResourceContainer
	zoneID   string
	listID   string
	pageSize int
}

// NewClient builds a client from the run configuration. Required identifiers
// are validated before any network call is possible.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	api, err := cloudflare.NewWithAPIToken(cfg.APIToken)
	if err != nil {
		return nil, fmt.Errorf("init cloudflare client: %w", err)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}
	return &Client{
		api:      api,
		zone:     cloudflare.ZoneIdentifier(cfg.ZoneID),
		account:  cloudflare.AccountIdentifier(cfg.AccountID),
		zoneID:   cfg.ZoneID,
		listID:   cfg.RedirectListID,
		pageSize: pageSize,
	}, nil
}

// FetchLiveRecords lists every DNS record in the zone, exhausting pagination
// before returning. Any failure wraps ErrLiveFetch; a partial listing must
// never become a reconciliation basis.
func (c *Client) FetchLiveRecords(ctx context.Context) ([]LiveRecord, error) {
	params := cloudflare.ListDNSRecordsParams{}
	params.ResultInfo.PerPage = c.pageSize
	var all []LiveRecord
	for {
		page, info, err := c.api.ListDNSRecords(ctx, c.zone, params)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLiveFetch, err)
		}
		for _, rec := range page {
			all = append(all, fromAPIRecord(rec))
		}
		if info == nil || info.Page >= info.TotalPages || info.TotalPages == 0 {
			break
		}
		params.ResultInfo.Page = info.Page + 1
		params.ResultInfo.PerPage = info.PerPage
	}
	return all, nil
}

// ResolveRootDomain returns the zone apex name, used when ROOT_DOMAIN is not
// configured explicitly.
func (c *Client) ResolveRootDomain(ctx context.Context) (string, error) {
	zone, err := c.api.ZoneDetails(ctx, c.zoneID)
	if err != nil {
		return "", fmt.Errorf("resolve zone %s: %w", c.zoneID, err)
	}
	return normalizeName(zone.Name), nil
}

// VerifyToken checks that the configured token is valid and returns metadata.
func (c *Client) VerifyToken(ctx context.Context) (cloudflare.APITokenVerifyBody, error) {
	return c.api.VerifyAPIToken(ctx)
}

// RedirectList fetches the configured rule list and verifies that it actually
// holds redirects.
func (c *Client) RedirectList(ctx context.Context) (cloudflare.List, error) {
	list, err := c.api.GetList(ctx, c.account, c.listID)
	if err != nil {
		return cloudflare.List{}, fmt.Errorf("fetch rule list %s: %w", c.listID, err)
	}
	if list.Kind != "redirect" {
		return cloudflare.List{}, fmt.Errorf("rule list %s has kind %q, want redirect", c.listID, list.Kind)
	}
	return list, nil
}

// CreateRecord writes a brand new record for a desired entry.
func (c *Client) CreateRecord(ctx context.Context, ch Change) error {
	if ch.Desired == nil {
		return errors.New("create change is missing the desired record")
	}
	if _, err := c.api.CreateDNSRecord(ctx, c.zone, toCreateParams(ch)); err != nil {
		return fmt.Errorf("create %s %s: %w", ch.Kind, ch.FQDN, err)
	}
	return nil
}

// UpdateRecord replaces the full payload of an existing record.
func (c *Client) UpdateRecord(ctx context.Context, ch Change) error {
	if ch.Desired == nil {
		return errors.New("update change is missing the desired record")
	}
	if ch.Live == nil || ch.Live.ID == "" {
		return fmt.Errorf("cannot update %s without a record identifier", ch.FQDN)
	}
	if _, err := c.api.UpdateDNSRecord(ctx, c.zone, toUpdateParams(ch)); err != nil {
		return fmt.Errorf("update %s %s: %w", ch.Kind, ch.FQDN, err)
	}
	return nil
}

// DeleteRecord removes an orphaned managed record.
func (c *Client) DeleteRecord(ctx context.Context, ch Change) error {
	if ch.Live == nil || ch.Live.ID == "" {
		return errors.New("cannot delete a record without an identifier")
	}
	if err := c.api.DeleteDNSRecord(ctx, c.zone, ch.Live.ID); err != nil {
		return fmt.Errorf("delete %s %s: %w", ch.Kind, ch.FQDN, err)
	}
	return nil
}

// ReplaceRedirects swaps the entire account rule list for the given rules in
// one call. An empty slice explicitly clears the provider list; the provider
// never empties it implicitly.
func (c *Client) ReplaceRedirects(ctx context.Context, rules []RedirectRule) error {
	items := make([]cloudflare.ListItemCreateRequest, 0, len(rules))
	for _, rule := range rules {
		items = append(items, toListItem(rule))
	}
	_, err := c.api.ReplaceListItems(ctx, c.account, cloudflare.ListReplaceItemsParams{
		ID:    c.listID,
		Items: items,
	})
	if err != nil {
		return fmt.Errorf("replace redirect list %s: %w", c.listID, err)
	}
	return nil
}

func toCreateParams(ch Change) cloudflare.CreateDNSRecordParams {
	d := ch.Desired
	return cloudflare.CreateDNSRecordParams{
		Type:     string(d.Kind),
		Name:     ch.FQDN,
		Content:  d.Content,
		TTL:      automaticTTL,
		Priority: copyPriority(d.Priority),
		Proxied:  boolPtr(d.Proxied),
		Comment:  d.Comment(),
	}
}

func toUpdateParams(ch Change) cloudflare.UpdateDNSRecordParams {
	d := ch.Desired
	comment := d.Comment()
	return cloudflare.UpdateDNSRecordParams{
		ID:       ch.Live.ID,
		Type:     string(d.Kind),
		Name:     ch.FQDN,
		Content:  d.Content,
		TTL:      automaticTTL,
		Priority: copyPriority(d.Priority),
		Proxied:  boolPtr(d.Proxied),
		Comment:  &comment,
	}
}

// toListItem applies the fixed rule policy: temporary redirect, subpath
// matching on, query string preserved, subdomains and path suffix off.
func toListItem(rule RedirectRule) cloudflare.ListItemCreateRequest {
	status := redirectStatusCode
	return cloudflare.ListItemCreateRequest{
		Redirect: &cloudflare.Redirect{
			SourceUrl:           rule.Source,
			TargetUrl:           rule.Target,
			StatusCode:          &status,
			SubpathMatching:     boolPtr(true),
			PreserveQueryString: boolPtr(true),
			IncludeSubdomains:   boolPtr(false),
			PreservePathSuffix:  boolPtr(false),
		},
	}
}

func fromAPIRecord(rec cloudflare.DNSRecord) LiveRecord {
	out := LiveRecord{
		ID:        rec.ID,
		Name:      rec.Name,
		Kind:      rec.Type,
		Content:   rec.Content,
		TTL:       rec.TTL,
		Comment:   rec.Comment,
		Priority:  copyPriority(rec.Priority),
		Ownership: ParseOwnership(rec.Comment),
	}
	if rec.Proxied != nil {
		out.Proxied = *rec.Proxied
	}
	return out
}

func boolPtr(v bool) *bool {
	return &v
}

// ZoneCandidates lists plausible zone apex names for a host, registrable
// domain first. The check command uses it to confirm the configured root
// domain actually belongs to the configured zone.
func ZoneCandidates(host string) []string {
	clean := sanitizeHost(host)
	if clean == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var candidates []string

	if etld, err := publicsuffix.EffectiveTLDPlusOne(clean); err == nil {
		addCandidate(&candidates, seen, etld)
	}

	labels := strings.Split(clean, ".")
	for i := 0; i <= len(labels)-2; i++ {
		addCandidate(&candidates, seen, strings.Join(labels[i:], "."))
	}

	return candidates
}

func sanitizeHost(host string) string {
	value := strings.TrimSpace(strings.ToLower(host))
	value = strings.Trim(value, ".")
	return strings.TrimPrefix(value, "www.")
}

func addCandidate(list *[]string, seen map[string]struct{}, candidate string) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return
	}
	if _, exists := seen[candidate]; exists {
		return
	}
	seen[candidate] = struct{}{}
	*list = append(*list, candidate)
}
