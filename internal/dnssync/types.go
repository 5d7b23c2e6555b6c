// Package dnssync reconciles validated subdomain intent against the live
// Cloudflare zone. It diffs the desired record set against the full live
// record set, deletes orphaned managed records, creates or replaces drifted
// ones, and full-replaces the account redirect rule list. Records without the
// ownership marker are never written or deleted.
package dnssync

import (
	"strings"
	"time"
)

// OwnerCommentPrefix marks a live record as owned by this system. The prefix
// in the record comment is the sole authority separating automation-owned
// records from hand-configured ones.
const OwnerCommentPrefix = "Managed: "

// RecordKind enumerates the accepted submission types. REDIRECT never reaches
// the DNS reconciler; it feeds the redirect rule list instead.
type RecordKind string

const (
	KindA        RecordKind = "A"
	KindAAAA     RecordKind = "AAAA"
	KindCNAME    RecordKind = "CNAME"
	KindTXT      RecordKind = "TXT"
	KindMX       RecordKind = "MX"
	KindRedirect RecordKind = "REDIRECT"
)

// ParseKind normalizes a raw submission type. ok is false for anything
// outside the accepted set.
func ParseKind(raw string) (RecordKind, bool) {
	kind := RecordKind(strings.ToUpper(strings.TrimSpace(raw)))
	switch kind {
	case KindA, KindAAAA, KindCNAME, KindTXT, KindMX, KindRedirect:
		return kind, true
	default:
		return "", false
	}
}

// DesiredRecord is one validated subdomain request, immutable after
// validation and discarded at the end of the run.
type DesiredRecord struct {
	Subdomain string     `json:"subdomain" yaml:"subdomain"`
	Kind      RecordKind `json:"kind" yaml:"kind"`
	Content   string     `json:"content,omitempty" yaml:"content,omitempty"`
	Proxied   bool       `json:"proxied" yaml:"proxied"`
	Priority  *uint16    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Owner     string     `json:"owner" yaml:"owner"`

	// TargetURL is set for REDIRECT submissions only.
	TargetURL string `json:"target_url,omitempty" yaml:"target_url,omitempty"`
}

// FQDN returns the full record name under the shared parent domain.
func (d DesiredRecord) FQDN(rootDomain string) string {
	return d.Subdomain + "." + rootDomain
}

// Comment renders the ownership marker in its wire form.
func (d DesiredRecord) Comment() string {
	return Ownership{Managed: true, Owner: d.Owner}.Comment()
}

// IsRedirect reports whether the record feeds the redirect list rather than
// the DNS reconciler.
func (d DesiredRecord) IsRedirect() bool {
	return d.Kind == KindRedirect
}

// Redirect derives the redirect intent from a REDIRECT record.
func (d DesiredRecord) Redirect() DesiredRedirect {
	return DesiredRedirect{Subdomain: d.Subdomain, TargetURL: d.TargetURL}
}

// DesiredRedirect is the redirect intent for one subdomain.
type DesiredRedirect struct {
	Subdomain string `json:"subdomain" yaml:"subdomain"`
	TargetURL string `json:"target_url" yaml:"target_url"`
}

// RedirectRule is a DesiredRedirect resolved against the root domain, ready
// for the provider list. Policy fields are fixed and applied at the wire.
type RedirectRule struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Ownership is the structured form of the comment marker, parsed once at the
// storage boundary and re-serialized only when crossing the provider wire.
type Ownership struct {
	Managed bool   `json:"managed" yaml:"managed"`
	Owner   string `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// ParseOwnership reads the marker out of a live record comment. Comments
// without the exact prefix yield an unmanaged Ownership.
func ParseOwnership(comment string) Ownership {
	if !strings.HasPrefix(comment, OwnerCommentPrefix) {
		return Ownership{}
	}
	return Ownership{Managed: true, Owner: strings.TrimPrefix(comment, OwnerCommentPrefix)}
}

// Comment renders the marker back to its legacy wire form. Unmanaged
// ownership renders empty.
func (o Ownership) Comment() string {
	if !o.Managed {
		return ""
	}
	return OwnerCommentPrefix + o.Owner
}

// LiveRecord is a point-in-time snapshot of one provider record, fetched
// fresh every run and never cached across runs.
type LiveRecord struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Kind      string    `json:"kind" yaml:"kind"`
	Content   string    `json:"content" yaml:"content"`
	TTL       int       `json:"ttl" yaml:"ttl"`
	Proxied   bool      `json:"proxied" yaml:"proxied"`
	Priority  *uint16   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Comment   string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	Ownership Ownership `json:"ownership" yaml:"ownership"`
}

// Action indicates what a change does to the live zone.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	// ActionReplaceRedirects labels the redirect list replace in results.
	ActionReplaceRedirects Action = "replace_redirects"
)

// Difference captures what will change for a field during an update.
type Difference struct {
	From any `json:"from" yaml:"from"`
	To   any `json:"to" yaml:"to"`
}

// Change is a single pending mutation against the zone.
type Change struct {
	Action      Action                `json:"action" yaml:"action"`
	FQDN        string                `json:"fqdn" yaml:"fqdn"`
	Kind        string                `json:"kind" yaml:"kind"`
	Desired     *DesiredRecord        `json:"desired,omitempty" yaml:"desired,omitempty"`
	Live        *LiveRecord           `json:"live,omitempty" yaml:"live,omitempty"`
	Differences map[string]Difference `json:"differences,omitempty" yaml:"differences,omitempty"`
}

// Conflict records an FQDN that was skipped because at least one non-managed
// live record holds the name. Skipped counts the desired records blocked.
type Conflict struct {
	FQDN    string   `json:"fqdn" yaml:"fqdn"`
	Holders []string `json:"holders" yaml:"holders"`
	Skipped int      `json:"skipped" yaml:"skipped"`
}

// Plan is the full decision set for one run. Deletes form the first phase and
// must be fully applied before any create or update is issued.
type Plan struct {
	RootDomain string     `json:"root_domain" yaml:"root_domain"`
	Generated  time.Time  `json:"generated_at" yaml:"generated_at"`
	Deletes    []Change   `json:"deletes" yaml:"deletes"`
	Creates    []Change   `json:"creates" yaml:"creates"`
	Updates    []Change   `json:"updates" yaml:"updates"`
	Conflicts  []Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	InSync     int        `json:"in_sync" yaml:"in_sync"`

	// Redirects is the complete rule list the provider should hold after the
	// run. Empty means the list is explicitly cleared.
	Redirects []RedirectRule `json:"redirects" yaml:"redirects"`
}

// MutationCount is the number of DNS calls applying this plan will issue.
func (p *Plan) MutationCount() int {
	return len(p.Deletes) + len(p.Creates) + len(p.Updates)
}

// Empty reports whether applying the plan would touch neither DNS records nor
// the redirect list contents.
func (p *Plan) Empty() bool {
	return p.MutationCount() == 0 && len(p.Redirects) == 0
}

// Failure records one non-fatal mutation error, left for the next run.
type Failure struct {
	Action Action `json:"action" yaml:"action"`
	FQDN   string `json:"fqdn" yaml:"fqdn"`
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error  string `json:"error" yaml:"error"`
}

// UnitOutcome is the report entry for one mutation unit.
type UnitOutcome struct {
	Action Action `json:"action" yaml:"action"`
	FQDN   string `json:"fqdn,omitempty" yaml:"fqdn,omitempty"`
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`
	OK     bool   `json:"ok" yaml:"ok"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Results summarizes an applied run. Every independent unit reports an
// outcome; failures never abort the remaining units.
type Results struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	RootDomain string    `json:"root_domain" yaml:"root_domain"`
	Started    time.Time `json:"started_at" yaml:"started_at"`
	Completed  time.Time `json:"completed_at" yaml:"completed_at"`

	Deleted   int `json:"deleted" yaml:"deleted"`
	Created   int `json:"created" yaml:"created"`
	Updated   int `json:"updated" yaml:"updated"`
	InSync    int `json:"in_sync" yaml:"in_sync"`
	Conflicts int `json:"conflicts" yaml:"conflicts"`

	// RedirectsReplaced is true when the full-replace call succeeded;
	// RedirectCount is the size of the list that was submitted.
	RedirectsReplaced bool `json:"redirects_replaced" yaml:"redirects_replaced"`
	RedirectCount     int  `json:"redirect_count" yaml:"redirect_count"`

	// Units lists every mutation unit in completion order. Failures repeats
	// the failed ones so callers can gate on them without scanning.
	Units    []UnitOutcome `json:"units,omitempty" yaml:"units,omitempty"`
	Failures []Failure     `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Ok reports whether the run completed without a single failed unit.
func (r *Results) Ok() bool {
	return len(r.Failures) == 0
}
