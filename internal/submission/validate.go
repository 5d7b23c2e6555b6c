package submission

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"subsync/internal/dnssync"
)

// Reason is the machine-readable category of a rejection.
type Reason string

const (
	ReasonInvalidFormat Reason = "invalid_format"
	ReasonReserved      Reason = "reserved"
	ReasonBlocklisted   Reason = "blocklisted"
	ReasonUnknownType   Reason = "unknown_type"
	ReasonMissingTarget Reason = "missing_target"
	ReasonInvalidIPv4   Reason = "invalid_ipv4"
	ReasonInvalidIPv6   Reason = "invalid_ipv6"
	ReasonInvalidURL    Reason = "invalid_url"
)

// ValidationError rejects one submission. It is always non-fatal: the file is
// skipped with a warning and the run continues.
type ValidationError struct {
	Subdomain string
	Reason    Reason
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Subdomain, e.Message, e.Reason)
}

var (
	labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	ipv4Pattern  = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
)

// reservedLabels can never be claimed by a submission, whatever its body.
var reservedLabels = map[string]struct{}{
	"admin":        {},
	"api":          {},
	"autoconfig":   {},
	"autodiscover": {},
	"dns":          {},
	"email":        {},
	"ftp":          {},
	"imap":         {},
	"localhost":    {},
	"mail":         {},
	"mx":           {},
	"ns":           {},
	"ns1":          {},
	"ns2":          {},
	"pop":          {},
	"pop3":         {},
	"root":         {},
	"smtp":         {},
	"webmail":      {},
	"www":          {},
}

// Validator turns raw submissions into desired records. It is pure and
// deterministic: no I/O, no process-wide state. The blocklist is supplied
// once at construction and matched as case-sensitive substrings.
type Validator struct {
	blocklist []string
}

// NewValidator builds a validator with the configured blocklist keywords.
func NewValidator(blocklist []string) *Validator {
	return &Validator{blocklist: blocklist}
}

// Validate applies the rule chain in its fixed order; the first failing rule
// wins. On success the returned record is complete and immutable.
func (v *Validator) Validate(label string, raw Raw) (dnssync.DesiredRecord, error) {
	var zero dnssync.DesiredRecord

	if !labelPattern.MatchString(label) {
		return zero, reject(label, ReasonInvalidFormat,
			"label must be lowercase alphanumeric with internal hyphens, at most 63 characters")
	}
	if _, reserved := reservedLabels[label]; reserved {
		return zero, reject(label, ReasonReserved, "label is reserved")
	}
	for _, keyword := range v.blocklist {
		if strings.Contains(label, keyword) {
			return zero, reject(label, ReasonBlocklisted, fmt.Sprintf("label contains blocked keyword %q", keyword))
		}
	}

	kind, known := dnssync.ParseKind(raw.Type)
	if !known {
		return zero, reject(label, ReasonUnknownType, fmt.Sprintf("unknown record type %q", raw.Type))
	}

	target, present := raw.TargetValue()
	if !present && kind != dnssync.KindRedirect {
		return zero, reject(label, ReasonMissingTarget, "no routing target field present")
	}

	proxied := true
	if raw.Proxied != nil {
		proxied = *raw.Proxied
	}
	// TXT and MX are never proxy compatible, whatever the file says.
	if kind == dnssync.KindTXT || kind == dnssync.KindMX {
		proxied = false
	}

	record := dnssync.DesiredRecord{
		Subdomain: label,
		Kind:      kind,
		Content:   target,
		Proxied:   proxied,
		Owner:     ownerName(raw.Owner),
	}

	switch kind {
	case dnssync.KindA:
		if !ipv4Pattern.MatchString(target) {
			return zero, reject(label, ReasonInvalidIPv4, fmt.Sprintf("%q is not a dotted-quad IPv4 address", target))
		}
	case dnssync.KindAAAA:
		if !strings.Contains(target, ":") {
			return zero, reject(label, ReasonInvalidIPv6, fmt.Sprintf("%q is not an IPv6 address", target))
		}
	case dnssync.KindMX:
		priority := uint16(10)
		if raw.Priority != nil {
			priority = *raw.Priority
		}
		record.Priority = &priority
	case dnssync.KindRedirect:
		if !isHTTPURL(target) {
			return zero, reject(label, ReasonInvalidURL, fmt.Sprintf("%q is not an absolute http(s) URL", target))
		}
		record.Proxied = true
		record.Content = ""
		record.TargetURL = target
	}

	return record, nil
}

func reject(label string, reason Reason, message string) *ValidationError {
	return &ValidationError{Subdomain: label, Reason: reason, Message: message}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func ownerName(o Owner) string {
	username := strings.TrimSpace(o.Username)
	if username == "" {
		return "unknown"
	}
	return username
}
