package submission

// Raw is the decoded shape of one submission file. All target aliases are
// plain strings; an empty alias counts as absent.
type Raw struct {
	Type string `json:"type"`

	Content string `json:"content"`
	Value   string `json:"value"`
	Target  string `json:"target"`
	URL     string `json:"url"`
	CNAME   string `json:"cname"`
	IP      string `json:"ip"`
	IPv6    string `json:"ipv6"`
	TXT     string `json:"txt"`
	MX      string `json:"mx"`

	Proxied  *bool   `json:"proxied"`
	Priority *uint16 `json:"priority"`
	Owner    Owner   `json:"owner"`
}

// Owner identifies who submitted the file.
type Owner struct {
	Username string `json:"username"`
}

// TargetAliases is the fixed priority order for the routing target field.
// The first non-empty alias wins; later aliases are ignored.
var TargetAliases = []string{"content", "value", "target", "url", "cname", "ip", "ipv6", "txt", "mx"}

// TargetValue consults the aliases in their fixed order and returns the first
// non-empty one. ok is false when no alias is present. Mirrors TargetAliases.
func (r Raw) TargetValue() (string, bool) {
	for _, v := range []string{r.Content, r.Value, r.Target, r.URL, r.CNAME, r.IP, r.IPv6, r.TXT, r.MX} {
		if v != "" {
			return v, true
		}
	}
	return "", false
}
