package dnssync

import (
	"sort"
	"strings"
	"time"
)

// Partition splits the validated set into DNS intent and redirect intent.
// REDIRECT records never reach the DNS reconciler.
func Partition(all []DesiredRecord) ([]DesiredRecord, []DesiredRedirect) {
	var records []DesiredRecord
	var redirects []DesiredRedirect
	for _, d := range all {
		if d.IsRedirect() {
			redirects = append(redirects, d.Redirect())
			continue
		}
		records = append(records, d)
	}
	return records, redirects
}

// BuildPlan computes the full decision set for one run. It is pure: the live
// set must already be complete (pagination exhausted) when passed in.
//
// Deletes cover every managed live record whose (name, kind) no desired
// record claims. Creates and updates are decided per FQDN group; one
// non-managed live record at a name puts the whole name in conflict and
// blocks every desired record for it, whatever its kind.
func BuildPlan(rootDomain string, desired []DesiredRecord, redirects []DesiredRedirect, live []LiveRecord) *Plan {
	plan := &Plan{
		RootDomain: rootDomain,
		Generated:  time.Now().UTC(),
		Redirects:  BuildRedirectRules(redirects, rootDomain),
	}

	desiredKeys := make(map[string]struct{}, len(desired))
	for _, d := range desired {
		if d.IsRedirect() {
			continue
		}
		desiredKeys[recordKey(d.FQDN(rootDomain), string(d.Kind))] = struct{}{}
	}

	liveByName := make(map[string][]LiveRecord)
	for _, rec := range live {
		name := normalizeName(rec.Name)
		liveByName[name] = append(liveByName[name], rec)
		if !rec.Ownership.Managed {
			continue
		}
		if _, wanted := desiredKeys[recordKey(rec.Name, rec.Kind)]; wanted {
			continue
		}
		orphan := cloneLive(rec)
		plan.Deletes = append(plan.Deletes, Change{
			Action: ActionDelete,
			FQDN:   normalizeName(orphan.Name),
			Kind:   orphan.Kind,
			Live:   &orphan,
		})
	}

	groups := make(map[string][]DesiredRecord)
	var order []string
	for _, d := range desired {
		if d.IsRedirect() {
			continue
		}
		name := normalizeName(d.FQDN(rootDomain))
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], d)
	}
	sort.Strings(order)

	for _, name := range order {
		group := groups[name]
		holders := unmanagedHolders(liveByName[name])
		if len(holders) > 0 {
			plan.Conflicts = append(plan.Conflicts, Conflict{
				FQDN:    name,
				Holders: holders,
				Skipped: len(group),
			})
			continue
		}
		for _, d := range group {
			existing := matchLive(liveByName[name], string(d.Kind))
			if existing == nil {
				want := d
				plan.Creates = append(plan.Creates, Change{
					Action:  ActionCreate,
					FQDN:    name,
					Kind:    string(d.Kind),
					Desired: &want,
				})
				continue
			}
			diffs := diffRecord(d, *existing)
			if len(diffs) == 0 {
				plan.InSync++
				continue
			}
			want := d
			existingCopy := cloneLive(*existing)
			plan.Updates = append(plan.Updates, Change{
				Action:      ActionUpdate,
				FQDN:        name,
				Kind:        string(d.Kind),
				Desired:     &want,
				Live:        &existingCopy,
				Differences: diffs,
			})
		}
	}

	return plan
}

// BuildRedirectRules resolves redirect intent against the root domain. The
// provider list is replaced wholesale, so the result is the complete desired
// list, not a diff; an empty input still yields a non-nil empty list.
func BuildRedirectRules(redirects []DesiredRedirect, rootDomain string) []RedirectRule {
	rules := make([]RedirectRule, 0, len(redirects))
	for _, r := range redirects {
		rules = append(rules, RedirectRule{
			Source: r.Subdomain + "." + rootDomain,
			Target: r.TargetURL,
		})
	}
	return rules
}

// diffRecord compares one desired record against its live counterpart. The
// comment encodes the owner, so an ownership handover is itself a
// sync-triggering difference. Priority participates for MX only.
func diffRecord(desired DesiredRecord, live LiveRecord) map[string]Difference {
	diffs := make(map[string]Difference)
	if desired.Content != live.Content {
		diffs["content"] = Difference{From: live.Content, To: desired.Content}
	}
	if !strings.EqualFold(string(desired.Kind), live.Kind) {
		diffs["kind"] = Difference{From: live.Kind, To: string(desired.Kind)}
	}
	if desired.Proxied != live.Proxied {
		diffs["proxied"] = Difference{From: live.Proxied, To: desired.Proxied}
	}
	if desired.Kind == KindMX && !equalPriority(desired.Priority, live.Priority) {
		diffs["priority"] = Difference{From: copyPriority(live.Priority), To: copyPriority(desired.Priority)}
	}
	if desired.Comment() != live.Comment {
		diffs["comment"] = Difference{From: live.Comment, To: desired.Comment()}
	}
	return diffs
}

func matchLive(live []LiveRecord, kind string) *LiveRecord {
	for i := range live {
		if strings.EqualFold(live[i].Kind, kind) {
			return &live[i]
		}
	}
	return nil
}

func unmanagedHolders(live []LiveRecord) []string {
	var holders []string
	for _, rec := range live {
		if !rec.Ownership.Managed {
			holders = append(holders, rec.Kind)
		}
	}
	return holders
}

func recordKey(name, kind string) string {
	return strings.ToUpper(kind) + "|" + normalizeName(name)
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".")
}

func equalPriority(a, b *uint16) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func copyPriority(val *uint16) *uint16 {
	if val == nil {
		return nil
	}
	copy := *val
	return &copy
}

func cloneLive(rec LiveRecord) LiveRecord {
	clone := rec
	clone.Priority = copyPriority(rec.Priority)
	return clone
}
