package policy

// Match is the result of a successful resolution.
type Match struct {
	Group  string
	Policy *Policy
}

// boundRule is a rule together with the group that declared it.
type boundRule struct {
	rule
	group *GroupBuilder
}

// Resolver resolves a route to the best-matching group.
type Resolver struct {
	rules []boundRule
}

// NewResolver flattens the rules of groups in registration order.
func NewResolver(groups ...*GroupBuilder) *Resolver {
	res := &Resolver{}
	for _, g := range groups {
		for _, r := range g.rules {
			res.rules = append(res.rules, boundRule{rule: r, group: g})
		}
	}
	return res
}

// Resolve finds the best-matching group for route.
//
// Exact rules beat prefix rules, which beat regex rules. Among rules of the
// same kind the longer match wins, and among equal matches the rule that was
// registered first wins. ok is false when nothing matches.
func (res *Resolver) Resolve(route string) (groupName string, pol *Policy, ok bool) {
	m, ok := res.Match(route)
	if !ok {
		return "", nil, false
	}
	return m.Group, m.Policy, true
}

// Match is like Resolve but returns the result as a Match. A nil Resolver
// matches nothing.
func (res *Resolver) Match(route string) (Match, bool) {
	if res == nil {
		return Match{}, false
	}

	var best *boundRule
	bestLen := -1
	for i := range res.rules {
		r := &res.rules[i]
		matched, n := r.match(route)
		if !matched {
			continue
		}
		if best == nil || r.kind < best.kind || (r.kind == best.kind && n > bestLen) {
			best, bestLen = r, n
		}
	}
	if best == nil {
		return Match{}, false
	}
	return Match{Group: best.group.name, Policy: best.group.policy}, true
}
