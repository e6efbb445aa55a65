package policy

import "strings"

// match reports whether r matches route and the length of the matched text,
// which breaks ties between rules of the same kind.
func (r *rule) match(route string) (bool, int) {
	switch r.kind {
	case kindExact:
		return route == r.pattern, len(r.pattern)
	case kindPrefix:
		return strings.HasPrefix(route, r.pattern), len(r.pattern)
	case kindRegex:
		if loc := r.re.FindStringIndex(route); loc != nil {
			return true, loc[1] - loc[0]
		}
	}
	return false, 0
}
