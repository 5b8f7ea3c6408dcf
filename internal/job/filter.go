package job

import "strings"

// Filter returns, in order, the listings whose title or company contains
// query (case-insensitive) and, when skill is not empty, whose skills
// include skill exactly.
func Filter(listings []Listing, query, skill string) []Listing {
	q := strings.ToLower(query)
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		matchesSearch := strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Company), q)
		if !matchesSearch {
			continue
		}
		if skill != "" && !hasSkill(l, skill) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func hasSkill(l Listing, skill string) bool {
	for _, s := range l.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// Skills returns every skill used by listings, de-duplicated, in the order
// first seen.
func Skills(listings []Listing) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, l := range listings {
		for _, s := range l.Skills {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
