package job

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func titles(ls []Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Title
	}
	return out
}

func TestFilterExamples(t *testing.T) {
	listings := SampleListings(refTime)

	assert.Equal(t, []string{"Frontend Developer"}, titles(Filter(listings, "front", "")))
	assert.Equal(t, []string{"Frontend Developer", "Full Stack Engineer"}, titles(Filter(listings, "", "React")))
	assert.Equal(t, []string{"Frontend Developer", "Full Stack Engineer", "UI/UX Designer"}, titles(Filter(listings, "", "")))
}

func TestFilterMatchesCompanyCaseInsensitive(t *testing.T) {
	listings := SampleListings(refTime)

	assert.Equal(t, []string{"Full Stack Engineer"}, titles(Filter(listings, "STARTUP", "")))
	assert.Equal(t, []string{"UI/UX Designer"}, titles(Filter(listings, "agency", "")))
	assert.Empty(t, Filter(listings, "plumber", ""))
}

func TestFilterQueryAndSkill(t *testing.T) {
	listings := SampleListings(refTime)

	assert.Equal(t, []string{"Full Stack Engineer"}, titles(Filter(listings, "hub", "React")))
	assert.Empty(t, Filter(listings, "front", "Figma"))
	// skill match is exact
	assert.Empty(t, Filter(listings, "", "react"))
}

// Every listing returned matches and every listing that matches is returned.
func TestFilterIsExactSubset(t *testing.T) {
	listings := SampleListings(refTime)
	queries := []string{"", "e", "de", "ENG", "tech", "x"}
	for _, q := range queries {
		got := Filter(listings, q, "")
		var want []string
		for _, l := range listings {
			if strings.Contains(strings.ToLower(l.Title), strings.ToLower(q)) || strings.Contains(strings.ToLower(l.Company), strings.ToLower(q)) {
				want = append(want, l.Title)
			}
		}
		assert.ElementsMatch(t, want, titles(got), "query %q", q)
	}
	for _, s := range Skills(listings) {
		got := Filter(listings, "", s)
		for _, l := range got {
			assert.Contains(t, l.Skills, s)
		}
		for _, l := range listings {
			if hasSkill(l, s) {
				assert.Contains(t, titles(got), l.Title)
			}
		}
	}
}

func TestSkills(t *testing.T) {
	got := Skills(SampleListings(refTime))
	assert.Equal(t, []string{"React", "TypeScript", "Tailwind", "Node.js", "MongoDB", "Figma", "Design Systems", "User Research"}, got)
}

func TestCatalogueListings(t *testing.T) {
	c := NewCatalogue(SampleListings(refTime))
	c.now = func() time.Time { return refTime }

	ls := c.Listings()
	require.Len(t, ls, 3)
	assert.Equal(t, "2 days ago", ls[0].PostedAgo)
	assert.Equal(t, "1 week ago", ls[1].PostedAgo)
	assert.Equal(t, "3 days ago", ls[2].PostedAgo)
	assert.Equal(t, "frontend-developer-tech-solutions-ltd-1", ls[0].Slug)
	assert.True(t, ls[1].IsAISourced())

	// callers get copies
	ls[0].Skills[0] = "Vue"
	assert.Equal(t, "React", c.Listings()[0].Skills[0])

	l, ok := c.BySlug("full-stack-engineer-startup-hub-2")
	require.True(t, ok)
	assert.Equal(t, 2, l.ID)
	_, ok = c.BySlug("nope")
	assert.False(t, ok)
}
