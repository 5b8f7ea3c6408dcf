package job

import (
	"fmt"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/gosimple/slug"
)

// Catalogue is the in-process set of job listings served by the API.
// Listings are not persisted.
type Catalogue struct {
	mu       sync.RWMutex
	listings []Listing
	now      func() time.Time
}

func NewCatalogue(listings []Listing) *Catalogue {
	c := &Catalogue{now: time.Now}
	for i := range listings {
		if listings[i].Slug == "" {
			listings[i].Slug = slug.Make(fmt.Sprintf("%s %s %d", listings[i].Title, listings[i].Company, listings[i].ID))
		}
	}
	c.listings = listings
	return c
}

// Listings returns a copy of the catalogue with PostedAgo computed against
// the current time.
func (c *Catalogue) Listings() []Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	out := make([]Listing, len(c.listings))
	for i, l := range c.listings {
		l.Skills = append([]string(nil), l.Skills...)
		l.PostedAgo = humanize.RelTime(l.PostedAt, now, "ago", "from now")
		out[i] = l
	}
	return out
}

func (c *Catalogue) BySlug(s string) (Listing, bool) {
	for _, l := range c.Listings() {
		if l.Slug == s {
			return l, true
		}
	}
	return Listing{}, false
}

// SampleListings returns the starter listings shown on the jobs page, posted
// relative to now.
func SampleListings(now time.Time) []Listing {
	day := 24 * time.Hour
	return []Listing{
		{
			ID:          1,
			Title:       "Frontend Developer",
			Company:     "Tech Solutions Ltd",
			Location:    "Remote",
			Type:        TypeFullTime,
			Skills:      []string{"React", "TypeScript", "Tailwind"},
			Description: "Build modern web applications using **React** and **TypeScript**",
			Source:      SourceRecruiter,
			PostedAt:    now.Add(-2 * day),
		},
		{
			ID:          2,
			Title:       "Full Stack Engineer",
			Company:     "StartUp Hub",
			Location:    "Bangalore",
			Type:        TypeFullTime,
			Skills:      []string{"Node.js", "React", "MongoDB"},
			Description: "Work on exciting startup projects with modern tech stack",
			Source:      SourceAI,
			PostedAt:    now.Add(-7 * day),
		},
		{
			ID:          3,
			Title:       "UI/UX Designer",
			Company:     "Creative Agency",
			Location:    "Mumbai",
			Type:        TypeContract,
			Skills:      []string{"Figma", "Design Systems", "User Research"},
			Description: "Design beautiful and intuitive user experiences",
			Source:      SourceRecruiter,
			PostedAt:    now.Add(-3 * day),
		},
	}
}
