package profile

import (
	"strings"
	"time"
)

const MaxSkills = 20

type Resume struct {
	Key         string    `bson:"key" json:"key"`
	FileName    string    `bson:"file_name" json:"fileName"`
	ContentType string    `bson:"content_type" json:"contentType"`
	Size        int64     `bson:"size" json:"size"`
	UploadedAt  time.Time `bson:"uploaded_at" json:"uploadedAt"`
}

// Profile extends a user account, keyed by email.
type Profile struct {
	Email             string    `bson:"_id" json:"email"`
	Name              string    `bson:"name" json:"name"`
	Headline          string    `bson:"headline" json:"headline"`
	Location          string    `bson:"location" json:"location"`
	Bio               string    `bson:"bio" json:"bio"`
	Phone             string    `bson:"phone" json:"phone"`
	Skills            []string  `bson:"skills" json:"skills"`
	Resume            *Resume   `bson:"resume,omitempty" json:"resume,omitempty"`
	ProfileCompletion int       `bson:"profile_completion" json:"profileCompletion"`
	CreatedAt         time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updatedAt"`
}

// Completion is the percentage, rounded down, of tracked fields that are
// filled: name, headline, location, bio, phone, skills and resume.
func Completion(p Profile) int {
	filled := []bool{
		strings.TrimSpace(p.Name) != "",
		strings.TrimSpace(p.Headline) != "",
		strings.TrimSpace(p.Location) != "",
		strings.TrimSpace(p.Bio) != "",
		strings.TrimSpace(p.Phone) != "",
		len(p.Skills) > 0,
		p.Resume != nil && p.Resume.Key != "",
	}
	n := 0
	for _, f := range filled {
		if f {
			n++
		}
	}
	return n * 100 / len(filled)
}

// NormalizeSkills trims, drops empties and case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
