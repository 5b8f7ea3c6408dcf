package job

import "time"

const (
	SourceRecruiter = "recruiter"
	SourceAI        = "ai"
)

const (
	TypeFullTime = "Full-time"
	TypeContract = "Contract"
)

type Listing struct {
	ID          int       `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Type        string    `json:"type"`
	Skills      []string  `json:"skills"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	PostedAt    time.Time `json:"postedAt"`
	PostedAgo   string    `json:"postedAgo"`
}

func (l Listing) IsAISourced() bool {
	return l.Source == SourceAI
}
