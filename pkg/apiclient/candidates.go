package apiclient

import (
	"net/url"
	"strconv"
	"time"
)

// CandidateFields lists the destination fields a source column can be
// mapped to, mirroring the server's canonical field set. Process rejects
// mappings targeting anything else.
var CandidateFields = []string{
	"fullName",
	"email",
	"phone",
	"company",
	"industry",
	"jobTitle",
	"skills",
	"experience",
	"country",
	"locality",
	"location",
	"linkedinUrl",
	"githubUrl",
	"birthYear",
	"summary",
}

// Candidate represents one imported candidate record.
type Candidate struct {
	ID          string    `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Company     string    `json:"company"`
	Industry    string    `json:"industry"`
	JobTitle    string    `json:"jobTitle"`
	Skills      string    `json:"skills"`
	Experience  string    `json:"experience"`
	Country     string    `json:"country"`
	Locality    string    `json:"locality"`
	Location    string    `json:"location"`
	LinkedinURL string    `json:"linkedinUrl"`
	GithubURL   string    `json:"githubUrl"`
	BirthYear   string    `json:"birthYear"`
	Summary     string    `json:"summary"`
	SourceFile  string    `json:"sourceFile"`
	UploadJobID string    `json:"uploadJobId"`
	CreatedAt   time.Time `json:"created_at"`
}

// CandidateQuery filters a candidate listing. The zero value lists the
// first page of everything.
type CandidateQuery struct {
	// JobID restricts results to one import job.
	JobID string

	// Search matches a substring of full name, email or company.
	Search string

	Limit  int
	Offset int
}

// CandidatePage is one page of candidate results.
type CandidatePage struct {
	Candidates []*Candidate `json:"candidates"`
	Total      int64        `json:"total"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}

// ListCandidates returns a filtered page of imported candidates.
func (c *Client) ListCandidates(query CandidateQuery) (*CandidatePage, error) {
	params := url.Values{}
	if query.JobID != "" {
		params.Set("jobId", query.JobID)
	}
	if query.Search != "" {
		params.Set("search", query.Search)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(query.Offset))
	}

	path := "/candidates"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	return getResource[CandidatePage](c, path)
}
