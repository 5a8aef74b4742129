package models

import "time"

// Candidate is one imported person record.
//
// All destination fields are plain strings and the empty string denotes
// absence. The import path never updates candidates; rows are insert-only and
// duplicate inserts are tolerated by the batch writer.
type Candidate struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	FullName    string `gorm:"size:512;column:full_name" json:"fullName"`
	Email       string `gorm:"size:512;index" json:"email"`
	Phone       string `gorm:"size:128" json:"phone"`
	Company     string `gorm:"size:512" json:"company"`
	Industry    string `gorm:"size:512" json:"industry"`
	JobTitle    string `gorm:"size:512;column:job_title" json:"jobTitle"`
	Skills      string `gorm:"type:text" json:"skills"`
	Experience  string `gorm:"type:text" json:"experience"`
	Country     string `gorm:"size:256" json:"country"`
	Locality    string `gorm:"size:256" json:"locality"`
	Location    string `gorm:"size:512" json:"location"`
	LinkedinURL string `gorm:"size:1024;column:linkedin_url" json:"linkedinUrl"`
	GithubURL   string `gorm:"size:1024;column:github_url" json:"githubUrl"`
	BirthYear   string `gorm:"size:16;column:birth_year" json:"birthYear"`
	Summary     string `gorm:"type:text" json:"summary"`

	// SourceFile is the storage key of the object the row came from.
	SourceFile  string `gorm:"size:1024;column:source_file;index" json:"sourceFile"`
	UploadJobID string `gorm:"size:36;column:upload_job_id;index" json:"uploadJobId"`
	IsDeleted   bool   `gorm:"default:false;column:is_deleted" json:"isDeleted"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Candidate.
func (Candidate) TableName() string {
	return "candidates"
}

// CandidateFields is the canonical destination field set, in declaration
// order. Mapping keys supplied by clients must be a subset of this set.
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

// IsCandidateField reports whether name is a canonical destination field.
func IsCandidateField(name string) bool {
	for _, f := range CandidateFields {
		if f == name {
			return true
		}
	}
	return false
}

// SetField assigns a value to a canonical field by its mapping name.
// Returns false for unknown names.
func (c *Candidate) SetField(name, value string) bool {
	switch name {
	case "fullName":
		c.FullName = value
	case "email":
		c.Email = value
	case "phone":
		c.Phone = value
	case "company":
		c.Company = value
	case "industry":
		c.Industry = value
	case "jobTitle":
		c.JobTitle = value
	case "skills":
		c.Skills = value
	case "experience":
		c.Experience = value
	case "country":
		c.Country = value
	case "locality":
		c.Locality = value
	case "location":
		c.Location = value
	case "linkedinUrl":
		c.LinkedinURL = value
	case "githubUrl":
		c.GithubURL = value
	case "birthYear":
		c.BirthYear = value
	case "summary":
		c.Summary = value
	default:
		return false
	}
	return true
}

// Field returns the value of a canonical field by its mapping name.
func (c *Candidate) Field(name string) (string, bool) {
	switch name {
	case "fullName":
		return c.FullName, true
	case "email":
		return c.Email, true
	case "phone":
		return c.Phone, true
	case "company":
		return c.Company, true
	case "industry":
		return c.Industry, true
	case "jobTitle":
		return c.JobTitle, true
	case "skills":
		return c.Skills, true
	case "experience":
		return c.Experience, true
	case "country":
		return c.Country, true
	case "locality":
		return c.Locality, true
	case "location":
		return c.Location, true
	case "linkedinUrl":
		return c.LinkedinURL, true
	case "githubUrl":
		return c.GithubURL, true
	case "birthYear":
		return c.BirthYear, true
	case "summary":
		return c.Summary, true
	}
	return "", false
}

// HasContactInfo reports whether the candidate carries at least one of the
// fields that make a row worth keeping: email, phone or LinkedIn URL.
func (c *Candidate) HasContactInfo() bool {
	return c.Email != "" || c.Phone != "" || c.LinkedinURL != ""
}
