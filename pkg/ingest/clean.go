// Package ingest drives candidate imports: it streams an assembled upload
// out of the object store, tokenizes it, cleans and validates every row,
// and writes accepted rows to the candidate store in batches while keeping
// the owning job's counters and lifecycle state current.
package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rosterhq/roster/pkg/controlplane/models"
)

// maxNameLen bounds full_name after cleaning.
const maxNameLen = 100

var (
	// phoneRe accepts 7-15 digits with an optional leading plus, after
	// everything else has been stripped.
	phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

	// emailRe is deliberately lenient: anything@anything.anything without
	// whitespace. Real exports carry addresses stricter patterns reject.
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Salvage preconditions. These detect the column-shift patterns that
	// show up in scraped exports.
	narrativeRe = regexp.MustCompile(`(?i)experience|professional|skills`)
	locationRe  = regexp.MustCompile(`(?i)city|state|country|,`)
	titleRe     = regexp.MustCompile(`(?i)engineer|developer|manager`)
)

// CleanOptions controls the optional parts of cleaning.
type CleanOptions struct {
	// Salvage enables the misaligned-column repair heuristics. Strict
	// runs disable it so rows are judged exactly as mapped.
	Salvage bool
}

// Clean normalizes a candidate's fields in place and reports whether the
// row clears the acceptance bar: at least one of email, phone or LinkedIn
// URL non-empty after cleaning.
func Clean(c *models.Candidate, opts CleanOptions) bool {
	c.Phone = CleanPhone(c.Phone)
	c.Email = CleanEmail(c.Email)
	c.LinkedinURL = CleanLinkedinURL(c.LinkedinURL)

	c.FullName = collapseSpace(c.FullName)
	c.Company = collapseSpace(c.Company)
	c.Industry = collapseSpace(c.Industry)
	c.JobTitle = collapseSpace(c.JobTitle)
	c.Skills = collapseSpace(c.Skills)
	c.Experience = collapseSpace(c.Experience)
	c.Country = collapseSpace(c.Country)
	c.Locality = collapseSpace(c.Locality)
	c.Location = collapseSpace(c.Location)
	c.GithubURL = collapseSpace(c.GithubURL)
	c.BirthYear = collapseSpace(c.BirthYear)
	c.Summary = collapseSpace(c.Summary)

	if opts.Salvage {
		salvage(c)
	}

	c.FullName = clampName(c.FullName)

	return c.HasContactInfo()
}

// CleanPhone strips every byte outside [0-9+] and keeps the result only if
// it is a plausible number: 7-15 digits, optional leading plus.
func CleanPhone(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch >= '0' && ch <= '9') || ch == '+' {
			b.WriteByte(ch)
		}
	}
	cleaned := b.String()
	if !phoneRe.MatchString(cleaned) {
		return ""
	}
	return cleaned
}

// CleanEmail trims the value and keeps it only if it looks like an address.
func CleanEmail(s string) string {
	s = strings.TrimSpace(s)
	if !emailRe.MatchString(s) {
		return ""
	}
	return s
}

// CleanLinkedinURL trims the value and prepends https:// when the scheme
// is missing. Empty stays empty.
func CleanLinkedinURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		return "https://" + s
	}
	return s
}

// collapseSpace trims the value and collapses internal whitespace runs,
// including embedded newlines, to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// salvage repairs the three column-shift patterns seen in real exports.
// Order matters: moving a title out of the skills column must not run
// before the location rule has had its chance at the title column.
func salvage(c *models.Candidate) {
	// A resume narrative in the name column: swap with summary when the
	// summary is the shorter of the two.
	if utf8.RuneCountInString(c.FullName) > 50 &&
		narrativeRe.MatchString(c.FullName) &&
		utf8.RuneCountInString(c.Summary) < utf8.RuneCountInString(c.FullName) {
		c.FullName, c.Summary = c.Summary, c.FullName
	}

	// A location in the title column.
	if c.Location == "" && locationRe.MatchString(c.JobTitle) {
		c.Location = c.JobTitle
		c.JobTitle = ""
	}

	// A title overflowing the skills column.
	if c.JobTitle == "" &&
		utf8.RuneCountInString(c.Skills) > 100 &&
		titleRe.MatchString(c.Skills) {
		c.JobTitle = c.Skills
		c.Skills = ""
	}
}

// clampName bounds the name to maxNameLen runes and drops degenerate
// single-rune names.
func clampName(s string) string {
	runes := []rune(s)
	if len(runes) > maxNameLen {
		return string(runes[:maxNameLen])
	}
	if len(runes) < 2 {
		return ""
	}
	return s
}
