// Package crosscheck compares a provider's student record against the
// fields the registering student submitted and produces a weighted trust
// score. The rubric is deterministic so scores are reproducible in tests
// and explainable to fraud reviewers.
package crosscheck

import (
	"regexp"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	pmodels "enrollgate/internal/provider/models"
	"enrollgate/internal/verification/models"
)

// Weights assigns points per matched signal. Totals are capped at 100.
// These are deployment-tunable defaults, not a fixed protocol.
type Weights struct {
	NationalID      int
	Name            int
	RegNumberFormat int
	Course          int
	EmailDomain     int
}

// DefaultWeights is the reference rubric.
var DefaultWeights = Weights{
	NationalID:      30,
	Name:            20,
	RegNumberFormat: 15,
	Course:          20,
	EmailDomain:     15,
}

// DefaultNameSimilarity is the minimum normalized Levenshtein similarity
// for the name signal to count as a match.
const DefaultNameSimilarity = 0.85

// Result carries the additive score plus the hard-gate flag. A National-ID
// mismatch is reported separately because no total score can rescue it.
type Result struct {
	Score              int
	NationalIDMismatch bool
	Breakdown          map[string]int
}

// Checker scores identity matches.
type Checker struct {
	weights        Weights
	nameThreshold  float64
	nameSimilarity *metrics.Levenshtein
}

// Option configures the checker.
type Option func(*Checker)

// WithWeights overrides the default rubric.
func WithWeights(w Weights) Option {
	return func(c *Checker) { c.weights = w }
}

// WithNameSimilarityThreshold overrides the name-match cutoff.
func WithNameSimilarityThreshold(threshold float64) Option {
	return func(c *Checker) { c.nameThreshold = threshold }
}

func New(opts ...Option) *Checker {
	c := &Checker{
		weights:        DefaultWeights,
		nameThreshold:  DefaultNameSimilarity,
		nameSimilarity: metrics.NewLevenshtein(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score evaluates the remote record against the submitted fields. regNumber
// is the registration number the student claimed; cfg supplies the
// institution's known registration-number pattern and mail domains.
func (c *Checker) Score(record *models.StudentRecord, regNumber string, submitted models.SubmittedFields, cfg *pmodels.ProviderConfig) Result {
	breakdown := make(map[string]int)
	result := Result{Breakdown: breakdown}

	remoteNID := normalizeID(record.NationalID)
	submittedNID := normalizeID(submitted.NationalID)
	switch {
	case remoteNID != "" && submittedNID != "" && remoteNID == submittedNID:
		breakdown["national_id"] = c.weights.NationalID
	case remoteNID != "" && submittedNID != "" && remoteNID != submittedNID:
		// Hard gate: flagged regardless of what the rest of the rubric says.
		result.NationalIDMismatch = true
	}

	if c.nameMatches(record, submitted) {
		breakdown["name"] = c.weights.Name
	}

	if regNumberFormatOK(regNumber, cfg) {
		breakdown["reg_number_format"] = c.weights.RegNumberFormat
	}

	if courseMatches(record, submitted) {
		breakdown["course"] = c.weights.Course
	}

	if emailDomainMatches(submitted.Email, cfg) {
		breakdown["email_domain"] = c.weights.EmailDomain
	}

	for _, points := range breakdown {
		result.Score += points
	}
	if result.Score > 100 {
		result.Score = 100
	}
	return result
}

func (c *Checker) nameMatches(record *models.StudentRecord, submitted models.SubmittedFields) bool {
	remote := normalizeName(record.FirstName + " " + record.LastName)
	claimed := normalizeName(submitted.FirstName + " " + submitted.LastName)
	if remote == "" || claimed == "" {
		return false
	}
	return strutil.Similarity(remote, claimed, c.nameSimilarity) >= c.nameThreshold
}

// regNumberFormatOK treats a missing pattern as a pass: the provider
// answered for this number, so absent a known format there is nothing to
// hold against it.
func regNumberFormatOK(regNumber string, cfg *pmodels.ProviderConfig) bool {
	if cfg == nil || cfg.RegNumberPattern == "" {
		return true
	}
	re, err := regexp.Compile(cfg.RegNumberPattern)
	if err != nil {
		return false
	}
	return re.MatchString(strings.TrimSpace(regNumber))
}

func courseMatches(record *models.StudentRecord, submitted models.SubmittedFields) bool {
	if code := normalizeID(submitted.CourseCode); code != "" && code == normalizeID(record.CourseCode) {
		return true
	}
	if name := normalizeName(submitted.CourseName); name != "" && name == normalizeName(record.CourseName) {
		return true
	}
	if dept := normalizeName(submitted.Department); dept != "" && dept == normalizeName(record.Department) {
		return true
	}
	return false
}

func emailDomainMatches(email string, cfg *pmodels.ProviderConfig) bool {
	if cfg == nil || len(cfg.EmailDomains) == 0 {
		return false
	}
	_, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !ok || domain == "" {
		return false
	}
	for _, candidate := range cfg.EmailDomains {
		if strings.EqualFold(strings.TrimSpace(candidate), domain) {
			return true
		}
	}
	return false
}

var whitespace = regexp.MustCompile(`\s+`)

func normalizeName(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

func normalizeID(s string) string {
	return strings.ToUpper(whitespace.ReplaceAllString(strings.TrimSpace(s), ""))
}
