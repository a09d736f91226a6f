package crosscheck

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pmodels "enrollgate/internal/provider/models"
	"enrollgate/internal/verification/models"
)

func testConfig() *pmodels.ProviderConfig {
	return &pmodels.ProviderConfig{
		Institution:      "Gulu University",
		RegNumberPattern: `^\d{2}/U/\d{5}$`,
		EmailDomains:     []string{"gu.ac.ug", "students.gu.ac.ug"},
	}
}

func fullRecord() *models.StudentRecord {
	return &models.StudentRecord{
		RegistrationNumber: "21/U/12345",
		FirstName:          "Amara",
		LastName:           "Okello",
		NationalID:         "CM91023456KL",
		Email:              "amara.okello@gu.ac.ug",
		CourseCode:         "BSC-CS",
		CourseName:         "Computer Science",
		Department:         "Computing",
	}
}

func TestScoreAllSignalsMatch(t *testing.T) {
	checker := New()
	submitted := models.SubmittedFields{
		FirstName:  "Amara",
		LastName:   "Okello",
		NationalID: "cm91023456kl", // case-insensitive
		Email:      "amara.okello@students.gu.ac.ug",
		CourseCode: "bsc-cs",
	}

	result := checker.Score(fullRecord(), "21/U/12345", submitted, testConfig())

	assert.False(t, result.NationalIDMismatch)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 30, result.Breakdown["national_id"])
	assert.Equal(t, 20, result.Breakdown["name"])
	assert.Equal(t, 15, result.Breakdown["reg_number_format"])
	assert.Equal(t, 20, result.Breakdown["course"])
	assert.Equal(t, 15, result.Breakdown["email_domain"])
}

func TestScoreNationalIDMismatchIsHardGate(t *testing.T) {
	checker := New()
	submitted := models.SubmittedFields{
		FirstName:  "Amara",
		LastName:   "Okello",
		NationalID: "CM00000000ZZ",
		Email:      "amara.okello@gu.ac.ug",
		CourseCode: "BSC-CS",
	}

	result := checker.Score(fullRecord(), "21/U/12345", submitted, testConfig())

	assert.True(t, result.NationalIDMismatch)
	// The additive score still reflects the other signals.
	assert.Equal(t, 70, result.Score)
	assert.NotContains(t, result.Breakdown, "national_id")
}

func TestScoreMissingNationalIDNeitherAwardsNorGates(t *testing.T) {
	checker := New()
	record := fullRecord()
	record.NationalID = ""
	submitted := models.SubmittedFields{NationalID: "CM91023456KL"}

	result := checker.Score(record, "21/U/12345", submitted, testConfig())

	assert.False(t, result.NationalIDMismatch)
	assert.NotContains(t, result.Breakdown, "national_id")
}

func TestScoreNameSimilarityToleratesTypos(t *testing.T) {
	checker := New()

	close := models.SubmittedFields{FirstName: "Amarra", LastName: "Okello"}
	result := checker.Score(fullRecord(), "21/U/12345", close, testConfig())
	assert.Equal(t, 20, result.Breakdown["name"], "one-letter typo should still match")

	far := models.SubmittedFields{FirstName: "Beatrice", LastName: "Nansubuga"}
	result = checker.Score(fullRecord(), "21/U/12345", far, testConfig())
	assert.NotContains(t, result.Breakdown, "name")
}

func TestScoreRegNumberFormat(t *testing.T) {
	checker := New()

	result := checker.Score(fullRecord(), "not-a-reg-number", models.SubmittedFields{}, testConfig())
	assert.NotContains(t, result.Breakdown, "reg_number_format")

	// No configured pattern means nothing to hold against the number.
	cfg := testConfig()
	cfg.RegNumberPattern = ""
	result = checker.Score(fullRecord(), "anything", models.SubmittedFields{}, cfg)
	assert.Equal(t, 15, result.Breakdown["reg_number_format"])
}

func TestScoreCourseMatchesOnAnySignal(t *testing.T) {
	checker := New()

	byName := models.SubmittedFields{CourseName: "computer science"}
	result := checker.Score(fullRecord(), "21/U/12345", byName, testConfig())
	assert.Equal(t, 20, result.Breakdown["course"])

	byDept := models.SubmittedFields{Department: "Computing"}
	result = checker.Score(fullRecord(), "21/U/12345", byDept, testConfig())
	assert.Equal(t, 20, result.Breakdown["course"])

	wrong := models.SubmittedFields{CourseCode: "LAW-1"}
	result = checker.Score(fullRecord(), "21/U/12345", wrong, testConfig())
	assert.NotContains(t, result.Breakdown, "course")
}

func TestScoreEmailDomain(t *testing.T) {
	checker := New()

	outside := models.SubmittedFields{Email: "amara@gmail.com"}
	result := checker.Score(fullRecord(), "21/U/12345", outside, testConfig())
	assert.NotContains(t, result.Breakdown, "email_domain")

	cfg := testConfig()
	cfg.EmailDomains = nil
	inside := models.SubmittedFields{Email: "amara@gu.ac.ug"}
	result = checker.Score(fullRecord(), "21/U/12345", inside, cfg)
	assert.NotContains(t, result.Breakdown, "email_domain", "no known domains means no award")
}

func TestScoreCustomWeightsAreCappedAt100(t *testing.T) {
	checker := New(WithWeights(Weights{
		NationalID:      60,
		Name:            60,
		RegNumberFormat: 10,
		Course:          10,
		EmailDomain:     10,
	}))
	submitted := models.SubmittedFields{
		FirstName:  "Amara",
		LastName:   "Okello",
		NationalID: "CM91023456KL",
	}

	result := checker.Score(fullRecord(), "21/U/12345", submitted, testConfig())
	assert.Equal(t, 100, result.Score)
}

func TestScoreStricterNameThreshold(t *testing.T) {
	checker := New(WithNameSimilarityThreshold(0.99))
	submitted := models.SubmittedFields{FirstName: "Amarra", LastName: "Okello"}

	result := checker.Score(fullRecord(), "21/U/12345", submitted, testConfig())
	assert.NotContains(t, result.Breakdown, "name")
}
