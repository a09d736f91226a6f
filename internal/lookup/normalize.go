package lookup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"enrollgate/internal/provider/models"
	vmodels "enrollgate/internal/verification/models"
)

// envelope is the canonical provider response shape. Conforming providers
// answer in this form directly; others are translated via the config's
// field mapping before cross-checking.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

type canonicalStudent struct {
	RegistrationNumber string `json:"registration_number"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	NationalID         string `json:"national_id"`
	Email              string `json:"email"`
	Course             struct {
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"course"`
	Department  string          `json:"department"`
	Campus      string          `json:"campus"`
	YearOfStudy json.RawMessage `json:"year_of_study"`
	Status      string          `json:"status"`
}

// normalize turns a raw provider body into the canonical StudentRecord.
// With an empty field mapping the body must be the canonical envelope; with
// a mapping, fields are pulled from dot-separated paths into the raw JSON.
func normalize(body []byte, mapping models.FieldMapping, institution string) (*vmodels.StudentRecord, error) {
	var record *vmodels.StudentRecord
	var err error
	if len(mapping) == 0 {
		record, err = normalizeCanonical(body, institution)
	} else {
		record, err = normalizeMapped(body, mapping, institution)
	}
	if err != nil {
		return nil, err
	}

	if record.RegistrationNumber == "" {
		return nil, newError(KindMalformedResponse, institution, "provider record has no registration number", nil)
	}

	sum := sha256.Sum256(body)
	record.RawPayloadHash = hex.EncodeToString(sum[:])
	return record, nil
}

func normalizeCanonical(body []byte, institution string) (*vmodels.StudentRecord, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, newError(KindMalformedResponse, institution, "response is not valid JSON", err)
	}
	if !env.Success {
		// A well-formed negative envelope is a not-found, not a malformed
		// response; providers signal missing students this way too.
		return nil, newError(KindNotFound, institution, notFoundMessage(env), nil)
	}
	if len(env.Data) == 0 {
		return nil, newError(KindMalformedResponse, institution, "envelope has no data object", nil)
	}

	var data canonicalStudent
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, newError(KindMalformedResponse, institution, "data object does not match canonical shape", err)
	}

	return &vmodels.StudentRecord{
		RegistrationNumber: strings.TrimSpace(data.RegistrationNumber),
		FirstName:          strings.TrimSpace(data.FirstName),
		LastName:           strings.TrimSpace(data.LastName),
		NationalID:         strings.TrimSpace(data.NationalID),
		Email:              strings.TrimSpace(data.Email),
		CourseCode:         strings.TrimSpace(data.Course.Code),
		CourseName:         strings.TrimSpace(data.Course.Name),
		Department:         strings.TrimSpace(data.Department),
		Campus:             strings.TrimSpace(data.Campus),
		YearOfStudy:        intFromRaw(data.YearOfStudy),
		EnrollmentStatus:   strings.TrimSpace(data.Status),
	}, nil
}

func normalizeMapped(body []byte, mapping models.FieldMapping, institution string) (*vmodels.StudentRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, newError(KindMalformedResponse, institution, "response is not a JSON object", err)
	}

	record := &vmodels.StudentRecord{}
	for field, path := range mapping {
		value, ok := resolvePath(raw, path)
		if !ok {
			continue
		}
		switch field {
		case models.FieldRegistrationNumber:
			record.RegistrationNumber = stringValue(value)
		case models.FieldFirstName:
			record.FirstName = stringValue(value)
		case models.FieldLastName:
			record.LastName = stringValue(value)
		case models.FieldNationalID:
			record.NationalID = stringValue(value)
		case models.FieldEmail:
			record.Email = stringValue(value)
		case models.FieldCourseCode:
			record.CourseCode = stringValue(value)
		case models.FieldCourseName:
			record.CourseName = stringValue(value)
		case models.FieldDepartment:
			record.Department = stringValue(value)
		case models.FieldCampus:
			record.Campus = stringValue(value)
		case models.FieldYearOfStudy:
			record.YearOfStudy = intValue(value)
		case models.FieldStatus:
			record.EnrollmentStatus = stringValue(value)
		}
	}
	return record, nil
}

// resolvePath walks a dot-separated path through nested JSON objects.
func resolvePath(raw map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = raw
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return ""
	}
}

func intValue(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return 0
}

func intFromRaw(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var asNumber int
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber
	}
	// Some providers quote the year ("3").
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if n, convErr := strconv.Atoi(strings.TrimSpace(asString)); convErr == nil {
			return n
		}
	}
	return 0
}

func notFoundMessage(env envelope) string {
	if env.Error != "" {
		return env.Error
	}
	return "provider reported no matching student"
}
