package handler

import (
	"strings"

	"enrollgate/internal/verification/models"
	dErrors "enrollgate/pkg/domain-errors"
)

// VerifyRequest is the HTTP request body for POST /verify.
type VerifyRequest struct {
	Institution        string `json:"institution"`
	RegistrationNumber string `json:"registration_number"`

	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	NationalID string `json:"national_id,omitempty"`
	Email      string `json:"email,omitempty"`
	CourseCode string `json:"course_code,omitempty"`
	CourseName string `json:"course_name,omitempty"`
	Department string `json:"department,omitempty"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Institution = strings.TrimSpace(r.Institution)
	if r.Institution == "" {
		return dErrors.New(dErrors.CodeValidation, "institution is required")
	}
	if len(r.Institution) > 128 {
		return dErrors.New(dErrors.CodeValidation, "institution must be at most 128 characters")
	}

	r.RegistrationNumber = strings.TrimSpace(r.RegistrationNumber)
	if r.RegistrationNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "registration_number is required")
	}
	if len(r.RegistrationNumber) > 64 {
		return dErrors.New(dErrors.CodeValidation, "registration_number must be at most 64 characters")
	}

	if len(r.NationalID) > 32 {
		return dErrors.New(dErrors.CodeValidation, "national_id must be at most 32 characters")
	}
	return nil
}

// Submitted returns the optional identity fields as the domain type.
func (r *VerifyRequest) Submitted() models.SubmittedFields {
	return models.SubmittedFields{
		FirstName:  strings.TrimSpace(r.FirstName),
		LastName:   strings.TrimSpace(r.LastName),
		NationalID: strings.TrimSpace(r.NationalID),
		Email:      strings.TrimSpace(r.Email),
		CourseCode: strings.TrimSpace(r.CourseCode),
		CourseName: strings.TrimSpace(r.CourseName),
		Department: strings.TrimSpace(r.Department),
	}
}
