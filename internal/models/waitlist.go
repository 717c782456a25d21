package models

import (
	"strings"
)

// Designation is the attendee's self-described role
type Designation string

const (
	DesignationWorkingProfessional  Designation = "Working Professional"
	DesignationBusinessOwner        Designation = "Business Owner"
	DesignationAspiringEntrepreneur Designation = "Aspiring Entrepreneur"
	DesignationMompreneur           Designation = "Mompreneur"
	DesignationDigitalNomad         Designation = "Digital Nomad"
	DesignationIntrapreneur         Designation = "Intrapreneur"
	DesignationOther                Designation = "Other"
)

// Designations lists every accepted designation in display order
var Designations = []Designation{
	DesignationWorkingProfessional,
	DesignationBusinessOwner,
	DesignationAspiringEntrepreneur,
	DesignationMompreneur,
	DesignationDigitalNomad,
	DesignationIntrapreneur,
	DesignationOther,
}

// DefaultDesignation is preselected on the professional form
const DefaultDesignation = DesignationWorkingProfessional

// IsValid reports whether d is one of Designations
func (d Designation) IsValid() bool {
	for _, known := range Designations {
		if d == known {
			return true
		}
	}
	return false
}

// FieldSet selects which optional fields a waitlist form collects
type FieldSet string

const (
	// FieldSetBasic collects name and email only
	FieldSetBasic FieldSet = "basic"
	// FieldSetProfessional adds designation, company and contact
	FieldSetProfessional FieldSet = "professional"
)

// ParseFieldSet maps a config value onto a FieldSet, defaulting to basic
func ParseFieldSet(s string) FieldSet {
	if FieldSet(strings.ToLower(strings.TrimSpace(s))) == FieldSetProfessional {
		return FieldSetProfessional
	}
	return FieldSetBasic
}

// HasProfessionalFields reports whether designation, company and contact are enabled
func (f FieldSet) HasProfessionalFields() bool {
	return f == FieldSetProfessional
}

// WaitlistRequest is the raw form state posted by the site.
// Validation happens in the service, so there are no binding tags here.
type WaitlistRequest struct {
	Name        string `json:"name" form:"name" validate:"required,min=2"`
	Email       string `json:"email" form:"email" validate:"required,email"`
	Designation string `json:"designation,omitempty" form:"designation" validate:"omitempty,designation"`
	Company     string `json:"company,omitempty" form:"company" validate:"max=120"`
	Contact     string `json:"contact,omitempty" form:"contact" validate:"max=30"`
	// Honeypot. Hidden from people, filled in by bots.
	Phone string `json:"phone,omitempty" form:"phone" validate:"-"`
}

// Normalized returns a copy with whitespace trimmed, fields outside the
// field set dropped and the designation default applied.
func (r WaitlistRequest) Normalized(fields FieldSet) WaitlistRequest {
	out := WaitlistRequest{
		Name:  strings.TrimSpace(r.Name),
		Email: strings.TrimSpace(r.Email),
		Phone: strings.TrimSpace(r.Phone),
	}
	if fields.HasProfessionalFields() {
		out.Designation = strings.TrimSpace(r.Designation)
		out.Company = strings.TrimSpace(r.Company)
		out.Contact = strings.TrimSpace(r.Contact)
		if out.Designation == "" {
			out.Designation = string(DefaultDesignation)
		}
	}
	return out
}

// SubmissionResult is what the form shows after a submission
type SubmissionResult struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	Deduped   bool   `json:"deduped"`
	Retryable bool   `json:"retryable,omitempty"`

	// Cause is the underlying failure, kept out of responses
	Cause error `json:"-"`
}
