// Package profile holds the citizen profile snapshot and the completion
// scorer that gates request submission and validation.
package profile

import (
	"strings"
	"time"

	id "github.com/okatech-org/consulat-sub002/pkg/domain"
)

// Variant selects which requirement schema applies to a profile.
type Variant string

const (
	VariantAdult Variant = "adult"
	VariantMinor Variant = "minor"
)

// MaritalStatus extends the family section's requirements when MARRIED.
type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "SINGLE"
	MaritalMarried  MaritalStatus = "MARRIED"
	MaritalDivorced MaritalStatus = "DIVORCED"
	MaritalWidowed  MaritalStatus = "WIDOWED"
)

// WorkStatus extends the professional section's requirements when EMPLOYEE.
type WorkStatus string

const (
	WorkEmployee     WorkStatus = "EMPLOYEE"
	WorkSelfEmployed WorkStatus = "SELF_EMPLOYED"
	WorkStudent      WorkStatus = "STUDENT"
	WorkUnemployed   WorkStatus = "UNEMPLOYED"
	WorkRetired      WorkStatus = "RETIRED"
)

// Address is a structured field: it counts as completed only when all of its
// own required sub-fields are set.
type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// IsComplete reports whether the required sub-fields are populated.
// PostalCode is optional; not every country of residence has one.
func (a Address) IsComplete() bool {
	return filled(a.Line1) && filled(a.City) && filled(a.Country)
}

// DocumentRef points at an uploaded supporting document. The core never
// reads document contents; it only checks that a reference exists.
type DocumentRef struct {
	Type      string     `json:"type"`
	Reference string     `json:"reference"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
}

// IsComplete reports whether the reference is usable.
func (d DocumentRef) IsComplete() bool {
	return filled(d.Type) && filled(d.Reference)
}

// Identity is the civil identity section.
type Identity struct {
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	Gender             string     `json:"gender"`
	BirthDate          *time.Time `json:"birth_date,omitempty"`
	BirthCity          string     `json:"birth_city"`
	BirthCountry       string     `json:"birth_country"`
	Nationality        string     `json:"nationality"`
	NationalIDNumber   string     `json:"national_id_number"`
	PassportNumber     string     `json:"passport_number"`
	PassportIssueDate  *time.Time `json:"passport_issue_date,omitempty"`
	PassportExpiryDate *time.Time `json:"passport_expiry_date,omitempty"`
	HeightCM           int        `json:"height_cm"`
	EyeColor           string     `json:"eye_color"`
}

// Contact is the reachability section.
type Contact struct {
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	Address          Address `json:"address"`
	ResidenceCountry string  `json:"residence_country"`
}

// Family is the family situation section (adult profiles).
type Family struct {
	MaritalStatus  MaritalStatus `json:"marital_status"`
	SpouseFullName string        `json:"spouse_full_name,omitempty"`
	FatherFullName string        `json:"father_full_name"`
	MotherFullName string        `json:"mother_full_name"`
}

// Professional is the work situation section (adult profiles).
type Professional struct {
	WorkStatus   WorkStatus `json:"work_status"`
	EmployerName string     `json:"employer_name,omitempty"`
	Profession   string     `json:"profession,omitempty"`
}

// Documents is the supporting documents section.
type Documents struct {
	IdentityDocument DocumentRef `json:"identity_document"`
	BirthCertificate DocumentRef `json:"birth_certificate"`
	Photo            DocumentRef `json:"photo"`
	ProofOfResidence DocumentRef `json:"proof_of_residence"`
}

// Guardian is a parental-authority link on a minor profile.
type Guardian struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
}

// Profile is the read-only snapshot consumed by the scorer. It is owned by
// the citizen-facing edit flows; this core never mutates it.
type Profile struct {
	CitizenID    id.CitizenID `json:"citizen_id"`
	Variant      Variant      `json:"variant"`
	Identity     Identity     `json:"identity"`
	Contact      Contact      `json:"contact"`
	Family       Family       `json:"family"`
	Professional Professional `json:"professional"`
	Documents    Documents    `json:"documents"`
	Guardians    []Guardian   `json:"guardians,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func filled(s string) bool { return strings.TrimSpace(s) != "" }
