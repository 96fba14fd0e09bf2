package profile

import "strconv"

// The requirement schema is declarative: each section lists its base fields
// plus conditional rules mapping a profile condition to extra required
// fields. The scorer resolves conditions against the profile snapshot before
// counting, so requirements never depend on evaluation order or prior calls.

// field is one required entry in a section: a stable name for missing-field
// reporting and a presence predicate over the snapshot.
type field struct {
	name    string
	present func(*Profile) bool
}

// conditionalRule adds fields to a section when its condition holds.
type conditionalRule struct {
	when   func(*Profile) bool
	fields []field
}

// sectionSchema describes one profile section's requirements.
type sectionSchema struct {
	name       string
	fields     []field
	conditions []conditionalRule
	// dynamic contributes requirements derived from repeated structures
	// (guardian links on minor profiles). Nil for static sections.
	dynamic func(*Profile) []field
}

// resolve returns the section's effective required-field list for this
// snapshot, conditions already applied.
func (s sectionSchema) resolve(p *Profile) []field {
	out := append([]field(nil), s.fields...)
	for _, rule := range s.conditions {
		if rule.when(p) {
			out = append(out, rule.fields...)
		}
	}
	if s.dynamic != nil {
		out = append(out, s.dynamic(p)...)
	}
	return out
}

// Section names are stable API: they appear in completion payloads and in
// the citizen-facing missing-field hints.
const (
	SectionIdentity          = "identity"
	SectionContact           = "contact"
	SectionFamily            = "family"
	SectionProfessional      = "professional"
	SectionDocuments         = "documents"
	SectionParentalAuthority = "parental_authority"
)

var identitySection = sectionSchema{
	name: SectionIdentity,
	fields: []field{
		{"first_name", func(p *Profile) bool { return filled(p.Identity.FirstName) }},
		{"last_name", func(p *Profile) bool { return filled(p.Identity.LastName) }},
		{"gender", func(p *Profile) bool { return filled(p.Identity.Gender) }},
		{"birth_date", func(p *Profile) bool { return p.Identity.BirthDate != nil }},
		{"birth_city", func(p *Profile) bool { return filled(p.Identity.BirthCity) }},
		{"birth_country", func(p *Profile) bool { return filled(p.Identity.BirthCountry) }},
		{"nationality", func(p *Profile) bool { return filled(p.Identity.Nationality) }},
		{"national_id_number", func(p *Profile) bool { return filled(p.Identity.NationalIDNumber) }},
		{"passport_number", func(p *Profile) bool { return filled(p.Identity.PassportNumber) }},
		{"passport_issue_date", func(p *Profile) bool { return p.Identity.PassportIssueDate != nil }},
		{"passport_expiry_date", func(p *Profile) bool { return p.Identity.PassportExpiryDate != nil }},
		{"height_cm", func(p *Profile) bool { return p.Identity.HeightCM > 0 }},
		{"eye_color", func(p *Profile) bool { return filled(p.Identity.EyeColor) }},
	},
}

// Minor identities carry civil identity only; passport and biometric card
// attributes are collected on the guardian's file.
var minorIdentitySection = sectionSchema{
	name:   SectionIdentity,
	fields: identitySection.fields[:7],
}

var contactSection = sectionSchema{
	name: SectionContact,
	fields: []field{
		{"email", func(p *Profile) bool { return filled(p.Contact.Email) }},
		{"phone", func(p *Profile) bool { return filled(p.Contact.Phone) }},
		{"address", func(p *Profile) bool { return p.Contact.Address.IsComplete() }},
		{"residence_country", func(p *Profile) bool { return filled(p.Contact.ResidenceCountry) }},
	},
}

var familySection = sectionSchema{
	name: SectionFamily,
	fields: []field{
		{"marital_status", func(p *Profile) bool { return p.Family.MaritalStatus != "" }},
		{"father_full_name", func(p *Profile) bool { return filled(p.Family.FatherFullName) }},
		{"mother_full_name", func(p *Profile) bool { return filled(p.Family.MotherFullName) }},
	},
	conditions: []conditionalRule{
		{
			when: func(p *Profile) bool { return p.Family.MaritalStatus == MaritalMarried },
			fields: []field{
				{"spouse_full_name", func(p *Profile) bool { return filled(p.Family.SpouseFullName) }},
			},
		},
	},
}

var professionalSection = sectionSchema{
	name: SectionProfessional,
	fields: []field{
		{"work_status", func(p *Profile) bool { return p.Professional.WorkStatus != "" }},
	},
	conditions: []conditionalRule{
		{
			when: func(p *Profile) bool { return p.Professional.WorkStatus == WorkEmployee },
			fields: []field{
				{"employer_name", func(p *Profile) bool { return filled(p.Professional.EmployerName) }},
				{"profession", func(p *Profile) bool { return filled(p.Professional.Profession) }},
			},
		},
	},
}

var adultDocumentsSection = sectionSchema{
	name: SectionDocuments,
	fields: []field{
		{"identity_document", func(p *Profile) bool { return p.Documents.IdentityDocument.IsComplete() }},
		{"photo", func(p *Profile) bool { return p.Documents.Photo.IsComplete() }},
		{"proof_of_residence", func(p *Profile) bool { return p.Documents.ProofOfResidence.IsComplete() }},
	},
}

var minorDocumentsSection = sectionSchema{
	name: SectionDocuments,
	fields: []field{
		{"birth_certificate", func(p *Profile) bool { return p.Documents.BirthCertificate.IsComplete() }},
		{"photo", func(p *Profile) bool { return p.Documents.Photo.IsComplete() }},
		{"proof_of_residence", func(p *Profile) bool { return p.Documents.ProofOfResidence.IsComplete() }},
	},
}

// parentalAuthoritySection requires every linked guardian to be reachable.
// A guardian contributes name, email and role; a supplied phone number is
// validated too. A minor with no guardian link at all has one outstanding
// requirement: the link itself.
var parentalAuthoritySection = sectionSchema{
	name: SectionParentalAuthority,
	dynamic: func(p *Profile) []field {
		if len(p.Guardians) == 0 {
			return []field{{"guardian", func(*Profile) bool { return false }}}
		}
		var out []field
		for i := range p.Guardians {
			g := p.Guardians[i]
			prefix := "guardian." + strconv.Itoa(i+1) + "."
			out = append(out,
				field{prefix + "full_name", func(*Profile) bool { return filled(g.FullName) }},
				field{prefix + "email", func(*Profile) bool { return filled(g.Email) }},
				field{prefix + "role", func(*Profile) bool { return filled(g.Role) }},
			)
			if g.Phone != "" {
				out = append(out, field{prefix + "phone", func(*Profile) bool { return filled(g.Phone) }})
			}
		}
		return out
	},
}

var adultSchema = []sectionSchema{
	identitySection,
	contactSection,
	familySection,
	professionalSection,
	adultDocumentsSection,
}

var minorSchema = []sectionSchema{
	minorIdentitySection,
	contactSection,
	minorDocumentsSection,
	parentalAuthoritySection,
}

// schemaFor selects the requirement schema for the profile's variant.
// Unknown variants fall back to the adult schema.
func schemaFor(v Variant) []sectionSchema {
	if v == VariantMinor {
		return minorSchema
	}
	return adultSchema
}
