package profile

import "math"

// SectionScore is the completion breakdown for one profile section.
type SectionScore struct {
	Name          string   `json:"name"`
	Completed     int      `json:"completed"`
	Total         int      `json:"total"`
	Percentage    int      `json:"percentage"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// Completion is the scorer's full result.
type Completion struct {
	Overall   int            `json:"overall"`
	CanSubmit bool           `json:"can_submit"`
	Sections  []SectionScore `json:"sections"`
}

// IsComplete reports whether every required field is populated.
func (c Completion) IsComplete() bool { return c.Overall == 100 }

// Score computes per-section and overall completion for a profile snapshot.
//
// The function is pure: identical snapshots always yield identical results,
// independent of call order. Required-field lists are resolved from the
// snapshot itself before counting, so conditional requirements (married adds
// a spouse name, employee adds employer fields) are part of the same
// evaluation that counts them.
func Score(p *Profile) Completion {
	schema := schemaFor(p.Variant)

	sections := make([]SectionScore, 0, len(schema))
	totalRequired := 0
	totalCompleted := 0

	for _, section := range schema {
		required := section.resolve(p)
		score := SectionScore{
			Name:  section.name,
			Total: len(required),
		}
		for _, f := range required {
			if f.present(p) {
				score.Completed++
			} else {
				score.MissingFields = append(score.MissingFields, f.name)
			}
		}
		score.Percentage = percentage(score.Completed, score.Total)
		totalRequired += score.Total
		totalCompleted += score.Completed
		sections = append(sections, score)
	}

	overall := percentage(totalCompleted, totalRequired)
	return Completion{
		Overall:   overall,
		CanSubmit: overall == 100,
		Sections:  sections,
	}
}

// percentage rounds to the nearest integer and is defined as 0 when the
// denominator is 0.
func percentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
