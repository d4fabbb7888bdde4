// Package schema holds the canonical resume and job-spec shapes and validates
// untrusted JSON (usually model output) against them.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ProfileImageOmitted marks an image the user removed on purpose.
const ProfileImageOmitted = "omitted"

type Contact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Website  string `json:"website,omitempty"`
}

func (c Contact) IsEmpty() bool {
	return c == Contact{}
}

type Experience struct {
	ID       string   `json:"id,omitempty"`
	Title    string   `json:"title,omitempty"`
	Company  string   `json:"company,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Details  []string `json:"details,omitempty"`
}

// UnmarshalJSON accepts "role" as an alias for "title".
func (e *Experience) UnmarshalJSON(data []byte) error {
	type plain Experience
	var aux struct {
		plain
		Role string `json:"role"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Experience(aux.plain)
	if e.Title == "" {
		e.Title = aux.Role
	}
	return nil
}

type Education struct {
	ID          string `json:"id,omitempty"`
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Note        string `json:"note,omitempty"`
}

type Certification struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
}

// ParsedResume is the structured resume document. Order of every list is
// meaningful and preserved.
type ParsedResume struct {
	Name           string          `json:"name,omitempty"`
	Title          string          `json:"title,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Contact        Contact         `json:"contact"`
	Experience     []Experience    `json:"experience,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Skills         []string        `json:"skills,omitempty"`
	ProfileImage   string          `json:"profileImage,omitempty"`
	CustomColors   Colors          `json:"customColors,omitempty"`
}

// IsEmpty reports whether the document carries no resume content at all.
// Presentation-only fields are ignored.
func (r *ParsedResume) IsEmpty() bool {
	if r == nil {
		return true
	}
	return strings.TrimSpace(r.Name) == "" &&
		strings.TrimSpace(r.Title) == "" &&
		strings.TrimSpace(r.Summary) == "" &&
		r.Contact.IsEmpty() &&
		len(r.Experience) == 0 &&
		len(r.Education) == 0 &&
		len(r.Certifications) == 0 &&
		len(r.Skills) == 0
}

// HasProfileImage treats both "" and the omitted sentinel as no image.
func (r *ParsedResume) HasProfileImage() bool {
	img := strings.TrimSpace(r.ProfileImage)
	return img != "" && img != ProfileImageOmitted
}

// Completeness is the share of the core sections that are populated.
func (r *ParsedResume) Completeness() float64 {
	if r == nil {
		return 0
	}
	checks := []bool{
		strings.TrimSpace(r.Name) != "",
		r.Contact.Email != "",
		r.Contact.Phone != "",
		strings.TrimSpace(r.Summary) != "" || strings.TrimSpace(r.Title) != "",
		len(r.Experience) > 0,
		len(r.Education) > 0,
		len(r.Skills) > 0,
	}
	hit := 0
	for _, ok := range checks {
		if ok {
			hit++
		}
	}
	return float64(hit) / float64(len(checks))
}

// Clone returns a deep copy.
func (r *ParsedResume) Clone() *ParsedResume {
	if r == nil {
		return nil
	}
	out := *r
	out.Experience = make([]Experience, len(r.Experience))
	for i, e := range r.Experience {
		e.Details = append([]string(nil), e.Details...)
		out.Experience[i] = e
	}
	if r.Experience == nil {
		out.Experience = nil
	}
	out.Education = append([]Education(nil), r.Education...)
	out.Certifications = append([]Certification(nil), r.Certifications...)
	out.Skills = append([]string(nil), r.Skills...)
	if r.CustomColors != nil {
		out.CustomColors = make(Colors, len(r.CustomColors))
		for k, v := range r.CustomColors {
			out.CustomColors[k] = v
		}
	}
	return &out
}

// JobSpec is the transient extraction of a job posting used to ground a
// tailoring prompt. It is never stored on its own.
type JobSpec struct {
	PositionTitle    string   `json:"positionTitle"`
	RequiredSkills   []string `json:"requiredSkills,omitempty"`
	YearsExperience  *int     `json:"yearsExperience,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	CompanyValues    []string `json:"companyValues,omitempty"`
}

// UnmarshalJSON accepts integral floats such as 5.0 for yearsExperience,
// which JSON Schema counts as integers.
func (j *JobSpec) UnmarshalJSON(data []byte) error {
	type plain JobSpec
	aux := struct {
		*plain
		YearsExperience *float64 `json:"yearsExperience"`
	}{plain: (*plain)(j)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	j.YearsExperience = nil
	if aux.YearsExperience != nil {
		v := *aux.YearsExperience
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return fmt.Errorf("yearsExperience: %v is not a whole number", v)
		}
		n := int(v)
		j.YearsExperience = &n
	}
	return nil
}

func (j JobSpec) IsEmpty() bool {
	return strings.TrimSpace(j.PositionTitle) == "" &&
		len(j.RequiredSkills) == 0 &&
		j.YearsExperience == nil &&
		len(j.Responsibilities) == 0 &&
		len(j.CompanyValues) == 0
}

type JobSpecSource string

const (
	JobSpecSourcePaste JobSpecSource = "paste"
	JobSpecSourceFile  JobSpecSource = "file"
)

// UserAdditionalContext records the inputs of a tailoring run for audit. It is
// not used to re-run tailoring.
type UserAdditionalContext struct {
	JobSpecSource JobSpecSource `json:"jobSpecSource,omitempty"`
	JobSpecFile   string        `json:"jobSpecFile,omitempty"`
	Tone          string        `json:"tone,omitempty"`
	ExtraPrompt   string        `json:"extraPrompt,omitempty"`
}
