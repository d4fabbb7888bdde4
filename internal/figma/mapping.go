package figma

import (
	"strings"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/schema"
)

type Field string

const (
	FieldLiteral        Field = ""
	FieldName           Field = "name"
	FieldTitle          Field = "title"
	FieldEmail          Field = "contact.email"
	FieldPhone          Field = "contact.phone"
	FieldLocation       Field = "contact.location"
	FieldLinkedIn       Field = "contact.linkedin"
	FieldGitHub         Field = "contact.github"
	FieldWebsite        Field = "contact.website"
	FieldSummary        Field = "summary"
	FieldExperience     Field = "experience"
	FieldEducation      Field = "education"
	FieldSkills         Field = "skills"
	FieldCertifications Field = "certifications"
)

var knownFields = map[Field]bool{
	FieldName: true, FieldTitle: true, FieldEmail: true, FieldPhone: true,
	FieldLocation: true, FieldLinkedIn: true, FieldGitHub: true, FieldWebsite: true,
	FieldSummary: true, FieldExperience: true, FieldEducation: true,
	FieldSkills: true, FieldCertifications: true,
}

// ParseField accepts the dotted names above plus the bare contact keys
// ("email", "phone", ...).
func ParseField(s string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if knownFields[f] {
		return f, true
	}
	if knownFields["contact."+f] {
		return "contact." + f, true
	}
	return "", false
}

// Rule maps a node to a field when any keyword occurs in its lower-cased
// name or text.
type Rule struct {
	Target   Field
	Keywords []string
}

func (r Rule) Match(haystack string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(haystack, k) {
			return true
		}
	}
	return false
}

// Rules are tried in order; the first match wins.
var Rules = []Rule{
	{FieldName, []string{"name"}},
	{FieldTitle, []string{"title", "job", "position", "role"}},
	{FieldEmail, []string{"email", "e-mail"}},
	{FieldPhone, []string{"phone", "mobile", "tel"}},
	{FieldLocation, []string{"location", "address", "city"}},
	{FieldLinkedIn, []string{"linkedin"}},
	{FieldGitHub, []string{"github"}},
	{FieldWebsite, []string{"website", "portfolio", "url"}},
	{FieldSummary, []string{"summary", "profile", "objective"}},
	{FieldExperience, []string{"experience", "work", "employment"}},
	{FieldEducation, []string{"education", "degree", "university"}},
	{FieldSkills, []string{"skill"}},
	{FieldCertifications, []string{"certif", "license"}},
}

type Strategy string

const (
	StrategyPreserveLayout Strategy = "preserve_layout"
	StrategyContentFirst   Strategy = "content_first"
	StrategyHybrid         Strategy = "hybrid"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return StrategyPreserveLayout, nil
	case StrategyPreserveLayout:
		return StrategyPreserveLayout, nil
	case StrategyContentFirst:
		return StrategyContentFirst, nil
	case StrategyHybrid:
		return StrategyHybrid, nil
	}
	return "", apperror.New(apperror.CodeInvalidInput, "adaptationStrategy must be one of: preserve_layout, content_first, hybrid")
}

// Mapping records what one text node will display.
type Mapping struct {
	NodeID   string `json:"nodeId"`
	NodeName string `json:"nodeName"`
	Field    Field  `json:"field,omitempty"`
	Source   string `json:"source"` // custom | rule | preserved | literal
	Text     string `json:"text"`
}

type MappingOptions struct {
	// CustomMappings maps a node id or node name to a field and wins over
	// the rule table.
	CustomMappings   map[string]string
	PreserveElements []string
}

// MapContent decides the text of every TEXT node under roots.
func MapContent(roots []*Node, resume *schema.ParsedResume, opts MappingOptions) ([]Mapping, error) {
	custom := make(map[string]Field, len(opts.CustomMappings))
	for key, value := range opts.CustomMappings {
		f, ok := ParseField(value)
		if !ok {
			return nil, apperror.New(apperror.CodeInvalidInput, "customMappings: unknown resume field "+value)
		}
		custom[strings.ToLower(strings.TrimSpace(key))] = f
	}
	preserve := make(map[string]bool, len(opts.PreserveElements))
	for _, p := range opts.PreserveElements {
		preserve[strings.ToLower(strings.TrimSpace(p))] = true
	}

	var out []Mapping
	for _, root := range roots {
		root.Walk(func(n *Node) {
			if !n.IsText() {
				return
			}
			m := Mapping{NodeID: n.ID, NodeName: n.Name, Text: n.Characters, Source: "literal"}
			idKey, nameKey := strings.ToLower(n.ID), strings.ToLower(n.Name)

			switch {
			case preserve[idKey] || preserve[nameKey]:
				m.Source = "preserved"
			case custom[idKey] != "":
				m.Field, m.Source = custom[idKey], "custom"
			case custom[nameKey] != "":
				m.Field, m.Source = custom[nameKey], "custom"
			default:
				haystack := nameKey + " " + strings.ToLower(n.Characters)
				for _, r := range Rules {
					if r.Match(haystack) {
						m.Field, m.Source = r.Target, "rule"
						break
					}
				}
			}

			if m.Field != FieldLiteral {
				if v := FieldValue(resume, m.Field); v != "" {
					m.Text = v
				}
			}
			out = append(out, m)
		})
	}
	return out, nil
}

// FieldValue renders one resume field as display text. Lists are joined
// line by line.
func FieldValue(r *schema.ParsedResume, f Field) string {
	if r == nil {
		return ""
	}
	switch f {
	case FieldName:
		return r.Name
	case FieldTitle:
		return r.Title
	case FieldEmail:
		return r.Contact.Email
	case FieldPhone:
		return r.Contact.Phone
	case FieldLocation:
		return r.Contact.Location
	case FieldLinkedIn:
		return r.Contact.LinkedIn
	case FieldGitHub:
		return r.Contact.GitHub
	case FieldWebsite:
		return r.Contact.Website
	case FieldSummary:
		return schema.TruncateSummary(r.Summary)
	case FieldSkills:
		return strings.Join(r.Skills, ", ")
	case FieldExperience:
		lines := make([]string, 0, len(r.Experience))
		for _, e := range r.Experience {
			lines = append(lines, joinNonEmpty(" · ", joinNonEmpty(" at ", e.Title, e.Company), e.Duration))
		}
		return strings.Join(lines, "\n")
	case FieldEducation:
		lines := make([]string, 0, len(r.Education))
		for _, e := range r.Education {
			lines = append(lines, joinNonEmpty(" · ", joinNonEmpty(", ", e.Degree, e.Institution), e.Duration))
		}
		return strings.Join(lines, "\n")
	case FieldCertifications:
		lines := make([]string, 0, len(r.Certifications))
		for _, c := range r.Certifications {
			lines = append(lines, joinNonEmpty(" · ", c.Name, c.Issuer, c.Date))
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

// UnmappedFields lists the non-empty resume fields no node displays, in
// resume order.
func UnmappedFields(r *schema.ParsedResume, mappings []Mapping) []Field {
	used := map[Field]bool{}
	for _, m := range mappings {
		used[m.Field] = true
	}
	order := []Field{
		FieldName, FieldTitle, FieldEmail, FieldPhone, FieldLocation, FieldLinkedIn,
		FieldGitHub, FieldWebsite, FieldSummary, FieldExperience, FieldEducation,
		FieldSkills, FieldCertifications,
	}
	var out []Field
	for _, f := range order {
		if !used[f] && FieldValue(r, f) != "" {
			out = append(out, f)
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
