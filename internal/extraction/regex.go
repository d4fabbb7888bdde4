package extraction

import (
	"regexp"
	"strings"

	"github.com/fadilmartias/cv-builder/internal/schema"
)

type section int

const (
	sectionNone section = iota
	sectionSummary
	sectionExperience
	sectionEducation
	sectionSkills
	sectionCertifications
)

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`\+?\(?\d[\d \t().\-]{6,}\d`)
	linkedinRe = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/[^\s,;|]+`)
	githubRe   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/[^\s,;|]+`)
	urlRe      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s,;|]+`)

	headerRe = regexp.MustCompile(`(?i)^\s*(` + headerWords + `)\s*(:)?\s*(.*)$`)

	// a "Header:" label after other text on the same line
	inlineHeaderRe = regexp.MustCompile(`(?i)[\s|•·]((?:` + headerWords + `)\s*:)`)
)

const headerWords = `professional summary|summary|profile|objective|about me|work experience|professional experience|employment history|experience|education|technical skills|skills|licenses (?:and|&) certifications|certifications|certificates`

const month = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`

var (
	dateRangeRe  = regexp.MustCompile(`(?i)(?:` + month + `\s+)?\d{4}\s*(?:-|–|—|to)\s*(?:(?:` + month + `\s+)?\d{4}|present|current|now)`)
	singleYearRe = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•·▪‣◦]|\d+[.)])\s+`)
)

const separatorTrim = " \t,;|-–—()[]"

var sectionNames = map[string]section{
	"professional summary":        sectionSummary,
	"summary":                     sectionSummary,
	"profile":                     sectionSummary,
	"objective":                   sectionSummary,
	"about me":                    sectionSummary,
	"work experience":             sectionExperience,
	"professional experience":     sectionExperience,
	"employment history":          sectionExperience,
	"experience":                  sectionExperience,
	"education":                   sectionEducation,
	"technical skills":            sectionSkills,
	"skills":                      sectionSkills,
	"licenses and certifications": sectionCertifications,
	"licenses & certifications":   sectionCertifications,
	"certifications":              sectionCertifications,
	"certificates":                sectionCertifications,
}

// ParseResumeText extracts what it can from plain resume text using fixed
// patterns. It never fails; missing sections stay empty.
func ParseResumeText(text string) *schema.ParsedResume {
	r := &schema.ParsedResume{}
	extractContact(text, &r.Contact)

	var summary []string
	current := sectionNone
	headerLines := 0

	for _, line := range splitLines(text) {

		if m := headerRe.FindStringSubmatch(line); m != nil && (m[2] == ":" || m[3] == "") {
			current = sectionNames[strings.ToLower(m[1])]
			line = strings.TrimSpace(m[3])
			if line == "" {
				continue
			}
		}

		switch current {
		case sectionNone:
			if isContactLine(line) {
				if name := stripContact(line); r.Name == "" && looksLikeName(name) {
					r.Name = name
				}
				continue
			}
			headerLines++
			switch {
			case r.Name == "" && looksLikeName(line):
				r.Name = line
			case r.Title == "" && headerLines <= 3 && len(line) <= 80:
				r.Title = line
			}
		case sectionSummary:
			summary = append(summary, line)
		case sectionExperience:
			addExperienceLine(r, line)
		case sectionEducation:
			addEducationLine(r, line)
		case sectionSkills:
			r.Skills = appendSkills(r.Skills, line)
		case sectionCertifications:
			r.Certifications = append(r.Certifications, parseCertification(stripBullet(line)))
		}
	}

	r.Summary = strings.Join(summary, " ")
	schema.EnsureIDs(r)
	return r
}

// splitLines returns the non-empty trimmed lines of text, breaking a line
// again before each inline section label.
func splitLines(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		for line != "" {
			loc := inlineHeaderRe.FindStringSubmatchIndex(line)
			if loc == nil {
				out = append(out, line)
				break
			}
			if head := strings.TrimSpace(line[:loc[2]]); head != "" {
				out = append(out, head)
			}
			line = strings.TrimSpace(line[loc[2]:])
		}
	}
	return out
}

// stripContact removes contact details from a header line and returns the
// first remaining segment, e.g. the name in "John Smith | john@x.com".
func stripContact(line string) string {
	for _, re := range []*regexp.Regexp{emailRe, linkedinRe, githubRe, urlRe} {
		line = re.ReplaceAllString(line, "|")
	}
	line = phoneRe.ReplaceAllStringFunc(line, func(p string) string {
		if d := countDigits(p); d >= 7 && d <= 15 && !dateRangeRe.MatchString(p) {
			return "|"
		}
		return p
	})
	for _, part := range strings.FieldsFunc(line, func(r rune) bool {
		return r == '|' || r == ';' || r == ',' || r == '•' || r == '·'
	}) {
		if seg := strings.Trim(part, separatorTrim); seg != "" {
			return seg
		}
	}
	return ""
}

func extractContact(text string, c *schema.Contact) {
	c.Email = emailRe.FindString(text)
	if m := linkedinRe.FindString(text); m != "" {
		c.LinkedIn = m
	}
	if m := githubRe.FindString(text); m != "" {
		c.GitHub = m
	}
	for _, u := range urlRe.FindAllString(text, -1) {
		lower := strings.ToLower(u)
		if strings.Contains(lower, "linkedin.com") || strings.Contains(lower, "github.com") {
			continue
		}
		c.Website = u
		break
	}
	for _, p := range phoneRe.FindAllString(text, -1) {
		if dateRangeRe.MatchString(p) {
			continue
		}
		if digits := countDigits(p); digits >= 7 && digits <= 15 {
			c.Phone = strings.TrimSpace(p)
			break
		}
	}
}

func isContactLine(line string) bool {
	return emailRe.MatchString(line) || urlRe.MatchString(line) ||
		linkedinRe.MatchString(line) || githubRe.MatchString(line) ||
		(phoneRe.MatchString(line) && countDigits(line) >= 7 && !dateRangeRe.MatchString(line))
}

func looksLikeName(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 5 {
		return false
	}
	return !strings.ContainsAny(line, "0123456789@:/")
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func stripBullet(line string) string {
	return strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
}

func addExperienceLine(r *schema.ParsedResume, line string) {
	if bulletPrefix.MatchString(line) && len(r.Experience) > 0 {
		last := &r.Experience[len(r.Experience)-1]
		last.Details = append(last.Details, stripBullet(line))
		return
	}
	r.Experience = append(r.Experience, parseExperience(stripBullet(line)))
}

// parseExperience splits "Title at Company 2020-2022" and common variants.
func parseExperience(line string) schema.Experience {
	rest, duration := cutDuration(line)
	title, company := splitPair(rest, " at ", " @ ", "@", " | ", " - ", " – ", ", ")
	return schema.Experience{Title: title, Company: company, Duration: duration}
}

func addEducationLine(r *schema.ParsedResume, line string) {
	if bulletPrefix.MatchString(line) && len(r.Education) > 0 {
		last := &r.Education[len(r.Education)-1]
		note := stripBullet(line)
		if last.Note != "" {
			note = last.Note + "; " + note
		}
		last.Note = note
		return
	}
	rest, duration := cutDuration(stripBullet(line))
	if duration == "" {
		if y := singleYearRe.FindString(rest); y != "" {
			duration = y
			rest = strings.Trim(strings.Replace(rest, y, "", 1), separatorTrim)
		}
	}
	degree, institution := splitPair(rest, " at ", ", ", " - ", " – ", " | ")
	r.Education = append(r.Education, schema.Education{Degree: degree, Institution: institution, Duration: duration})
}

func parseCertification(line string) schema.Certification {
	rest := line
	date := ""
	if y := singleYearRe.FindString(rest); y != "" {
		date = y
		rest = strings.Trim(strings.Replace(rest, y, "", 1), separatorTrim)
	}
	name, issuer := splitPair(rest, " by ", " - ", " – ", " | ", ", ")
	return schema.Certification{Name: name, Issuer: issuer, Date: date}
}

func appendSkills(skills []string, line string) []string {
	line = stripBullet(line)
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		seen[strings.ToLower(s)] = true
	}
	for _, part := range strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '•' || r == '·'
	}) {
		skill := strings.Trim(part, separatorTrim)
		if skill == "" || seen[strings.ToLower(skill)] {
			continue
		}
		seen[strings.ToLower(skill)] = true
		skills = append(skills, skill)
	}
	return skills
}

func cutDuration(line string) (rest, duration string) {
	loc := dateRangeRe.FindStringIndex(line)
	if loc == nil {
		return strings.Trim(line, separatorTrim), ""
	}
	duration = strings.TrimSpace(line[loc[0]:loc[1]])
	rest = strings.Trim(line[:loc[0]]+" "+line[loc[1]:], separatorTrim)
	return strings.Join(strings.Fields(rest), " "), duration
}

// splitPair cuts s at the first separator found, trying them in order.
func splitPair(s string, seps ...string) (left, right string) {
	for _, sep := range seps {
		if i := strings.Index(s, sep); i > 0 {
			return strings.Trim(s[:i], separatorTrim), strings.Trim(s[i+len(sep):], separatorTrim)
		}
	}
	return strings.Trim(s, separatorTrim), ""
}
