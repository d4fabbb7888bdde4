package prompt

import (
	"fmt"
	"strings"
)

// Field describes one key of the JSON object the model must return.
type Field struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

type ExtractionSchema struct {
	Description string
	Fields      []Field
}

var ResumeExtraction = ExtractionSchema{
	Description: "You extract structured data from a resume. The resume text follows; a PDF copy may also be attached.",
	Fields: []Field{
		{Name: "name", Type: "string", Description: "full name of the candidate"},
		{Name: "title", Type: "string", Description: "current or desired professional title"},
		{Name: "summary", Type: "string", Description: "profile or objective paragraph"},
		{Name: "contact", Type: "object", Description: "email, phone, location, linkedin, github, website (strings)"},
		{Name: "experience", Type: "array", Description: "objects with title, company, duration, details (array of strings), most recent first"},
		{Name: "education", Type: "array", Description: "objects with degree, institution, duration, note"},
		{Name: "certifications", Type: "array", Description: "objects with name, issuer, date"},
		{Name: "skills", Type: "array of strings"},
	},
}

var JobSpecExtraction = ExtractionSchema{
	Description: "You extract the key requirements from a job posting.",
	Fields: []Field{
		{Name: "positionTitle", Type: "string", Required: true},
		{Name: "requiredSkills", Type: "array of strings"},
		{Name: "yearsExperience", Type: "integer or null", Description: "minimum years required, null if not stated"},
		{Name: "responsibilities", Type: "array of strings"},
		{Name: "companyValues", Type: "array of strings"},
	},
}

// BuildExtraction renders s as an instruction block followed by the input.
func BuildExtraction(s ExtractionSchema, inputText string) string {
	var sb strings.Builder
	sb.WriteString(s.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range s.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		fmt.Fprintf(&sb, "  %q: %s", field.Name, typeHint)
		if field.Required {
			sb.WriteString(" (required)")
		}
		if field.Description != "" {
			fmt.Fprintf(&sb, " // %s", field.Description)
		}
		if i < len(s.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Use null or omit a key when the information is absent.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")
	return sb.String()
}

func BuildResumeExtraction(text string) string {
	return BuildExtraction(ResumeExtraction, text)
}

func BuildJobSpecExtraction(text string) string {
	return BuildExtraction(JobSpecExtraction, text)
}
