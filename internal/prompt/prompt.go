// Package prompt assembles the text sent to the language model. Every
// function here is pure.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/schema"
)

type Tone string

const (
	ToneFormal   Tone = "Formal"
	ToneNeutral  Tone = "Neutral"
	ToneCreative Tone = "Creative"
)

var toneGuidance = map[Tone]string{
	ToneFormal:   "Use precise, professional language with no colloquialisms.",
	ToneNeutral:  "Use clear, plain professional language.",
	ToneCreative: "Use vivid, energetic language while staying truthful.",
}

// ParseTone accepts a tone name case-insensitively. Blank means Neutral.
func ParseTone(s string) (Tone, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ToneNeutral, nil
	}
	for t := range toneGuidance {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", apperror.New(apperror.CodeInvalidInput, "Tone must be one of: Formal, Neutral, Creative")
}

// BuildTailoring asks the model to rewrite resume for jobSpec in the given
// tone and return a document that conforms to the resume schema.
func BuildTailoring(resume *schema.ParsedResume, jobSpec schema.JobSpec, tone Tone, extra string) string {
	if _, ok := toneGuidance[tone]; !ok {
		tone = ToneNeutral
	}
	resumeJSON, _ := json.MarshalIndent(resume, "", "  ")

	var sb strings.Builder
	sb.WriteString("You are an expert resume writer. Tailor the resume below to the target job.\n\n")

	sb.WriteString("Target job:\n")
	fmt.Fprintf(&sb, "- Position: %s\n", orNone(jobSpec.PositionTitle))
	fmt.Fprintf(&sb, "- Required skills: %s\n", joinOrNone(jobSpec.RequiredSkills))
	if jobSpec.YearsExperience != nil {
		fmt.Fprintf(&sb, "- Years of experience: %d\n", *jobSpec.YearsExperience)
	}
	fmt.Fprintf(&sb, "- Responsibilities: %s\n", joinOrNone(jobSpec.Responsibilities))
	fmt.Fprintf(&sb, "- Company values: %s\n\n", joinOrNone(jobSpec.CompanyValues))

	fmt.Fprintf(&sb, "Tone: %s. %s\n\n", tone, toneGuidance[tone])

	sb.WriteString("Rules:\n")
	sb.WriteString("- Never invent employers, dates, degrees or certifications.\n")
	sb.WriteString("- Reorder and rephrase experience details and skills to emphasise what the job asks for.\n")
	sb.WriteString("- Keep every existing \"id\" value unchanged.\n")
	sb.WriteString("- Keep \"profileImage\" and \"customColors\" exactly as given.\n")
	if extra = strings.TrimSpace(extra); extra != "" {
		fmt.Fprintf(&sb, "- Additional instructions from the candidate: %s\n", extra)
	}
	sb.WriteString("\n")

	sb.WriteString("Return ONLY a JSON object conforming to this JSON Schema, no markdown:\n")
	sb.WriteString(schema.ResumeSchemaText())
	sb.WriteString("\n\nResume:\n")
	sb.Write(resumeJSON)
	sb.WriteString("\n")
	return sb.String()
}

// JobCommentary is the short human-readable record of the job spec a resume
// was tailored against.
func JobCommentary(jobSpec schema.JobSpec, tone Tone) string {
	if jobSpec.IsEmpty() {
		return ""
	}
	parts := []string{"Tailored for " + orNone(jobSpec.PositionTitle)}
	if len(jobSpec.RequiredSkills) > 0 {
		parts = append(parts, "emphasising "+strings.Join(jobSpec.RequiredSkills, ", "))
	}
	if jobSpec.YearsExperience != nil {
		parts = append(parts, fmt.Sprintf("%d+ years", *jobSpec.YearsExperience))
	}
	if tone != "" {
		parts = append(parts, string(tone)+" tone")
	}
	return strings.Join(parts, "; ")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not specified)"
	}
	return s
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(not specified)"
	}
	return strings.Join(items, ", ")
}
