package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadilmartias/cv-builder/internal/service"
	"github.com/fadilmartias/cv-builder/internal/service/aitest"
)

const resumeText = `Jane Doe
Senior Backend Engineer
jane.doe@example.com | +1 (555) 123-4567
linkedin.com/in/janedoe | github.com/janedoe | https://janedoe.dev

Summary
Backend engineer with 8 years building APIs.

Experience
Senior Engineer at Acme Corp Jan 2020 - Present
- Led migration to Go
- Cut latency by 40%
Engineer | Globex 2016-2019

Education
BSc Computer Science, MIT 2016

Skills: Go, PostgreSQL, Kubernetes; Redis

Certifications
Certified Kubernetes Administrator - CNCF 2021
`

func TestParseResumeText(t *testing.T) {
	r := ParseResumeText(resumeText)

	assert.Equal(t, "Jane Doe", r.Name)
	assert.Equal(t, "Senior Backend Engineer", r.Title)
	assert.Equal(t, "jane.doe@example.com", r.Contact.Email)
	assert.Equal(t, "+1 (555) 123-4567", r.Contact.Phone)
	assert.Equal(t, "linkedin.com/in/janedoe", r.Contact.LinkedIn)
	assert.Equal(t, "github.com/janedoe", r.Contact.GitHub)
	assert.Equal(t, "https://janedoe.dev", r.Contact.Website)
	assert.Equal(t, "Backend engineer with 8 years building APIs.", r.Summary)

	require.Len(t, r.Experience, 2)
	assert.Equal(t, "Senior Engineer", r.Experience[0].Title)
	assert.Equal(t, "Acme Corp", r.Experience[0].Company)
	assert.Equal(t, "Jan 2020 - Present", r.Experience[0].Duration)
	assert.Equal(t, []string{"Led migration to Go", "Cut latency by 40%"}, r.Experience[0].Details)
	assert.Equal(t, "Engineer", r.Experience[1].Title)
	assert.Equal(t, "Globex", r.Experience[1].Company)
	assert.NotEqual(t, r.Experience[0].ID, r.Experience[1].ID)

	require.Len(t, r.Education, 1)
	assert.Equal(t, "BSc Computer Science", r.Education[0].Degree)
	assert.Equal(t, "MIT", r.Education[0].Institution)
	assert.Equal(t, "2016", r.Education[0].Duration)

	assert.Equal(t, []string{"Go", "PostgreSQL", "Kubernetes", "Redis"}, r.Skills)

	require.Len(t, r.Certifications, 1)
	assert.Equal(t, "Certified Kubernetes Administrator", r.Certifications[0].Name)
	assert.Equal(t, "CNCF", r.Certifications[0].Issuer)
	assert.Equal(t, "2021", r.Certifications[0].Date)
}

func TestParseResumeText_InlineExperienceHeader(t *testing.T) {
	r := ParseResumeText("Experience: Engineer at Acme 2020-2022")
	require.Len(t, r.Experience, 1)
	assert.Equal(t, "Engineer", r.Experience[0].Title)
	assert.Equal(t, "Acme", r.Experience[0].Company)
	assert.Equal(t, "2020-2022", r.Experience[0].Duration)
}

func TestParseResumeText_NameOnContactLine(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		company string
	}{
		{"piped header", "John Smith | john@example.com | +1 555 123 4567\nExperience: Engineer at Acme 2020-2022", "Acme"},
		{"single line", "John Smith john@example.com Experience: Engineer at Acme 2020-2022", "Acme"},
		{"contact only", "john@example.com | +1 555 123 4567\nJohn Smith", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseResumeText(tt.text)
			assert.Equal(t, "John Smith", r.Name)
			assert.Equal(t, "john@example.com", r.Contact.Email)
			if tt.company == "" {
				assert.Empty(t, r.Experience)
				return
			}
			require.Len(t, r.Experience, 1)
			assert.Equal(t, "Engineer", r.Experience[0].Title)
			assert.Equal(t, tt.company, r.Experience[0].Company)
			assert.Equal(t, "2020-2022", r.Experience[0].Duration)
		})
	}
}

func TestParseResumeText_InlineSections(t *testing.T) {
	r := ParseResumeText("Ada Lovelace Summary: Writes analytical notes. Skills: math, poetry")
	assert.Equal(t, "Ada Lovelace", r.Name)
	assert.Equal(t, "Writes analytical notes.", r.Summary)
	assert.Equal(t, []string{"math", "poetry"}, r.Skills)
}

func TestParseResumeText_SectionWordIsNotHeader(t *testing.T) {
	r := ParseResumeText("John Smith\nExperienced platform engineer")
	assert.Equal(t, "John Smith", r.Name)
	assert.Equal(t, "Experienced platform engineer", r.Title)
	assert.Empty(t, r.Experience)
}

func TestRegexStrategy(t *testing.T) {
	out := RegexStrategy{}.Extract(context.Background(), Input{Text: "just some words"})
	require.True(t, out.Ok())
	assert.Equal(t, MethodRegex, out.Result.Method)
	assert.GreaterOrEqual(t, out.Result.Confidence, 0.0)
	assert.LessOrEqual(t, out.Result.Confidence, 0.6)

	out = RegexStrategy{}.Extract(context.Background(), Input{Text: "   "})
	assert.ErrorIs(t, out.Err, ErrEmptyInput)
}

func TestResumeExtractor(t *testing.T) {
	validJSON := `{"name":"Jane Doe","contact":{"email":"jane@example.com"},"skills":["Go"]}`

	cases := []struct {
		name       string
		client     service.AIClient
		wantMethod Method
	}{
		{"ai success", &aitest.FakeClient{Replies: []aitest.Reply{{Text: validJSON}}}, MethodAI},
		{"provider error", &aitest.FakeClient{Replies: []aitest.Reply{{Err: &service.ProviderError{Provider: "fake", StatusCode: 500}}}}, MethodRegex},
		{"invalid json", &aitest.FakeClient{Replies: []aitest.Reply{{Text: `{"name":`}}}, MethodRegex},
		{"schema violation", &aitest.FakeClient{Replies: []aitest.Reply{{Text: `{"skills":"Go"}`}}}, MethodRegex},
		{"empty document", &aitest.FakeClient{Replies: []aitest.Reply{{Text: `{}`}}}, MethodRegex},
		{"timeout", &aitest.FakeClient{Block: true}, MethodRegex},
		{"ai disabled", nil, MethodRegex},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ex := NewResumeExtractor(tc.client, 50*time.Millisecond)
			res, err := ex.Extract(context.Background(), Input{Text: resumeText, PDF: []byte("%PDF")})
			require.NoError(t, err)
			assert.Equal(t, tc.wantMethod, res.Method)
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
			if tc.wantMethod == MethodAI {
				assert.Equal(t, "Jane Doe", res.Resume.Name)
				assert.GreaterOrEqual(t, res.Confidence, 0.5)
			} else {
				assert.Equal(t, "jane.doe@example.com", res.Resume.Contact.Email)
			}
		})
	}
}

func TestResumeExtractor_SendsPDFAttachment(t *testing.T) {
	fake := &aitest.FakeClient{Replies: []aitest.Reply{{Text: `{"name":"Jane"}`}}}
	_, err := NewResumeExtractor(fake, time.Second).Extract(context.Background(), Input{Text: "Jane", PDF: []byte("%PDF")})
	require.NoError(t, err)
	require.Len(t, fake.Attach, 1)
	require.Len(t, fake.Attach[0], 1)
	assert.Equal(t, "application/pdf", fake.Attach[0][0].MIMEType)
}

func TestResumeExtractor_EmptyInputFails(t *testing.T) {
	_, err := NewResumeExtractor(nil, 0).Extract(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestJobSpecExtractor(t *testing.T) {
	good := &JobSpecExtractor{Client: &aitest.FakeClient{Replies: []aitest.Reply{{Text: `{"positionTitle":"SRE","requiredSkills":["Go"]}`}}}}
	spec, degraded := good.Extract(context.Background(), "We hire an SRE")
	assert.False(t, degraded)
	assert.Equal(t, "SRE", spec.PositionTitle)

	failing := []*JobSpecExtractor{
		{Client: &aitest.FakeClient{Replies: []aitest.Reply{{Err: errors.New("boom")}}}},
		{Client: &aitest.FakeClient{Replies: []aitest.Reply{{Text: `{"requiredSkills":["Go"]}`}}}},
		{Client: &aitest.FakeClient{Block: true}, Timeout: 20 * time.Millisecond},
		{},
	}
	for i, ex := range failing {
		spec, degraded := ex.Extract(context.Background(), "We hire an SRE")
		assert.True(t, degraded, "case %d", i)
		assert.True(t, spec.IsEmpty(), "case %d", i)
	}
}
