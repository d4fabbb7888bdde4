package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/schema"
)

func sample() *schema.ParsedResume {
	return &schema.ParsedResume{
		Name:    "Jane <Doe>",
		Title:   "Engineer",
		Summary: strings.Repeat("a", schema.SummaryDisplayLimit+50),
		Contact: schema.Contact{Email: "jane@example.com", LinkedIn: "linkedin.com/in/jane"},
		Experience: []schema.Experience{
			{ID: "e1", Title: "SRE", Company: "Acme", Duration: "2020-2022", Details: []string{"Ran Kubernetes"}},
		},
		Skills:       []string{"Go", "Postgres"},
		ProfileImage: "https://cdn.example.com/jane.png",
		CustomColors: schema.Colors{schema.ColorPrimary: "#ff0000", schema.ColorAccent: "red;}body{display:none"},
	}
}

func TestParseTemplate(t *testing.T) {
	got, err := ParseTemplate("")
	require.NoError(t, err)
	assert.Equal(t, TemplateClassic, got)

	got, err = ParseTemplate("Modern")
	require.NoError(t, err)
	assert.Equal(t, TemplateModern, got)

	_, err = ParseTemplate("fancy")
	assert.Equal(t, apperror.CodeInvalidInput, apperror.CodeOf(err))
}

func TestHTMLRenderer_Render(t *testing.T) {
	r, err := NewHTMLRenderer()
	require.NoError(t, err)

	for _, tpl := range templates {
		t.Run(string(tpl), func(t *testing.T) {
			out, err := r.Render(sample(), tpl)
			require.NoError(t, err)

			assert.Contains(t, out, "theme-"+string(tpl))
			assert.Contains(t, out, "Jane &lt;Doe&gt;")
			assert.Contains(t, out, "--primary-color: #ff0000;")
			assert.NotContains(t, out, "display:none")
			assert.Contains(t, out, "--background-color: #ffffff;")
			assert.Contains(t, out, `src="https://cdn.example.com/jane.png"`)
			assert.Contains(t, out, `href="https://linkedin.com/in/jane"`)
			assert.Contains(t, out, "Ran Kubernetes")
			assert.Contains(t, out, strings.Repeat("a", schema.SummaryDisplayLimit)+"…")
			assert.NotContains(t, out, strings.Repeat("a", schema.SummaryDisplayLimit+1))
		})
	}
}

func TestHTMLRenderer_OmittedImage(t *testing.T) {
	r, err := NewHTMLRenderer()
	require.NoError(t, err)

	res := sample()
	res.ProfileImage = schema.ProfileImageOmitted
	out, err := r.Render(res, TemplateModern)
	require.NoError(t, err)
	assert.NotContains(t, out, `class="avatar"`)
}
