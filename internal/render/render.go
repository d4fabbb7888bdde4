// Package render turns a ParsedResume into a standalone HTML page or a PDF.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/schema"
)

//go:embed templates/*.html
var templateFS embed.FS

type Template string

const (
	TemplateClassic Template = "classic"
	TemplateModern  Template = "modern"
	TemplateMinimal Template = "minimal"
)

var templates = []Template{TemplateClassic, TemplateModern, TemplateMinimal}

// ParseTemplate defaults to classic when s is blank.
func ParseTemplate(s string) (Template, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TemplateClassic, nil
	}
	for _, t := range templates {
		if string(t) == s {
			return t, nil
		}
	}
	return "", apperror.New(apperror.CodeInvalidInput, "Template must be one of: classic, modern, minimal")
}

var safeColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20}|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\))$`)

type view struct {
	R         *schema.ParsedResume
	Theme     Template
	Summary   string
	ShowImage bool
	RootCSS   template.CSS
}

type HTMLRenderer struct {
	tpls map[Template]*template.Template
}

func NewHTMLRenderer() (*HTMLRenderer, error) {
	funcs := template.FuncMap{"link": normalizeLink}
	r := &HTMLRenderer{tpls: make(map[Template]*template.Template, len(templates))}
	for _, t := range templates {
		tpl, err := template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+string(t)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", t, err)
		}
		r.tpls[t] = tpl
	}
	return r, nil
}

func (r *HTMLRenderer) Render(resume *schema.ParsedResume, t Template) (string, error) {
	tpl, ok := r.tpls[t]
	if !ok {
		return "", apperror.New(apperror.CodeInvalidInput, fmt.Sprintf("unknown template %q", t))
	}
	if resume == nil {
		resume = &schema.ParsedResume{}
	}

	var buf bytes.Buffer
	err := tpl.Execute(&buf, view{
		R:         resume,
		Theme:     t,
		Summary:   schema.TruncateSummary(resume.Summary),
		ShowImage: resume.HasProfileImage(),
		RootCSS:   rootCSS(resume.CustomColors),
	})
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", t, err)
	}
	return buf.String(), nil
}

// rootCSS declares every color property, using defaults for missing or
// unsafe values.
func rootCSS(colors schema.Colors) template.CSS {
	defaults := schema.Colors(nil).Resolve()
	resolved := colors.Resolve()

	var sb strings.Builder
	sb.WriteString(":root {")
	for _, key := range schema.ColorKeys() {
		value := strings.TrimSpace(resolved[key])
		if !safeColor.MatchString(value) {
			value = defaults[key]
		}
		fmt.Fprintf(&sb, " %s: %s;", key, value)
	}
	sb.WriteString(" }")
	return template.CSS(sb.String())
}

func normalizeLink(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s
	}
	return "https://" + s
}
