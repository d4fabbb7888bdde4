package figma

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/fadilmartias/cv-builder/internal/schema"
)

type Component struct {
	Name string `json:"name"`
	JSX  string `json:"jsx"`
	CSS  string `json:"css"`
}

type element struct {
	Indent   string
	Tag      string
	Class    string
	Field    Field
	Text     string // JSON-quoted so it is a safe JSX expression
	Children []*element
}

type cssRule struct {
	Selector string
	Decls    []string
}

var jsxTemplate = template.Must(template.New("jsx").Parse(`{{define "node" -}}
{{.Indent}}<{{.Tag}} className="{{.Class}}"{{with .Field}} data-field="{{.}}"{{end}}>
{{- if .Children}}
{{range .Children}}{{template "node" .}}{{end}}{{.Indent}}</{{.Tag}}>
{{else}}{{"{"}}{{.Text}}{{"}"}}</{{.Tag}}>
{{end}}
{{- end -}}
import React from 'react';
import './{{.Name}}.css';

export default function {{.Name}}() {
  return (
{{template "node" .Root}}  );
}
`))

var cssTemplate = template.Must(template.New("css").Parse(`:root {
{{- range .Vars}}
  {{.}};
{{- end}}
}
{{range .Rules}}
{{.Selector}} {
{{- range .Decls}}
  {{.}};
{{- end}}
}
{{end}}`))

var containerTypes = map[string]bool{
	"DOCUMENT": true, "CANVAS": true, "FRAME": true, "GROUP": true,
	"COMPONENT": true, "COMPONENT_SET": true, "INSTANCE": true, "SECTION": true,
}

type generator struct {
	mappings map[string]Mapping
	styles   Styles
	rules    []cssRule
}

// Generate builds the JSX component and its stylesheet.
func Generate(name string, roots []*Node, mappings []Mapping, styles Styles, strategy Strategy, resume *schema.ParsedResume) (Component, error) {
	g := &generator{mappings: make(map[string]Mapping, len(mappings)), styles: styles}
	for _, m := range mappings {
		g.mappings[m.NodeID] = m
	}

	root := &element{Indent: "    ", Tag: "div", Class: "figma-resume"}
	g.rules = append(g.rules, cssRule{Selector: ".figma-resume", Decls: g.rootDecls()})

	switch strategy {
	case StrategyContentFirst:
		root.Children = g.contentFirst(resume, mappings, root.Indent+"  ")
	default:
		for _, r := range roots {
			if el := g.fromNode(r, root.Indent+"  "); el != nil {
				root.Children = append(root.Children, el)
			}
		}
		if strategy == StrategyHybrid {
			if extra := g.extraSection(resume, mappings, root.Indent+"  "); extra != nil {
				root.Children = append(root.Children, extra)
			}
		}
	}

	var jsx bytes.Buffer
	if err := jsxTemplate.Execute(&jsx, map[string]any{"Name": name, "Root": root}); err != nil {
		return Component{}, fmt.Errorf("render jsx: %w", err)
	}

	vars := make([]string, 0, len(styles.Colors))
	for _, k := range schema.ColorKeys() {
		if v, ok := styles.Colors[k]; ok {
			vars = append(vars, k+": "+v)
		}
	}
	var css bytes.Buffer
	if err := cssTemplate.Execute(&css, map[string]any{"Vars": vars, "Rules": g.rules}); err != nil {
		return Component{}, fmt.Errorf("render css: %w", err)
	}
	return Component{Name: name, JSX: jsx.String(), CSS: css.String()}, nil
}

func (g *generator) rootDecls() []string {
	decls := []string{"background: var(--background-color)", "color: var(--text-color)"}
	if len(g.styles.Fonts) > 0 {
		decls = append(decls, fmt.Sprintf("font-family: %q, sans-serif", g.styles.Fonts[0]))
	}
	return decls
}

func (g *generator) fromNode(n *Node, indent string) *element {
	if n.IsText() {
		m, ok := g.mappings[n.ID]
		if !ok {
			m = Mapping{NodeID: n.ID, Text: n.Characters}
		}
		return g.textElement(n, m.Field, m.Text, indent)
	}
	if !containerTypes[n.Type] {
		return nil
	}
	el := &element{Indent: indent, Tag: "div", Class: className(n)}
	for _, c := range n.Children {
		if child := g.fromNode(c, indent+"  "); child != nil {
			el.Children = append(el.Children, child)
		}
	}
	if len(el.Children) == 0 {
		el.Text = `""`
	}
	g.addRule(el.Class, g.styles.Nodes[n.ID], "")
	return el
}

func (g *generator) textElement(n *Node, field Field, text, indent string) *element {
	style := g.styles.Nodes[n.ID]
	el := &element{
		Indent: indent,
		Tag:    tagFor(field, style.FontSize),
		Class:  className(n),
		Field:  field,
		Text:   quote(text),
	}
	multiline := ""
	if strings.Contains(text, "\n") {
		multiline = "white-space: pre-line"
	}
	g.addRule(el.Class, style, multiline)
	return el
}

// contentFirst lays resume fields out in resume order, borrowing the style
// of whichever node was mapped to each field.
func (g *generator) contentFirst(resume *schema.ParsedResume, mappings []Mapping, indent string) []*element {
	styled := map[Field]string{}
	for _, m := range mappings {
		if m.Field != FieldLiteral && styled[m.Field] == "" {
			styled[m.Field] = m.NodeID
		}
	}
	var out []*element
	for _, f := range allFields {
		value := FieldValue(resume, f)
		if value == "" {
			continue
		}
		n := &Node{ID: styled[f], Name: "field " + string(f), Type: "TEXT"}
		out = append(out, g.textElement(n, f, value, indent))
	}
	return out
}

func (g *generator) extraSection(resume *schema.ParsedResume, mappings []Mapping, indent string) *element {
	missing := UnmappedFields(resume, mappings)
	if len(missing) == 0 {
		return nil
	}
	sec := &element{Indent: indent, Tag: "section", Class: "figma-extra"}
	for _, f := range missing {
		n := &Node{Name: "extra " + string(f), Type: "TEXT"}
		sec.Children = append(sec.Children, g.textElement(n, f, FieldValue(resume, f), indent+"  "))
	}
	g.rules = append(g.rules, cssRule{Selector: ".figma-extra", Decls: []string{"margin-top: 16px"}})
	return sec
}

func (g *generator) addRule(class string, st NodeStyle, extra string) {
	var decls []string
	if st.Color != "" {
		decls = append(decls, "color: "+st.Color)
	}
	if st.Background != "" {
		decls = append(decls, "background: "+st.Background)
	}
	if st.FontFamily != "" {
		decls = append(decls, fmt.Sprintf("font-family: %q, sans-serif", st.FontFamily))
	}
	if st.FontSize > 0 {
		decls = append(decls, fmt.Sprintf("font-size: %gpx", st.FontSize))
	}
	if st.FontWeight > 0 {
		decls = append(decls, fmt.Sprintf("font-weight: %g", st.FontWeight))
	}
	if st.LineHeight > 0 {
		decls = append(decls, fmt.Sprintf("line-height: %gpx", st.LineHeight))
	}
	if extra != "" {
		decls = append(decls, extra)
	}
	if len(decls) == 0 {
		return
	}
	sort.Strings(decls)
	g.rules = append(g.rules, cssRule{Selector: "." + class, Decls: decls})
}

var allFields = []Field{
	FieldName, FieldTitle, FieldEmail, FieldPhone, FieldLocation, FieldLinkedIn,
	FieldGitHub, FieldWebsite, FieldSummary, FieldExperience, FieldEducation,
	FieldSkills, FieldCertifications,
}

func tagFor(field Field, fontSize float64) string {
	switch {
	case field == FieldName:
		return "h1"
	case field == FieldTitle || fontSize >= 20:
		return "h2"
	default:
		return "p"
	}
}

func className(n *Node) string {
	c := slug(n.Name + " " + n.ID)
	if c == "" {
		return "node"
	}
	if c[0] >= '0' && c[0] <= '9' {
		c = "n-" + c
	}
	return c
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ComponentName derives a PascalCase React component name.
func ComponentName(requested, fileName string) string {
	src := requested
	if strings.TrimSpace(src) == "" {
		src = fileName + " resume"
	}
	var sb strings.Builder
	for _, part := range strings.Split(slug(src), "-") {
		if part == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	name := sb.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "Figma" + name
	}
	if !strings.HasSuffix(name, "Resume") && strings.TrimSpace(requested) == "" {
		name += "Resume"
	}
	return name
}
