package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed resume.schema.json
var resumeSchemaJSON []byte

//go:embed jobspec.schema.json
var jobSpecSchemaJSON []byte

var (
	compileOnce   sync.Once
	resumeSchema  *gojsonschema.Schema
	jobSpecSchema *gojsonschema.Schema
	compileErr    error
)

func compiled() (*gojsonschema.Schema, *gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		resumeSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(resumeSchemaJSON))
		if compileErr != nil {
			compileErr = fmt.Errorf("compile resume schema: %w", compileErr)
			return
		}
		jobSpecSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jobSpecSchemaJSON))
		if compileErr != nil {
			compileErr = fmt.Errorf("compile job spec schema: %w", compileErr)
		}
	})
	return resumeSchema, jobSpecSchema, compileErr
}

// ResumeSchemaText returns the JSON Schema used to validate resumes. Prompts
// embed it so the model knows the expected shape.
func ResumeSchemaText() string { return string(resumeSchemaJSON) }

// JobSpecSchemaText returns the JSON Schema used to validate job specs.
func JobSpecSchemaText() string { return string(jobSpecSchemaJSON) }

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		out = append(out, fe.Field)
	}
	return out
}

func validate(s *gojsonschema.Schema, raw []byte) error {
	if !json.Valid(raw) {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "invalid JSON"}}}
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	if res.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, re := range res.Errors() {
		ve.Errors = append(ve.Errors, FieldError{Field: re.Field(), Message: re.Description()})
	}
	return ve
}

// ParseResume validates raw against the resume schema and decodes it.
func ParseResume(raw []byte) (*ParsedResume, error) {
	rs, _, err := compiled()
	if err != nil {
		return nil, err
	}
	if err := validate(rs, raw); err != nil {
		return nil, err
	}
	var out ParsedResume
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	return &out, nil
}

// ParseJobSpec validates raw against the job spec schema and decodes it.
func ParseJobSpec(raw []byte) (*JobSpec, error) {
	_, js, err := compiled()
	if err != nil {
		return nil, err
	}
	if err := validate(js, raw); err != nil {
		return nil, err
	}
	var out JobSpec
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	return &out, nil
}
