// Package extraction turns resume and job posting text into structured
// documents. Resume extraction tries the model first and falls back to a
// deterministic regex parser exactly once.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fadilmartias/cv-builder/internal/prompt"
	"github.com/fadilmartias/cv-builder/internal/schema"
	"github.com/fadilmartias/cv-builder/internal/service"
)

type Method string

const (
	MethodAI    Method = "ai"
	MethodRegex Method = "regex_fallback"
)

var (
	ErrEmptyInput = errors.New("no text to extract from")
	ErrAIDisabled = errors.New("AI extraction disabled")
	ErrEmptyAI    = errors.New("AI returned an empty resume")
)

// Input is the document handed to a strategy. PDF is set when the upload was
// a PDF and lets the model read the original layout.
type Input struct {
	Text string
	PDF  []byte
}

type Result struct {
	Resume     *schema.ParsedResume
	Method     Method
	Confidence float64
}

// Outcome is what one strategy produced: either a Result or the reason it
// failed.
type Outcome struct {
	Result *Result
	Err    error
}

func success(r *Result) Outcome { return Outcome{Result: r} }
func failure(err error) Outcome { return Outcome{Err: err} }
func (o Outcome) Ok() bool { return o.Err == nil && o.Result != nil }

type Strategy interface {
	Method() Method
	Extract(ctx context.Context, in Input) Outcome
}

// AIStrategy asks the model for a ParsedResume. Any provider error, timeout,
// invalid JSON, schema violation or empty document counts as failure.
type AIStrategy struct {
	Client  service.AIClient
	Timeout time.Duration
}

func (s *AIStrategy) Method() Method { return MethodAI }

func (s *AIStrategy) Extract(ctx context.Context, in Input) Outcome {
	if s == nil || s.Client == nil {
		return failure(ErrAIDisabled)
	}
	if strings.TrimSpace(in.Text) == "" && len(in.PDF) == 0 {
		return failure(ErrEmptyInput)
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var attachments []service.Attachment
	if len(in.PDF) > 0 {
		attachments = append(attachments, service.Attachment{MIMEType: "application/pdf", Data: in.PDF})
	}
	raw, err := s.Client.GenerateJSON(ctx, prompt.BuildResumeExtraction(in.Text), attachments...)
	if err != nil {
		return failure(fmt.Errorf("%s: %w", s.Client.Name(), err))
	}
	resume, err := schema.ParseResume([]byte(raw))
	if err != nil {
		return failure(err)
	}
	if resume.IsEmpty() {
		return failure(ErrEmptyAI)
	}
	return success(&Result{
		Resume:     resume,
		Method:     MethodAI,
		Confidence: 0.5 + 0.5*resume.Completeness(),
	})
}

// RegexStrategy never fails on non-empty text.
type RegexStrategy struct{}

func (RegexStrategy) Method() Method { return MethodRegex }

func (RegexStrategy) Extract(_ context.Context, in Input) Outcome {
	if strings.TrimSpace(in.Text) == "" {
		return failure(ErrEmptyInput)
	}
	resume := ParseResumeText(in.Text)
	return success(&Result{
		Resume:     resume,
		Method:     MethodRegex,
		Confidence: 0.6 * resume.Completeness(),
	})
}

// ResumeExtractor runs the primary strategy and, if it fails, the fallback.
type ResumeExtractor struct {
	Primary  Strategy
	Fallback Strategy
}

func NewResumeExtractor(client service.AIClient, timeout time.Duration) *ResumeExtractor {
	e := &ResumeExtractor{Fallback: RegexStrategy{}}
	if client != nil {
		e.Primary = &AIStrategy{Client: client, Timeout: timeout}
	}
	return e
}

func (e *ResumeExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	if e.Primary != nil {
		out := e.Primary.Extract(ctx, in)
		if out.Ok() {
			return out.Result, nil
		}
		log.Printf("%s extraction failed, falling back: %v", e.Primary.Method(), out.Err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	out := e.Fallback.Extract(ctx, in)
	if !out.Ok() {
		return nil, out.Err
	}
	return out.Result, nil
}

// JobSpecExtractor reads a job posting with the model. It never fails: any
// problem yields an empty JobSpec and degraded=true.
type JobSpecExtractor struct {
	Client  service.AIClient
	Timeout time.Duration
}

func (e *JobSpecExtractor) Extract(ctx context.Context, text string) (spec schema.JobSpec, degraded bool) {
	if e == nil || e.Client == nil || strings.TrimSpace(text) == "" {
		return schema.JobSpec{}, true
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	raw, err := e.Client.GenerateJSON(ctx, prompt.BuildJobSpecExtraction(text))
	if err != nil {
		log.Printf("job spec extraction failed: %v", err)
		return schema.JobSpec{}, true
	}
	parsed, err := schema.ParseJobSpec([]byte(raw))
	if err != nil {
		log.Printf("job spec extraction returned invalid data: %v", err)
		return schema.JobSpec{}, true
	}
	return *parsed, false
}
