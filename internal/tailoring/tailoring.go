// Package tailoring rewrites a resume for a job posting with the model.
package tailoring

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/prompt"
	"github.com/fadilmartias/cv-builder/internal/schema"
	"github.com/fadilmartias/cv-builder/internal/service"
)

type Request struct {
	Resume      *schema.ParsedResume
	JobSpec     schema.JobSpec
	Tone        prompt.Tone
	ExtraPrompt string
}

type Tailor struct {
	Client  service.AIClient
	Timeout time.Duration
}

func New(client service.AIClient, timeout time.Duration) *Tailor {
	return &Tailor{Client: client, Timeout: timeout}
}

// Tailor returns the adapted resume. There is no fallback: a provider failure
// is EXTERNAL_SERVICE_ERROR and an unusable reply is ADAPTATION_FAILED.
func (t *Tailor) Tailor(ctx context.Context, req Request) (*schema.ParsedResume, error) {
	if t == nil || t.Client == nil {
		return nil, apperror.New(apperror.CodeFeatureDisabled, "Job tailoring is not available")
	}
	if req.Resume == nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "Resume is required for tailoring")
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	raw, err := t.Client.GenerateJSON(ctx, prompt.BuildTailoring(req.Resume, req.JobSpec, req.Tone, req.ExtraPrompt))
	if err != nil {
		log.Printf("tailoring call failed: %v", err)
		return nil, service.AsAppError(err, "Failed to reach the AI service for tailoring")
	}

	adapted, err := schema.ParseResume([]byte(raw))
	if err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			return nil, apperror.Wrap(apperror.CodeAdaptationFailed, "The AI returned a resume that does not match the expected format", err).
				WithDetails(ve.Error())
		}
		return nil, apperror.Wrap(apperror.CodeAdaptationFailed, "Failed to adapt resume", err)
	}
	if adapted.IsEmpty() {
		return nil, apperror.New(apperror.CodeAdaptationFailed, "The AI returned an empty resume")
	}

	if adapted.ProfileImage == "" {
		adapted.ProfileImage = req.Resume.ProfileImage
	}
	if len(adapted.CustomColors) == 0 && len(req.Resume.CustomColors) > 0 {
		adapted.CustomColors = req.Resume.Clone().CustomColors
	}
	schema.EnsureIDs(adapted)
	return adapted, nil
}
