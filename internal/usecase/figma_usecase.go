package usecase

import (
	"context"
	"encoding/json"
	"log"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/figma"
	"github.com/fadilmartias/cv-builder/internal/schema"
)

type FigmaAgent interface {
	Run(ctx context.Context, req figma.Request) (*figma.Result, error)
	Ready(ctx context.Context) error
}

type FigmaUsecase struct {
	agent FigmaAgent
}

func NewFigmaUsecase(agent FigmaAgent) *FigmaUsecase {
	return &FigmaUsecase{agent: agent}
}

type AdaptRequest struct {
	FigmaLink        string
	ResumeData       json.RawMessage
	Strategy         string
	CustomMappings   map[string]string
	PreserveElements []string
	ColorScheme      map[string]string
	ComponentName    string
}

// Adapt validates the request and runs the agent. On an agent failure the
// partial result is returned together with the error.
func (uc *FigmaUsecase) Adapt(ctx context.Context, req AdaptRequest) (*figma.Result, error) {
	if _, err := figma.ParseLink(req.FigmaLink); err != nil {
		return nil, err
	}
	strategy, err := figma.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	resume, err := schema.ParseResume(req.ResumeData)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeValidationFailed, "resumeData is invalid", err)
	}

	res, err := uc.agent.Run(ctx, figma.Request{
		Link:             req.FigmaLink,
		Resume:           resume,
		CustomMappings:   req.CustomMappings,
		PreserveElements: req.PreserveElements,
		ColorScheme:      req.ColorScheme,
		Strategy:         strategy,
		ComponentName:    req.ComponentName,
	})
	if err != nil {
		log.Printf("figma adaptation failed in state %s: %v", lastState(res), err)
	}
	return res, err
}

// Ready reports whether the design source answers.
func (uc *FigmaUsecase) Ready(ctx context.Context) error {
	return uc.agent.Ready(ctx)
}

func lastState(res *figma.Result) string {
	if res == nil || len(res.Transitions) == 0 {
		return string(figma.StateIdle)
	}
	return string(res.Transitions[len(res.Transitions)-1].From)
}
