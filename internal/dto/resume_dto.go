package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fadilmartias/cv-builder/internal/model"
	"github.com/fadilmartias/cv-builder/internal/schema"
)

type ResumeDTO struct {
	ID                uuid.UUID                     `json:"id"`
	Slug              string                        `json:"slug"`
	Data              *schema.ParsedResume          `json:"data"`
	IsPublic          bool                          `json:"is_public"`
	ViewCount         int64                         `json:"view_count"`
	DownloadCount     int64                         `json:"download_count"`
	Method            string                        `json:"method,omitempty"`
	Confidence        float64                       `json:"confidence"`
	AdditionalContext *schema.UserAdditionalContext `json:"additional_context,omitempty"`
	JobCommentary     string                        `json:"job_commentary,omitempty"`
	Version           int                           `json:"version"`
	Distance          *float64                      `json:"distance,omitempty"`
	CreatedAt         time.Time                     `json:"created_at"`
	UpdatedAt         time.Time                     `json:"updated_at"`
}

// PublicResumeDTO is what anonymous visitors of a shared page see.
type PublicResumeDTO struct {
	Slug      string               `json:"slug"`
	Data      *schema.ParsedResume `json:"data"`
	ViewCount int64                `json:"view_count"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func NewResumeDTO(m *model.Resume) (ResumeDTO, error) {
	var data schema.ParsedResume
	if err := json.Unmarshal([]byte(m.ParsedData), &data); err != nil {
		return ResumeDTO{}, fmt.Errorf("decode parsed_data of %s: %w", m.ID, err)
	}
	out := ResumeDTO{
		ID:            m.ID,
		Slug:          m.Slug,
		Data:          &data,
		IsPublic:      m.IsPublic,
		ViewCount:     m.ViewCount,
		DownloadCount: m.DownloadCount,
		Method:        m.Method,
		Confidence:    m.Confidence,
		JobCommentary: m.JobCommentary,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.AdditionalContext != "" && m.AdditionalContext != "{}" {
		var ctx schema.UserAdditionalContext
		if err := json.Unmarshal([]byte(m.AdditionalContext), &ctx); err == nil {
			out.AdditionalContext = &ctx
		}
	}
	return out, nil
}

func NewResumeDTOs(ms []model.Resume) ([]ResumeDTO, error) {
	out := make([]ResumeDTO, 0, len(ms))
	for i := range ms {
		d, err := NewResumeDTO(&ms[i])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func NewMatchDTOs(ms []model.ResumeMatch) ([]ResumeDTO, error) {
	out := make([]ResumeDTO, 0, len(ms))
	for i := range ms {
		d, err := NewResumeDTO(&ms[i].Resume)
		if err != nil {
			return nil, err
		}
		distance := ms[i].Distance
		d.Distance = &distance
		out = append(out, d)
	}
	return out, nil
}

func NewPublicResumeDTO(m *model.Resume) (PublicResumeDTO, error) {
	full, err := NewResumeDTO(m)
	if err != nil {
		return PublicResumeDTO{}, err
	}
	return PublicResumeDTO{Slug: full.Slug, Data: full.Data, ViewCount: full.ViewCount, UpdatedAt: full.UpdatedAt}, nil
}

// UpdateResumeRequest replaces the stored document. Omitted fields are left
// unchanged; Version enables a conflict check.
type UpdateResumeRequest struct {
	ParsedData json.RawMessage `json:"parsedData"`
	IsPublic   *bool           `json:"isPublic"`
	Version    *int            `json:"version" validate:"omitempty,min=1"`
}

type AdaptFigmaRequest struct {
	FigmaLink          string            `json:"figmaLink" validate:"required"`
	ResumeData         json.RawMessage   `json:"resumeData" validate:"required"`
	AdaptationStrategy string            `json:"adaptationStrategy" validate:"omitempty,oneof=preserve_layout content_first hybrid"`
	CustomMappings     map[string]string `json:"customMappings" validate:"omitempty,dive,keys,required,endkeys,required"`
	PreserveElements   []string          `json:"preserveElements" validate:"omitempty,dive,required"`
	ColorScheme        map[string]string `json:"colorScheme"`
	ComponentName      string            `json:"componentName" validate:"omitempty,max=64"`
}

type SearchQuery struct {
	Q    string `query:"q" validate:"required,max=500"`
	TopK int    `query:"top_k" validate:"omitempty,min=1,max=50"`
}

type ListQuery struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100"`
}

type ExportQuery struct {
	Format   string `query:"format" validate:"omitempty,oneof=pdf html"`
	Template string `query:"template" validate:"omitempty,oneof=classic modern minimal"`
}
