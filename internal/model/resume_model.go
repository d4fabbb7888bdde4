package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Resume is a stored resume document. ParsedData holds the ParsedResume JSON
// and is always replaced as a whole.
type Resume struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID           string           `gorm:"type:varchar(128);not null;index" json:"owner_id"`
	Slug              string           `gorm:"type:varchar(160);not null;uniqueIndex" json:"slug"`
	ParsedData        string           `gorm:"type:jsonb;not null" json:"parsed_data"`
	IsPublic          bool             `gorm:"not null;default:false" json:"is_public"`
	ViewCount         int64            `gorm:"not null;default:0" json:"view_count"`
	DownloadCount     int64            `gorm:"not null;default:0" json:"download_count"`
	Method            string           `gorm:"type:varchar(32)" json:"method"` // ai | regex_fallback
	Confidence        float64          `gorm:"type:float" json:"confidence"`
	AdditionalContext string           `gorm:"type:jsonb;not null;default:'{}'" json:"additional_context"`
	JobCommentary     string           `gorm:"type:text" json:"job_commentary"`
	Version           int              `gorm:"not null;default:1" json:"version"`
	Embedding         *pgvector.Vector `gorm:"type:vector(3072)" json:"-"` // pakai pgvector
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (r *Resume) TableName() string {
	return "resumes"
}

// ResumeMatch is a similarity search hit.
type ResumeMatch struct {
	Resume
	Distance float64 `json:"distance"`
}
