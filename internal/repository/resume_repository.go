package repository

import (
	"context"
	"errors"

	"github.com/fadilmartias/cv-builder/internal/model"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrSlugTaken       = errors.New("slug already taken")
	ErrVersionConflict = errors.New("version conflict")
)

type ResumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) *ResumeRepository {
	return &ResumeRepository{db}
}

// ResumeUpdate is a whole-document replacement. Nil fields are left as they
// are. ExpectedVersion, when set, must match the stored version.
type ResumeUpdate struct {
	ParsedData        *string
	IsPublic          *bool
	AdditionalContext *string
	JobCommentary     *string
	ExpectedVersion   *int
}

func (r *ResumeRepository) Create(ctx context.Context, resume *model.Resume) error {
	err := r.db.WithContext(ctx).Create(resume).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugTaken
	}
	return err
}

func (r *ResumeRepository) FindForOwner(ctx context.Context, id, ownerID string) (*model.Resume, error) {
	var resume model.Resume
	err := r.db.WithContext(ctx).
		Omit("embedding").
		First(&resume, "id = ? AND owner_id = ?", id, ownerID).Error
	return &resume, translate(err)
}

func (r *ResumeRepository) FindBySlug(ctx context.Context, slug string) (*model.Resume, error) {
	var resume model.Resume
	err := r.db.WithContext(ctx).
		Omit("embedding").
		First(&resume, "slug = ?", slug).Error
	return &resume, translate(err)
}

func (r *ResumeRepository) ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]model.Resume, int64, error) {
	var (
		resumes []model.Resume
		total   int64
	)
	q := r.db.WithContext(ctx).Model(&model.Resume{}).Where("owner_id = ?", ownerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Omit("embedding").
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&resumes).Error
	return resumes, total, err
}

// Replace applies upd and bumps the version. It returns the stored row after
// the update.
func (r *ResumeRepository) Replace(ctx context.Context, id, ownerID string, upd ResumeUpdate) (*model.Resume, error) {
	updates := map[string]any{"version": gorm.Expr("version + 1")}
	if upd.ParsedData != nil {
		updates["parsed_data"] = *upd.ParsedData
	}
	if upd.IsPublic != nil {
		updates["is_public"] = *upd.IsPublic
	}
	if upd.AdditionalContext != nil {
		updates["additional_context"] = *upd.AdditionalContext
	}
	if upd.JobCommentary != nil {
		updates["job_commentary"] = *upd.JobCommentary
	}

	var out *model.Resume
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&model.Resume{}).Where("id = ? AND owner_id = ?", id, ownerID)
		if upd.ExpectedVersion != nil {
			q = q.Where("version = ?", *upd.ExpectedVersion)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Resume{}).Where("id = ? AND owner_id = ?", id, ownerID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		var stored model.Resume
		if err := tx.Omit("embedding").First(&stored, "id = ?", id).Error; err != nil {
			return err
		}
		out = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ResumeRepository) Delete(ctx context.Context, id, ownerID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.Resume{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ResumeRepository) IncrementViews(ctx context.Context, id string) error {
	return r.increment(ctx, id, "view_count")
}

func (r *ResumeRepository) IncrementDownloads(ctx context.Context, id string) error {
	return r.increment(ctx, id, "download_count")
}

// increment is a single UPDATE so concurrent hits never lose a count.
func (r *ResumeRepository) increment(ctx context.Context, id, column string) error {
	return r.db.WithContext(ctx).
		Model(&model.Resume{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

func (r *ResumeRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	return r.db.WithContext(ctx).
		Model(&model.Resume{}).
		Where("id = ?", id).
		UpdateColumn("embedding", &vec).Error
}

// SearchSimilar ranks the owner's resumes by distance to embedding.
func (r *ResumeRepository) SearchSimilar(ctx context.Context, ownerID string, embedding []float32, topK int) ([]model.ResumeMatch, error) {
	var matches []model.ResumeMatch
	vec := pgvector.NewVector(embedding)

	// query pgvector <-> operator (Euclidean distance)
	err := r.db.WithContext(ctx).Raw(`
        SELECT id, owner_id, slug, parsed_data, is_public, view_count, download_count,
               method, confidence, additional_context, job_commentary, version,
               created_at, updated_at, embedding <-> ? AS distance
        FROM resumes
        WHERE owner_id = ? AND embedding IS NOT NULL
        ORDER BY embedding <-> ?
        LIMIT ?
    `, vec, ownerID, vec, topK).Scan(&matches).Error

	return matches, err
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
