package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/extraction"
	"github.com/fadilmartias/cv-builder/internal/intake"
	"github.com/fadilmartias/cv-builder/internal/model"
	"github.com/fadilmartias/cv-builder/internal/prompt"
	"github.com/fadilmartias/cv-builder/internal/render"
	"github.com/fadilmartias/cv-builder/internal/repository"
	"github.com/fadilmartias/cv-builder/internal/response"
	"github.com/fadilmartias/cv-builder/internal/schema"
	"github.com/fadilmartias/cv-builder/internal/service"
	"github.com/fadilmartias/cv-builder/internal/tailoring"
)

type ResumeStore interface {
	Create(ctx context.Context, resume *model.Resume) error
	FindForOwner(ctx context.Context, id, ownerID string) (*model.Resume, error)
	FindBySlug(ctx context.Context, slug string) (*model.Resume, error)
	ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]model.Resume, int64, error)
	Replace(ctx context.Context, id, ownerID string, upd repository.ResumeUpdate) (*model.Resume, error)
	Delete(ctx context.Context, id, ownerID string) error
	IncrementViews(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, id string) error
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	SearchSimilar(ctx context.Context, ownerID string, embedding []float32, topK int) ([]model.ResumeMatch, error)
}

type GuestStore interface {
	TTL() time.Duration
	Put(ctx context.Context, token string, data []byte) (time.Time, error)
	Get(ctx context.Context, token string) ([]byte, error)
	Delete(ctx context.Context, token string) error
}

type DocumentReader interface {
	Read(ctx context.Context, u intake.Upload, kind intake.Kind) (*intake.Document, error)
}

type ResumeExtractor interface {
	Extract(ctx context.Context, in extraction.Input) (*extraction.Result, error)
}

type JobSpecExtractor interface {
	Extract(ctx context.Context, text string) (schema.JobSpec, bool)
}

type Tailor interface {
	Tailor(ctx context.Context, req tailoring.Request) (*schema.ParsedResume, error)
}

type HTMLRenderer interface {
	Render(resume *schema.ParsedResume, t render.Template) (string, error)
}

type PDFRenderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// ResumeDeps wires a ResumeUsecase. Optional collaborators may be nil: a nil
// Guests disables guest storage, a nil Tailor or TailoringEnabled=false
// disables tailoring, a nil Embedder disables search, a nil PDF disables PDF
// export.
type ResumeDeps struct {
	Resumes          ResumeStore
	Guests           GuestStore
	Reader           DocumentReader
	Extractor        ResumeExtractor
	JobSpecs         JobSpecExtractor
	Tailor           Tailor
	TailoringEnabled bool
	Embedder         service.Embedder
	HTML             HTMLRenderer
	PDF              PDFRenderer
}

type ResumeUsecase struct {
	ResumeDeps
	slugSuffix func() string
}

func NewResumeUsecase(deps ResumeDeps) *ResumeUsecase {
	return &ResumeUsecase{ResumeDeps: deps, slugSuffix: randomSuffix}
}

const slugAttempts = 3

// Progress is one step of a parse run, as streamed to the client.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"progress"`
	Message string `json:"message"`
}

const (
	StageValidating = "validating"
	StageReading    = "reading"
	StageExtracting = "extracting"
	StageTailoring  = "tailoring"
	StageSaving     = "saving"
)

type ParseRequest struct {
	// OwnerID is empty for guests.
	OwnerID      string
	Resume       intake.Upload
	JobSpecFile  *intake.Upload
	JobSpecText  string
	Tone         string
	ExtraPrompt  string
	ProfileImage string
	// CustomColors is a JSON object of CSS variable name to color.
	CustomColors string
}

type ParseMeta struct {
	Method          extraction.Method `json:"method"`
	Confidence      float64           `json:"confidence"`
	Tailored        bool              `json:"tailored"`
	Tone            prompt.Tone       `json:"tone,omitempty"`
	JobCommentary   string            `json:"jobCommentary,omitempty"`
	JobSpecDegraded bool              `json:"jobSpecDegraded,omitempty"`
	Persisted       bool              `json:"persisted"`
	ID              string            `json:"id,omitempty"`
	Slug            string            `json:"slug,omitempty"`
	GuestToken      string            `json:"guestToken,omitempty"`
	GuestExpiresAt  *time.Time        `json:"guestExpiresAt,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
}

type ParseResult struct {
	Resume *schema.ParsedResume `json:"data"`
	Meta   ParseMeta            `json:"meta"`
}

// GuestResume is what the guest store keeps for an unauthenticated upload.
type GuestResume struct {
	Resume *schema.ParsedResume `json:"data"`
	Meta   ParseMeta            `json:"meta"`
}

type validatedParse struct {
	resumeKind  intake.Kind
	jobSpecKind intake.Kind
	tailor      bool
	tone        prompt.Tone
	colors      schema.Colors
}

// validateParse runs every input check before anything is read or sent.
func (uc *ResumeUsecase) validateParse(req ParseRequest) (*validatedParse, error) {
	v := &validatedParse{}
	var err error
	if v.resumeKind, err = intake.CheckResume(req.Resume); err != nil {
		return nil, err
	}
	if req.JobSpecFile != nil && strings.TrimSpace(req.JobSpecText) != "" {
		return nil, apperror.New(apperror.CodeInvalidInput, "Provide either a job description file or pasted text, not both")
	}
	if req.JobSpecFile != nil {
		if v.jobSpecKind, err = intake.CheckJobSpecFile(*req.JobSpecFile); err != nil {
			return nil, err
		}
		v.tailor = true
	}
	if strings.TrimSpace(req.JobSpecText) != "" {
		if err := intake.CheckJobSpecText(req.JobSpecText); err != nil {
			return nil, err
		}
		v.tailor = true
	}
	if err := intake.CheckExtraPrompt(req.ExtraPrompt); err != nil {
		return nil, err
	}
	if v.tone, err = prompt.ParseTone(req.Tone); err != nil {
		return nil, err
	}
	if !v.tailor && strings.TrimSpace(req.ExtraPrompt) != "" {
		return nil, apperror.New(apperror.CodeInvalidInput, "A job description is required for tailoring")
	}
	if v.tailor && (!uc.TailoringEnabled || uc.Tailor == nil) {
		return nil, apperror.New(apperror.CodeFeatureDisabled, "Job tailoring is disabled")
	}
	if v.colors, err = parseColors(req.CustomColors); err != nil {
		return nil, err
	}
	return v, nil
}

func parseColors(raw string) (schema.Colors, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var colors schema.Colors
	if err := json.Unmarshal([]byte(raw), &colors); err != nil {
		return nil, apperror.Wrap(apperror.CodeInvalidInput, "customColors must be a JSON object", err)
	}
	for k := range colors {
		if !schema.IsColorKey(k) {
			return nil, apperror.New(apperror.CodeInvalidInput, "customColors: unknown color "+k)
		}
	}
	return colors, nil
}

// Parse runs upload → extraction → optional tailoring → save. progress may be
// nil.
func (uc *ResumeUsecase) Parse(ctx context.Context, req ParseRequest, progress func(Progress)) (*ParseResult, error) {
	report := func(stage string, percent int, msg string) {
		if progress != nil {
			progress(Progress{Stage: stage, Percent: percent, Message: msg})
		}
	}

	report(StageValidating, 5, "Checking upload")
	v, err := uc.validateParse(req)
	if err != nil {
		return nil, err
	}

	report(StageReading, 15, "Reading resume file")
	doc, err := uc.Reader.Read(ctx, req.Resume, v.resumeKind)
	if err != nil {
		return nil, err
	}
	jobText := strings.TrimSpace(req.JobSpecText)
	if req.JobSpecFile != nil {
		jobDoc, err := uc.Reader.Read(ctx, *req.JobSpecFile, v.jobSpecKind)
		if err != nil {
			return nil, err
		}
		jobText = jobDoc.Text
	}

	report(StageExtracting, 35, "Extracting resume content")
	var (
		extracted *extraction.Result
		jobSpec   schema.JobSpec
		degraded  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		in := extraction.Input{Text: doc.Text}
		if doc.Kind == intake.KindPDF {
			in.PDF = doc.Raw
		}
		res, err := uc.Extractor.Extract(gctx, in)
		if err != nil {
			return extractionError(err)
		}
		extracted = res
		return nil
	})
	if v.tailor {
		g.Go(func() error {
			jobSpec, degraded = uc.JobSpecs.Extract(gctx, jobText)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resume := extracted.Resume
	if img := strings.TrimSpace(req.ProfileImage); img != "" {
		resume.ProfileImage = img
	}
	if len(v.colors) > 0 {
		resume.CustomColors = v.colors
	}
	schema.EnsureIDs(resume)

	meta := ParseMeta{Method: extracted.Method, Confidence: extracted.Confidence}
	var addCtx *schema.UserAdditionalContext

	if v.tailor {
		report(StageTailoring, 65, "Tailoring resume to the job description")
		if degraded {
			meta.JobSpecDegraded = true
			meta.Warnings = append(meta.Warnings, "The job description could not be analysed; tailoring used the resume only")
		}
		tailored, err := uc.Tailor.Tailor(ctx, tailoring.Request{
			Resume:      resume,
			JobSpec:     jobSpec,
			Tone:        v.tone,
			ExtraPrompt: req.ExtraPrompt,
		})
		if err != nil {
			return nil, err
		}
		resume = tailored
		meta.Tailored = true
		meta.Tone = v.tone
		meta.JobCommentary = prompt.JobCommentary(jobSpec, v.tone)

		addCtx = &schema.UserAdditionalContext{
			JobSpecSource: schema.JobSpecSourcePaste,
			Tone:          string(v.tone),
			ExtraPrompt:   req.ExtraPrompt,
		}
		if req.JobSpecFile != nil {
			addCtx.JobSpecSource = schema.JobSpecSourceFile
			addCtx.JobSpecFile = req.JobSpecFile.Filename
		}
	}

	report(StageSaving, 85, "Saving resume")
	if req.OwnerID != "" {
		stored, err := uc.save(ctx, req.OwnerID, resume, meta, addCtx)
		if err != nil {
			return nil, err
		}
		meta.Persisted = true
		meta.ID = stored.ID.String()
		meta.Slug = stored.Slug
	} else {
		uc.keepGuest(ctx, resume, &meta)
	}

	return &ParseResult{Resume: resume, Meta: meta}, nil
}

func extractionError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, extraction.ErrEmptyInput):
		return apperror.Wrap(apperror.CodeInvalidInput, "No readable text was found in the resume", err)
	}
	return apperror.Wrap(apperror.CodeInternal, "Failed to extract resume content", err)
}

func (uc *ResumeUsecase) save(ctx context.Context, ownerID string, resume *schema.ParsedResume, meta ParseMeta, addCtx *schema.UserAdditionalContext) (*model.Resume, error) {
	data, err := json.Marshal(resume)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodePersistence, "Failed to encode resume", err)
	}
	additional := "{}"
	if addCtx != nil {
		b, err := json.Marshal(addCtx)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodePersistence, "Failed to encode tailoring context", err)
		}
		additional = string(b)
	}

	base := slugify(resume.Name)
	var lastErr error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		row := &model.Resume{
			OwnerID:           ownerID,
			Slug:              base + "-" + uc.slugSuffix(),
			ParsedData:        string(data),
			Method:            string(meta.Method),
			Confidence:        meta.Confidence,
			AdditionalContext: additional,
			JobCommentary:     meta.JobCommentary,
			Version:           1,
		}
		err := uc.Resumes.Create(ctx, row)
		if err == nil {
			uc.refreshEmbedding(ctx, row.ID.String(), resume)
			return row, nil
		}
		lastErr = err
		if !errors.Is(err, repository.ErrSlugTaken) {
			break
		}
		log.Printf("slug %s taken, retrying", row.Slug)
	}
	return nil, apperror.Wrap(apperror.CodePersistence, "Failed to save resume", lastErr)
}

// keepGuest stores an unauthenticated result when a guest store is
// configured. Failures only add a warning: the data is already in the
// response.
func (uc *ResumeUsecase) keepGuest(ctx context.Context, resume *schema.ParsedResume, meta *ParseMeta) {
	if uc.Guests == nil {
		return
	}
	token := uuid.NewString()
	data, err := json.Marshal(GuestResume{Resume: resume, Meta: *meta})
	if err == nil {
		var expires time.Time
		if expires, err = uc.Guests.Put(ctx, token, data); err == nil {
			meta.GuestToken = token
			meta.GuestExpiresAt = &expires
			return
		}
	}
	log.Printf("guest store: %v", err)
	meta.Warnings = append(meta.Warnings, "Temporary storage is unavailable; keep this page open to avoid losing the result")
}

// refreshEmbedding is best-effort; search just misses the row on failure.
func (uc *ResumeUsecase) refreshEmbedding(ctx context.Context, id string, resume *schema.ParsedResume) {
	if uc.Embedder == nil {
		return
	}
	vec, err := uc.Embedder.GenerateEmbedding(ctx, EmbeddingText(resume))
	if err != nil {
		log.Printf("embedding for resume %s failed: %v", id, err)
		return
	}
	if err := uc.Resumes.UpdateEmbedding(ctx, id, vec); err != nil {
		log.Printf("store embedding for resume %s failed: %v", id, err)
	}
}

// EmbeddingText flattens the searchable parts of a resume.
func EmbeddingText(r *schema.ParsedResume) string {
	var sb strings.Builder
	line := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sb.WriteString(s)
			sb.WriteByte('\n')
		}
	}
	line(r.Name)
	line(r.Title)
	line(r.Summary)
	for _, e := range r.Experience {
		line(strings.TrimSpace(e.Title + " " + e.Company))
		for _, d := range e.Details {
			line(d)
		}
	}
	for _, e := range r.Education {
		line(strings.TrimSpace(e.Degree + " " + e.Institution))
	}
	for _, c := range r.Certifications {
		line(c.Name)
	}
	line(strings.Join(r.Skills, ", "))
	return sb.String()
}

func slugify(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
		if sb.Len() >= 60 {
			break
		}
	}
	s := strings.Trim(sb.String(), "-")
	if s == "" {
		return "resume"
	}
	return s
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", apperror.New(apperror.CodeNotFound, "Resume not found")
	}
	return parsed.String(), nil
}

func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.Wrap(apperror.CodeNotFound, "Resume not found", err)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperror.Wrap(apperror.CodeConflict, "Resume was changed by another session; reload and try again", err)
	}
	return apperror.Wrap(apperror.CodePersistence, msg, err)
}

type UpdateRequest struct {
	ParsedData json.RawMessage
	IsPublic   *bool
	// ExpectedVersion enables the conflict check when set.
	ExpectedVersion *int
}

// Update replaces the stored document. Sending the same payload twice yields
// the same stored document.
func (uc *ResumeUsecase) Update(ctx context.Context, ownerID, id string, req UpdateRequest) (*model.Resume, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	hasData := len(req.ParsedData) > 0 && string(req.ParsedData) != "null"
	if !hasData && req.IsPublic == nil {
		return nil, apperror.New(apperror.CodeInvalidInput, "Nothing to update: send parsedData and/or isPublic")
	}

	upd := repository.ResumeUpdate{IsPublic: req.IsPublic, ExpectedVersion: req.ExpectedVersion}
	var parsed *schema.ParsedResume
	if hasData {
		parsed, err = schema.ParseResume(req.ParsedData)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeValidationFailed, "Resume data is invalid", err)
		}
		schema.EnsureIDs(parsed)
		b, err := json.Marshal(parsed)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodePersistence, "Failed to encode resume", err)
		}
		s := string(b)
		upd.ParsedData = &s
	}

	stored, err := uc.Resumes.Replace(ctx, id, ownerID, upd)
	if err != nil {
		return nil, storeError(err, "Failed to update resume")
	}
	if parsed != nil {
		uc.refreshEmbedding(ctx, id, parsed)
	}
	return stored, nil
}

func (uc *ResumeUsecase) Delete(ctx context.Context, ownerID, id string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}
	if err := uc.Resumes.Delete(ctx, id, ownerID); err != nil {
		return storeError(err, "Failed to delete resume")
	}
	return nil
}

func (uc *ResumeUsecase) Get(ctx context.Context, ownerID, id string) (*model.Resume, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}
	r, err := uc.Resumes.FindForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, storeError(err, "Failed to load resume")
	}
	return r, nil
}

func (uc *ResumeUsecase) List(ctx context.Context, ownerID string, page, pageSize int) ([]model.Resume, *response.Pagination, error) {
	page, pageSize = response.NormalizePage(page, pageSize)
	rows, total, err := uc.Resumes.ListByOwner(ctx, ownerID, page, pageSize)
	if err != nil {
		return nil, nil, storeError(err, "Failed to list resumes")
	}
	return rows, response.NewPagination(page, pageSize, total, len(rows)), nil
}

const defaultTopK = 5

// Search ranks the owner's resumes by similarity to query.
func (uc *ResumeUsecase) Search(ctx context.Context, ownerID, query string, topK int) ([]model.ResumeMatch, error) {
	if uc.Embedder == nil {
		return nil, apperror.New(apperror.CodeFeatureDisabled, "Search is not available")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.New(apperror.CodeInvalidInput, "Search query is required")
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	vec, err := uc.Embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, service.AsAppError(err, "Failed to embed search query")
	}
	matches, err := uc.Resumes.SearchSimilar(ctx, ownerID, vec, topK)
	if err != nil {
		return nil, storeError(err, "Search failed")
	}
	return matches, nil
}

// GetPublic returns a shared resume and counts the view. Private resumes
// look exactly like missing ones.
func (uc *ResumeUsecase) GetPublic(ctx context.Context, slug string) (*model.Resume, error) {
	r, err := uc.Resumes.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, storeError(err, "Failed to load resume")
	}
	if !r.IsPublic {
		return nil, apperror.New(apperror.CodeNotFound, "Resume not found")
	}
	if err := uc.Resumes.IncrementViews(ctx, r.ID.String()); err != nil {
		log.Printf("count view for %s: %v", r.Slug, err)
	} else {
		r.ViewCount++
	}
	return r, nil
}

type ExportFormat string

const (
	ExportHTML ExportFormat = "html"
	ExportPDF  ExportFormat = "pdf"
)

type Export struct {
	ContentType string
	Filename    string
	Body        []byte
}

// Export renders an owned resume and counts the download.
func (uc *ResumeUsecase) Export(ctx context.Context, ownerID, id string, format ExportFormat, tpl string) (*Export, error) {
	t, err := render.ParseTemplate(tpl)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = ExportPDF
	}
	if format != ExportPDF && format != ExportHTML {
		return nil, apperror.New(apperror.CodeInvalidInput, "format must be pdf or html")
	}
	if uc.HTML == nil || (format == ExportPDF && uc.PDF == nil) {
		return nil, apperror.New(apperror.CodeFeatureDisabled, "PDF export is not available")
	}

	row, err := uc.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	var resume schema.ParsedResume
	if err := json.Unmarshal([]byte(row.ParsedData), &resume); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "Stored resume is unreadable", err)
	}

	html, err := uc.HTML.Render(&resume, t)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "Failed to render resume", err)
	}
	out := &Export{ContentType: "text/html; charset=utf-8", Filename: row.Slug + ".html", Body: []byte(html)}
	if format == ExportPDF {
		pdf, err := uc.PDF.RenderHTMLToPDF(ctx, html)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeInternal, "Failed to render PDF", err)
		}
		out = &Export{ContentType: "application/pdf", Filename: row.Slug + ".pdf", Body: pdf}
	}

	if err := uc.Resumes.IncrementDownloads(ctx, row.ID.String()); err != nil {
		log.Printf("count download for %s: %v", row.Slug, err)
	}
	return out, nil
}

func (uc *ResumeUsecase) GetGuest(ctx context.Context, token string) (*GuestResume, error) {
	if uc.Guests == nil {
		return nil, apperror.New(apperror.CodeFeatureDisabled, "Guest storage is not available")
	}
	data, err := uc.Guests.Get(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Wrap(apperror.CodeNotFound, "Guest resume not found or expired", err)
		}
		return nil, apperror.Wrap(apperror.CodePersistence, "Failed to load guest resume", err)
	}
	var out GuestResume
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "Stored guest resume is unreadable", err)
	}
	return &out, nil
}

func (uc *ResumeUsecase) DeleteGuest(ctx context.Context, token string) error {
	if uc.Guests == nil {
		return apperror.New(apperror.CodeFeatureDisabled, "Guest storage is not available")
	}
	if err := uc.Guests.Delete(ctx, strings.TrimSpace(token)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.Wrap(apperror.CodeNotFound, "Guest resume not found or expired", err)
		}
		return apperror.Wrap(apperror.CodePersistence, "Failed to delete guest resume", err)
	}
	return nil
}
