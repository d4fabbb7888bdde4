package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/extraction"
	"github.com/fadilmartias/cv-builder/internal/intake"
	"github.com/fadilmartias/cv-builder/internal/model"
	"github.com/fadilmartias/cv-builder/internal/render"
	"github.com/fadilmartias/cv-builder/internal/repository"
	"github.com/fadilmartias/cv-builder/internal/schema"
	"github.com/fadilmartias/cv-builder/internal/service/aitest"
	"github.com/fadilmartias/cv-builder/internal/tailoring"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, r *model.Resume) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockStore) FindForOwner(ctx context.Context, id, ownerID string) (*model.Resume, error) {
	args := m.Called(ctx, id, ownerID)
	r, _ := args.Get(0).(*model.Resume)
	return r, args.Error(1)
}

func (m *mockStore) FindBySlug(ctx context.Context, slug string) (*model.Resume, error) {
	args := m.Called(ctx, slug)
	r, _ := args.Get(0).(*model.Resume)
	return r, args.Error(1)
}

func (m *mockStore) ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]model.Resume, int64, error) {
	args := m.Called(ctx, ownerID, page, pageSize)
	rows, _ := args.Get(0).([]model.Resume)
	return rows, args.Get(1).(int64), args.Error(2)
}

func (m *mockStore) Replace(ctx context.Context, id, ownerID string, upd repository.ResumeUpdate) (*model.Resume, error) {
	args := m.Called(ctx, id, ownerID, upd)
	r, _ := args.Get(0).(*model.Resume)
	return r, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, id, ownerID string) error {
	return m.Called(ctx, id, ownerID).Error(0)
}

func (m *mockStore) IncrementViews(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) IncrementDownloads(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	return m.Called(ctx, id, embedding).Error(0)
}

func (m *mockStore) SearchSimilar(ctx context.Context, ownerID string, embedding []float32, topK int) ([]model.ResumeMatch, error) {
	args := m.Called(ctx, ownerID, embedding, topK)
	rows, _ := args.Get(0).([]model.ResumeMatch)
	return rows, args.Error(1)
}

type fakeHTML struct{ calls int }

func (f *fakeHTML) Render(r *schema.ParsedResume, t render.Template) (string, error) {
	f.calls++
	return "<h1>" + r.Name + "</h1><!-- " + string(t) + " -->", nil
}

type fakePDF struct{}

func (fakePDF) RenderHTMLToPDF(_ context.Context, html string) ([]byte, error) {
	return []byte("%PDF-" + html), nil
}

const plainResume = "John Smith\njohn@example.com\nExperience: Engineer at Acme 2020-2022\n"

const (
	ownerID  = "user-1"
	resumeID = "6f1c2d1e-8d8a-4f2e-9c3b-5b7a9a0e1f22"
)

func txtUpload(body string) intake.Upload {
	return intake.FromBytes("cv.txt", "text/plain", []byte(body))
}

// regexOnly builds a usecase whose extraction never calls a model.
func regexOnly(store ResumeStore) *ResumeUsecase {
	uc := NewResumeUsecase(ResumeDeps{
		Resumes:   store,
		Reader:    intake.NewReader(nil),
		Extractor: extraction.NewResumeExtractor(nil, 0),
		HTML:      &fakeHTML{},
	})
	uc.slugSuffix = func() string { return "abc12345" }
	return uc
}

func TestParse_GuestRegexFallback(t *testing.T) {
	uc := regexOnly(&mockStore{})

	var stages []string
	res, err := uc.Parse(context.Background(), ParseRequest{Resume: txtUpload(plainResume)}, func(p Progress) {
		stages = append(stages, p.Stage)
	})
	require.NoError(t, err)

	assert.Contains(t, res.Resume.Name, "John Smith")
	assert.Equal(t, "john@example.com", res.Resume.Contact.Email)
	require.NotEmpty(t, res.Resume.Experience)
	assert.Contains(t, res.Resume.Experience[0].Company, "Acme")
	assert.NotEmpty(t, res.Resume.Experience[0].ID)

	assert.Equal(t, extraction.MethodRegex, res.Meta.Method)
	assert.False(t, res.Meta.Persisted)
	assert.Empty(t, res.Meta.GuestToken)
	assert.Equal(t, []string{StageValidating, StageReading, StageExtracting, StageSaving}, stages)
}

func TestParse_AppliesPresentationFields(t *testing.T) {
	uc := regexOnly(&mockStore{})
	res, err := uc.Parse(context.Background(), ParseRequest{
		Resume:       txtUpload(plainResume),
		ProfileImage: "omitted",
		CustomColors: `{"--primary-color": "#112233"}`,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "omitted", res.Resume.ProfileImage)
	assert.Equal(t, "#112233", res.Resume.CustomColors[schema.ColorPrimary])
}

func TestParse_InputErrorsBeforeAnyCall(t *testing.T) {
	fake := &aitest.FakeClient{}
	uc := NewResumeUsecase(ResumeDeps{
		Resumes:          &mockStore{},
		Reader:           intake.NewReader(nil),
		Extractor:        extraction.NewResumeExtractor(fake, time.Second),
		JobSpecs:         &extraction.JobSpecExtractor{Client: fake},
		Tailor:           tailoring.New(fake, time.Second),
		TailoringEnabled: true,
	})

	tests := []struct {
		name string
		req  ParseRequest
		code apperror.Code
	}{
		{"long job spec", ParseRequest{Resume: txtUpload(plainResume), JobSpecText: strings.Repeat("a", 4001)}, apperror.CodeInvalidInput},
		{"long extra prompt", ParseRequest{Resume: txtUpload(plainResume), JobSpecText: "Go dev", ExtraPrompt: strings.Repeat("b", 501)}, apperror.CodeInvalidInput},
		{"extra prompt without job", ParseRequest{Resume: txtUpload(plainResume), ExtraPrompt: "be brief"}, apperror.CodeInvalidInput},
		{"bad tone", ParseRequest{Resume: txtUpload(plainResume), JobSpecText: "Go dev", Tone: "Sarcastic"}, apperror.CodeInvalidInput},
		{"unknown color", ParseRequest{Resume: txtUpload(plainResume), CustomColors: `{"--link-color": "#000"}`}, apperror.CodeInvalidInput},
		{"bad file type", ParseRequest{Resume: intake.FromBytes("cv.docx", "application/msword", []byte("x"))}, apperror.CodeInvalidInput},
		{"both job inputs", ParseRequest{
			Resume:      txtUpload(plainResume),
			JobSpecText: "Go dev",
			JobSpecFile: func() *intake.Upload { u := txtUpload("job"); return &u }(),
		}, apperror.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Parse(context.Background(), tt.req, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperror.CodeOf(err))
		})
	}
	assert.Equal(t, 0, fake.Calls())
}

func TestParse_TailoringDisabled(t *testing.T) {
	uc := regexOnly(&mockStore{})
	_, err := uc.Parse(context.Background(), ParseRequest{Resume: txtUpload(plainResume), JobSpecText: "Go developer"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeFeatureDisabled, apperror.CodeOf(err))
}

const tailoredJSON = `{
  "name": "John Smith",
  "title": "Frontend Engineer",
  "contact": {"email": "john@example.com"},
  "experience": [{"title": "Engineer", "company": "Acme", "duration": "2020-2022", "details": ["Built React apps"]}],
  "skills": ["React"]
}`

func TestParse_Tailoring(t *testing.T) {
	fake := &aitest.FakeClient{Replies: []aitest.Reply{
		{Match: "from a job posting", Text: `{"positionTitle": "Frontend Engineer", "requiredSkills": ["5+ years React"], "yearsExperience": 5}`},
		{Match: "Tailor the resume below", Text: tailoredJSON},
	}}
	uc := NewResumeUsecase(ResumeDeps{
		Resumes:          &mockStore{},
		Reader:           intake.NewReader(nil),
		Extractor:        extraction.NewResumeExtractor(nil, 0),
		JobSpecs:         &extraction.JobSpecExtractor{Client: fake},
		Tailor:           tailoring.New(fake, time.Second),
		TailoringEnabled: true,
	})

	res, err := uc.Parse(context.Background(), ParseRequest{
		Resume:      txtUpload(plainResume),
		JobSpecText: "Frontend Engineer. Requires 5+ years React.",
		Tone:        "Creative",
	}, nil)
	require.NoError(t, err)

	require.Equal(t, 2, fake.Calls())
	var tailorPrompt string
	for _, p := range fake.Prompts {
		if strings.Contains(p, "Tailor the resume below") {
			tailorPrompt = p
		}
	}
	assert.Contains(t, tailorPrompt, "Creative")
	assert.Contains(t, tailorPrompt, "5+ years React")

	assert.True(t, res.Meta.Tailored)
	assert.Equal(t, "Frontend Engineer", res.Resume.Title)
	assert.Equal(t, "Tailored for Frontend Engineer; emphasising 5+ years React; 5+ years; Creative tone", res.Meta.JobCommentary)
	assert.False(t, res.Meta.JobSpecDegraded)
}

func TestParse_TailoringFailureIsHard(t *testing.T) {
	fake := &aitest.FakeClient{Replies: []aitest.Reply{
		{Match: "from a job posting", Text: `{"positionTitle": "SRE"}`},
		{Match: "Tailor the resume below", Text: `{"experience": "not a list"}`},
	}}
	uc := NewResumeUsecase(ResumeDeps{
		Resumes:          &mockStore{},
		Reader:           intake.NewReader(nil),
		Extractor:        extraction.NewResumeExtractor(nil, 0),
		JobSpecs:         &extraction.JobSpecExtractor{Client: fake},
		Tailor:           tailoring.New(fake, time.Second),
		TailoringEnabled: true,
	})
	_, err := uc.Parse(context.Background(), ParseRequest{Resume: txtUpload(plainResume), JobSpecText: "SRE"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeAdaptationFailed, apperror.CodeOf(err))
}

func TestParse_AuthenticatedSaveRetriesSlug(t *testing.T) {
	store := &mockStore{}
	id := uuid.MustParse(resumeID)
	store.On("Create", mock.Anything, mock.AnythingOfType("*model.Resume")).Return(repository.ErrSlugTaken).Once()
	store.On("Create", mock.Anything, mock.AnythingOfType("*model.Resume")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Resume).ID = id
	}).Once()
	store.On("UpdateEmbedding", mock.Anything, resumeID, []float32{0.1, 0.2}).Return(nil).Once()

	uc := regexOnly(store)
	uc.Embedder = &aitest.FakeEmbedder{Vector: []float32{0.1, 0.2}}

	res, err := uc.Parse(context.Background(), ParseRequest{OwnerID: ownerID, Resume: txtUpload(plainResume)}, nil)
	require.NoError(t, err)
	assert.True(t, res.Meta.Persisted)
	assert.Equal(t, resumeID, res.Meta.ID)
	assert.Equal(t, "john-smith-abc12345", res.Meta.Slug)

	created := store.Calls[1].Arguments.Get(1).(*model.Resume)
	assert.Equal(t, ownerID, created.OwnerID)
	assert.Equal(t, string(extraction.MethodRegex), created.Method)
	assert.Equal(t, "{}", created.AdditionalContext)
	store.AssertExpectations(t)
}

func TestParse_SaveFailureIsPersistenceError(t *testing.T) {
	store := &mockStore{}
	store.On("Create", mock.Anything, mock.Anything).Return(repository.ErrSlugTaken).Times(slugAttempts)

	_, err := regexOnly(store).Parse(context.Background(), ParseRequest{OwnerID: ownerID, Resume: txtUpload(plainResume)}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.CodePersistence, apperror.CodeOf(err))
	store.AssertNumberOfCalls(t, "Create", slugAttempts)
}

func TestParse_EmbeddingFailureIgnored(t *testing.T) {
	store := &mockStore{}
	store.On("Create", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Resume).ID = uuid.MustParse(resumeID)
	})
	uc := regexOnly(store)
	uc.Embedder = &aitest.FakeEmbedder{Err: errors.New("quota")}

	res, err := uc.Parse(context.Background(), ParseRequest{OwnerID: ownerID, Resume: txtUpload(plainResume)}, nil)
	require.NoError(t, err)
	assert.True(t, res.Meta.Persisted)
	store.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
}

func newGuestStore(t *testing.T) *repository.GuestStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return repository.NewGuestStore(rdb, 30*time.Minute)
}

func TestGuestLifecycle(t *testing.T) {
	uc := regexOnly(&mockStore{})
	uc.Guests = newGuestStore(t)
	ctx := context.Background()

	res, err := uc.Parse(ctx, ParseRequest{Resume: txtUpload(plainResume)}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Meta.GuestToken)
	require.NotNil(t, res.Meta.GuestExpiresAt)

	got, err := uc.GetGuest(ctx, res.Meta.GuestToken)
	require.NoError(t, err)
	assert.Equal(t, res.Resume.Name, got.Resume.Name)
	assert.Equal(t, extraction.MethodRegex, got.Meta.Method)

	require.NoError(t, uc.DeleteGuest(ctx, res.Meta.GuestToken))
	_, err = uc.GetGuest(ctx, res.Meta.GuestToken)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(uc.DeleteGuest(ctx, res.Meta.GuestToken)))
}

func TestGuest_Disabled(t *testing.T) {
	uc := regexOnly(&mockStore{})
	_, err := uc.GetGuest(context.Background(), "x")
	assert.Equal(t, apperror.CodeFeatureDisabled, apperror.CodeOf(err))
}

const storedJSON = `{"name":"John Smith","contact":{"email":"john@example.com"}}`

func storedRow() *model.Resume {
	return &model.Resume{
		ID:         uuid.MustParse(resumeID),
		OwnerID:    ownerID,
		Slug:       "john-smith-abc12345",
		ParsedData: storedJSON,
		Version:    2,
	}
}

func TestUpdate_Idempotent(t *testing.T) {
	store := &mockStore{}
	var seen []string
	store.On("Replace", mock.Anything, resumeID, ownerID, mock.Anything).Return(storedRow(), nil).Run(func(args mock.Arguments) {
		seen = append(seen, *args.Get(3).(repository.ResumeUpdate).ParsedData)
	})
	uc := regexOnly(store)

	payload := json.RawMessage(`{"name":"John Smith","experience":[{"title":"Engineer","company":"Acme"}]}`)
	for i := 0; i < 2; i++ {
		_, err := uc.Update(context.Background(), ownerID, resumeID, UpdateRequest{ParsedData: payload})
		require.NoError(t, err)
	}
	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
	assert.Contains(t, seen[0], `"id":"`)
}

func TestUpdate_Errors(t *testing.T) {
	store := &mockStore{}
	version := 1
	store.On("Replace", mock.Anything, resumeID, ownerID, repository.ResumeUpdate{
		IsPublic:        boolPtr(true),
		ExpectedVersion: &version,
	}).Return(nil, repository.ErrVersionConflict)
	store.On("Replace", mock.Anything, resumeID, "intruder", mock.Anything).Return(nil, repository.ErrNotFound)
	uc := regexOnly(store)
	ctx := context.Background()

	_, err := uc.Update(ctx, ownerID, "not-a-uuid", UpdateRequest{IsPublic: boolPtr(true)})
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))

	_, err = uc.Update(ctx, ownerID, resumeID, UpdateRequest{})
	assert.Equal(t, apperror.CodeInvalidInput, apperror.CodeOf(err))

	_, err = uc.Update(ctx, ownerID, resumeID, UpdateRequest{ParsedData: json.RawMessage(`{"skills": "go"}`)})
	assert.Equal(t, apperror.CodeValidationFailed, apperror.CodeOf(err))
	var verr *schema.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = uc.Update(ctx, ownerID, resumeID, UpdateRequest{IsPublic: boolPtr(true), ExpectedVersion: &version})
	assert.Equal(t, apperror.CodeConflict, apperror.CodeOf(err))

	_, err = uc.Update(ctx, "intruder", resumeID, UpdateRequest{IsPublic: boolPtr(false)})
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func boolPtr(b bool) *bool { return &b }

func TestDelete(t *testing.T) {
	store := &mockStore{}
	store.On("Delete", mock.Anything, resumeID, ownerID).Return(nil).Once()
	store.On("Delete", mock.Anything, resumeID, "other").Return(repository.ErrNotFound).Once()
	uc := regexOnly(store)

	require.NoError(t, uc.Delete(context.Background(), ownerID, resumeID))
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(uc.Delete(context.Background(), "other", resumeID)))
	store.AssertExpectations(t)
}

func TestList(t *testing.T) {
	store := &mockStore{}
	store.On("ListByOwner", mock.Anything, ownerID, 1, 10).Return([]model.Resume{*storedRow()}, int64(11), nil)
	uc := regexOnly(store)

	rows, page, err := uc.List(context.Background(), ownerID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.True(t, page.HasMore)
}

func TestGetPublic(t *testing.T) {
	store := &mockStore{}
	public := storedRow()
	public.IsPublic = true
	private := storedRow()
	private.Slug = "hidden"

	store.On("FindBySlug", mock.Anything, public.Slug).Return(public, nil)
	store.On("FindBySlug", mock.Anything, "hidden").Return(private, nil)
	store.On("FindBySlug", mock.Anything, "missing").Return(nil, repository.ErrNotFound)
	store.On("IncrementViews", mock.Anything, resumeID).Return(nil).Once()
	uc := regexOnly(store)
	ctx := context.Background()

	got, err := uc.GetPublic(ctx, public.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)

	_, err = uc.GetPublic(ctx, "hidden")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
	_, err = uc.GetPublic(ctx, "missing")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
	store.AssertExpectations(t)
}

func TestExport(t *testing.T) {
	store := &mockStore{}
	store.On("FindForOwner", mock.Anything, resumeID, ownerID).Return(storedRow(), nil)
	store.On("IncrementDownloads", mock.Anything, resumeID).Return(nil).Twice()
	uc := regexOnly(store)
	ctx := context.Background()

	_, err := uc.Export(ctx, ownerID, resumeID, ExportPDF, "")
	assert.Equal(t, apperror.CodeFeatureDisabled, apperror.CodeOf(err))

	out, err := uc.Export(ctx, ownerID, resumeID, ExportHTML, "modern")
	require.NoError(t, err)
	assert.Equal(t, "john-smith-abc12345.html", out.Filename)
	assert.Contains(t, string(out.Body), "<h1>John Smith</h1>")
	assert.Contains(t, string(out.Body), "modern")

	uc.PDF = fakePDF{}
	out, err = uc.Export(ctx, ownerID, resumeID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.True(t, strings.HasPrefix(string(out.Body), "%PDF-"))

	_, err = uc.Export(ctx, ownerID, resumeID, ExportHTML, "fancy")
	assert.Equal(t, apperror.CodeInvalidInput, apperror.CodeOf(err))
	store.AssertExpectations(t)
}

func TestSearch(t *testing.T) {
	store := &mockStore{}
	vec := []float32{1, 0}
	store.On("SearchSimilar", mock.Anything, ownerID, vec, defaultTopK).Return([]model.ResumeMatch{{Resume: *storedRow(), Distance: 0.25}}, nil)
	uc := regexOnly(store)
	ctx := context.Background()

	_, err := uc.Search(ctx, ownerID, "go", 0)
	assert.Equal(t, apperror.CodeFeatureDisabled, apperror.CodeOf(err))

	emb := &aitest.FakeEmbedder{Vector: vec}
	uc.Embedder = emb
	_, err = uc.Search(ctx, ownerID, "  ", 0)
	assert.Equal(t, apperror.CodeInvalidInput, apperror.CodeOf(err))

	matches, err := uc.Search(ctx, ownerID, "golang backend", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0.25, matches[0].Distance)
	assert.Equal(t, []string{"golang backend"}, emb.Texts)
}

func TestEmbeddingText(t *testing.T) {
	text := EmbeddingText(&schema.ParsedResume{
		Name:       "Ada",
		Experience: []schema.Experience{{Title: "Analyst", Company: "Engine Co", Details: []string{"Wrote notes"}}},
		Skills:     []string{"math", "poetry"},
	})
	assert.Equal(t, "Ada\nAnalyst Engine Co\nWrote notes\nmath, poetry\n", text)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "jane-o-neil", slugify("  Jane O'Neil "))
	assert.Equal(t, "resume", slugify("李"))
	assert.LessOrEqual(t, len(slugify(strings.Repeat("a", 200))), 60)
}
