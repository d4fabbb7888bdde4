package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/config"
	"github.com/fadilmartias/cv-builder/internal/dto"
	"github.com/fadilmartias/cv-builder/internal/intake"
	"github.com/fadilmartias/cv-builder/internal/middleware"
	"github.com/fadilmartias/cv-builder/internal/usecase"
	"github.com/fadilmartias/cv-builder/internal/util"
	"github.com/gofiber/fiber/v2"
)

type ResumeHandler struct {
	uc   *usecase.ResumeUsecase
	auth *middleware.Auth
}

func NewResumeHandler(uc *usecase.ResumeUsecase, auth *middleware.Auth) *ResumeHandler {
	return &ResumeHandler{uc: uc, auth: auth}
}

func (h *ResumeHandler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Post("/parse-resume", h.auth.Optional(), middleware.RateLimiter(10, time.Minute), h.Parse)
	api.Post("/parse-resume-enhanced", h.auth.Optional(), middleware.RateLimiter(10, time.Minute), h.ParseStream)

	api.Get("/public/:slug", h.Public)
	api.Get("/guest/:token", h.Guest)
	api.Delete("/guest/:token", h.DeleteGuest)

	resumes := api.Group("/resumes", h.auth.Required())
	resumes.Get("/", h.List)
	resumes.Get("/search", h.Search)
	resumes.Get("/:id", h.Get)
	resumes.Put("/:id", h.Update)
	resumes.Delete("/:id", h.Delete)
	resumes.Get("/:id/export", h.Export)
}

func (h *ResumeHandler) parseRequest(c *fiber.Ctx) (usecase.ParseRequest, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return usecase.ParseRequest{}, apperror.Wrap(apperror.CodeInvalidInput, "Resume file is required", err)
	}
	req := usecase.ParseRequest{
		OwnerID:      middleware.UserID(c),
		Resume:       intake.FromMultipart(file),
		JobSpecText:  c.FormValue("jobSpecText"),
		Tone:         c.FormValue("tone"),
		ExtraPrompt:  c.FormValue("extraPrompt"),
		ProfileImage: c.FormValue("profileImage"),
		CustomColors: c.FormValue("customColors"),
	}
	if jobFile, err := c.FormFile("jobSpecFile"); err == nil {
		u := intake.FromMultipart(jobFile)
		req.JobSpecFile = &u
	}
	return req, nil
}

func (h *ResumeHandler) Parse(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	res, err := h.uc.Parse(c.UserContext(), req, nil)
	if err != nil {
		log.Printf("parse resume %q: %v", req.Resume.Filename, err)
		return util.AppErrorResponse(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success parse resume",
		Data:    res.Resume,
		Meta:    res.Meta,
	})
}

type streamEvent struct {
	Status   string        `json:"status"`
	Stage    string        `json:"stage,omitempty"`
	Progress int           `json:"progress,omitempty"`
	Message  string        `json:"message,omitempty"`
	Data     any           `json:"data,omitempty"`
	Meta     any           `json:"meta,omitempty"`
	Error    apperror.Code `json:"error,omitempty"`
}

const (
	streamProcessing = "processing"
	streamCompleted  = "completed"
	streamError      = "error"
)

// ParseStream runs the same parse as Parse and writes each progress step as a
// "data: <json>" chunk. The last chunk has status completed or error.
func (h *ResumeHandler) ParseStream(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err == nil {
		req, err = detachUploads(req)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		if err != nil {
			writeEvent(w, failedEvent(err))
			return
		}
		// the request context is gone once the handler returns
		ctx, cancel := context.WithTimeout(context.Background(), config.LoadAppConfig().StreamTimeout)
		defer cancel()

		res, perr := h.uc.Parse(ctx, req, func(p usecase.Progress) {
			if werr := writeEvent(w, streamEvent{
				Status:   streamProcessing,
				Stage:    p.Stage,
				Progress: p.Percent,
				Message:  p.Message,
			}); werr != nil {
				cancel()
			}
		})
		if perr != nil {
			log.Printf("parse resume (stream) %q: %v", req.Resume.Filename, perr)
			writeEvent(w, failedEvent(perr))
			return
		}
		writeEvent(w, streamEvent{
			Status:   streamCompleted,
			Progress: 100,
			Message:  "Success parse resume",
			Data:     res.Resume,
			Meta:     res.Meta,
		})
	})
	return nil
}

func failedEvent(err error) streamEvent {
	appErr := apperror.From(err)
	return streamEvent{Status: streamError, Message: appErr.Message, Error: appErr.Code}
}

func writeEvent(w *bufio.Writer, ev streamEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	return w.Flush()
}

// detachUploads copies the form values and accepted uploads so they outlive
// the request buffers. Oversized files are left as is; the size check rejects
// them before they are opened.
func detachUploads(req usecase.ParseRequest) (usecase.ParseRequest, error) {
	req.OwnerID = strings.Clone(req.OwnerID)
	req.JobSpecText = strings.Clone(req.JobSpecText)
	req.Tone = strings.Clone(req.Tone)
	req.ExtraPrompt = strings.Clone(req.ExtraPrompt)
	req.ProfileImage = strings.Clone(req.ProfileImage)
	req.CustomColors = strings.Clone(req.CustomColors)

	u, err := detach(req.Resume)
	if err != nil {
		return req, err
	}
	req.Resume = u
	if req.JobSpecFile != nil {
		j, err := detach(*req.JobSpecFile)
		if err != nil {
			return req, err
		}
		req.JobSpecFile = &j
	}
	return req, nil
}

func detach(u intake.Upload) (intake.Upload, error) {
	if u.Size > intake.MaxFileBytes || u.Open == nil {
		return u, nil
	}
	f, err := u.Open()
	if err != nil {
		return u, apperror.Wrap(apperror.CodeInvalidInput, "Failed to open file", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, intake.MaxFileBytes+1))
	if err != nil {
		return u, apperror.Wrap(apperror.CodeInvalidInput, "Failed to read file", err)
	}
	return intake.FromBytes(strings.Clone(u.Filename), strings.Clone(u.ContentType), data), nil
}

func (h *ResumeHandler) List(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := c.QueryParser(&q); err != nil {
		return util.AppErrorResponse(c, apperror.Wrap(apperror.CodeInvalidInput, "Invalid query", err))
	}
	if err := util.ValidateStruct(q); err != nil {
		return util.AppErrorResponse(c, err)
	}
	rows, page, err := h.uc.List(c.UserContext(), middleware.UserID(c), q.Page, q.PageSize)
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	data, err := dto.NewResumeDTOs(rows)
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message:    "Success get resumes",
		Data:       data,
		Pagination: page,
	})
}

func (h *ResumeHandler) Search(c *fiber.Ctx) error {
	var q dto.SearchQuery
	if err := c.QueryParser(&q); err != nil {
		return util.AppErrorResponse(c, apperror.Wrap(apperror.CodeInvalidInput, "Invalid query", err))
	}
	if err := util.ValidateStruct(q); err != nil {
		return util.AppErrorResponse(c, err)
	}
	matches, err := h.uc.Search(c.UserContext(), middleware.UserID(c), q.Q, q.TopK)
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	data, err := dto.NewMatchDTOs(matches)
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success search resumes",
		Data:    data,
	})
}

func (h *ResumeHandler) Get(c *fiber.Ctx) error {
	row, err := h.uc.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	data, err := dto.NewResumeDTO(row)
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	c.Set(fiber.HeaderETag, strconv.Quote(strconv.Itoa(row.Version)))
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get resume",
		Data:    data,
	})
}

func (h *ResumeHandler) Update(c *fiber.Ctx) error {
	var body dto.UpdateResumeRequest
	if err := c.BodyParser(&body); err != nil {
		return util.AppErrorResponse(c, apperror.Wrap(apperror.CodeInvalidInput, "Request body must be JSON", err))
	}
	if err := util.ValidateStruct(body); err != nil {
		return util.AppErrorResponse(c, err)
	}
	version := body.Version
	if version == nil {
		v, err := ifMatchVersion(c.Get(fiber.HeaderIfMatch))
		if err != nil {
			return util.AppErrorResponse(c, err)
		}
		version = v
	}

	row, err := h.uc.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), usecase.UpdateRequest{
		ParsedData:      body.ParsedData,
		IsPublic:        body.IsPublic,
		ExpectedVersion: version,
	})
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	data, err := dto.NewResumeDTO(row)
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	c.Set(fiber.HeaderETag, strconv.Quote(strconv.Itoa(row.Version)))
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success update resume",
		Data:    data,
	})
}

// ifMatchVersion reads a version from an If-Match header such as "3" or
// W/"3". An empty header or * means no check.
func ifMatchVersion(header string) (*int, error) {
	v := strings.TrimSpace(header)
	if v == "" || v == "*" {
		return nil, nil
	}
	v = strings.Trim(strings.TrimPrefix(v, "W/"), `"`)
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return nil, apperror.New(apperror.CodeInvalidInput, "If-Match must be a resume version")
	}
	return &n, nil
}

func (h *ResumeHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return util.AppErrorResponse(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success delete resume",
	})
}

func (h *ResumeHandler) Export(c *fiber.Ctx) error {
	var q dto.ExportQuery
	if err := c.QueryParser(&q); err != nil {
		return util.AppErrorResponse(c, apperror.Wrap(apperror.CodeInvalidInput, "Invalid query", err))
	}
	if err := util.ValidateStruct(q); err != nil {
		return util.AppErrorResponse(c, err)
	}
	out, err := h.uc.Export(c.UserContext(), middleware.UserID(c), c.Params("id"), usecase.ExportFormat(q.Format), q.Template)
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, out.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", out.Filename))
	return c.Send(out.Body)
}

func (h *ResumeHandler) Public(c *fiber.Ctx) error {
	row, err := h.uc.GetPublic(c.UserContext(), c.Params("slug"))
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	data, err := dto.NewPublicResumeDTO(row)
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get resume",
		Data:    data,
	})
}

func (h *ResumeHandler) Guest(c *fiber.Ctx) error {
	res, err := h.uc.GetGuest(c.UserContext(), c.Params("token"))
	if err != nil {
		return util.AppErrorResponse(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get guest resume",
		Data:    res.Resume,
		Meta:    res.Meta,
	})
}

func (h *ResumeHandler) DeleteGuest(c *fiber.Ctx) error {
	if err := h.uc.DeleteGuest(c.UserContext(), c.Params("token")); err != nil {
		return util.AppErrorResponse(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success delete guest resume",
	})
}
