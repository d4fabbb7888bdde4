package handler

import (
	"time"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/dto"
	"github.com/fadilmartias/cv-builder/internal/figma"
	"github.com/fadilmartias/cv-builder/internal/middleware"
	"github.com/fadilmartias/cv-builder/internal/usecase"
	"github.com/fadilmartias/cv-builder/internal/util"
	"github.com/gofiber/fiber/v2"
)

type FigmaHandler struct {
	uc *usecase.FigmaUsecase
}

func NewFigmaHandler(uc *usecase.FigmaUsecase) *FigmaHandler {
	return &FigmaHandler{uc: uc}
}

func (h *FigmaHandler) RegisterRoutes(app *fiber.App) {
	app.All("/api/adapt-figma-resume", middleware.RateLimiter(20, time.Minute), h.Adapt)
}

type adaptResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Result  *figma.Result `json:"result,omitempty"`
	Error   apperror.Code `json:"error,omitempty"`
	Details any           `json:"details,omitempty"`
}

func (h *FigmaHandler) Adapt(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		c.Set(fiber.HeaderAllow, fiber.MethodPost)
		return util.AppErrorResponse(c, apperror.New(apperror.CodeMethodNotAllowed, "Only POST is supported"))
	}

	var body dto.AdaptFigmaRequest
	if err := c.BodyParser(&body); err != nil {
		return util.AppErrorResponse(c, apperror.Wrap(apperror.CodeInvalidInput, "Request body must be JSON", err))
	}
	if err := util.ValidateStruct(body); err != nil {
		return util.AppErrorResponse(c, err)
	}

	res, err := h.uc.Adapt(c.UserContext(), usecase.AdaptRequest{
		FigmaLink:        body.FigmaLink,
		ResumeData:       body.ResumeData,
		Strategy:         body.AdaptationStrategy,
		CustomMappings:   body.CustomMappings,
		PreserveElements: body.PreserveElements,
		ColorScheme:      body.ColorScheme,
		ComponentName:    body.ComponentName,
	})
	if err != nil {
		if res == nil {
			return util.AppErrorResponse(c, err)
		}
		appErr := apperror.From(err)
		return c.Status(appErr.Status()).JSON(adaptResponse{
			Message: appErr.Message,
			Result:  res,
			Error:   appErr.Code,
			Details: res.Errors,
		})
	}

	return c.JSON(adaptResponse{
		Success: true,
		Message: "Success adapt figma design",
		Result:  res,
	})
}
