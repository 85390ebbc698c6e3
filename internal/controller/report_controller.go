package controller

import (
	"fmt"

	"corp-tax-agent-be/internal/service"
	"corp-tax-agent-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IReportController interface {
	RegisterRoutes(r fiber.Router)
	Download(ctx *fiber.Ctx) error
}

type reportController struct {
	service service.IReportService
}

func NewReportController(service service.IReportService) IReportController {
	return &reportController{service: service}
}

func (c *reportController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/report/v1")
	h.Get("/:id/download", c.Download)
}

func (c *reportController) Download(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.New(apperror.KindValidation, "report.Download", "invalid report id")
	}

	res, err := c.service.Download(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "application/pdf")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.FileName))
	ctx.Set("X-Checksum-Blake2b", res.Checksum)
	// fasthttp closes the body once it has been streamed
	return ctx.SendStream(res.Body, int(res.SizeBytes))
}
