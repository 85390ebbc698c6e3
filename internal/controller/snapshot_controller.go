package controller

import (
	"corp-tax-agent-be/internal/dto"
	"corp-tax-agent-be/internal/pkg/serverutils"
	"corp-tax-agent-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISnapshotController interface {
	RegisterRoutes(r fiber.Router, adminGuard fiber.Handler)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
}

type snapshotController struct {
	service service.ISnapshotService
}

func NewSnapshotController(service service.ISnapshotService) ISnapshotController {
	return &snapshotController{service: service}
}

func (c *snapshotController) RegisterRoutes(r fiber.Router, adminGuard fiber.Handler) {
	h := r.Group("/snapshot/v1")
	h.Get("", c.List)
	h.Post("", adminGuard, c.Create)
}

func (c *snapshotController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSnapshotRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Snapshot created", res))
}

func (c *snapshotController) List(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get snapshots", res))
}
