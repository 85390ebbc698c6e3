package controller

import (
	"corp-tax-agent-be/internal/dto"
	"corp-tax-agent-be/internal/pkg/serverutils"
	"corp-tax-agent-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRetrievalController interface {
	RegisterRoutes(r fiber.Router)
	Search(ctx *fiber.Ctx) error
}

type retrievalController struct {
	service service.IRetrievalService
}

func NewRetrievalController(service service.IRetrievalService) IRetrievalController {
	return &retrievalController{service: service}
}

func (c *retrievalController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/retrieval/v1")
	h.Get("/search", c.Search)
}

func (c *retrievalController) Search(ctx *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Search(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search", res))
}
