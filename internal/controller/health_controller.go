package controller

import (
	"context"
	"time"

	"corp-tax-agent-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	db      *gorm.DB
	backend string
}

// NewHealthController reports database reachability and the report backend.
func NewHealthController(db *gorm.DB, reportBackend string) IHealthController {
	return &healthController{db: db, backend: reportBackend}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	status := map[string]string{"database": "ok", "report_storage": c.backend}

	pingCtx, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
	defer cancel()
	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(pingCtx)
	}
	if err != nil {
		status["database"] = "unreachable"
		res := serverutils.BaseResponse[map[string]string]{Code: fiber.StatusServiceUnavailable, Message: "Degraded", Data: status}
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(res)
	}
	return ctx.JSON(serverutils.SuccessResponse("OK", status))
}
