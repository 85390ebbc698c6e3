package serverutils

import (
	"errors"
	"log"

	"corp-tax-agent-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// StatusOf maps an error kind to an HTTP status.
func StatusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation, apperror.KindIntentParse:
		return fiber.StatusBadRequest
	case apperror.KindNotFound, apperror.KindSnapshotNotFound:
		return fiber.StatusNotFound
	case apperror.KindDataUnavailable:
		return fiber.StatusServiceUnavailable
	case apperror.KindTimeout:
		return fiber.StatusGatewayTimeout
	case apperror.KindParameterMissing, apperror.KindLowConfidence:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into the
// standard response body. Internal errors are logged and hidden.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
		}

		var ae *apperror.Error
		if !errors.As(err, &ae) {
			log.Printf("[HTTP] %s %s: %v", ctx.Method(), ctx.Path(), err)
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
		}

		status := StatusOf(ae.Kind)
		message := ae.Message
		switch {
		case status == fiber.StatusInternalServerError:
			log.Printf("[HTTP] %s %s: %v", ctx.Method(), ctx.Path(), err)
			message = "Internal server error"
		case message == "":
			message = utils.StatusMessage(status)
		}
		res := ErrorResponse(status, message)
		res.ErrorKind = string(ae.Kind)
		return ctx.Status(status).JSON(res)
	}
}
