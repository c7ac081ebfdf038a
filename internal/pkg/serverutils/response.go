package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func SuccessResponse(message string, data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"code":    fiber.StatusOK,
		"message": message,
		"data":    data,
	}
}

func ErrorResponse(code int, message string) fiber.Map {
	return fiber.Map{
		"success": false,
		"code":    code,
		"message": message,
		"data":    nil,
	}
}

// ErrorHandlerMiddleware renders errors returned by later handlers in the
// same envelope as ErrorResponse.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
