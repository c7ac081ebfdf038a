package serverutils

import "github.com/gofiber/fiber/v2"

// SessionChecker reports whether the viewer has a logged-in user.
type SessionChecker interface {
	IsAuthenticated() bool
}

// AdminChecker also knows whether that user is a superuser.
type AdminChecker interface {
	SessionChecker
	IsAdmin() bool
}

// SessionMiddleware rejects requests while nobody is logged in.
func SessionMiddleware(session SessionChecker) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if !session.IsAuthenticated() {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Please login to access the system."))
		}
		return ctx.Next()
	}
}

func AdminMiddleware(session AdminChecker) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if !session.IsAuthenticated() {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Please login to access the system."))
		}
		if !session.IsAdmin() {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(fiber.StatusForbidden, "Administrator privileges required."))
		}
		return ctx.Next()
	}
}
