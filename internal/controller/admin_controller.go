package controller

import (
	"context"

	"tricys-client/internal/dto"
	"tricys-client/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

// UserDirectory is the user listing side of the backend, open to superusers.
type UserDirectory interface {
	ListUsers(ctx context.Context, skip, limit int) ([]dto.User, error)
	GetUser(ctx context.Context, userID string) (*dto.User, error)
}

type IAdminController interface {
	RegisterRoutes(r fiber.Router, adminMiddleware fiber.Handler)
	GetAllUsers(ctx *fiber.Ctx) error
	GetUserDetail(ctx *fiber.Ctx) error
}

type adminController struct {
	users UserDirectory
}

func NewAdminController(users UserDirectory) IAdminController {
	return &adminController{users: users}
}

func (c *adminController) RegisterRoutes(r fiber.Router, adminMiddleware fiber.Handler) {
	h := r.Group("/admin", adminMiddleware)
	h.Get("/users", c.GetAllUsers)
	h.Get("/users/:id", c.GetUserDetail)
}

func (c *adminController) GetAllUsers(ctx *fiber.Ctx) error {
	users, err := c.users.ListUsers(ctx.UserContext(), ctx.QueryInt("skip", 0), ctx.QueryInt("limit", 100))
	if err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Users retrieved", users))
}

func (c *adminController) GetUserDetail(ctx *fiber.Ctx) error {
	user, err := c.users.GetUser(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("User retrieved", user))
}
