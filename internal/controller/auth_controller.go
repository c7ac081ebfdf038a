package controller

import (
	"tricys-client/internal/dto"
	"tricys-client/internal/pkg/serverutils"
	"tricys-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Me(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
}

func NewAuthController(service service.IAuthService) IAuthController {
	return &authController{service: service}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/register", c.Register)
	h.Post("/login", c.Login)
	h.Post("/logout", c.Logout)
	h.Get("/me", c.Me)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx)
	}
	if err := dto.Validate(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, err.Error()))
	}

	res := c.service.Register(ctx.UserContext(), req)
	if !res.Success {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, res.Message))
	}
	return ctx.JSON(serverutils.SuccessResponse("User registered successfully", res.User))
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req loginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx)
	}
	if err := dto.Validate(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, err.Error()))
	}

	res := c.service.Login(ctx.UserContext(), req.Username, req.Password)
	if !res.Success {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, res.Message))
	}
	return ctx.JSON(serverutils.SuccessResponse("Login successful", res.User))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	c.service.Logout(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Logged out successfully", nil))
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	user := c.service.CurrentUser()
	if user == nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Not logged in"))
	}
	return ctx.JSON(serverutils.SuccessResponse("User retrieved", user))
}
