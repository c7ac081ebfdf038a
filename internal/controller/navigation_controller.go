package controller

import (
	"errors"

	"tricys-client/internal/pkg/logger"
	"tricys-client/internal/pkg/serverutils"
	"tricys-client/internal/router"
	"tricys-client/pkg/simulation"

	"github.com/gofiber/fiber/v2"
)

type INavigationController interface {
	RegisterRoutes(r fiber.Router)
	Navigate(ctx *fiber.Ctx) error
	ListRoutes(ctx *fiber.Ctx) error
}

type navigationController struct {
	guard  *router.Guard
	store  *simulation.Store
	logger logger.ILogger
}

func NewNavigationController(guard *router.Guard, store *simulation.Store, log logger.ILogger) INavigationController {
	return &navigationController{guard: guard, store: store, logger: log}
}

func (c *navigationController) RegisterRoutes(r fiber.Router) {
	r.Get("/routes", c.ListRoutes)
	r.Post("/navigate", c.Navigate)
}

func (c *navigationController) ListRoutes(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Routes retrieved", router.Routes()))
}

type navigateRequest struct {
	Path   string            `json:"path"`
	Name   string            `json:"name"`
	Params map[string]string `json:"params"`
	Query  map[string]string `json:"query"`
}

// Navigate runs the guard for a page change. Landing on a project page for a
// different project than the one loaded triggers a load.
func (c *navigationController) Navigate(ctx *fiber.Ctx) error {
	var req navigateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx)
	}

	to := router.Location{Name: req.Name, Params: req.Params, Query: req.Query}
	if req.Path != "" {
		loc, err := router.Resolve(req.Path)
		if err != nil {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, err.Error()))
		}
		to = loc
	}
	if _, ok := router.Lookup(to.Name); !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, router.ErrUnknownRoute.Error()))
	}

	dest, err := c.guard.Navigate(ctx.UserContext(), to)
	if err != nil {
		return ctx.Status(fiber.StatusLoopDetected).JSON(serverutils.ErrorResponse(fiber.StatusLoopDetected, err.Error()))
	}

	if pid := dest.Query[router.ProjectQuery]; pid != "" && router.ProjectScoped(dest.Name) && pid != c.store.CurrentProjectID() {
		if _, err := c.store.LoadData(ctx.UserContext(), pid); err != nil && !errors.Is(err, simulation.ErrStaleLoad) {
			c.logger.Warn("NavigationController", "Project load on navigation failed", map[string]interface{}{"project_id": pid, "error": err.Error()})
		}
	}

	path, err := router.Path(dest)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(fiber.StatusInternalServerError, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Navigation resolved", fiber.Map{
		"location":   dest,
		"path":       path,
		"redirected": dest.Name != to.Name,
	}))
}
