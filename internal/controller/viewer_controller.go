package controller

import (
	"encoding/json"
	"errors"

	"tricys-client/internal/dto"
	"tricys-client/internal/pkg/serverutils"
	"tricys-client/pkg/simulation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type IViewerController interface {
	RegisterRoutes(r fiber.Router, sessionMiddleware fiber.Handler)
}

type viewerController struct {
	store *simulation.Store
}

func NewViewerController(store *simulation.Store) IViewerController {
	return &viewerController{store: store}
}

func (c *viewerController) RegisterRoutes(r fiber.Router, sessionMiddleware fiber.Handler) {
	r.Get("/state", c.GetState)

	// Playback and alerts only move the local cursor.
	r.Post("/playback/step", c.StepTime)
	r.Post("/playback/seek", c.SeekTime)
	r.Post("/playback/:action", c.Playback)
	r.Post("/alerts/confirm", c.ConfirmAlert)
	r.Post("/alerts/ignore/:id", c.IgnoreAlert)
	r.Post("/selection/:id", c.ToggleSelection)
	r.Delete("/selection", c.ClearSelection)
	r.Post("/groups/:id/expand", c.ExpandGroup)
	r.Post("/dashboard/viewport", c.SetViewport)
	r.Post("/results/clear", c.ClearResults)

	// Writes need a session.
	r.Post("/project/load", sessionMiddleware, c.LoadProject)
	r.Post("/project/reset", sessionMiddleware, c.ResetSession)
	r.Put("/alerts/rules", sessionMiddleware, c.SaveAlertRules)
	r.Post("/params", sessionMiddleware, c.UpdateParam)
	r.Post("/params/revert", sessionMiddleware, c.RevertParam)
	r.Post("/groups", sessionMiddleware, c.CreateGroup)
	r.Delete("/groups/:id", sessionMiddleware, c.DissolveGroup)
	r.Post("/connections/sync", sessionMiddleware, c.SyncConnections)
	r.Post("/connections/:id/style", sessionMiddleware, c.UpdateConnectionStyle)
	r.Post("/components/:id/position", sessionMiddleware, c.SavePosition)
	r.Get("/sidebar", sessionMiddleware, c.GetSidebar)
	r.Put("/sidebar", sessionMiddleware, c.SaveSidebar)
	r.Put("/task/current", sessionMiddleware, c.SetCurrentTask)
}

func (c *viewerController) GetState(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("State retrieved", c.store.Snapshot()))
}

type loadProjectRequest struct {
	ProjectID string `json:"project_id"`
}

func (c *viewerController) LoadProject(ctx *fiber.Ctx) error {
	var req loadProjectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx)
	}
	structure, err := c.store.LoadData(ctx.UserContext(), req.ProjectID)
	switch {
	case errors.Is(err, simulation.ErrNoProject):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, err.Error()))
	case errors.Is(err, simulation.ErrStaleLoad):
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(fiber.StatusConflict, err.Error()))
	case err != nil:
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(fiber.StatusBadGateway, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Project loaded", structure))
}

func (c *viewerController) ResetSession(ctx *fiber.Ctx) error {
	c.store.ResetSession()
	return ctx.JSON(serverutils.SuccessResponse("Session reset", nil))
}

func (c *viewerController) Playback(ctx *fiber.Ctx) error {
	switch ctx.Params("action") {
	case "play":
		c.store.Play()
	case "pause":
		c.store.Pause()
	case "toggle":
		c.store.TogglePlay()
	default:
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, "Unknown playback action"))
	}
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{"is_playing": c.store.IsPlaying()}))
}

type stepRequest struct {
	Delta *float64 `json:"delta"`
}

func (c *viewerController) StepTime(ctx *fiber.Ctx) error {
	var req stepRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx)
	}
	delta := c.store.SimulationStep()
	if req.Delta != nil {
		delta = *req.Delta
	}
	c.store.StepTime(delta)
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{"current_time": c.store.CurrentTime()}))
}

type seekRequest struct {
	Time float64 `json:"time"`
}

func (c *viewerController) SeekTime(ctx *fiber.Ctx) error {
	var req seekRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx)
	}
	c.store.SetTime(req.Time)
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{"current_time": c.store.CurrentTime()}))
}

func (c *viewerController) ConfirmAlert(ctx *fiber.Ctx) error {
	c.store.ConfirmAlert()
	return ctx.JSON(serverutils.SuccessResponse("Alert confirmed", nil))
}

func (c *viewerController) IgnoreAlert(ctx *fiber.Ctx) error {
	c.store.IgnoreAlert(pathID(ctx))
	return ctx.JSON(serverutils.SuccessResponse("Alert ignored", nil))
}

func (c *viewerController) SaveAlertRules(ctx *fiber.Ctx) error {
	if c.store.ReadOnly() {
		return readOnly(ctx)
	}
	var rules map[string]dto.AlertRule
	if err := ctx.BodyParser(&rules); err != nil {
		return badRequest(ctx)
	}
	for id, rule := range rules {
		if err := dto.Validate(rule); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, id+": "+err.Error()))
		}
	}
	if err := c.store.SaveAlertRules(ctx.UserContext(), rules); err != nil {
		return saveFailed(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Alert rules saved", c.store.AlertRules()))
}

type paramRequest struct {
	Component string      `json:"component"`
	Param     string      `json:"param"`
	Value     interface{} `json:"value"`
}

func (c *viewerController) UpdateParam(ctx *fiber.Ctx) error {
	if c.store.ReadOnly() {
		return readOnly(ctx)
	}
	var req paramRequest
	if err := ctx.BodyParser(&req); err != nil || req.Param == "" {
		return badRequest(ctx)
	}
	if req.Component == "" {
		req.Component = "global"
	}
	if err := c.store.UpdateParam(ctx.UserContext(), req.Component, req.Param, req.Value); err != nil {
		return saveFailed(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Parameter updated", c.store.ModifiedParams()))
}

func (c *viewerController) RevertParam(ctx *fiber.Ctx) error {
	if c.store.ReadOnly() {
		return readOnly(ctx)
	}
	var req paramRequest
	if err := ctx.BodyParser(&req); err != nil || req.Param == "" {
		return badRequest(ctx)
	}
	if req.Component == "" {
		req.Component = "global"
	}
	reverted, err := c.store.RevertParam(ctx.UserContext(), req.Component, req.Param)
	if err != nil {
		return saveFailed(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{"reverted": reverted}))
}

type groupRequest struct {
	Name string `json:"name"`
}

func (c *viewerController) CreateGroup(ctx *fiber.Ctx) error {
	if c.store.ReadOnly() {
		return readOnly(ctx)
	}
	var req groupRequest
	_ = ctx.BodyParser(&req)
	id, err := c.store.CreateGroup(ctx.UserContext(), req.Name)
	if errors.Is(err, simulation.ErrSelectionTooSmall) {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, err.Error()))
	}
	if err != nil {
		return saveFailed(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Group created", fiber.Map{"id": id}))
}

func (c *viewerController) DissolveGroup(ctx *fiber.Ctx) error {
	if c.store.ReadOnly() {
		return readOnly(ctx)
	}
	if err := c.store.DissolveGroup(ctx.UserContext(), pathID(ctx)); err != nil {
		return saveFailed(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Group dissolved", nil))
}

func (c *viewerController) ExpandGroup(ctx *fiber.Ctx) error {
	id := pathID(ctx)
	if c.store.IsExpanded(id) {
		id = ""
	}
	c.store.SetExpandedGroup(id)
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{"expanded_group": id}))
}

func (c *viewerController) ToggleSelection(ctx *fiber.Ctx) error {
	c.store.ToggleMultiSelect(pathID(ctx))
	return ctx.JSON(serverutils.SuccessResponse("OK", c.store.Selection()))
}

func (c *viewerController) ClearSelection(ctx *fiber.Ctx) error {
	c.store.ClearSelection()
	return ctx.JSON(serverutils.SuccessResponse("OK", nil))
}

func (c *viewerController) UpdateConnectionStyle(ctx *fiber.Ctx) error {
	if c.store.ReadOnly() {
		return readOnly(ctx)
	}
	var style dto.ConnectionStyle
	if err := ctx.BodyParser(&style); err != nil {
		return badRequest(ctx)
	}
	id := pathID(ctx)
	c.store.UpdateConnectionStyle(ctx.UserContext(), id, style)
	return ctx.JSON(serverutils.SuccessResponse("Style updated", c.store.ConnectionStyle(id)))
}

func (c *viewerController) SyncConnections(ctx *fiber.Ctx) error {
	if c.store.ReadOnly() {
		return readOnly(ctx)
	}
	style := simulation.DefaultConnectionStyle
	if err := ctx.BodyParser(&style); err != nil {
		return badRequest(ctx)
	}
	c.store.SyncAllConnections(ctx.UserContext(), style)
	return ctx.JSON(serverutils.SuccessResponse("Styles synced", c.store.ConnectionStyles()))
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (c *viewerController) SavePosition(ctx *fiber.Ctx) error {
	if c.store.ReadOnly() {
		return readOnly(ctx)
	}
	var req positionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx)
	}
	c.store.SaveComponentPosition(ctx.UserContext(), pathID(ctx), req.X, req.Y)
	return ctx.JSON(serverutils.SuccessResponse("Position saved", nil))
}

func (c *viewerController) GetSidebar(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Sidebar retrieved", c.store.FetchHiddenComponents(ctx.UserContext())))
}

func (c *viewerController) SaveSidebar(ctx *fiber.Ctx) error {
	if c.store.ReadOnly() {
		return readOnly(ctx)
	}
	body := ctx.Body()
	if !json.Valid(body) {
		return badRequest(ctx)
	}
	c.store.SaveHiddenComponents(ctx.UserContext(), append(json.RawMessage(nil), body...))
	return ctx.JSON(serverutils.SuccessResponse("Sidebar saved", c.store.SidebarConfig()))
}

type currentTaskRequest struct {
	TaskID string `json:"task_id"`
}

func (c *viewerController) SetCurrentTask(ctx *fiber.Ctx) error {
	var req currentTaskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx)
	}
	c.store.SetCurrentTaskID(req.TaskID)
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{"task_id": c.store.CurrentTaskID()}))
}

type viewportRequest struct {
	Width int `json:"width"`
}

func (c *viewerController) SetViewport(ctx *fiber.Ctx) error {
	var req viewportRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx)
	}
	c.store.SetViewportWidth(req.Width)
	return ctx.JSON(serverutils.SuccessResponse("OK", c.store.Dashboard()))
}

func (c *viewerController) ClearResults(ctx *fiber.Ctx) error {
	c.store.ClearResults()
	return ctx.JSON(serverutils.SuccessResponse("Results cleared", nil))
}

// pathID copies the :id route param; fiber reuses the request buffer once
// the handler returns.
func pathID(ctx *fiber.Ctx) string {
	return utils.CopyString(ctx.Params("id"))
}

// saveFailed maps a failed store write: 409 while the project is switching,
// 502 when the backend refused it.
func saveFailed(ctx *fiber.Ctx, err error) error {
	if errors.Is(err, simulation.ErrNotLoaded) {
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(fiber.StatusConflict, err.Error()))
	}
	return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(fiber.StatusBadGateway, err.Error()))
}

func badRequest(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Invalid request body"))
}

func readOnly(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(fiber.StatusForbidden, "Project is read-only"))
}
