package controller

import (
	"context"
	"encoding/json"
	"net/url"

	"tricys-client/internal/dto"
	"tricys-client/internal/pkg/serverutils"
	"tricys-client/pkg/api"
	"tricys-client/pkg/simulation"

	"github.com/gofiber/fiber/v2"
)

// ProjectLister is the catalogue side of the project API.
type ProjectLister interface {
	ListProjects(ctx context.Context, skip, limit int) ([]dto.ProjectSummary, error)
	ListPublicProjects(ctx context.Context, skip, limit int) ([]dto.ProjectSummary, error)
}

// TaskClient is the simulation task side of the backend.
type TaskClient interface {
	ListTasks(ctx context.Context, status string, limit, offset int) ([]dto.Task, error)
	GetTask(ctx context.Context, taskID string) (*dto.Task, error)
	StopTask(ctx context.Context, taskID string) error
	GetFiles(ctx context.Context, taskID string) ([]dto.TaskFile, error)
}

// VisualizerClient reads result artifacts of a finished task.
type VisualizerClient interface {
	GetMetadata(ctx context.Context, taskID string) (json.RawMessage, error)
	GetJobs(ctx context.Context, taskID string, q url.Values) (json.RawMessage, error)
	GetSeries(ctx context.Context, taskID string, q url.Values) (json.RawMessage, error)
	GetMetrics(ctx context.Context, taskID string, q url.Values) (json.RawMessage, error)
	GetConfig(ctx context.Context, taskID string) (json.RawMessage, error)
	GetLog(ctx context.Context, taskID string) (json.RawMessage, error)
	GetStats(ctx context.Context) (json.RawMessage, error)
}

type IAnalysisController interface {
	RegisterRoutes(r fiber.Router, sessionMiddleware fiber.Handler)
}

type analysisController struct {
	store      *simulation.Store
	projects   ProjectLister
	tasks      TaskClient
	visualizer VisualizerClient
}

func NewAnalysisController(store *simulation.Store, projects ProjectLister, tasks TaskClient, visualizer VisualizerClient) IAnalysisController {
	return &analysisController{store: store, projects: projects, tasks: tasks, visualizer: visualizer}
}

func (c *analysisController) RegisterRoutes(r fiber.Router, sessionMiddleware fiber.Handler) {
	r.Get("/projects", sessionMiddleware, c.ListProjects)
	r.Get("/projects/public", sessionMiddleware, c.ListPublicProjects)

	r.Get("/analysis/tasks", sessionMiddleware, c.ListAnalysisTasks)
	r.Post("/analysis/tasks", sessionMiddleware, c.SubmitAnalysisTask)
	r.Delete("/analysis/tasks/:id", sessionMiddleware, c.DeleteAnalysisTask)
	r.Get("/analysis/tasks/:id/report", sessionMiddleware, c.GetReport)
	r.Get("/analysis/tasks/:id/logs", sessionMiddleware, c.GetLogs)
	r.Get("/library/models", sessionMiddleware, c.ListLibraryModels)

	r.Get("/tasks", sessionMiddleware, c.ListTasks)
	r.Get("/tasks/:id", sessionMiddleware, c.GetTask)
	r.Post("/tasks/:id/stop", sessionMiddleware, c.StopTask)
	r.Get("/tasks/:id/files", sessionMiddleware, c.GetTaskFiles)
	r.Get("/visualizer/stats", sessionMiddleware, c.GetVisualizerStats)
	r.Get("/tasks/:id/visualizer/:resource", sessionMiddleware, c.GetVisualizerResource)
}

func (c *analysisController) ListProjects(ctx *fiber.Ctx) error {
	projects, err := c.projects.ListProjects(ctx.UserContext(), ctx.QueryInt("skip", 0), ctx.QueryInt("limit", 100))
	if err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Projects retrieved", projects))
}

func (c *analysisController) ListPublicProjects(ctx *fiber.Ctx) error {
	projects, err := c.projects.ListPublicProjects(ctx.UserContext(), ctx.QueryInt("skip", 0), ctx.QueryInt("limit", 100))
	if err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Public projects retrieved", projects))
}

func (c *analysisController) ListAnalysisTasks(ctx *fiber.Ctx) error {
	c.store.FetchAnalysisTasks(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Analysis tasks retrieved", c.store.AnalysisTasks()))
}

func (c *analysisController) SubmitAnalysisTask(ctx *fiber.Ctx) error {
	var req simulation.AnalysisSubmission
	if err := ctx.BodyParser(&req); err != nil || req.Name == "" {
		return badRequest(ctx)
	}
	if !c.store.SubmitAnalysisTask(ctx.UserContext(), req) {
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(fiber.StatusBadGateway, "Could not submit analysis task."))
	}
	return ctx.JSON(serverutils.SuccessResponse("Analysis task submitted", c.store.AnalysisTasks()))
}

func (c *analysisController) DeleteAnalysisTask(ctx *fiber.Ctx) error {
	c.store.DeleteAnalysisTask(ctx.UserContext(), ctx.Params("id"))
	return ctx.JSON(serverutils.SuccessResponse("Analysis task deleted", c.store.AnalysisTasks()))
}

func (c *analysisController) GetReport(ctx *fiber.Ctx) error {
	report := c.store.TaskReport(ctx.UserContext(), ctx.Params("id"))
	return ctx.JSON(serverutils.SuccessResponse("Report retrieved", fiber.Map{"content": report}))
}

func (c *analysisController) GetLogs(ctx *fiber.Ctx) error {
	logs := c.store.TaskLogs(ctx.UserContext(), ctx.Params("id"))
	return ctx.JSON(serverutils.SuccessResponse("Logs retrieved", fiber.Map{"logs": logs}))
}

func (c *analysisController) ListLibraryModels(ctx *fiber.Ctx) error {
	c.store.FetchLibraryModels(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Models retrieved", c.store.LibraryModels()))
}

func (c *analysisController) ListTasks(ctx *fiber.Ctx) error {
	tasks, err := c.tasks.ListTasks(ctx.UserContext(), ctx.Query("status"), ctx.QueryInt("limit", 20), ctx.QueryInt("offset", 0))
	if err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Tasks retrieved", tasks))
}

func (c *analysisController) GetTask(ctx *fiber.Ctx) error {
	task, err := c.tasks.GetTask(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Task retrieved", task))
}

func (c *analysisController) StopTask(ctx *fiber.Ctx) error {
	if err := c.tasks.StopTask(ctx.UserContext(), ctx.Params("id")); err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Task stopped", nil))
}

func (c *analysisController) GetTaskFiles(ctx *fiber.Ctx) error {
	files, err := c.tasks.GetFiles(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Files retrieved", files))
}

func (c *analysisController) GetVisualizerStats(ctx *fiber.Ctx) error {
	stats, err := c.visualizer.GetStats(ctx.UserContext())
	if err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Stats retrieved", stats))
}

// GetVisualizerResource relays one result artifact; the query string is
// passed through for the filtered ones.
func (c *analysisController) GetVisualizerResource(ctx *fiber.Ctx) error {
	taskID := ctx.Params("id")
	q, _ := url.ParseQuery(string(ctx.Request().URI().QueryString()))
	uctx := ctx.UserContext()

	var (
		out json.RawMessage
		err error
	)
	switch ctx.Params("resource") {
	case "metadata":
		out, err = c.visualizer.GetMetadata(uctx, taskID)
	case "jobs":
		out, err = c.visualizer.GetJobs(uctx, taskID, q)
	case "series":
		out, err = c.visualizer.GetSeries(uctx, taskID, q)
	case "metrics":
		out, err = c.visualizer.GetMetrics(uctx, taskID, q)
	case "config":
		out, err = c.visualizer.GetConfig(uctx, taskID)
	case "log":
		out, err = c.visualizer.GetLog(uctx, taskID)
	default:
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, "Unknown visualizer resource"))
	}
	if err != nil {
		return upstream(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("OK", out))
}

// upstream passes backend 4xx answers through and reports anything else as a
// bad gateway.
func upstream(ctx *fiber.Ctx, err error) error {
	code := api.StatusCode(err)
	if code < 400 || code >= 500 {
		code = fiber.StatusBadGateway
	}
	return ctx.Status(code).JSON(serverutils.ErrorResponse(code, err.Error()))
}
