package handler

import (
	"context"
	"errors"
	"time"

	"tricys-client/internal/pkg/logger"
	"tricys-client/internal/pkg/serverutils"
	"tricys-client/internal/service"
	internalWS "tricys-client/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	dialogs       *service.DialogService
	hub           *internalWS.Hub
	logger        logger.ILogger
}

func NewNotificationHandler(notifications *service.NotificationService, dialogs *service.DialogService, hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		dialogs:       dialogs,
		hub:           hub,
		logger:        log,
	}
}

func (h *NotificationHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/notifications", h.GetNotifications)
	r.Post("/notifications", h.CreateNotification)
	r.Delete("/notifications/:id", h.CloseNotification)

	r.Get("/dialog", h.GetDialog)
	r.Post("/dialog", h.AnswerDialog)
	r.Post("/dialog/open", h.OpenDialog)

	r.Get("/ws", h.ServeWs)
}

// ServeWs upgrades the request and streams hub messages to the viewer.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"remote": conn.RemoteAddr().String()})
			internalWS.ServeWs(h.hub, conn)
			h.logger.Info("NotificationHandler", "WebSocket session ended", nil)
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	return c.JSON(serverutils.SuccessResponse("Notifications retrieved", h.notifications.Items()))
}

type createNotificationRequest struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	DurationMs int64  `json:"duration"`
	Persistent bool   `json:"persistent"`
}

// CreateNotification lets the renderer raise its own toasts through the
// shared queue.
func (h *NotificationHandler) CreateNotification(c *fiber.Ctx) error {
	var req createNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Invalid request body"))
	}
	id := h.notifications.Notify(service.NotifyOptions{
		Title:      req.Title,
		Message:    req.Message,
		Type:       req.Type,
		Duration:   msDuration(req.DurationMs),
		Persistent: req.Persistent,
	})
	return c.JSON(serverutils.SuccessResponse("Notification created", fiber.Map{"id": id}))
}

func (h *NotificationHandler) CloseNotification(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Invalid ID"))
	}
	if !h.notifications.Close(int64(id)) {
		return c.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, "Notification not found"))
	}
	return c.JSON(serverutils.SuccessResponse("Notification closed", nil))
}

func (h *NotificationHandler) GetDialog(c *fiber.Ctx) error {
	prompt, ok := h.dialogs.Pending()
	if !ok {
		return c.JSON(serverutils.SuccessResponse("No dialog pending", nil))
	}
	return c.JSON(serverutils.SuccessResponse("Dialog pending", prompt))
}

type answerDialogRequest struct {
	ID        string `json:"id"`
	Confirmed bool   `json:"confirmed"`
}

func (h *NotificationHandler) AnswerDialog(c *fiber.Ctx) error {
	var req answerDialogRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Invalid request body"))
	}
	if err := h.dialogs.Respond(req.ID, req.Confirmed); err != nil {
		status := fiber.StatusConflict
		if errors.Is(err, service.ErrNoPendingDialog) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(serverutils.ErrorResponse(status, err.Error()))
	}
	return c.JSON(serverutils.SuccessResponse("Dialog answered", nil))
}

type openDialogRequest struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// OpenDialog mounts a prompt for the renderer and answers immediately; the
// outcome is reported over the websocket once the prompt resolves.
func (h *NotificationHandler) OpenDialog(c *fiber.Ctx) error {
	var req openDialogRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Invalid request body"))
	}
	go func() {
		ctx := context.Background()
		if req.Type == service.DialogAlert {
			if err := h.dialogs.Alert(ctx, req.Message, req.Title); err != nil {
				h.logger.Debug("NotificationHandler", "Alert dialog ended", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		confirmed, err := h.dialogs.Confirm(ctx, req.Message, req.Title)
		if err != nil {
			h.logger.Debug("NotificationHandler", "Confirm dialog ended", map[string]interface{}{"error": err.Error()})
			return
		}
		h.hub.Broadcast(internalWS.KindDialog, fiber.Map{"resolved": true, "confirmed": confirmed})
	}()
	return c.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Dialog opened", nil))
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
