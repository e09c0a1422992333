package controller

import (
	"encoding/json"

	"coverage-compare-be/internal/dto"
	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/internal/pkg/serverutils"
	"coverage-compare-be/internal/service"
	internalWS "coverage-compare-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Query(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	ViewEvent(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type sessionController struct {
	service   service.ISessionService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

// NewSessionController exposes the session service. hub may be nil, in
// which case the websocket route is not registered.
func NewSessionController(
	service service.ISessionService,
	hub *internalWS.Hub,
	jwtSecret string,
	log logger.ILogger,
) ISessionController {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &sessionController{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Post(":id/query", c.Query)
	h.Post(":id/select", c.Select)
	h.Post(":id/view-events", c.ViewEvent)
	h.Delete(":id", c.End)
	if c.hub != nil {
		h.Get(":id/ws", c.ServeWs)
	}
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res, err := c.service.Create(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Show(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *sessionController) Query(ctx *fiber.Ctx) error {
	var req dto.SubmitQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Query(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Turn settled", res))
}

func (c *sessionController) Select(ctx *fiber.Ctx) error {
	var req dto.SelectCoverageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Select(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Turn settled", res))
}

func (c *sessionController) ViewEvent(ctx *fiber.Ctx) error {
	var req dto.ViewEventRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.ViewEvent(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), &req); err != nil {
		return err
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	if err := c.service.End(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session ended", nil))
}

// ServeWs upgrades to a websocket that receives the session view after
// every settled turn. The current view is sent first.
func (c *sessionController) ServeWs(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	sessionID := ctx.Params("id")
	view, err := c.service.Show(ctx.UserContext(), serverutils.UserID(ctx), sessionID)
	if err != nil {
		return err
	}
	initial, err := json.Marshal(map[string]interface{}{"type": "session_view", "data": view})
	if err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("HUB", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(c.hub, conn, sessionID, initial)
		c.logger.Info("HUB", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
	})(ctx)
}
