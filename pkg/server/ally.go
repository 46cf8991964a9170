package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"omega/pkg/ally"
)

func (ds *DashServer) getNodes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.GetNodes(ctx.Request().Context()))
}

func (ds *DashServer) getNodeStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.GetNodeStatus(ctx.Request().Context(), ctx.Param("id")))
}

func (ds *DashServer) pingNode(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.PingNode(ctx.Request().Context(), ctx.Param("id")))
}

func (ds *DashServer) refreshNode(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.RefreshNode(ctx.Request().Context(), ctx.Param("id")))
}

func (ds *DashServer) getGlobalChat(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.GetGlobalChat(ctx.Request().Context()))
}

type chatRequest struct {
	Text     string `json:"text"     validate:"required"`
	Priority string `json:"priority" validate:"omitempty,oneof=normal urgent emergency"`
	Urgent   bool   `json:"urgent"`
}

func (ds *DashServer) sendGlobalMessage(ctx echo.Context) error {
	var req chatRequest
	if err := bind(ctx, &req); err != nil {
		return badRequest(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ds.deps.Ally.SendGlobalMessage(ctx.Request().Context(), req.Text, req.Priority))
}

func (ds *DashServer) getDM(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.GetDM(ctx.Request().Context(), ctx.Param("id")))
}

func (ds *DashServer) sendDM(ctx echo.Context) error {
	var req chatRequest
	if err := bind(ctx, &req); err != nil {
		return badRequest(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ds.deps.Ally.SendDM(ctx.Request().Context(), ctx.Param("id"), req.Text, req.Urgent))
}

type broadcastRequest struct {
	Title    string `json:"title"    validate:"required"`
	Message  string `json:"message"  validate:"required"`
	Severity string `json:"severity" validate:"max=32"`
}

func (ds *DashServer) broadcastAlert(ctx echo.Context) error {
	var req broadcastRequest
	if err := bind(ctx, &req); err != nil {
		return badRequest(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ds.deps.Ally.BroadcastAlert(ctx.Request().Context(), req.Title, req.Message, req.Severity))
}

func (ds *DashServer) getUserStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.GetCurrentUserStatus(ctx.Request().Context()))
}

type userStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (ds *DashServer) setUserStatus(ctx echo.Context) error {
	var req userStatusRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, err)
	}
	st, err := ds.deps.Ally.SetCurrentUserStatus(ctx.Request().Context(), req.Status, req.Note)
	if errors.Is(err, ally.ErrInvalidStatus) {
		return badRequest(ctx, err)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (ds *DashServer) getTemplates(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.MessageTemplates())
}

func (ds *DashServer) getAllyConnection(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.ConnectionStatus())
}

func (ds *DashServer) getQueue(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"messages": ds.deps.Ally.Queue().Snapshot(),
		"length":   ds.deps.Ally.Queue().Len(),
	})
}

func (ds *DashServer) retryQueue(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Ally.RetryQueuedMessages(ctx.Request().Context()))
}

func (ds *DashServer) discardQueued(ctx echo.Context) error {
	id := ctx.Param("id")
	if !ds.deps.Ally.DiscardQueued(id) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "message is not queued"})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"discarded": id})
}
