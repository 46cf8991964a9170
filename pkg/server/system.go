package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// System reads always answer 200; failures are described by the origin
// fields of the returned shape.

func (ds *DashServer) getHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetHealth(ctx.Request().Context()))
}

func (ds *DashServer) getMetrics(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetMetrics(ctx.Request().Context()))
}

func (ds *DashServer) getSensors(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetSensors(ctx.Request().Context()))
}

func (ds *DashServer) getGPS(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetGPS(ctx.Request().Context()))
}

func (ds *DashServer) getBackups(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetBackups(ctx.Request().Context()))
}

func (ds *DashServer) triggerBackup(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.TriggerBackup(ctx.Request().Context()))
}

func (ds *DashServer) getKeys(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetKeys(ctx.Request().Context()))
}

func (ds *DashServer) getKeySync(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetKeySync(ctx.Request().Context()))
}

func (ds *DashServer) getDMs(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetDMs(ctx.Request().Context()))
}

type systemDMRequest struct {
	To      string `json:"to"      validate:"required"`
	Content string `json:"content" validate:"required"`
}

func (ds *DashServer) sendSystemDM(ctx echo.Context) error {
	var req systemDMRequest
	if err := bind(ctx, &req); err != nil {
		return badRequest(ctx, err)
	}
	return ctx.JSON(http.StatusOK, ds.deps.System.SendDM(ctx.Request().Context(), req.To, req.Content))
}

func (ds *DashServer) getCommunityPosts(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetCommunityPosts(ctx.Request().Context()))
}

func (ds *DashServer) getHotspot(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.GetHotspotStatus(ctx.Request().Context()))
}

func (ds *DashServer) toggleHotspot(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.System.ToggleHotspot(ctx.Request().Context()))
}
