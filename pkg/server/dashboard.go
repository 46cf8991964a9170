package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"omega/pkg/admin"
	"omega/pkg/log"
	"omega/pkg/state"
)

// role returns the role of the local profile. Unreadable profiles count
// as guest.
func (ds *DashServer) role(ctx echo.Context) admin.Role {
	p, err := ds.deps.State.Profile(ctx.Request().Context())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load profile")
		return admin.RoleGuest
	}
	return admin.Role(p.Role)
}

// requireAdmin rejects requests unless the profile is admin and the PIN
// unlock window is open.
func (ds *DashServer) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		st := ds.deps.Admin.Status(ctx.Request().Context(), ds.role(ctx))
		if st.Locked {
			return ctx.JSON(http.StatusForbidden, st)
		}
		return next(ctx)
	}
}

func (ds *DashServer) getSnapshot(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Poller.Snapshot())
}

func (ds *DashServer) refreshSnapshot(ctx echo.Context) error {
	ds.deps.Poller.PollAll(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, ds.deps.Poller.Snapshot())
}

func (ds *DashServer) getConnection(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Poller.Connection())
}

func (ds *DashServer) runSelfTest(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.SelfTest.Run(ctx.Request().Context()))
}

func (ds *DashServer) getLastSelfTest(ctx echo.Context) error {
	report, err := ds.deps.SelfTest.Last(ctx.Request().Context())
	if errors.Is(err, state.ErrNotFound) {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "NOT_RUN"})
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (ds *DashServer) getAdminStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ds.deps.Admin.Status(ctx.Request().Context(), ds.role(ctx)))
}

type pinRequest struct {
	PIN string `json:"pin" validate:"required"`
}

func (ds *DashServer) verifyPIN(ctx echo.Context) error {
	var req pinRequest
	if err := bind(ctx, &req); err != nil {
		return badRequest(ctx, err)
	}
	err := ds.deps.Admin.VerifyPIN(ctx.Request().Context(), req.PIN)
	if errors.Is(err, admin.ErrWrongPIN) {
		return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ds.deps.Admin.Status(ctx.Request().Context(), ds.role(ctx)))
}

func (ds *DashServer) lockAdmin(ctx echo.Context) error {
	if err := ds.deps.Admin.Lock(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ds.deps.Admin.Status(ctx.Request().Context(), ds.role(ctx)))
}

func (ds *DashServer) setPIN(ctx echo.Context) error {
	var req pinRequest
	if err := bind(ctx, &req); err != nil {
		return badRequest(ctx, err)
	}
	err := ds.deps.Admin.SetPIN(ctx.Request().Context(), req.PIN)
	if errors.Is(err, admin.ErrInvalidPIN) {
		return badRequest(ctx, err)
	}
	if err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (ds *DashServer) getProfile(ctx echo.Context) error {
	p, err := ds.deps.State.Profile(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (ds *DashServer) saveProfile(ctx echo.Context) error {
	var p state.Profile
	if err := ctx.Bind(&p); err != nil {
		return badRequest(ctx, err)
	}
	err := ds.deps.State.SaveProfile(ctx.Request().Context(), p)
	if errors.Is(err, state.ErrInvalidValue) {
		return badRequest(ctx, err)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (ds *DashServer) getPreferences(ctx echo.Context) error {
	p, err := ds.deps.State.Preferences(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (ds *DashServer) savePreferences(ctx echo.Context) error {
	var p state.Preferences
	if err := ctx.Bind(&p); err != nil {
		return badRequest(ctx, err)
	}
	err := ds.deps.State.SavePreferences(ctx.Request().Context(), p)
	if errors.Is(err, state.ErrInvalidValue) {
		return badRequest(ctx, err)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}
