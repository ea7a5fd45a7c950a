package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/pace"
)

type calendarApi struct {
	svc *pace.Service
}

func registerCalendarAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *pace.Service) {
	api := calendarApi{svc: svc}

	cg := g.Group("/calendar", jwt)
	cg.GET("", api.retrieve)
	cg.GET("/days", api.queryDays)
	cg.PUT("/days", api.replaceDays, staffMiddleware())
	cg.GET("/dates", api.queryDates)
	cg.PUT("/dates/:name", api.setDate, staffMiddleware())
	cg.DELETE("/dates/:name", api.destroyDate, staffMiddleware())
}

// Handlers

func (api *calendarApi) retrieve(ctx echo.Context) error {
	cal, err := api.svc.Calendar()
	if err != nil {
		if errors.Cause(err) == pace.ErrCalendarNotSet {
			return echo.NewHTTPError(http.StatusConflict, pace.ErrCalendarNotSet.Error())
		}
		return errors.Wrap(err, "assembling calendar")
	}
	return ctx.JSON(http.StatusOK, CalendarResponse{
		Days:      cal.Days(),
		FallEnd:   cal.FallEnd(),
		SpringEnd: cal.SpringEnd(),
	})
}

func (api *calendarApi) queryDays(ctx echo.Context) error {
	days, err := api.svc.SessionDays()
	if err != nil {
		return errors.Wrap(err, "querying session days")
	}
	if days == nil {
		days = []time.Time{}
	}
	return ctx.JSON(http.StatusOK, days)
}

func (api *calendarApi) replaceDays(ctx echo.Context) error {
	var data SessionDaysRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionDaysRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	days := make([]time.Time, len(data.Days))
	for i, d := range data.Days {
		days[i], _ = time.Parse("2006-01-02", d)
	}
	if err := api.svc.SetSessionDays(days); err != nil {
		return errors.Wrap(err, "replacing session days")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *calendarApi) queryDates(ctx echo.Context) error {
	dates, err := api.svc.Dates()
	if err != nil {
		return errors.Wrap(err, "querying named dates")
	}
	return ctx.JSON(http.StatusOK, dates)
}

func (api *calendarApi) setDate(ctx echo.Context) error {
	var data NamedDateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NamedDateRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	date, _ := time.Parse("2006-01-02", data.Date)
	if err := api.svc.SetDate(ctx.Param("name"), date); err != nil {
		return errors.Wrap(err, "setting named date")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *calendarApi) destroyDate(ctx echo.Context) error {
	if err := api.svc.DeleteDate(ctx.Param("name")); err != nil {
		if errors.Cause(err) == pace.ErrDateNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting named date")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	SessionDaysRequest struct {
		Days []string `json:"days" validate:"required,min=1,dive,datetime=2006-01-02"`
	}

	NamedDateRequest struct {
		Date string `json:"date" validate:"required,datetime=2006-01-02"`
	}

	CalendarResponse struct {
		Days      []time.Time `json:"days"`
		FallEnd   time.Time   `json:"fall_end"`
		SpringEnd time.Time   `json:"spring_end"`
	}
)

func (sr *SessionDaysRequest) Validate() error { return core.Validate.Struct(sr) }
func (nr *NamedDateRequest) Validate() error   { return core.Validate.Struct(nr) }
