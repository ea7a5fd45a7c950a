package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/pace"
)

type goalApi struct {
	svc *pace.Service
}

func registerGoalAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *pace.Service) {
	api := goalApi{svc: svc}

	// goals are managed by teachers and school staff only
	gg := g.Group("/goals", jwt, teacherMiddleware())
	gg.POST("", api.create)
	gg.POST("/import", api.importCSV)

	dg := gg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.POST("/complete", api.complete)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *goalApi) create(ctx echo.Context) error {
	var data pace.NewGoal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGoal")
	}

	g, err := api.svc.AssignGoal(data)
	if err != nil {
		return errors.Wrap(err, "assigning goal")
	}
	return ctx.JSON(http.StatusCreated, g)
}

// importCSV bulk-assigns goals from an uploaded roster file.
func (api *goalApi) importCSV(ctx echo.Context) error {
	f, err := openFormFile(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	goals, problems, err := api.svc.ImportGoals(f)
	if err != nil {
		return errors.Wrap(err, "importing goals")
	}
	if goals == nil {
		goals = []pace.Goal{}
	}
	if problems == nil {
		problems = []pace.Problem{}
	}
	return ctx.JSON(http.StatusOK, GoalImportResponse{Goals: goals, Problems: problems})
}

func (api *goalApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	g, err := api.svc.GetGoal(id)
	if err != nil {
		if errors.Cause(err) == pace.ErrGoalNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding goal by ID")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *goalApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data pace.UpdateGoal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGoal")
	}

	g, err := api.svc.UpdateGoal(id, data)
	if err != nil {
		if errors.Cause(err) == pace.ErrGoalNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating goal")
	}
	return ctx.JSON(http.StatusOK, g)
}

// complete marks a goal done with its score.
func (api *goalApi) complete(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data CompleteGoalRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteGoalRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	done := time.Now()
	if data.Done != "" {
		done, _ = time.Parse("2006-01-02", data.Done)
	}
	g, err := api.svc.CompleteGoal(id, done, data.Score, data.Tries)
	if err != nil {
		if errors.Cause(err) == pace.ErrGoalNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing goal")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *goalApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.DeleteGoal(id); err != nil {
		if errors.Cause(err) == pace.ErrGoalNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting goal")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	CompleteGoalRequest struct {
		Done  string `json:"done" validate:"omitempty,datetime=2006-01-02"`
		Score string `json:"score" validate:"required"`
		Tries int16  `json:"tries" validate:"omitempty,gt=0"`
	}

	GoalImportResponse struct {
		Goals    []pace.Goal    `json:"goals"`
		Problems []pace.Problem `json:"problems"`
	}
)

func (cr *CompleteGoalRequest) Validate() error {
	cr.Score = core.CleanString(cr.Score)
	return core.Validate.Struct(cr)
}
