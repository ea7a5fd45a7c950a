package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/pace"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/user"
)

type studentApi struct {
	userSvc   *user.Service
	paceSvc   *pace.Service
	reportSvc *report.Service
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	userSvc *user.Service,
	paceSvc *pace.Service,
	reportSvc *report.Service,
) {
	api := studentApi{
		userSvc:   userSvc,
		paceSvc:   paceSvc,
		reportSvc: reportSvc,
	}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create, staffMiddleware())
	sg.POST("/upload", api.upload, staffMiddleware())
	sg.GET("", api.query, teacherMiddleware())

	// detail endpoints; staff, the student's teacher or the student themselves
	dg := sg.Group("/:id", studentAccessMiddleware(userSvc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.GET("/pace", api.pace)
	dg.GET("/summary", api.summary)
	dg.POST("/autopace", api.autopace, teacherMiddleware())
	dg.DELETE("/goals", api.destroyGoals, teacherMiddleware())

	dg.GET("/sidecar", api.retrieveSidecar)
	dg.PUT("/sidecar", api.updateSidecar, teacherMiddleware())
	dg.GET("/report/:term", api.reportCard)
	dg.POST("/report/:term/render", api.renderReportCard, teacherMiddleware())
	dg.GET("/archives", api.archives)
	dg.POST("/progress-email", api.sendProgressEmail, teacherMiddleware())
}

// studentAccessMiddleware loads the student and lets through school staff,
// the student's own teacher and the student themselves.
func studentAccessMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			id, err := intParam(ctx, "id")
			if err != nil {
				return err
			}
			std, err := svc.GetStudentByUserID(id)
			if err != nil {
				if errors.Cause(err) == user.ErrStudentNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student by user ID")
			}

			allowed := claims.IsAdmin || claims.IsBoss ||
				claims.UserID() == id ||
				(claims.IsTeacher && std.TeacherID == claims.UserID())
			if !allowed {
				return errHttpNotFound
			}
			ctx.Set("student", std)
			return next(ctx)
		}
	}
}

func contextStudent(ctx echo.Context) (user.Student, error) {
	if std, ok := ctx.Get("student").(user.Student); ok {
		return std, nil
	}
	return user.Student{}, errors.New("student object not found in echo.Context")
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data user.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.userSvc); err != nil {
		return err
	}

	std, err := api.userSvc.CreateStudent(data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

// upload bulk-enrolls students from an uploaded roster file.
func (api *studentApi) upload(ctx echo.Context) error {
	f, err := openFormFile(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	students, problems, err := api.userSvc.ImportStudents(f)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	if students == nil {
		students = []user.Student{}
	}
	if problems == nil {
		problems = []core.FieldError{}
	}
	return ctx.JSON(http.StatusOK, StudentImportResponse{Students: students, Problems: problems})
}

func (api *studentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var students []user.Student
	if claims.IsAdmin || claims.IsBoss {
		students, err = api.userSvc.QueryAllStudents()
	} else {
		students, err = api.userSvc.QueryStudentsByTeacher(claims.UserID())
	}
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []user.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err = api.userSvc.UpdateStudent(std.UserID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) pace(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	p, err := api.paceSvc.GetPace(std.UserID, time.Now())
	if err != nil {
		return errors.Wrap(err, "assembling pace")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *studentApi) summary(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	p, sum, err := api.paceSvc.Summarize(std.UserID, time.Now())
	if err != nil {
		if errors.Cause(err) == pace.ErrCalendarNotSet {
			return echo.NewHTTPError(http.StatusConflict, pace.ErrCalendarNotSet.Error())
		}
		return errors.Wrap(err, "summarizing pace")
	}
	return ctx.JSON(http.StatusOK, PaceSummaryResponse{Pace: p, Summary: sum})
}

func (api *studentApi) autopace(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	p, err := api.paceSvc.AutopaceStudent(std.UserID, time.Now())
	if err != nil {
		switch errors.Cause(err) {
		case pace.ErrCalendarNotSet, pace.ErrNoSessionDays, pace.ErrTooFewGoals, pace.ErrNoScheduledWork:
			return echo.NewHTTPError(http.StatusConflict, errors.Cause(err).Error())
		}
		return errors.Wrap(err, "autopacing")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *studentApi) destroyGoals(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	if err := api.paceSvc.DeleteStudentGoals(std.UserID); err != nil {
		return errors.Wrap(err, "deleting student goals")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) retrieveSidecar(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	sc, err := api.reportSvc.GetSidecar(std.UserID)
	if err != nil {
		return errors.Wrap(err, "getting report sidecar")
	}
	return ctx.JSON(http.StatusOK, sc)
}

func (api *studentApi) updateSidecar(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data report.UpdateSidecar
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSidecar")
	}

	sc, err := api.reportSvc.UpdateSidecar(std.UserID, data)
	if err != nil {
		return errors.Wrap(err, "updating report sidecar")
	}
	return ctx.JSON(http.StatusOK, sc)
}

func (api *studentApi) reportCard(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	term, err := termParam(ctx)
	if err != nil {
		return err
	}

	card, err := api.reportSvc.BuildCard(std.UserID, term, time.Now())
	if err != nil {
		if errors.Cause(err) == pace.ErrCalendarNotSet {
			return echo.NewHTTPError(http.StatusConflict, pace.ErrCalendarNotSet.Error())
		}
		return errors.Wrap(err, "building report card")
	}
	return ctx.JSON(http.StatusOK, card)
}

func (api *studentApi) renderReportCard(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	term, err := termParam(ctx)
	if err != nil {
		return err
	}

	archive, err := api.reportSvc.RenderCard(ctx.Request().Context(), std.UserID, term, time.Now())
	if err != nil {
		if errors.Cause(err) == pace.ErrCalendarNotSet {
			return echo.NewHTTPError(http.StatusConflict, pace.ErrCalendarNotSet.Error())
		}
		return errors.Wrap(err, "rendering report card")
	}
	archive.PDF = nil
	return ctx.JSON(http.StatusCreated, archive)
}

func (api *studentApi) archives(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	archives, err := api.reportSvc.Archives(std.UserID)
	if err != nil {
		return errors.Wrap(err, "querying report archives")
	}
	if archives == nil {
		archives = []report.Archive{}
	}
	return ctx.JSON(http.StatusOK, archives)
}

func (api *studentApi) sendProgressEmail(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	if err := api.reportSvc.SendParentUpdate(std.UserID, time.Now()); err != nil {
		if errors.Cause(err) == report.ErrNoParentEmail {
			return echo.NewHTTPError(http.StatusConflict, report.ErrNoParentEmail.Error())
		}
		return errors.Wrap(err, "sending parent update")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Progress email sent to the parent."})
}

// PaceSummaryResponse pairs a pace with its aggregated summary.
type PaceSummaryResponse struct {
	Pace    pace.Pace    `json:"pace"`
	Summary pace.Summary `json:"summary"`
}

type StudentImportResponse struct {
	Students []user.Student    `json:"students"`
	Problems []core.FieldError `json:"problems"`
}
