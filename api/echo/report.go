package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/report"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports", jwt)
	rg.GET("/archives/:id/download", api.download)
	rg.POST("/progress-emails", api.sendAllProgressEmails, staffMiddleware())
}

// Handlers

// download streams an archived report card PDF.
func (api *reportApi) download(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	archive, err := api.svc.GetArchive(id)
	if err != nil {
		if errors.Cause(err) == report.ErrArchiveNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding report archive by ID")
	}

	allowed := claims.IsAdmin || claims.IsBoss || claims.IsTeacher ||
		claims.UserID() == archive.StudentID
	if !allowed {
		return errHttpNotFound
	}

	ctx.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, archive.Filename),
	)
	return ctx.Blob(http.StatusOK, "application/pdf", archive.PDF)
}

// sendAllProgressEmails mails a progress update to every parent on file.
func (api *reportApi) sendAllProgressEmails(ctx echo.Context) error {
	sent, err := api.svc.SendAllParentUpdates(time.Now())
	if err != nil {
		return errors.Wrap(err, "sending parent updates")
	}
	return ctx.JSON(http.StatusOK, ProgressEmailsResponse{Sent: sent})
}

type ProgressEmailsResponse struct {
	Sent int `json:"sent"`
}
