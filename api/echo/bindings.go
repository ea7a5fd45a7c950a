package echoapi

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/pace"
)

// intParam parses a numeric path parameter; a garbled one is a 404.
func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

// termParam parses the :term path parameter.
func termParam(ctx echo.Context) (pace.Term, error) {
	switch ctx.Param("term") {
	case "fall":
		return pace.Fall, nil
	case "spring":
		return pace.Spring, nil
	}
	return "", errHttpNotFound
}

// openFormFile opens the uploaded "file" form field.
func openFormFile(ctx echo.Context) (multipart.File, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "a file upload is required")
	}
	f, err := fh.Open()
	return f, errors.Wrap(err, "opening uploaded file")
}
