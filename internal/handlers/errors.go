package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/storydesk/backend/internal/repositories"
	"github.com/anonto42/storydesk/backend/internal/slides"
	"github.com/anonto42/storydesk/backend/internal/uploads"
	"github.com/anonto42/storydesk/backend/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// statusOf maps domain errors onto HTTP statuses. Unknown errors are 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound),
		errors.Is(err, uploads.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, uploads.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, uploads.ErrInvalidFileType),
		errors.Is(err, uploads.ErrInvalidRole),
		errors.Is(err, uploads.ErrInvalidReference),
		errors.Is(err, slides.ErrIndexOutOfRange),
		errors.Is(err, repositories.ErrImmutableField),
		errors.Is(err, repositories.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, uploads.ErrObjectExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// NewHTTPErrorHandler renders every error returned by a handler in the
// {"success": false, ...} envelope. Details of 500s are logged, not sent.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			body   echo.Map
		)
		var fe validators.FieldErrors
		var he *echo.HTTPError
		switch {
		case errors.As(err, &fe):
			status = http.StatusUnprocessableEntity
			body = echo.Map{"success": false, "message": "validation failed", "errors": fe}
		case errors.As(err, &he):
			status = he.Code
			msg := he.Message
			if status >= http.StatusInternalServerError {
				log.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
				msg = http.StatusText(status)
			}
			body = echo.Map{"success": false, "message": msg}
		default:
			status = statusOf(err)
			msg := err.Error()
			if status == http.StatusInternalServerError {
				log.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
				msg = "Internal server error"
			}
			body = echo.Map{"success": false, "message": msg}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("writing error response", zap.Error(err))
		}
	}
}

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}
