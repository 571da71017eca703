package validation

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
)

// BindRequest decodes the body, path and query parameters into T and runs the
// validate tags. A body that does not decode and a value that fails a rule are
// both 400s; only the message differs.
func BindRequest[T any](c echo.Context) (T, error) {
	var req T
	if err := c.Bind(&req); err != nil {
		return req, httperror.NewHTTPError(http.StatusBadRequest, "Corpo da requisição inválido")
	}

	validated, err := Validate(req)
	if err != nil {
		return validated, httperror.WrapError(http.StatusBadRequest, err)
	}
	return validated, nil
}
