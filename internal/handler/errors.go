package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-rental/internal/registry"
)

// registryErrors maps registry sentinels to their HTTP status and code.
var registryErrors = []struct {
	err    error
	status int
	code   string
}{
	{registry.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{registry.ErrDuplicateID, http.StatusConflict, "duplicate_id"},
	{registry.ErrNotFound, http.StatusNotFound, "not_found"},
	{registry.ErrNotAvailable, http.StatusConflict, "not_available"},
	{registry.ErrIncorrectPayment, http.StatusPaymentRequired, "incorrect_payment"},
	{registry.ErrInvalidSpot, http.StatusBadRequest, "invalid_spot"},
	{registry.ErrNothingToWithdraw, http.StatusConflict, "nothing_to_withdraw"},
}

// registryError writes the JSON error response for err.  Unknown errors
// are logged and reported as 500 without their text.
func registryError(c echo.Context, err error) error {
	for _, m := range registryErrors {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, echo.Map{"error": m.code, "message": m.err.Error()})
		}
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}
