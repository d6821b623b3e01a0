package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-rental/internal/model"
)

// UserID returns the authenticated user id, or false for anonymous requests.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// Caller returns the registry identity of the authenticated user, or
// model.NoRenter when the request carries no valid token.
func Caller(c echo.Context) model.Identity {
	id, ok := UserID(c)
	if !ok {
		return model.NoRenter
	}
	return model.UserIdentity(id)
}

// rateKeySubject identifies the requester for rate limiting.
func rateKeySubject(c echo.Context) string {
	if who := Caller(c); !who.IsEmpty() {
		return who.String()
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
