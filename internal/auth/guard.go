// Package auth gates requests on a caller-supplied identity header.
//
// The header is only checked for presence. Nothing verifies it.
package auth

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

// HeaderUserID carries the caller identity.
const HeaderUserID = "x-user-id"

const contextKeyUserID = "userID"

// ErrUnauthorized is returned when the identity header is missing or blank.
var ErrUnauthorized = errors.New("missing or empty x-user-id header")

// Authenticate accepts any identity that is not blank after trimming and
// returns it unchanged.
func Authenticate(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrUnauthorized
	}
	return userID, nil
}

// Guard rejects requests without an identity before they reach a handler and
// records the identity on the context for the ones it lets through.
func Guard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := Authenticate(c.Request().Header.Get(HeaderUserID))
			if err != nil {
				return err
			}
			c.Set(contextKeyUserID, userID)
			return next(c)
		}
	}
}

// UserID returns the identity Guard attached, or "" outside a guarded route.
func UserID(c echo.Context) string {
	userID, _ := c.Get(contextKeyUserID).(string)
	return userID
}
