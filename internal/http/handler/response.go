package handler

import (
	"errors"
	"net/http"

	"gallery-service/internal/access"

	"github.com/labstack/echo/v4"
)

// errorBody builds the envelope CustomHTTPErrorHandler also writes, so a
// client sees one error shape whichever layer answered.
func errorBody(c echo.Context, message string) map[string]interface{} {
	body := map[string]interface{}{jsonKeyError: message}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		body[jsonKeyRequestID] = id
	}
	return body
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorBody(c, message))
}

// respondPrompt is a 403 naming the credential the visitor must supply.
func respondPrompt(c echo.Context, message string, reason access.Reason, flag string) error {
	body := errorBody(c, message)
	body[jsonKeyReason] = reason
	body[flag] = true
	return c.JSON(http.StatusForbidden, body)
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyMessage: message})
}

func handleHTTPError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return RespondWithMappedError(c, err)
	}
	msg, _ := he.Message.(string)
	if msg == "" {
		msg = http.StatusText(he.Code)
	}
	return respondError(c, he.Code, msg)
}
