package apierr

import (
	"github.com/gin-gonic/gin"

	"github.com/mbd888/postforge/internal/logging"
)

// envelope is the wire shape of an error response.
type envelope struct {
	Error body `json:"error"`
}

type body struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Respond writes the error envelope for err and aborts the request.
// Non-typed errors become INTERNAL_ERROR; internal causes are logged,
// never echoed to the client.
func Respond(c *gin.Context, err error) {
	e := From(err)

	if e.Code == CodeInternal {
		logging.L(c.Request.Context()).Error("internal error",
			"error", err,
			"path", c.Request.URL.Path,
		)
	}

	c.AbortWithStatusJSON(e.Code.Status(), envelope{Error: body{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}})
}
