package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"garrison/pkg/apperr"
)

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func SendAPIResponse(c *gin.Context, code int, success bool, message string, data any) {
	resp := APIResponse{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, resp)
}

// SendError maps a tagged service error to its HTTP status code.
func SendError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		code = http.StatusNotFound
	case apperr.KindForbidden:
		code = http.StatusForbidden
	case apperr.KindInvalidArgument, apperr.KindInvalidTransition:
		code = http.StatusBadRequest
	case apperr.KindConflict:
		code = http.StatusConflict
	}
	SendAPIResponse(c, code, false, err.Error(), nil)
}
