package httperr

import (
	"net/http"

	"tutor-booking/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

const (
	KindUnauthorized = "unauthorized"
	KindRateLimited  = "rate_limited"
)

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, kind, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Kind = kind
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

// FromError maps an engine error to its HTTP status by kind. Internal errors
// never leak their message.
func FromError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := StatusFor(kind)
	msg := err.Error()
	if kind == errs.KindInternal {
		msg = "Internal server error"
	}
	AbortWithError(c, status, err, string(kind), msg, nil)
}

func StatusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindInvalidTransition:
		return http.StatusUnprocessableEntity
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
