package httperr

import (
	"github.com/gin-gonic/gin"
)

// Machine-readable error codes. Sync clients map these back onto their own
// error taxonomy, so they are part of the wire contract.
const (
	CodeOrderNotFound     = "order_not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeInvalidMethod     = "invalid_method"
	CodeProofMissing      = "payment_proof_missing"
	CodeBadRequest        = "bad_request"
	CodeInternal          = "internal_error"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, code, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Code = code
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}
