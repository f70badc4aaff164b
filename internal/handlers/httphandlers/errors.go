package httphandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
)

// writeError maps caller errors to 400, missing contracts to 404, the rest to 500
func (h *HTTPHandler) writeError(ctx *gin.Context, err error) {
	status := httpStatus(err)
	if status >= 500 {
		h.log.Errorf("%s %s: %s", ctx.Request.Method, ctx.Request.URL.Path, err)
	}

	res := ErrorResponse{Message: err.Error()}
	if code, ok := usererr.CodeOf(err); ok {
		res.Code = string(code)
	}
	ctx.AbortWithStatusJSON(status, res)
}

func httpStatus(err error) int {
	code, ok := usererr.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if code == usererr.ContractNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// bindJSON replies with 400 InvalidData when the body does not match the schema
func (h *HTTPHandler) bindJSON(ctx *gin.Context, obj interface{}) bool {
	if err := ctx.ShouldBindJSON(obj); err != nil {
		h.writeError(ctx, usererr.Wrap(err, usererr.InvalidData, "invalid request body"))
		return false
	}
	return true
}
