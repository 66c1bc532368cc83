package tool

import (
	"github.com/gin-gonic/gin"
)

// FastReturnError shapes a failure response body.
func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

// FastReturnSuccess acknowledges a command that carries no payload.
func FastReturnSuccess() gin.H {
	return gin.H{
		"status": "ok",
	}
}

// FastReturnSuccessWithData wraps a payload in the standard envelope.
func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"data": data,
	}
}
