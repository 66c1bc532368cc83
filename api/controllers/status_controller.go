package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mizuha/uploadq-go/dispatch"
	"github.com/mizuha/uploadq-go/tool"
)

// HandleStatus reports engine liveness for the web surface.
// GET /api/uploader/v1/status
func HandleStatus(service *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
			"running":     true,
			"queueLength": service.Registry().Len(),
			"activeJobs":  service.ActiveJobs(),
		}))
	}
}
