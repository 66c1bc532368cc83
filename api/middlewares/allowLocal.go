package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OnlyAllowLocal rejects any request that does not originate from the
// loopback interface. The command surface controls local uploads and must
// never be reachable from the network.
func OnlyAllowLocal(c *gin.Context) {
	ip := c.ClientIP()
	if ip != "127.0.0.1" && ip != "::1" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	c.Next()
}
