package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sigcom-backoffice-api/internal/service"
)

// AuditContext attaches client metadata to the request context so audit
// entries written by services carry the caller's address and agent.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithRequestMeta(c.Request.Context(), service.RequestMeta{
			IP:        c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
