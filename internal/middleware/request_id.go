package middleware

import (
	"learnsphere_backend/internal/model"

	"github.com/gin-gonic/gin"
)

// RequestID 透传或生成请求标识，便于跨服务日志关联
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = model.GenerateUUID()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}
