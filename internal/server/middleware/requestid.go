package middleware

import (
	"github.com/gin-gonic/gin"

	pkgid "mango/internal/pkg/id"
)

const requestIDHeader = "X-Request-ID"

// RequestID 请求标识中间件，沿用来访头里的标识，没有则生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = pkgid.New()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
