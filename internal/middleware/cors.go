package middleware

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// CORSMiddleware allows cross-origin requests from the storefront pages.
func CORSMiddleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
