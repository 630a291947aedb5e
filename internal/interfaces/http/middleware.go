package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ActorHeader carries the caller identity set by the upstream auth proxy
	ActorHeader = "X-Actor-Id"
	// RequestIDHeader is echoed back on every response
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	actorKey     = "actor"
)

// requestIDMiddleware keeps an incoming request ID or assigns a new one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// requireActor rejects mutating requests without an actor
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing " + ActorHeader + " header",
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}
