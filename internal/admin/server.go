// Package admin serves the operator HTTP surface next to the chat listener:
// health, prometheus metrics and a live room listing.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/andy6609/roomchat/internal/chat"
)

// RoomLister is the read-only view of the room directory the admin surface needs.
type RoomLister interface {
	Rooms() []chat.RoomInfo
}

type RoomsResponse struct {
	Rooms []chat.RoomInfo `json:"rooms"`
}

// NewServer builds the admin HTTP server bound to addr.
func NewServer(addr string, rooms RoomLister, logger *zerolog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(rooms, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func NewRouter(rooms RoomLister, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, RoomsResponse{Rooms: rooms.Rooms()})
	})

	return router
}

// LoggerMiddleware logs each request after it has been handled.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
