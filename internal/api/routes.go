package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arcanechess/backend/internal/api/handlers"
	"github.com/arcanechess/backend/internal/archive"
	"github.com/arcanechess/backend/internal/room"
	"github.com/arcanechess/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, store *room.Store, bridge *ws.Bridge, session *ws.Session, rec *archive.Recorder, log *zap.Logger) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		rooms := v1.Group("/rooms")
		{
			rooms.POST("", handlers.CreateRoom(store, rec, log))
			rooms.GET("", handlers.ListRooms(store, log))
			rooms.DELETE("", handlers.DeleteRooms(store, log))
			rooms.GET("/:id", handlers.GetRoom(store, log))
			rooms.POST("/:id/join", handlers.JoinRoom(store, bridge, rec, log))
			rooms.POST("/:id/resign", handlers.Resign(store, bridge, rec, log))
			rooms.GET("/:id/ws", session.ServeRoom)
		}

		v1.POST("/games/:id/move", handlers.MakeMove(store, bridge, log))
	}
}
