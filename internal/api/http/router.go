package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(signalController *SignalController) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	router.StaticFile("/", "./web/index.html")

	if signalController != nil {
		router.GET("/rooms", signalController.ListRooms)
		router.POST("/stats", signalController.CollectStats)
		router.GET("/config", signalController.ICEConfig)
		router.GET("/ws", signalController.Signal)
	}

	return router
}
