package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/duocast-backend/controllers"
	"github.com/vnkhanh/duocast-backend/middleware"
	"github.com/vnkhanh/duocast-backend/ws"
)

// Controllers gom các controller có dependency để wire vào router một chỗ
type Controllers struct {
	Podcast     *controllers.PodcastController
	Personality *controllers.PersonalityController
	TTS         *controllers.TTSController
}

func SetupRouter(r *gin.Engine, db *gorm.DB, ctrl Controllers) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", controllers.HealthCheck)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/logingoogle", controllers.GoogleLogin)
	}

	user := api.Group("")
	{
		user.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db))

		user.POST("/auth/change-password", controllers.ChangePassword)

		// Quản lý podcast
		user.POST("/podcasts", ctrl.Podcast.Create)
		user.GET("/podcasts", ctrl.Podcast.List)
		user.GET("/podcasts/:id", ctrl.Podcast.GetByID)
		user.PUT("/podcasts/:id", ctrl.Podcast.Update)
		user.DELETE("/podcasts/:id", ctrl.Podcast.Delete)

		// Catalog personality + nghe thử giọng
		user.GET("/personalities", ctrl.Personality.List)
		user.POST("/tts/preview", ctrl.TTS.Preview)

		user.GET("/tags", controllers.GetTags)
	}

	admin := api.Group("/admin")
	{
		admin.Use(middleware.DBMiddleware(db), middleware.RequireRoles("admin"))

		admin.GET("/users", controllers.AdminGetUsers)
		admin.PATCH("/users/:id/toggle-status", controllers.AdminToggleUserStatus)
	}

	r.GET("/ws/podcast/:id", ws.HandlePodcastWebSocket)
	r.GET("/ws/status", ws.HandleGlobalWebSocket)

	return r
}
