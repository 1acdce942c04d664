package api

import (
	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/internal/handlers"
)

func registerRequestRoutes(api *gin.RouterGroup, handler *handlers.RequestHandler) {
	requests := api.Group("/requests")
	{
		requests.GET("", handler.List)
		requests.GET("/:uid/:rid", handler.Get)
		requests.GET("/:uid/:rid/logs", handler.Logs)
		requests.GET("/:uid/:rid/status-options", handler.StatusOptions)
		requests.PATCH("/:uid/:rid/status", handler.UpdateStatus)
		requests.POST("/:uid/:rid/payment-image", handler.OpenPaymentImage)
	}
}

func registerMessageRoutes(api *gin.RouterGroup, handler *handlers.MessageHandler) {
	messages := api.Group("/messages")
	{
		messages.GET("", handler.Conversations)
		messages.GET("/unread", handler.UnreadTotal)
		messages.GET("/:uid", handler.Thread)
		messages.POST("/:uid", handler.Send)
		messages.POST("/:uid/read", handler.MarkRead)
	}
}

func registerNewsRoutes(api *gin.RouterGroup, handler *handlers.NewsHandler) {
	news := api.Group("/news")
	{
		news.GET("", handler.List)
		news.POST("", handler.Publish)
		news.GET("/:id", handler.Get)
		news.PUT("/:id", handler.Update)
		news.DELETE("/:id", handler.Delete)
	}
}

func registerRealtimeRoutes(r *gin.Engine, api *gin.RouterGroup, handler *handlers.RealtimeHandler) {
	api.GET("/realtime/ticket", handler.Ticket)
	r.GET("/ws", handler.Stream)
}
