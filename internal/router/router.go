package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/handler"
	"taskflow/internal/metrics"
	"taskflow/internal/middleware"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Board        *handler.BoardHandler
	Task         *handler.TaskHandler
	Comment      *handler.CommentHandler
	Member       *handler.MemberHandler
	Notification *handler.NotificationHandler
	WS           *handler.WSHandler
	Health       *handler.HealthHandler
}

// New builds the gin engine with the full middleware chain and all routes
func New(cfg *config.Config, h Handlers, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	engine := gin.New()
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.CORS())
	engine.Use(middleware.Metrics(m))

	engine.GET("/health", h.Health.Health)
	engine.GET("/ready", h.Health.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.Auth(cfg.JWT.Secret)
	engine.GET("/ws", auth, h.WS.Serve)

	api := engine.Group(cfg.Server.BasePath, auth)
	{
		boards := api.Group("/boards")
		{
			boards.POST("", h.Board.CreateBoard)
			boards.GET("", h.Board.ListBoards)
			boards.GET("/:boardId", h.Board.GetBoard)
			boards.PUT("/:boardId", h.Board.UpdateBoard)
			boards.DELETE("/:boardId", h.Board.DeleteBoard)
			boards.POST("/:boardId/columns", h.Board.CreateColumn)
			boards.POST("/:boardId/members", h.Member.InviteMember)
			boards.GET("/:boardId/members", h.Member.ListMembers)
		}

		columns := api.Group("/columns")
		{
			columns.PUT("/:columnId", h.Board.UpdateColumn)
			columns.DELETE("/:columnId", h.Board.DeleteColumn)
		}

		tasks := api.Group("/tasks")
		{
			tasks.POST("", h.Task.CreateTask)
			tasks.GET("/:taskId", h.Task.GetTask)
			tasks.PUT("/:taskId", h.Task.UpdateTask)
			tasks.POST("/:taskId/move", h.Task.MoveTask)
			tasks.DELETE("/:taskId", h.Task.DeleteTask)
			tasks.POST("/:taskId/comments", h.Comment.CreateComment)
			tasks.GET("/:taskId/comments", h.Comment.ListComments)
		}

		comments := api.Group("/comments")
		{
			comments.DELETE("/:commentId", h.Comment.DeleteComment)
		}

		members := api.Group("/members")
		{
			members.POST("/:memberId/respond", h.Member.RespondInvite)
			members.PUT("/:memberId/role", h.Member.UpdateMemberRole)
			members.DELETE("/:memberId", h.Member.RemoveMember)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.POST("/read-all", h.Notification.MarkAllAsRead)
			notifications.POST("/:notificationId/read", h.Notification.MarkAsRead)
			notifications.DELETE("/:notificationId", h.Notification.DeleteNotification)
		}
	}

	return engine
}
