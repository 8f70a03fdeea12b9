package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"pulse/internal/handler"
	"pulse/internal/middleware"
	"pulse/internal/service"
	"pulse/internal/telemetry"
)

type Handlers struct {
	Pomodoro  *handler.PomodoroHandler
	CheckIns  *handler.CheckInHandler
	Settings  *handler.SettingsHandler
	Day       *handler.DayHandler
	Scheduler *handler.SchedulerHandler
	Events    *handler.EventsHandler
}

func New(
	tokenService *service.TokenService,
	handlers Handlers,
	corsOrigins []string,
	logger *slog.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": telemetry.Version})
	})

	api := engine.Group("/api")
	api.Use(middleware.Auth(tokenService))
	api.GET("/state", handlers.Pomodoro.GetState)
	api.GET("/events", handlers.Events.Stream)
	api.POST("/wake", handlers.Day.Wake)

	pomodoro := api.Group("/pomodoro")
	pomodoro.POST("/work", handlers.Pomodoro.StartWork)
	pomodoro.POST("/abandon", handlers.Pomodoro.Abandon)
	pomodoro.POST("/break", handlers.Pomodoro.StartBreak)
	pomodoro.POST("/snooze", handlers.Pomodoro.Snooze)
	pomodoro.POST("/break-snooze", handlers.Pomodoro.BreakSnooze)

	api.POST("/responses", handlers.CheckIns.Submit)
	api.GET("/responses", handlers.CheckIns.ListResponses)
	api.GET("/sessions", handlers.CheckIns.ListSessions)
	api.GET("/stats/today", handlers.CheckIns.Today)

	api.GET("/settings", handlers.Settings.Get)
	api.PUT("/settings", handlers.Settings.Update)

	day := api.Group("/day")
	day.GET("", handlers.Day.Status)
	day.POST("/check", handlers.Day.Check)
	day.POST("/reset", handlers.Day.Reset)

	scheduler := api.Group("/scheduler")
	scheduler.POST("/start", handlers.Scheduler.Start)
	scheduler.POST("/stop", handlers.Scheduler.Stop)

	return engine
}
