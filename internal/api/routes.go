package api

import (
	"net/http"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires all handlers onto the gin engine.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	trainerService service.TrainerService,
	planService service.PlanService,
	scheduleService service.ScheduleService,
	completionService service.CompletionService,
	cache CacheRefresher,
) {
	authHandler := NewAuthHandler(authService)
	planHandler := NewPlanHandler(trainerService, planService)
	workoutHandler := NewWorkoutHandler(scheduleService, completionService, planService, cache)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)

		// --- Trainer Routes ---
		trainerGroup := protected.Group("/trainer")
		trainerGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			trainerGroup.POST("/clients", planHandler.AddClient)
			trainerGroup.GET("/clients", planHandler.GetClients)

			trainerGroup.POST("/templates", planHandler.CreateTemplate)
			trainerGroup.POST("/programs", planHandler.CreateProgram)

			// Plan queue management on a specific client.
			trainerGroup.POST("/clients/:clientId/plan", planHandler.AssignPlan)
			trainerGroup.GET("/clients/:clientId/plan/status", planHandler.GetPlanStatus)
			trainerGroup.DELETE("/clients/:clientId/plan/current", planHandler.RemoveCurrentPlan)
			trainerGroup.DELETE("/clients/:clientId/plan/next", planHandler.RemoveUpcomingPlan)

			trainerGroup.GET("/notices", planHandler.GetNotices)
		}

		// --- Client Routes ---
		clientGroup := protected.Group("/client")
		clientGroup.Use(RoleMiddleware(domain.RoleClient))
		{
			clientGroup.GET("/workouts/today", workoutHandler.GetToday)
			clientGroup.GET("/workouts/week", workoutHandler.GetWeek)
			clientGroup.GET("/workouts/preload", workoutHandler.PreloadWeeks)

			clientGroup.POST("/workouts/complete", workoutHandler.CompleteWorkout)
			clientGroup.POST("/workouts/detect-missed", workoutHandler.DetectMissedWorkouts)

			clientGroup.POST("/cache/refresh", workoutHandler.RefreshCache)

			clientGroup.POST("/uploads/request-url", workoutHandler.RequestUploadURL)
			clientGroup.POST("/uploads/confirm", workoutHandler.ConfirmUpload)
		}
	}
}
