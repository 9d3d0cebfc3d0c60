package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/hr-records-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Server is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	authHandler := handler.NewAuthHandler(deps)
	employeeHandler := handler.NewEmployeeHandler(deps)
	importHandler := handler.NewImportHandler(deps)
	notificationHandler := handler.NewNotificationHandler(deps)

	api := r.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)

		authed := api.Group("")
		authed.Use(AuthMiddleware(deps.Auth.JWTSecret))
		{
			employees := authed.Group("/employees")
			{
				employees.GET("", employeeHandler.ListEmployees)
				employees.GET("/:id", employeeHandler.GetEmployee)
				employees.POST("", RequireRole("admin"), employeeHandler.CreateEmployee)
				employees.POST("/async", RequireRole("admin"), employeeHandler.CreateEmployeeAsync)
				employees.PUT("/:id", RequireRole("admin"), employeeHandler.UpdateEmployee)
				employees.DELETE("/:id", RequireRole("admin"), employeeHandler.DeleteEmployee)
			}

			importGroup := authed.Group("/import")
			{
				importGroup.POST("/employees", RequireRole("admin"), importHandler.UploadAndImportCSV)
				importGroup.GET("/status/:jobId", importHandler.GetImportStatus)
			}

			notifications := authed.Group("/notifications")
			{
				notifications.GET("", notificationHandler.ListNotifications)
				notifications.PATCH("/read-all", notificationHandler.MarkAllRead)
				notifications.GET("/subscribe", notificationHandler.Subscribe)
				notifications.GET("/status", notificationHandler.ConnectionStatus)
			}
		}
	}

	return r
}
