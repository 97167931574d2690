package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/kulupsoft/klub/config"
	"github.com/kulupsoft/klub/internal/activity"
	"github.com/kulupsoft/klub/internal/auth"
	"github.com/kulupsoft/klub/internal/branch"
	"github.com/kulupsoft/klub/internal/equipment"
	"github.com/kulupsoft/klub/internal/middleware"
	"github.com/kulupsoft/klub/internal/payment"
	"github.com/kulupsoft/klub/internal/student"
	"github.com/kulupsoft/klub/internal/training"
)

func SetupRoutes(db *gorm.DB, appConfig *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default()) // allows all origins, GET/POST/PUT

	// Welcome page
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(`
			<html>
				<head><title>Klub</title></head>
				<body style="text-align:center; margin-top: 40px;">
				<h1>Klub API</h1>
				<p><a href="/swagger/index.html">swagger</a></p>
				</body>
			</html>
		`))
	})

	// Swagger route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Shared audit sink for all mutating endpoints
	audit := activity.NewActivityRepository(db)

	api := r.Group("/api")

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(appConfig.JWT.AccessTokenSecret, db))

	auth.RegisterAuthRoutes(api, authed, db, appConfig)
	branch.RegisterBranchRoutes(authed, db, audit)
	student.RegisterStudentRoutes(authed, db, audit)
	payment.RegisterPaymentRoutes(authed, db, appConfig, audit)
	equipment.RegisterEquipmentRoutes(authed, db, appConfig, audit)
	training.RegisterTrainingRoutes(authed, db, audit)
	activity.RegisterActivityRoutes(authed, db)

	return r
}
