package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wtppaul/course-catalog/internal/handler"
	"github.com/wtppaul/course-catalog/internal/middleware"
)

type Handlers struct {
	Courses   *handler.CourseHandler
	Versions  *handler.VersionHandler
	Chapters  *handler.ChapterHandler
	Purchases *handler.PurchaseHandler
	Access    *handler.AccessHandler
	Jobs      *handler.JobHandler
}

// Health reports whether the service can serve requests.
type Health func(c *gin.Context) error

// SetupRoutes mounts the internal API behind the shared-secret middleware
// and the public health check.
func SetupRoutes(router *gin.Engine, h Handlers, secret string, origins []string, health Health) {
	if len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Internal-Secret", "X-Authenticated-User-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware(secret))
	{
		courses := internal.Group("/courses")
		{
			courses.POST("", h.Courses.CreateCourse)
			courses.GET("", h.Courses.GetCourses)
			courses.GET("/slug/:slug", h.Courses.GetCourseBySlug)
			courses.GET("/:courseId", h.Courses.GetCourseByID)
			courses.PATCH("/:courseId/status", h.Courses.UpdateCourseStatus)

			courses.POST("/:courseId/versions", h.Versions.CreateVersion)
			courses.GET("/:courseId/versions", h.Versions.ListVersions)
			courses.GET("/:courseId/versions/active", h.Versions.GetActiveVersion)
		}

		versions := internal.Group("/versions")
		{
			versions.GET("/:versionId", h.Versions.GetVersion)
			versions.PATCH("/:versionId", h.Versions.UpdateVersion)
			versions.POST("/:versionId/publish", h.Versions.PublishVersion)
			versions.POST("/:versionId/activate", h.Versions.ActivateVersion)
			versions.POST("/:versionId/deactivate", h.Versions.DeactivateVersion)
			versions.POST("/:versionId/clone", h.Versions.CloneVersion)

			versions.POST("/:versionId/chapters", h.Chapters.CreateChapter)
			versions.POST("/:versionId/chapters/reorder", h.Chapters.ReorderChapters)
		}

		chapters := internal.Group("/chapters")
		{
			chapters.PATCH("/:chapterId", h.Chapters.UpdateChapter)
			chapters.DELETE("/:chapterId", h.Chapters.DeleteChapter)
			chapters.GET("/:chapterId/successor", h.Chapters.FindSuccessor)
		}

		purchases := internal.Group("/purchases")
		{
			purchases.POST("", h.Purchases.CreatePurchase)
			purchases.GET("/:purchaseId", h.Purchases.GetPurchase)
			purchases.POST("/:purchaseId/complete", h.Purchases.CompletePurchase)
			purchases.POST("/:purchaseId/fail", h.Purchases.FailPurchase)
			purchases.POST("/:purchaseId/refund", h.Purchases.RefundPurchase)
		}
		internal.POST("/promo-codes", h.Purchases.CreatePromoCode)

		users := internal.Group("/users")
		{
			users.GET("/:userId/access", h.Access.ListUserAccess)
			users.GET("/:userId/access/:versionId", h.Access.HasAccess)
		}

		internal.GET("/settings", h.Access.GetSettings)
		internal.PUT("/settings", h.Access.UpdateSettings)

		jobs := internal.Group("/jobs")
		{
			jobs.POST("/link-chapters", h.Jobs.LinkChapters)
			jobs.POST("/migrate-access", h.Jobs.MigrateAccess)
			jobs.GET("/runs", h.Jobs.ListRuns)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "service": "course-catalog", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": "course-catalog"})
	})
}
