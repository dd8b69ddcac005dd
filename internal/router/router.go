package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/staycert-backend/config"
	"github.com/ikkim/staycert-backend/internal/app/controller"
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	applicationController   *controller.ApplicationController
	reviewController        *controller.ReviewController
	certificationController *controller.CertificationController
	templateController      *controller.TemplateController
	notificationController  *controller.NotificationController
	uploadController        *controller.UploadController
	authMiddleware          *middleware.AuthMiddleware
	gatherer                prometheus.Gatherer
	config                  *config.Config
}

func NewRouter(
	applicationController *controller.ApplicationController,
	reviewController *controller.ReviewController,
	certificationController *controller.CertificationController,
	templateController *controller.TemplateController,
	notificationController *controller.NotificationController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
) *Router {
	return &Router{
		applicationController:   applicationController,
		reviewController:        reviewController,
		certificationController: certificationController,
		templateController:      templateController,
		notificationController:  notificationController,
		uploadController:        uploadController,
		authMiddleware:          authMiddleware,
		gatherer:                gatherer,
		config:                  cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "STAYCERT API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	auth := r.authMiddleware
	reviewerOnly := auth.RequireRole(model.RoleReviewer, model.RoleAdmin)
	adminOnly := auth.RequireRole(model.RoleAdmin)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/verify/:code", r.certificationController.Verify)

		v1.GET("/property-types", r.templateController.ListPropertyTypes)
		v1.GET("/property-types/:id/checklist", r.templateController.ListChecklistItems)

		applications := v1.Group("/applications")
		applications.Use(auth.Authenticate())
		{
			applications.POST("", auth.RequireRole(model.RoleHost), r.applicationController.CreateApplication)
			applications.GET("", r.applicationController.ListApplications)
			applications.GET("/:id", r.applicationController.GetApplication)
			applications.PUT("/:id/step", r.applicationController.UpdateStep)
			applications.GET("/:id/steps/:step/validation", r.applicationController.ValidateStep)
			applications.POST("/:id/submit", r.applicationController.SubmitApplication)
			applications.DELETE("/:id", r.applicationController.DeleteApplication)
			applications.POST("/:id/documents/presigned-url", r.uploadController.GeneratePresignedURL)

			applications.GET("/:id/payments", r.applicationController.ListPayments)
			applications.POST("/:id/payments", reviewerOnly, r.applicationController.RecordPayment)

			applications.GET("/:id/certification", r.certificationController.GetApplicationCertification)
			applications.POST("/:id/certification", reviewerOnly, r.reviewController.IssueCertification)
		}

		reviews := v1.Group("/reviews")
		reviews.Use(auth.Authenticate(), reviewerOnly)
		{
			reviews.GET("/queue", r.reviewController.ListQueue)
			reviews.POST("/:id/assign", r.reviewController.AssignReviewer)
			reviews.POST("/:id/decision", r.reviewController.SubmitDecision)
			reviews.GET("/:id/risk", r.reviewController.AssessRisk)
		}

		certifications := v1.Group("/certifications")
		certifications.Use(auth.Authenticate())
		{
			certifications.GET("/:id", r.certificationController.GetCertification)
			certifications.POST("/:id/revoke", reviewerOnly, r.certificationController.Revoke)
			certifications.POST("/:id/renew", reviewerOnly, r.certificationController.Renew)
			certifications.POST("/bulk/revoke", adminOnly, r.certificationController.BulkRevoke)
			certifications.POST("/bulk/renew", adminOnly, r.certificationController.BulkRenew)
			certifications.POST("/expiry-check", adminOnly, r.certificationController.CheckExpiry)
		}

		templates := v1.Group("/templates")
		templates.Use(auth.Authenticate())
		{
			templates.GET("", reviewerOnly, r.templateController.ListTemplates)
			templates.POST("", adminOnly, r.templateController.CreateTemplate)
			templates.POST("/:id/activate", adminOnly, r.templateController.ActivateTemplate)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(auth.Authenticate())
		{
			notifications.GET("", r.notificationController.GetNotifications)
			notifications.GET("/ws", r.notificationController.WebSocket)
			notifications.PUT("/read-all", r.notificationController.MarkAllAsRead)
			notifications.PUT("/:id/read", r.notificationController.MarkAsRead)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
