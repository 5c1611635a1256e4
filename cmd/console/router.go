package main

import (
	"github.com/gin-gonic/gin"

	"github.com/Zuzuna54/fintech-app-demo/internal/domain"
	"github.com/Zuzuna54/fintech-app-demo/internal/guard"
	"github.com/Zuzuna54/fintech-app-demo/internal/handler"
	"github.com/Zuzuna54/fintech-app-demo/internal/logger"
	"github.com/Zuzuna54/fintech-app-demo/internal/middleware"
	"github.com/Zuzuna54/fintech-app-demo/internal/proxy"
	"github.com/Zuzuna54/fintech-app-demo/internal/response"
	"github.com/Zuzuna54/fintech-app-demo/internal/session"
	"github.com/Zuzuna54/fintech-app-demo/internal/telemetry"
)

// newRouter wires every console route: health probes, the auth surface,
// the locally validated payment submission, and the guarded resource
// routes forwarded to the backend.
func newRouter(
	serviceName string,
	svc *session.Service,
	returnPath *guard.ReturnPath,
	resourceProxy *proxy.ResourceProxy,
	authHandler *handler.AuthHandler,
	paymentHandler *handler.PaymentHandler,
	appLog *logger.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(appLog))
	router.Use(middleware.CORS())
	router.Use(telemetry.TracingMiddleware(serviceName))

	// Health endpoints
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if !resourceProxy.HealthCheck(c.Request.Context()) {
			response.ServiceUnavailable(c, "backend unreachable")
			return
		}
		response.Success(c, gin.H{"status": "ready"})
	})

	// The login view carries the guard without an auth requirement so an
	// operator who is already signed in gets bounced to their landing
	// page instead of seeing the form again.
	router.GET(guard.LoginPath,
		guard.Middleware(svc, returnPath, guard.Options{}),
		authHandler.LoginView)

	// Auth endpoints
	auth := router.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/session", authHandler.Session)
		auth.DELETE("/session/error", authHandler.ClearError)
		auth.PATCH("/profile",
			guard.Middleware(svc, returnPath, guard.Options{RequireAuth: true}),
			authHandler.UpdateProfile)
	}

	// Guarded resource routes, forwarded to the backend
	api := router.Group("/api")
	api.Use(guard.Middleware(svc, returnPath, guard.Options{RequireAuth: true}))
	{
		api.POST("/payments", paymentHandler.Create)
		api.Any("/accounts", resourceProxy.Handler())
		api.Any("/accounts/*rest", resourceProxy.Handler())
		api.GET("/payments", resourceProxy.Handler())
		api.Any("/payments/*rest", resourceProxy.Handler())
		api.Any("/plaid/*rest", resourceProxy.Handler())

		// Organization and user administration is superuser-only
		admin := api.Group("")
		admin.Use(guard.Middleware(svc, returnPath, guard.Options{
			RequireAuth:  true,
			AllowedRoles: []domain.Role{domain.RoleSuperuser},
		}))
		{
			admin.Any("/organizations", resourceProxy.Handler())
			admin.Any("/organizations/*rest", resourceProxy.Handler())
			admin.Any("/users", resourceProxy.Handler())
			admin.Any("/users/*rest", resourceProxy.Handler())
		}
	}

	return router
}
