// Package api exposes the share registry and the public gateway over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/share-gateway/internal/gateway"
	"github.com/share-gateway/internal/middleware"
	"github.com/share-gateway/internal/share"
)

// Deps are the services the router wires into handlers.
type Deps struct {
	Registry   *share.Registry
	Gateway    *gateway.Gateway
	Auth       middleware.TokenValidator
	Logger     logrus.FieldLogger
	BaseURL    string
	EnableCORS bool
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(d.Logger))
	router.Use(middleware.LoggerMiddleware(d.Logger))
	if d.EnableCORS {
		router.Use(middleware.CORSMiddleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	urls := shareURLs{baseURL: d.BaseURL}

	// Owner routes
	shareGroup := router.Group("/api/shares")
	shareGroup.Use(middleware.AuthMiddleware(d.Auth))
	{
		shareGroup.POST("", handleCreateShare(d.Registry, urls, d.Logger))
		shareGroup.GET("", handleListShares(d.Registry, urls, d.Logger))
		shareGroup.GET("/file/:fileId", handleListSharesForFile(d.Registry, urls, d.Logger))
		shareGroup.PUT("/:id", handleUpdateShare(d.Registry, urls, d.Logger))
		shareGroup.DELETE("/:id", handleDeleteShare(d.Registry, d.Logger))
	}

	// Public share access
	publicGroup := router.Group("/s/:token")
	{
		publicGroup.GET("", handleShareInfo(d.Gateway, d.Logger))
		publicGroup.POST("/verify", handleVerifyPassword(d.Gateway, d.Logger))
		publicGroup.GET("/download", handleDownload(d.Gateway, d.Logger))
		publicGroup.GET("/contents", handleContents(d.Gateway, d.Logger))
		publicGroup.GET("/files/:fileId/download", handleFolderFileDownload(d.Gateway, d.Logger))
	}

	return router
}
