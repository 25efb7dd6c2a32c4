package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/share-gateway/internal/models"
	"github.com/share-gateway/internal/share"
)

// shareURLs builds public links, from the configured base URL or from the
// request when none is configured.
type shareURLs struct {
	baseURL string
}

func (u shareURLs) base(c *gin.Context) string {
	if u.baseURL != "" {
		return u.baseURL
	}
	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if c.Request.TLS != nil {
			proto = "https"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return proto + "://" + strings.TrimRight(host, "/")
}

func (u shareURLs) views(c *gin.Context, shares []models.Share) []models.ShareView {
	base := u.base(c)
	views := make([]models.ShareView, 0, len(shares))
	for i := range shares {
		views = append(views, models.NewShareView(&shares[i], base))
	}
	return views
}

// handleCreateShare 处理创建分享
func handleCreateShare(registry *share.Registry, urls shareURLs, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateShareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		s, err := registry.CreateShare(c.Request.Context(), c.GetString("userID"), &req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, models.NewShareView(s, urls.base(c)))
	}
}

// handleListShares 处理列出分享
func handleListShares(registry *share.Registry, urls shareURLs, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shares, err := registry.ListShares(c.Request.Context(), c.GetString("userID"), c.Query("fileId"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, urls.views(c, shares))
	}
}

// handleListSharesForFile 列出某个文件的分享
func handleListSharesForFile(registry *share.Registry, urls shareURLs, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shares, err := registry.ListShares(c.Request.Context(), c.GetString("userID"), c.Param("fileId"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, urls.views(c, shares))
	}
}

// handleUpdateShare 处理修改分享
func handleUpdateShare(registry *share.Registry, urls shareURLs, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UpdateShareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		s, err := registry.UpdateShare(c.Request.Context(), c.GetString("userID"), c.Param("id"), &req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, models.NewShareView(s, urls.base(c)))
	}
}

// handleDeleteShare 处理删除分享
func handleDeleteShare(registry *share.Registry, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := registry.RevokeShare(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
			respondError(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
