package api

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/share-gateway/internal/gateway"
	"github.com/share-gateway/internal/models"
)

// accessFrom collects the token and password of an anonymous request. The
// password may come from the query string or the X-Share-Password header.
func accessFrom(c *gin.Context) gateway.Access {
	password := c.Query("password")
	if password == "" {
		password = c.GetHeader("X-Share-Password")
	}
	return gateway.Access{
		Token:    c.Param("token"),
		Password: password,
		ClientIP: c.ClientIP(),
	}
}

// handleShareInfo 获取分享信息
func handleShareInfo(gw *gateway.Gateway, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := gw.Info(c.Request.Context(), c.Param("token"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// handleVerifyPassword 验证分享密码
func handleVerifyPassword(gw *gateway.Gateway, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.VerifyPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err)
			return
		}

		access := accessFrom(c)
		access.Password = req.Password

		res, err := gw.Verify(c.Request.Context(), access)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// handleDownload 下载分享的文件
func handleDownload(gw *gateway.Gateway, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		access := accessFrom(c)
		access.Admit = admitRequest(c.Request)

		d, err := gw.OpenDownload(c.Request.Context(), access)
		if err != nil {
			respondDownloadError(c, logger, err)
			return
		}
		serveDownload(c, d)
	}
}

// handleFolderFileDownload 下载分享文件夹中的文件
func handleFolderFileDownload(gw *gateway.Gateway, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		access := accessFrom(c)
		access.Admit = admitRequest(c.Request)

		d, err := gw.OpenFolderFileDownload(c.Request.Context(), access, c.Param("fileId"))
		if err != nil {
			respondDownloadError(c, logger, err)
			return
		}
		serveDownload(c, d)
	}
}

// handleContents 列出分享文件夹内容
func handleContents(gw *gateway.Gateway, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		contents, err := gw.Contents(c.Request.Context(), accessFrom(c))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, contents)
	}
}

func respondDownloadError(c *gin.Context, logger logrus.FieldLogger, err error) {
	var ns *notServed
	if errors.As(err, &ns) {
		writeNotServed(c, ns)
		return
	}
	respondError(c, logger, err)
}

// serveDownload streams an accepted download. ServeContent answers Range
// and conditional requests.
func serveDownload(c *gin.Context, d *gateway.Download) {
	defer d.Object.Close()

	c.Header("Content-Type", d.MimeType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Name}))
	http.ServeContent(c.Writer, c.Request, d.Name, d.ModTime, d.Object)
}
