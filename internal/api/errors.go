package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/share-gateway/internal/gateway"
	"github.com/share-gateway/internal/share"
)

// Machine-readable reasons carried next to the message.
const (
	ReasonNotFound         = "not_found"
	ReasonInactive         = "inactive"
	ReasonExpired          = "expired"
	ReasonDownloadLimit    = "download_limit"
	ReasonPasswordRequired = "password_required"
	ReasonInvalidPassword  = "invalid_password"
	ReasonTooManyAttempts  = "too_many_attempts"
	ReasonInvalidArgument  = "invalid_argument"
	ReasonInternal         = "internal"
)

type apiError struct {
	status  int
	reason  string
	message string
}

func classify(err error) apiError {
	switch {
	case errors.Is(err, share.ErrShareNotFound):
		return apiError{http.StatusNotFound, ReasonNotFound, share.ErrShareNotFound.Error()}
	case share.IsNotFound(err), errors.Is(err, gateway.ErrWrongShareType):
		return apiError{http.StatusNotFound, ReasonNotFound, share.ErrTargetNotFound.Error()}
	case share.IsGone(err):
		return apiError{http.StatusGone, goneReason(err), err.Error()}
	case share.IsUnauthorized(err):
		reason := ReasonInvalidPassword
		if errors.Is(err, share.ErrPasswordRequired) {
			reason = ReasonPasswordRequired
		}
		return apiError{http.StatusUnauthorized, reason, err.Error()}
	case errors.Is(err, gateway.ErrTooManyAttempts):
		return apiError{http.StatusTooManyRequests, ReasonTooManyAttempts, err.Error()}
	case share.IsInvalidArgument(err):
		return apiError{http.StatusBadRequest, ReasonInvalidArgument, err.Error()}
	default:
		return apiError{http.StatusInternalServerError, ReasonInternal, "internal server error"}
	}
}

func goneReason(err error) string {
	switch {
	case errors.Is(err, share.ErrShareInactive):
		return ReasonInactive
	case errors.Is(err, share.ErrShareExpired):
		return ReasonExpired
	default:
		return ReasonDownloadLimit
	}
}

// respondError writes the JSON error body. Unexpected errors are logged and
// their text is kept out of the response.
func respondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	e := classify(err)
	if e.status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.AbortWithStatusJSON(e.status, gin.H{"error": e.message, "reason": e.reason})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": ReasonInvalidArgument})
}
