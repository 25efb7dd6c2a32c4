package share

import (
	"time"

	"github.com/share-gateway/internal/models"
)

// CheckUsable applies the active, expiry and quota checks in that order and
// returns the first that fails.
func CheckUsable(s *models.Share, now time.Time) error {
	if !s.IsActive {
		return ErrShareInactive
	}
	if s.IsExpired(now) {
		return ErrShareExpired
	}
	if s.DownloadLimitReached() {
		return ErrShareDownloadLimitExceeded
	}
	return nil
}
