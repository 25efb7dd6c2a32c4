package share

import "errors"

// 错误定义
var (
	ErrInvalidTarget              = Error("provide either fileId or folderId, not both")
	ErrInvalidPolicy              = Error("invalid share policy")
	ErrShareNotFound              = Error("share not found")
	ErrTargetNotFound             = Error("share target not found")
	ErrShareInactive              = Error("share is no longer active")
	ErrShareExpired               = Error("share has expired")
	ErrShareDownloadLimitExceeded = Error("download limit reached")
	ErrPasswordRequired           = Error("password required")
	ErrInvalidPassword            = Error("invalid password")
	ErrTokenCollision             = Error("share token collision")
)

type Error string

func (e Error) Error() string {
	return string(e)
}

// IsGone reports whether err means the share exists but no longer grants
// access.
func IsGone(err error) bool {
	return errors.Is(err, ErrShareInactive) ||
		errors.Is(err, ErrShareExpired) ||
		errors.Is(err, ErrShareDownloadLimitExceeded)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrShareNotFound) || errors.Is(err, ErrTargetNotFound)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidTarget) || errors.Is(err, ErrInvalidPolicy)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrPasswordRequired) || errors.Is(err, ErrInvalidPassword)
}
