package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/share-gateway/internal/gateway"
	"github.com/share-gateway/internal/share"
)

func TestPreconditionStatus(t *testing.T) {
	modTime := time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)
	before := modTime.Add(-time.Hour).Format(http.TimeFormat)
	same := modTime.Format(http.TimeFormat)
	after := modTime.Add(time.Hour).Format(http.TimeFormat)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"plain", nil, 0},
		{"modified since earlier", map[string]string{"If-Modified-Since": before}, 0},
		{"not modified at same second", map[string]string{"If-Modified-Since": same}, http.StatusNotModified},
		{"not modified later", map[string]string{"If-Modified-Since": after}, http.StatusNotModified},
		{"bad date ignored", map[string]string{"If-Modified-Since": "yesterday"}, 0},
		{"none match star", map[string]string{"If-None-Match": "*"}, http.StatusNotModified},
		{"none match tag wins over date", map[string]string{"If-None-Match": `"x"`, "If-Modified-Since": after}, 0},
		{"if match star", map[string]string{"If-Match": "*"}, 0},
		{"if match tag", map[string]string{"If-Match": `"x"`}, http.StatusPreconditionFailed},
		{"unmodified since earlier", map[string]string{"If-Unmodified-Since": before}, http.StatusPreconditionFailed},
		{"unmodified since later", map[string]string{"If-Unmodified-Since": after}, 0},
		{"range ok", map[string]string{"Range": "bytes=0-4"}, 0},
		{"range past end", map[string]string{"Range": "bytes=100-200"}, http.StatusRequestedRangeNotSatisfiable},
		{"range garbage", map[string]string{"Range": "lines=1-2"}, http.StatusRequestedRangeNotSatisfiable},
		{"stale if-range drops range", map[string]string{"Range": "bytes=100-200", "If-Range": before}, 0},
		{"matching if-range keeps range", map[string]string{"Range": "bytes=100-200", "If-Range": same}, http.StatusRequestedRangeNotSatisfiable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/s/x/download", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, preconditionStatus(r, 10, modTime))
		})
	}
}

func TestPreconditionStatus_UnknownModTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/s/x/download", nil)
	r.Header.Set("If-Modified-Since", time.Now().Format(http.TimeFormat))
	assert.Zero(t, preconditionStatus(r, 10, time.Time{}))
	assert.Zero(t, preconditionStatus(r, 10, time.Unix(0, 0)))
}

func TestRangeSatisfiable(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"bytes=0-0", true},
		{"bytes=9-", true},
		{"bytes=10-", false},
		{"bytes=-3", true},
		{"bytes=-50", true},
		{"bytes=-", false},
		{"bytes=5-2", false},
		{"bytes=x-2", false},
		{"bytes=20-30,0-1", true},
		{"bytes=20-30,40-50", false},
		{"bytes=", true},
		{"bytes=3", false},
		{"items=0-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, rangeSatisfiable(tt.header, 10))
		})
	}
}

func TestAdmitRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/s/x/download", nil)
	r.Header.Set("Range", "bytes=100-")

	err := admitRequest(r)(5, time.Now())
	var ns *notServed
	require.True(t, errors.As(err, &ns))
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, ns.status)
	assert.Equal(t, int64(5), ns.size)

	plain := httptest.NewRequest(http.MethodGet, "/s/x/download", nil)
	assert.NoError(t, admitRequest(plain)(5, time.Now()))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		reason string
	}{
		{share.ErrShareNotFound, http.StatusNotFound, ReasonNotFound},
		{fmt.Errorf("lookup: %w", share.ErrTargetNotFound), http.StatusNotFound, ReasonNotFound},
		{gateway.ErrWrongShareType, http.StatusNotFound, ReasonNotFound},
		{share.ErrShareInactive, http.StatusGone, ReasonInactive},
		{share.ErrShareExpired, http.StatusGone, ReasonExpired},
		{fmt.Errorf("record: %w", share.ErrShareDownloadLimitExceeded), http.StatusGone, ReasonDownloadLimit},
		{share.ErrPasswordRequired, http.StatusUnauthorized, ReasonPasswordRequired},
		{share.ErrInvalidPassword, http.StatusUnauthorized, ReasonInvalidPassword},
		{gateway.ErrTooManyAttempts, http.StatusTooManyRequests, ReasonTooManyAttempts},
		{fmt.Errorf("%w: bad", share.ErrInvalidPolicy), http.StatusBadRequest, ReasonInvalidArgument},
		{share.ErrInvalidTarget, http.StatusBadRequest, ReasonInvalidArgument},
		{errors.New("disk on fire"), http.StatusInternalServerError, ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.status, got.status)
			assert.Equal(t, tt.reason, got.reason)
		})
	}

	// 目标不存在与分享不存在的文案不同，但都不泄露原始错误
	assert.Equal(t, "internal server error", classify(errors.New("secret detail")).message)
	assert.Equal(t, share.ErrTargetNotFound.Error(), classify(gateway.ErrWrongShareType).message)
}
