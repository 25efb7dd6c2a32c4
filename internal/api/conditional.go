package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/share-gateway/internal/gateway"
)

// notServed is returned through the gateway when the response would carry
// no file bytes (304, 412 or 416). Such requests do not use up a download.
type notServed struct {
	status int
	size   int64
}

func (e *notServed) Error() string {
	return http.StatusText(e.status)
}

// admitRequest evaluates the conditional headers and Range the same way
// http.ServeContent does. No ETag is ever sent, so only "*" matches an
// entity tag.
func admitRequest(r *http.Request) gateway.Admission {
	return func(size int64, modTime time.Time) error {
		if status := preconditionStatus(r, size, modTime); status != 0 {
			return &notServed{status: status, size: size}
		}
		return nil
	}
}

func preconditionStatus(r *http.Request, size int64, modTime time.Time) int {
	modTime = modTime.Truncate(time.Second)
	known := !isZeroTime(modTime)

	if im := r.Header.Get("If-Match"); im != "" {
		if !anyETag(im) {
			return http.StatusPreconditionFailed
		}
	} else if ius := r.Header.Get("If-Unmodified-Since"); ius != "" && known {
		if t, err := http.ParseTime(ius); err == nil && modTime.After(t) {
			return http.StatusPreconditionFailed
		}
	}

	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if anyETag(inm) {
			return http.StatusNotModified
		}
	} else if ims := r.Header.Get("If-Modified-Since"); ims != "" && known {
		if t, err := http.ParseTime(ims); err == nil && !modTime.After(t) {
			return http.StatusNotModified
		}
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		return 0
	}
	// If-Range 不匹配时忽略 Range，返回完整内容
	if ir := r.Header.Get("If-Range"); ir != "" {
		t, err := http.ParseTime(ir)
		if err != nil || !known || !modTime.Equal(t) {
			return 0
		}
	}
	if !rangeSatisfiable(rangeHeader, size) {
		return http.StatusRequestedRangeNotSatisfiable
	}
	return 0
}

func anyETag(list string) bool {
	for _, tag := range strings.Split(list, ",") {
		if strings.TrimSpace(tag) == "*" {
			return true
		}
	}
	return false
}

func isZeroTime(t time.Time) bool {
	return t.IsZero() || t.Equal(time.Unix(0, 0))
}

// rangeSatisfiable reports whether ServeContent would answer a Range header
// with 206 (or a full 200) rather than 416.
func rangeSatisfiable(header string, size int64) bool {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return false
	}

	var satisfiable, noOverlap bool
	for _, ra := range strings.Split(header[len(prefix):], ",") {
		ra = strings.TrimSpace(ra)
		if ra == "" {
			continue
		}
		start, end, ok := strings.Cut(ra, "-")
		if !ok {
			return false
		}
		start, end = strings.TrimSpace(start), strings.TrimSpace(end)

		if start == "" {
			// 后缀形式 bytes=-N
			if end == "" || end[0] == '-' {
				return false
			}
			if n, err := strconv.ParseInt(end, 10, 64); err != nil || n < 0 {
				return false
			}
			satisfiable = true
			continue
		}

		first, err := strconv.ParseInt(start, 10, 64)
		if err != nil || first < 0 {
			return false
		}
		if first >= size {
			noOverlap = true
			continue
		}
		if end != "" {
			last, err := strconv.ParseInt(end, 10, 64)
			if err != nil || first > last {
				return false
			}
		}
		satisfiable = true
	}
	return satisfiable || !noOverlap
}

// writeNotServed answers a refused conditional or range request without a
// body.
func writeNotServed(c *gin.Context, e *notServed) {
	if e.status == http.StatusRequestedRangeNotSatisfiable {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", e.size))
	}
	c.AbortWithStatus(e.status)
}
