package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrEmptyPlan is returned when a request carries no ranges.
	ErrEmptyPlan = errors.New("download: no byte ranges requested")
	// ErrRangeNotSupported is returned when the server answers a range
	// request with the whole file.
	ErrRangeNotSupported = errors.New("download: server ignored range request")
	// ErrShortRange is returned when a range body is shorter than requested.
	ErrShortRange = errors.New("download: short range body")
)

// Failure categories reported in Result.Category.
const (
	CategoryTransport        = "transport"
	CategoryHTTPStatus       = "http_status"
	CategoryRangeUnsupported = "range_unsupported"
	CategoryFilesystem       = "filesystem"
	CategoryCanceled         = "canceled"
	CategoryInvalidRequest   = "invalid_request"
)

// StatusError is an unexpected HTTP status for one range.
type StatusError struct {
	StatusCode int
	Range      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download: unexpected status %d for range %s", e.StatusCode, e.Range)
}

func categorize(err error) string {
	var statusErr *StatusError
	var pathErr *fs.PathError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCanceled
	case errors.Is(err, ErrEmptyPlan):
		return CategoryInvalidRequest
	case errors.Is(err, ErrRangeNotSupported):
		return CategoryRangeUnsupported
	case errors.As(err, &statusErr):
		return CategoryHTTPStatus
	case errors.As(err, &pathErr), errors.Is(err, errLocal):
		return CategoryFilesystem
	default:
		return CategoryTransport
	}
}

// errLocal tags failures of the local filesystem.
var errLocal = errors.New("local filesystem")
